package cron

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Job is one unit of scheduled work. Name doubles as the metrics label and
// must be unique within a Registry.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Registry keeps jobs in the order they run.
type Registry struct {
	order []Job
	seen  map[string]bool
}

// NewRegistry panics on a duplicate name; that is a wiring bug in main.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{seen: make(map[string]bool, len(jobs))}
	for _, job := range jobs {
		if err := r.Register(job); err != nil {
			panic(err)
		}
	}
	return r
}

// Register ignores nil so optional jobs can be passed unconditionally.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	if r.seen == nil {
		r.seen = map[string]bool{}
	}
	name := job.Name()
	if r.seen[name] {
		return fmt.Errorf("cron: job %q registered twice", name)
	}
	r.seen[name] = true
	r.order = append(r.order, job)
	return nil
}

func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.order...)
}
