package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedJob string

func (j namedJob) Name() string              { return string(j) }
func (j namedJob) Run(context.Context) error { return nil }

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	reg := NewRegistry(namedJob("delivered-auto-complete"), nil)
	require.NoError(t, reg.Register(namedJob("outbox-retention")))

	jobs := reg.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "delivered-auto-complete", jobs[0].Name())
	assert.Equal(t, "outbox-retention", jobs[1].Name())

	jobs[0] = nil
	assert.NotNil(t, reg.Jobs()[0], "Jobs must hand out a copy")
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	reg := NewRegistry(namedJob("outbox-retention"))
	assert.EqualError(t, reg.Register(namedJob("outbox-retention")), `cron: job "outbox-retention" registered twice`)
	assert.Len(t, reg.Jobs(), 1)

	assert.Panics(t, func() { NewRegistry(namedJob("a"), namedJob("a")) })
}

func TestZeroRegistryIsUsable(t *testing.T) {
	var reg Registry
	require.NoError(t, reg.Register(namedJob("notification-cleanup")))
	assert.Len(t, reg.Jobs(), 1)
}
