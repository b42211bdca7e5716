package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.ObserveRun("outbox-retention", 250*time.Millisecond, nil)
	m.ObserveRun("outbox-retention", time.Second, errors.New("db down"))
	m.ObserveRun("", time.Millisecond, nil)
	m.CycleSkipped()

	mfs, err := reg.Gather()
	require.NoError(t, err)

	success, err := fetchCounterValue(mfs, "foodops_cron_job_runs_total", "result", resultSuccess)
	require.NoError(t, err)
	assert.Equal(t, 1.0, success)
	failure, err := fetchCounterValue(mfs, "foodops_cron_job_runs_total", "result", resultFailure)
	require.NoError(t, err)
	assert.Equal(t, 1.0, failure)

	sum, err := fetchHistogramSum(mfs, "foodops_cron_job_duration_seconds", "job", "outbox-retention")
	require.NoError(t, err)
	assert.InDelta(t, 1.25, sum, 1e-9)

	_, err = fetchHistogramSum(mfs, "foodops_cron_job_duration_seconds", "job", "unknown")
	assert.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.skipped))
	assert.Equal(t, 2, testutil.CollectAndCount(m.lastSuccess))
}

func TestNilCronJobMetricsIsNoop(t *testing.T) {
	var m *CronJobMetrics
	m.ObserveRun("x", time.Second, nil)
	m.CycleSkipped()
	NewCronJobMetrics(nil).ObserveRun("x", time.Second, errors.New("boom"))
}

// fetchCounterValue returns the first sample of name carrying label=value.
func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	m, err := findSample(mfs, name, label, value)
	if err != nil {
		return 0, err
	}
	return m.GetCounter().GetValue(), nil
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	m, err := findSample(mfs, name, label, value)
	if err != nil {
		return 0, err
	}
	return m.GetHistogram().GetSampleSum(), nil
}

func findSample(mfs []*dto.MetricFamily, name, label, value string) (*dto.Metric, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m, nil
				}
			}
		}
		return nil, fmt.Errorf("%s has no sample with %s=%s", name, label, value)
	}
	return nil, fmt.Errorf("%s not gathered", name)
}
