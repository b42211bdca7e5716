package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)

	m.Published("order_created")
	m.Published("order_created")
	m.Retried("stock_low")
	m.DeadLettered("max_attempts")
	m.ObserveBatch(40 * time.Millisecond)

	expected := `
# HELP foodops_outbox_published_total Outbox rows accepted by the broker.
# TYPE foodops_outbox_published_total counter
foodops_outbox_published_total{event_type="order_created"} 2
# HELP foodops_outbox_dead_lettered_total Outbox rows moved to the dead letter table.
# TYPE foodops_outbox_dead_lettered_total counter
foodops_outbox_dead_lettered_total{reason="max_attempts"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"foodops_outbox_published_total", "foodops_outbox_dead_lettered_total"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.retried.WithLabelValues("stock_low")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.batch))
}

func TestNilOutboxMetricsIsNoop(t *testing.T) {
	var m *OutboxMetrics
	m.Published("x")
	m.Retried("x")
	m.DeadLettered("x")
	m.ObserveBatch(time.Second)
}
