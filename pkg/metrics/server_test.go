package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCronJobMetrics(reg).CycleSkipped()

	resp := httptest.NewRecorder()
	Handler(reg).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "foodops_cron_cycles_skipped_total 1")

	resp = httptest.NewRecorder()
	Handler(reg).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, resp.Code)
}

func TestServeStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0", prometheus.NewRegistry(), nil) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("metrics listener did not stop")
	}
}

func TestServeDisabledWithoutAddr(t *testing.T) {
	assert.NoError(t, Serve(context.Background(), "", prometheus.NewRegistry(), nil))
}
