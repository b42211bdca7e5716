package api

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/angelmondragon/foodops-backend/pkg/config"
	"github.com/angelmondragon/foodops-backend/pkg/logger"
)

func TestServeStopsOnCancel(t *testing.T) {
	cfg := &config.Config{HTTP: config.HTTPConfig{ReadHeaderTimeout: time.Second, ShutdownTimeout: time.Second}}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	server := NewServer(cfg, "127.0.0.1:0", http.NotFoundHandler())
	if server.ReadHeaderTimeout != time.Second {
		t.Fatalf("expected read header timeout from config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, cfg, logg, server) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected serve error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
