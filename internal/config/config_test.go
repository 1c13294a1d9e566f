package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.UserServiceURL != "http://localhost:8081" {
		t.Errorf("Expected default user-service URL, got %q", cfg.UserServiceURL)
	}
	if cfg.CanvasAPIBaseURL != "https://canvas.instructure.com/api/v1" {
		t.Errorf("Expected default canvas base URL, got %q", cfg.CanvasAPIBaseURL)
	}
	if cfg.CanvasPageSize != 100 {
		t.Errorf("Expected default page size 100, got %d", cfg.CanvasPageSize)
	}
	if cfg.Strategy != StrategyBatched {
		t.Errorf("Expected batched strategy by default, got %q", cfg.Strategy)
	}
	if cfg.ServiceAuthToken != "local-dev-token" {
		t.Errorf("Expected local-dev-token fallback, got %q", cfg.ServiceAuthToken)
	}
	if cfg.ServiceAuthTokenSet {
		t.Error("Expected default auth token to read as unconfigured")
	}
	if cfg.ServiceTimeout != 5*time.Second {
		t.Errorf("Expected 5s service timeout, got %v", cfg.ServiceTimeout)
	}
	if cfg.CanvasTimeout != 10*time.Second {
		t.Errorf("Expected 10s canvas timeout, got %v", cfg.CanvasTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("USER_SERVICE_URL", "http://user-service:8081")
	t.Setenv("CANVAS_PAGE_SIZE", "50")
	t.Setenv("PUBLISH_STRATEGY", "per-record")
	t.Setenv("CANVAS_SYNC_QUEUE_URL", "http://localhost:4566/000000000000/canvas-sync-queue")
	t.Setenv("SERVICE_TIMEOUT", "2s")
	t.Setenv("SERVICE_AUTH_TOKEN", "ops-issued-token")

	cfg := Load()

	if cfg.UserServiceURL != "http://user-service:8081" {
		t.Errorf("Expected override to win, got %q", cfg.UserServiceURL)
	}
	if cfg.CanvasPageSize != 50 {
		t.Errorf("Expected page size 50, got %d", cfg.CanvasPageSize)
	}
	if cfg.Strategy != StrategyPerRecord {
		t.Errorf("Expected per-record strategy, got %q", cfg.Strategy)
	}
	if cfg.QueueURLs[CanvasSyncQueue] == "" {
		t.Error("Expected explicit queue URL override to be picked up")
	}
	if cfg.ServiceTimeout != 2*time.Second {
		t.Errorf("Expected 2s service timeout, got %v", cfg.ServiceTimeout)
	}
	if cfg.ServiceAuthToken != "ops-issued-token" || !cfg.ServiceAuthTokenSet {
		t.Errorf("Expected explicit auth token to read as configured, got %q set=%v",
			cfg.ServiceAuthToken, cfg.ServiceAuthTokenSet)
	}
}

func TestLoadBadNumbersFallBack(t *testing.T) {
	t.Setenv("CANVAS_PAGE_SIZE", "not-a-number")
	t.Setenv("SERVICE_TIMEOUT", "soon")

	cfg := Load()

	if cfg.CanvasPageSize != 100 {
		t.Errorf("Expected default page size on parse failure, got %d", cfg.CanvasPageSize)
	}
	if cfg.ServiceTimeout != 5*time.Second {
		t.Errorf("Expected default timeout on parse failure, got %v", cfg.ServiceTimeout)
	}
}

func TestLocalBackend(t *testing.T) {
	cfg := Load()
	if cfg.LocalBackend() {
		t.Error("Expected LocalBackend to be false without SQS_ENDPOINT")
	}

	t.Setenv("SQS_ENDPOINT", "http://localhost:4566")
	cfg = Load()
	if !cfg.LocalBackend() {
		t.Error("Expected LocalBackend to be true with SQS_ENDPOINT set")
	}
}
