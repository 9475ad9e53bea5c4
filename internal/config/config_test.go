package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.SessionTimeout != 10*time.Minute {
		t.Fatalf("SessionTimeout = %v, want 10m", cfg.SessionTimeout)
	}
	if cfg.ConnectTimeout != 10*time.Second {
		t.Fatalf("ConnectTimeout = %v, want 10s", cfg.ConnectTimeout)
	}
	if cfg.RateLimitPerSecond != 10 {
		t.Fatalf("RateLimitPerSecond = %d, want 10", cfg.RateLimitPerSecond)
	}
	if cfg.DefaultVoice != "alloy" {
		t.Fatalf("DefaultVoice = %q, want %q", cfg.DefaultVoice, "alloy")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("REFLECT_RATE_LIMIT", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero rate limit")
	}

	t.Setenv("REFLECT_RATE_LIMIT", "10")
	t.Setenv("REFLECT_SESSION_TIMEOUT", "2s")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for too-short session timeout")
	}

	t.Setenv("REFLECT_SESSION_TIMEOUT", "not-a-duration")
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REFLECT_SESSION_TIMEOUT", "5m")
	t.Setenv("APP_ALLOW_ANY_ORIGIN", "true")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SessionTimeout != 5*time.Minute {
		t.Fatalf("SessionTimeout = %v, want 5m", cfg.SessionTimeout)
	}
	if !cfg.AllowAnyOrigin {
		t.Fatalf("AllowAnyOrigin = false, want true")
	}
}
