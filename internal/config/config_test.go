package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MINIO_ACCESS_KEY_ID", "minio")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "minio-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RateLimit.ResumeLimit != 30 {
		t.Fatalf("expected resume limit 30, got %d", cfg.RateLimit.ResumeLimit)
	}
	if cfg.RateLimit.ResumeWindow != time.Minute {
		t.Fatalf("expected resume window 1m, got %s", cfg.RateLimit.ResumeWindow)
	}
	if cfg.RateLimit.Backend != "redis" {
		t.Fatalf("expected redis backend by default, got %q", cfg.RateLimit.Backend)
	}
	if cfg.Database.Driver != "postgres" {
		t.Fatalf("expected postgres driver, got %q", cfg.Database.Driver)
	}
	if cfg.Redis.Addr() != "localhost:6379" {
		t.Fatalf("unexpected redis addr %q", cfg.Redis.Addr())
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("API_PORT", "9090")
	t.Setenv("RATELIMIT_RESUME_WINDOW", "2m")
	t.Setenv("RESUME_PARSER_ENDPOINT", "https://parser.example.com/extract")
	t.Setenv("STRIPE_PRICE_PRO", "price_pro")
	t.Setenv("API_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.API.Port)
	}
	if cfg.RateLimit.ResumeWindow != 2*time.Minute {
		t.Fatalf("expected 2m window, got %s", cfg.RateLimit.ResumeWindow)
	}
	if cfg.Resume.ParserEndpoint != "https://parser.example.com/extract" {
		t.Fatalf("unexpected parser endpoint %q", cfg.Resume.ParserEndpoint)
	}
	if cfg.Billing.PricePro != "price_pro" {
		t.Fatalf("unexpected pro price %q", cfg.Billing.PricePro)
	}
	if got := cfg.API.Origins(); len(got) != 2 || got[1] != "https://b.example.com" {
		t.Fatalf("unexpected origins %v", got)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RATELIMIT_BACKEND", "carrier-pigeon")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown rate limit backend")
	}
}

func TestLoadRequiresMinIOCredentials(t *testing.T) {
	t.Setenv("MINIO_ACCESS_KEY_ID", "")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when minio credentials are missing")
	}
}
