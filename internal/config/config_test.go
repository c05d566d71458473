package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"SERVER_PORT", "APP_ENV", "REDIS_URL", "AI_TIMEOUT_MS", "ALLOW_IN_MEMORY_RATE_LIMIT", "AI_API_KEY", "GOOGLE_API_KEY"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.ServerPort)
	}
	if cfg.Production() {
		t.Error("expected development by default")
	}
	if cfg.AITimeout != 30*time.Second || cfg.CoverLetterTimeout != 35*time.Second || cfg.ResumeTimeout != 45*time.Second {
		t.Errorf("unexpected timeouts %v %v %v", cfg.AITimeout, cfg.CoverLetterTimeout, cfg.ResumeTimeout)
	}
	if cfg.AllowMemoryRateLimit {
		t.Error("expected memory fallback opt-in to default off")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "Production")
	t.Setenv("AI_TIMEOUT_MS", "1500")
	t.Setenv("RESUME_ROUTE_TIMEOUT_MS", "not-a-number")
	t.Setenv("ALLOW_IN_MEMORY_RATE_LIMIT", "true")
	t.Setenv("AI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "g-key")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Production() {
		t.Error("expected production")
	}
	if cfg.AITimeout != 1500*time.Millisecond {
		t.Errorf("expected 1.5s, got %v", cfg.AITimeout)
	}
	if cfg.ResumeTimeout != 45*time.Second {
		t.Errorf("expected default on bad value, got %v", cfg.ResumeTimeout)
	}
	if !cfg.AllowMemoryRateLimit {
		t.Error("expected opt-in")
	}
	if cfg.AIAPIKey != "g-key" {
		t.Errorf("expected GOOGLE_API_KEY alias, got %q", cfg.AIAPIKey)
	}
}
