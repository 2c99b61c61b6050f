package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.HTTP.Addr != ":8090" {
		t.Fatalf("addr %q", cfg.HTTP.Addr)
	}
	if !cfg.Dev.Mode {
		t.Fatalf("dev mode should default on")
	}
	if cfg.Pipeline.ChunkMaxChars != 4000 {
		t.Fatalf("chunk max %d", cfg.Pipeline.ChunkMaxChars)
	}
	if cfg.Pipeline.InterTaskDelay != 2*time.Second {
		t.Fatalf("inter-task delay %s", cfg.Pipeline.InterTaskDelay)
	}
	if cfg.Cooldowns.RateLimit != 70*time.Second ||
		cfg.Cooldowns.Quota != 60*time.Minute ||
		cfg.Cooldowns.Auth != 30*time.Minute ||
		cfg.Cooldowns.Transient != 2*time.Minute {
		t.Fatalf("cooldown defaults: %+v", cfg.Cooldowns)
	}
	if cfg.RetryWaits.RateLimit != 35*time.Second || cfg.RetryWaits.Transient != 5*time.Second {
		t.Fatalf("retry wait defaults: %+v", cfg.RetryWaits)
	}
	if len(cfg.Providers) != 5 {
		t.Fatalf("expected 5 default providers, got %d", len(cfg.Providers))
	}
	for _, p := range cfg.Providers {
		indic := p.Name == "google_primary" || p.Name == "google_secondary"
		if p.SupportsIndic != indic {
			t.Fatalf("provider %s supports_indic=%v", p.Name, p.SupportsIndic)
		}
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Addr != ":8090" {
		t.Fatalf("expected defaults, got addr %q", cfg.HTTP.Addr)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
http:
  addr: ":9999"
pipeline:
  chunk_max_chars: 1000
providers:
  - name: only
    type: noop
    priority: 1
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Addr != ":9999" {
		t.Fatalf("addr %q", cfg.HTTP.Addr)
	}
	if cfg.Pipeline.ChunkMaxChars != 1000 {
		t.Fatalf("pipeline override not applied: %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.InterTaskDelay != 2*time.Second {
		t.Fatalf("unset pipeline field lost its default: %s", cfg.Pipeline.InterTaskDelay)
	}
	if len(cfg.Providers) != 1 || cfg.Providers[0].Name != "only" {
		t.Fatalf("provider list not replaced: %+v", cfg.Providers)
	}
	// Untouched sections keep defaults.
	if cfg.Cooldowns.RateLimit != 70*time.Second {
		t.Fatalf("cooldown default lost: %s", cfg.Cooldowns.RateLimit)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DR_HTTP_ADDR", ":7070")
	t.Setenv("DR_DEV_MODE", "off")
	t.Setenv("DR_CHUNK_MAX_CHARS", "2500")
	t.Setenv("DR_INTER_TASK_DELAY", "750ms")
	t.Setenv("DR_COOLDOWN_RATE_LIMIT", "90s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Addr != ":7070" {
		t.Fatalf("addr %q", cfg.HTTP.Addr)
	}
	if cfg.Dev.Mode {
		t.Fatalf("dev mode should be off")
	}
	if cfg.Pipeline.ChunkMaxChars != 2500 {
		t.Fatalf("chunk max %d", cfg.Pipeline.ChunkMaxChars)
	}
	if cfg.Pipeline.InterTaskDelay != 750*time.Millisecond {
		t.Fatalf("inter-task delay %s", cfg.Pipeline.InterTaskDelay)
	}
	if cfg.Cooldowns.RateLimit != 90*time.Second {
		t.Fatalf("rate-limit cooldown %s", cfg.Cooldowns.RateLimit)
	}
}

func TestEnvIgnoresInvalidValues(t *testing.T) {
	t.Setenv("DR_CHUNK_MAX_CHARS", "not-a-number")
	t.Setenv("DR_INTER_TASK_DELAY", "sometime")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Pipeline.ChunkMaxChars != 4000 || cfg.Pipeline.InterTaskDelay != 2*time.Second {
		t.Fatalf("invalid env values should be ignored: %+v", cfg.Pipeline)
	}
}

func TestLoadRejectsDuplicateProviderNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
providers:
  - name: dup
    type: noop
    priority: 1
  - name: dup
    type: noop
    priority: 2
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate name error, got %v", err)
	}
}

func TestLoadRejectsEmptyProviderName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
providers:
  - name: ""
    type: noop
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for empty provider name")
	}
}

func TestProviderKeyPrefersInlineValue(t *testing.T) {
	t.Setenv("TEST_PROVIDER_KEY", "from-env")
	p := ProviderConfig{APIKey: "inline", APIKeyEnv: "TEST_PROVIDER_KEY"}
	if got := p.Key(); got != "inline" {
		t.Fatalf("expected inline key, got %q", got)
	}
	p.APIKey = ""
	if got := p.Key(); got != "from-env" {
		t.Fatalf("expected env key, got %q", got)
	}
}
