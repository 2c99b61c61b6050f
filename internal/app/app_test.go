package app

import (
	"testing"

	"docrouter/internal/config"
	"docrouter/internal/provider"
)

func TestBuildProvidersDevModeFallsBackToNoop(t *testing.T) {
	cfg := config.Default()
	cfg.Dev.Mode = true
	// Default providers resolve keys from env vars that are unset here.
	for _, p := range cfg.Providers {
		if p.Key() != "" {
			t.Skipf("provider %s has a credential in the environment", p.Name)
		}
	}

	active, invokers := buildProviders(cfg)
	if len(active) != len(cfg.Providers) {
		t.Fatalf("dev mode should keep all providers, got %d", len(active))
	}
	for _, p := range active {
		inv, ok := invokers[p.Name]
		if !ok {
			t.Fatalf("missing invoker for %s", p.Name)
		}
		if _, isNoop := inv.(*provider.Noop); !isNoop {
			t.Fatalf("provider %s should be noop without a credential", p.Name)
		}
	}
}

func TestBuildProvidersSkipsCredentiallessOutsideDevMode(t *testing.T) {
	cfg := config.Default()
	cfg.Dev.Mode = false
	cfg.Providers = []config.ProviderConfig{
		{Name: "no_key", Type: "gemini", Priority: 1},
		{Name: "with_key", Type: "openai_compat", APIKey: "k", BaseURL: "https://example.invalid", Priority: 2},
	}
	active, invokers := buildProviders(cfg)
	if len(active) != 1 || active[0].Name != "with_key" {
		t.Fatalf("expected only with_key active, got %+v", active)
	}
	if _, ok := invokers["no_key"]; ok {
		t.Fatalf("no_key should have no invoker")
	}
}

func TestBuildProvidersSkipsUnknownType(t *testing.T) {
	cfg := config.Default()
	cfg.Dev.Mode = false
	cfg.Providers = []config.ProviderConfig{
		{Name: "odd", Type: "carrier_pigeon", APIKey: "k", Priority: 1},
	}
	active, _ := buildProviders(cfg)
	if len(active) != 0 {
		t.Fatalf("unknown type should be skipped, got %+v", active)
	}
}
