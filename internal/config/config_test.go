package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadFallsBackOnBadNumbers(t *testing.T) {
	t.Setenv("LOW_STOCK_THRESHOLD", "not-a-number")
	t.Setenv("SUMMARY_CACHE_TTL_SECONDS", "-3")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "0")

	cfg := Load()
	if cfg.LowStockThreshold != 5 {
		t.Fatalf("expected low stock threshold 5, got %d", cfg.LowStockThreshold)
	}
	if cfg.SummaryCacheTTLSeconds != 30 {
		t.Fatalf("expected summary TTL 30, got %d", cfg.SummaryCacheTTLSeconds)
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected token TTL 480, got %d", cfg.AccessTokenTTLMinutes)
	}
}

func TestAddress(t *testing.T) {
	t.Setenv("PORT", "9090")

	cfg := Load()
	if cfg.Address() != ":9090" {
		t.Fatalf("expected :9090, got %s", cfg.Address())
	}
}
