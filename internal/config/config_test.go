package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PageSize != 20 {
		t.Fatalf("expected default page size 20, got %d", cfg.PageSize)
	}
	if cfg.PagingStrategy != StrategyPage {
		t.Fatalf("expected page strategy, got %q", cfg.PagingStrategy)
	}
	if cfg.NewsAPITimeout != 15*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.NewsAPITimeout)
	}
	if cfg.RangeWait != 30*time.Second || cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("unexpected http timings range=%v shutdown=%v", cfg.RangeWait, cfg.ShutdownTimeout)
	}
	if cfg.StorageTTL != 5*24*time.Hour {
		t.Fatalf("unexpected storage ttl %v", cfg.StorageTTL)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PAGE_SIZE", "50")
	t.Setenv("PAGING_STRATEGY", " Range ")
	t.Setenv("NEWSAPI_BASE_URL", "http://localhost:9999/v2/")

	cfg, err := load(viper.New())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PageSize != 50 {
		t.Fatalf("expected page size 50, got %d", cfg.PageSize)
	}
	if cfg.PagingStrategy != StrategyRange {
		t.Fatalf("expected range strategy, got %q", cfg.PagingStrategy)
	}
	if cfg.NewsAPIBaseURL != "http://localhost:9999/v2" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.NewsAPIBaseURL)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PAGE_SIZE":               "0",
		"PAGING_STRATEGY":         "infinite",
		"NEWSAPI_TIMEOUT_SECONDS": "-1",
		"STORAGE_TTL_SECONDS":     "0",
		"RANGE_WAIT_SECONDS":      "0",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := load(viper.New()); err == nil {
				t.Fatalf("expected error for %s=%s", key, val)
			}
		})
	}
}
