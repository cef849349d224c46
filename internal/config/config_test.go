package config

import (
	"reflect"
	"testing"
	"time"
)

func TestParseOrigins(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"", nil},
		{"https://a.example.com", []string{"https://a.example.com"}},
		{" https://a.example.com , ,https://b.example.com ", []string{"https://a.example.com", "https://b.example.com"}},
	}
	for _, tc := range tests {
		if got := parseOrigins(tc.raw); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("parseOrigins(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DB_DRIVER", "DATABASE_URL", "MAX_DB_CONNS", "REDIS_URL", "JWT_SECRET", "CACHE_TTL_MINUTES", "MAX_BODY_MB"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.DBDriver != DriverSQLite || cfg.DatabaseURL != "./form_storage.db" {
		t.Errorf("db = %s %s", cfg.DBDriver, cfg.DatabaseURL)
	}
	if cfg.MaxDBConns != 1 {
		t.Errorf("sqlite max conns = %d, want 1", cfg.MaxDBConns)
	}
	if cfg.CacheEnabled() || cfg.AuthEnabled() {
		t.Error("cache and auth should be off by default")
	}
	if cfg.CacheTTL != time.Hour {
		t.Errorf("cache ttl = %v", cfg.CacheTTL)
	}
	if cfg.MaxBodyBytes != 10<<20 {
		t.Errorf("max body = %d", cfg.MaxBodyBytes)
	}
}

func TestLoadPostgres(t *testing.T) {
	t.Setenv("DB_DRIVER", DriverPostgres)
	t.Setenv("MAX_DB_CONNS", "12")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg := Load()
	if cfg.MaxDBConns != 12 {
		t.Errorf("max conns = %d, want 12", cfg.MaxDBConns)
	}
	if !cfg.CacheEnabled() || !cfg.AuthEnabled() {
		t.Error("cache and auth should be on")
	}
}

func TestCacheKeys(t *testing.T) {
	if got := CacheKey.BankTreeKey("abc"); got != "qbank:abc:tree" {
		t.Errorf("BankTreeKey = %q", got)
	}
	if got := CacheKey.BankGenerationKey("abc"); got != "qbank:abc:gen" {
		t.Errorf("BankGenerationKey = %q", got)
	}
	if WorkerKey.WarmBankCacheQueue != "warm_bank_cache_queue" {
		t.Errorf("queue = %q", WorkerKey.WarmBankCacheQueue)
	}
}
