package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.GRPCAddr != "0.0.0.0:50051" {
		t.Fatalf("GRPCAddr = %q, want %q", cfg.GRPCAddr, "0.0.0.0:50051")
	}
	if cfg.Location.String() != "America/Sao_Paulo" {
		t.Fatalf("Location = %s, want America/Sao_Paulo", cfg.Location)
	}
	if cfg.CacheBackend != CacheBackendMemory {
		t.Fatalf("CacheBackend = %q, want %q", cfg.CacheBackend, CacheBackendMemory)
	}
	if cfg.MonthCacheTTL != time.Minute || cfg.IdempotencyTTL != time.Minute {
		t.Fatalf("ttls = %s/%s, want 1m/1m", cfg.MonthCacheTTL, cfg.IdempotencyTTL)
	}
	if cfg.DatabaseMigrate {
		t.Fatalf("DatabaseMigrate = true, want false")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AGENDA_GRPC_ADDR", "127.0.0.1:6000")
	t.Setenv("AGENDA_CACHE_BACKEND", "Redis")
	t.Setenv("AGENDA_CACHE_MONTH_TTL", "30s")
	t.Setenv("AGENDA_SCHEDULE_TIMEZONE", "UTC")
	t.Setenv("AGENDA_DATABASE_MIGRATE", "true")
	t.Setenv("AGENDA_RATELIMIT_BURST", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.GRPCAddr != "127.0.0.1:6000" || cfg.GRPCHost != "127.0.0.1" || cfg.GRPCPort != 6000 {
		t.Fatalf("grpc = %q %q %d", cfg.GRPCAddr, cfg.GRPCHost, cfg.GRPCPort)
	}
	if cfg.CacheBackend != CacheBackendRedis {
		t.Fatalf("CacheBackend = %q, want %q", cfg.CacheBackend, CacheBackendRedis)
	}
	if cfg.MonthCacheTTL != 30*time.Second {
		t.Fatalf("MonthCacheTTL = %s, want 30s", cfg.MonthCacheTTL)
	}
	if cfg.Location != time.UTC {
		t.Fatalf("Location = %s, want UTC", cfg.Location)
	}
	if !cfg.DatabaseMigrate || cfg.RateLimitBurst != 7 {
		t.Fatalf("migrate=%v burst=%d", cfg.DatabaseMigrate, cfg.RateLimitBurst)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"AGENDA_CACHE_BACKEND":     "memcached",
		"AGENDA_SCHEDULE_TIMEZONE": "Mars/Olympus",
		"AGENDA_SHUTDOWN_TIMEOUT":  "soon",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}
