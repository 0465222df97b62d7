package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/iho/ledgerbook/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		t.Fatalf("expected default database URL to be set")
	}

	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if cfg.FiscalYearStartMonth != 1 || cfg.FiscalTimezone != "UTC" {
		t.Fatalf("expected calendar-year fiscal default, got month=%d tz=%s", cfg.FiscalYearStartMonth, cfg.FiscalTimezone)
	}

	if cfg.AuditPolicy != "strict" {
		t.Fatalf("expected strict audit policy by default, got %s", cfg.AuditPolicy)
	}

	if cfg.AuthCookieName != "access_token" {
		t.Fatalf("expected access_token cookie, got %s", cfg.AuthCookieName)
	}

	if len(cfg.KafkaBrokers) != 0 {
		t.Fatalf("expected no kafka brokers by default, got %v", cfg.KafkaBrokers)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("JWT_SECRET", "top-secret")
	t.Setenv("FISCAL_YEAR_START_MONTH", "7")
	t.Setenv("FISCAL_TIMEZONE", "Europe/Kyiv")
	t.Setenv("AUDIT_POLICY", "best-effort")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("LOCK_ENABLED", "true")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL != "postgres://example" {
		t.Fatalf("expected custom database URL, got %s", cfg.DatabaseURL)
	}
	if cfg.RedisURL != "redis://example" {
		t.Fatalf("expected custom redis URL, got %s", cfg.RedisURL)
	}
	if cfg.HTTPPort != "9090" {
		t.Fatalf("expected HTTP port override, got %s", cfg.HTTPPort)
	}
	if cfg.DatabaseTimeout != 45*time.Second {
		t.Fatalf("expected database timeout override, got %s", cfg.DatabaseTimeout)
	}
	if cfg.FiscalYearStartMonth != 7 {
		t.Fatalf("expected fiscal start month 7, got %d", cfg.FiscalYearStartMonth)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("expected two brokers, got %v", cfg.KafkaBrokers)
	}
	if !cfg.LockEnabled {
		t.Fatalf("expected lock to be enabled")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected overrides to validate, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			JWTSecret:            "secret",
			FiscalYearStartMonth: 1,
			FiscalTimezone:       "UTC",
			AuditPolicy:          "strict",
			DatabaseMaxConns:     10,
			DatabaseMinConns:     1,
			OutboxBatchSize:      10,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*config.Config) {}},
		{name: "missing secret", mutate: func(c *config.Config) { c.JWTSecret = "" }, wantErr: "JWT_SECRET"},
		{name: "month zero", mutate: func(c *config.Config) { c.FiscalYearStartMonth = 0 }, wantErr: "FISCAL_YEAR_START_MONTH"},
		{name: "month thirteen", mutate: func(c *config.Config) { c.FiscalYearStartMonth = 13 }, wantErr: "FISCAL_YEAR_START_MONTH"},
		{name: "unknown timezone", mutate: func(c *config.Config) { c.FiscalTimezone = "Mars/Olympus" }, wantErr: "FISCAL_TIMEZONE"},
		{name: "unknown audit policy", mutate: func(c *config.Config) { c.AuditPolicy = "sometimes" }, wantErr: "AUDIT_POLICY"},
		{name: "pool bounds", mutate: func(c *config.Config) { c.DatabaseMinConns = 20 }, wantErr: "DATABASE_MIN_CONNS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %s, got %v", tt.wantErr, err)
			}
		})
	}
}
