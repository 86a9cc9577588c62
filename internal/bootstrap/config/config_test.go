package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "app:\n  env: test\n")

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.App.Name != "claimdesk" || cfg.App.Env != "test" {
		t.Fatalf("app = %+v", cfg.App)
	}
	if cfg.Storage.MaxFileBytes != 2*1024*1024 {
		t.Fatalf("max_file_bytes = %d", cfg.Storage.MaxFileBytes)
	}
	if cfg.Cache.DashboardTTL != time.Minute {
		t.Fatalf("dashboard_ttl = %s", cfg.Cache.DashboardTTL)
	}
	if cfg.Claims.IDPrefix != "CLM" || cfg.Claims.StrictTransitions {
		t.Fatalf("claims = %+v", cfg.Claims)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "database:\n  dsn: from-file.sqlite\n")
	t.Setenv("CLAIMDESK_DATABASE_DSN", "from-env.sqlite")
	t.Setenv("CLAIMDESK_CLAIMS_STRICT_TRANSITIONS", "true")

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.DSN != "from-env.sqlite" {
		t.Fatalf("dsn = %q", cfg.Database.DSN)
	}
	if !cfg.Claims.StrictTransitions {
		t.Fatalf("strict_transitions = false, want true")
	}
}

func TestLoadRejectsRedisWithoutAddr(t *testing.T) {
	path := writeConfig(t, "cache:\n  driver: redis\n")

	if _, err := Load(context.Background(), path); err == nil {
		t.Fatalf("Load() expected error for redis without addr")
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	if _, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("Load() expected error for missing explicit file")
	}
}
