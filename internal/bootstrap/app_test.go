package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"claimdesk/internal/bootstrap/config"
	"claimdesk/internal/bootstrap/database"
	"claimdesk/internal/infrastructure/persistence/schema"
)

func newTestApp(t *testing.T) *App {
	t.Helper()

	cfg := config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "nested", "app.sqlite"),
	}
	db, err := database.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	app := &App{Config: config.Config{Database: cfg}, DB: db}
	t.Cleanup(func() {
		_ = app.Close(context.Background())
	})
	return app
}

func TestInitSchemaRecordsVersion(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	version, err := app.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion() before init error = %v", err)
	}
	if version != "" {
		t.Fatalf("SchemaVersion() before init = %q, want empty", version)
	}

	for i := 0; i < 2; i++ {
		if err := app.InitSchema(ctx); err != nil {
			t.Fatalf("InitSchema() run %d error = %v", i+1, err)
		}
	}

	version, err = app.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if version != schema.CurrentVersion {
		t.Fatalf("SchemaVersion() = %q, want %q", version, schema.CurrentVersion)
	}

	var rows int64
	if err := app.DB.Model(&schema.Meta{}).Count(&rows).Error; err != nil {
		t.Fatalf("count schema_meta: %v", err)
	}
	if rows != 1 {
		t.Fatalf("schema_meta rows = %d, want 1", rows)
	}
	for _, table := range []string{"users", "claims", "comments", "notifications"} {
		if !app.DB.Migrator().HasTable(table) {
			t.Fatalf("table %s missing after InitSchema", table)
		}
	}
}
