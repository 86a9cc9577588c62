package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"claimdesk/internal/bootstrap/config"
	"claimdesk/internal/bootstrap/logging"
	"claimdesk/internal/errs"
	"claimdesk/internal/infrastructure/notify"
	"claimdesk/internal/infrastructure/persistence/schema"
	"claimdesk/internal/infrastructure/persistence/sqlite/model"
	sqliterepo "claimdesk/internal/infrastructure/persistence/sqlite/repository"
	"claimdesk/internal/infrastructure/storage"
	"claimdesk/internal/ports"
)

// App exposes the pieces commands need beyond the claim service.
type App struct {
	Config config.Config
	DB     *gorm.DB
	Repo   *sqliterepo.ClaimRepository
	UoW    ports.UnitOfWork
	Hub    *notify.Hub
	Files  *storage.LocalStorage
}

// InitSchema migrates every table and records the schema version. Safe to run repeatedly.
func (a *App) InitSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.app"))
	logging.Info(logCtx, "start schema migration")

	tables := append(model.All(), &schema.Meta{})
	if err := a.DB.WithContext(ctx).AutoMigrate(tables...); err != nil {
		return errs.Wrap(err, "auto migrate schema")
	}

	if err := a.SetMeta(ctx, schema.VersionKey, schema.CurrentVersion); err != nil {
		return errs.Wrap(err, "record schema version")
	}

	logging.Info(logCtx, "schema migration completed", slog.String("schema_version", schema.CurrentVersion))
	return nil
}

// SetMeta upserts one schema_meta row.
func (a *App) SetMeta(ctx context.Context, key string, value string) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	meta := schema.Meta{Key: key, Value: value}
	if err := a.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&meta).Error; err != nil {
		return errs.Wrapf(err, "upsert schema meta %s", key)
	}
	return nil
}

// SchemaVersion returns the recorded version, or "" when init-db has never run.
func (a *App) SchemaVersion(ctx context.Context) (string, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}

	db := a.DB.WithContext(ctx)
	if !db.Migrator().HasTable(&schema.Meta{}) {
		return "", nil
	}

	var meta schema.Meta
	if err := db.Where("key = ?", schema.VersionKey).Take(&meta).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", errs.Wrap(err, "query schema version")
	}
	return meta.Value, nil
}

func (a *App) Close(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	sqlDB, err := a.DB.DB()
	if err != nil {
		return errs.Wrap(err, "get sql db")
	}

	if err := sqlDB.Close(); err != nil {
		return errs.Wrap(err, "close sql db")
	}

	logging.Info(logging.WithAttrs(ctx, slog.String("component", "bootstrap.app")), "database connection closed")
	return nil
}
