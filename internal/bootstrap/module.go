package bootstrap

import (
	"context"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"claimdesk/internal/bootstrap/config"
	"claimdesk/internal/bootstrap/database"
	"claimdesk/internal/bootstrap/logging"
	"claimdesk/internal/domain/claim"
	"claimdesk/internal/errs"
	cacheinfra "claimdesk/internal/infrastructure/cache"
	"claimdesk/internal/infrastructure/notify"
	sqliterepo "claimdesk/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "claimdesk/internal/infrastructure/persistence/sqlite/uow"
	"claimdesk/internal/infrastructure/reportgen"
	"claimdesk/internal/infrastructure/storage"
	"claimdesk/internal/ports"
	"claimdesk/internal/usecase/claims"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewClaimRepository,
			fx.As(fx.Self()),
			fx.As(new(ports.ClaimRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(provideCache),
	fx.Provide(
		fx.Annotate(
			provideStorage,
			fx.As(fx.Self()),
			fx.As(new(ports.FileStorage)),
		),
	),
	fx.Provide(
		fx.Annotate(
			provideReportGenerator,
			fx.As(new(ports.ReportGenerator)),
		),
	),
	fx.Provide(provideStatusNotifier),
	fx.Provide(
		fx.Annotate(
			notify.NewHub,
			fx.As(fx.Self()),
			fx.As(new(ports.NotificationPublisher)),
		),
	),
	fx.Provide(provideDispatcher),
	fx.Provide(provideClaimService),
	fx.Invoke(watchConfig),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, *config.Loader, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	cfg, loader, err := config.LoadWithLoader(ctx, p.ConfigFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	if !logging.SetLevel(cfg.Log.Level) {
		logging.Warn(ctx, "unknown log level, keeping current", slog.String("level", cfg.Log.Level))
	}
	return cfg, loader, nil
}

// watchConfig applies log level edits without a restart. Everything else needs one.
func watchConfig(ctx context.Context, loader *config.Loader) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))
	loader.Watch(logCtx, func(cfg config.Config) {
		if logging.SetLevel(cfg.Log.Level) {
			logging.Info(logCtx, "log level updated", slog.String("level", cfg.Log.Level))
		}
	})
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

type appParams struct {
	fx.In

	Config config.Config
	DB     *gorm.DB
	Repo   *sqliterepo.ClaimRepository
	UoW    ports.UnitOfWork
	Hub    *notify.Hub
	Files  *storage.LocalStorage
}

func provideApp(p appParams) *App {
	return &App{
		Config: p.Config,
		DB:     p.DB,
		Repo:   p.Repo,
		UoW:    p.UoW,
		Hub:    p.Hub,
		Files:  p.Files,
	}
}

func provideCache(lc fx.Lifecycle, ctx context.Context, cfg config.Config, db *gorm.DB) (ports.Cache, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	switch strings.ToLower(cfg.Cache.Driver) {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, errs.Wrapf(err, "ping redis %s", cfg.Cache.RedisAddr)
		}
		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				return client.Close()
			},
		})
		logging.Info(logCtx, "cache ready", slog.String("driver", "redis"), slog.String("addr", cfg.Cache.RedisAddr))
		return cacheinfra.NewRedisCache(client, cfg.App.Name+":"), nil
	case "none":
		logging.Info(logCtx, "cache disabled")
		return cacheinfra.NoopCache{}, nil
	default:
		return cacheinfra.NewSQLiteCache(db), nil
	}
}

func provideStorage(cfg config.Config) *storage.LocalStorage {
	return storage.NewLocalStorage(cfg.Storage.Dir, cfg.Storage.BaseURL)
}

func provideReportGenerator(cfg config.Config) *reportgen.OpenAIGenerator {
	return reportgen.NewOpenAIGenerator(reportgen.Options{
		APIKey:  cfg.AI.APIKey,
		BaseURL: cfg.AI.BaseURL,
		Model:   cfg.AI.Model,
		Timeout: cfg.AI.Timeout,
	})
}

func provideStatusNotifier(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (ports.StatusNotifier, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	url := strings.TrimSpace(cfg.Notify.NATSURL)
	if url == "" {
		logging.Info(logCtx, "nats url not set, email notifications go to the log")
		return notify.LogNotifier{}, nil
	}

	conn, err := notify.ConnectNATS(logCtx, url)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			if err := conn.Drain(); err != nil {
				conn.Close()
				return errs.Wrap(err, "drain nats connection")
			}
			return nil
		},
	})
	return notify.NewNATSNotifier(conn, cfg.Notify.Subject), nil
}

func provideDispatcher(lc fx.Lifecycle, cfg config.Config) *claims.Dispatcher {
	dispatcher := claims.NewDispatcher(cfg.Dispatch.Workers, cfg.Dispatch.QueueSize)
	lc.Append(fx.Hook{
		OnStop: dispatcher.Shutdown,
	})
	return dispatcher
}

type claimServiceParams struct {
	fx.In

	Config     config.Config
	Repo       ports.ClaimRepository
	UoW        ports.UnitOfWork
	Cache      ports.Cache
	Storage    ports.FileStorage
	Reporter   ports.ReportGenerator
	Notifier   ports.StatusNotifier
	Publisher  ports.NotificationPublisher
	Dispatcher *claims.Dispatcher
}

func provideClaimService(p claimServiceParams) *claims.Service {
	return claims.NewService(
		p.Repo,
		p.UoW,
		p.Cache,
		claims.WithStorage(p.Storage),
		claims.WithReportGenerator(p.Reporter),
		claims.WithStatusNotifier(p.Notifier),
		claims.WithPublisher(p.Publisher),
		claims.WithDispatcher(p.Dispatcher),
		claims.WithIDPrefix(p.Config.Claims.IDPrefix),
		claims.WithMaxFileBytes(p.Config.Storage.MaxFileBytes),
		claims.WithTransitionPolicy(claim.TransitionPolicyFor(p.Config.Claims.StrictTransitions)),
		claims.WithDashboardTTL(p.Config.Cache.DashboardTTL),
	)
}
