package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"claimdesk/internal/bootstrap/logging"
	"claimdesk/internal/errs"
)

const envPrefix = "CLAIMDESK"

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Storage  StorageConfig  `mapstructure:"storage"`
	AI       AIConfig       `mapstructure:"ai"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Claims   ClaimsConfig   `mapstructure:"claims"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type HTTPConfig struct {
	Addr        string        `mapstructure:"addr"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type StorageConfig struct {
	Dir          string `mapstructure:"dir"`
	BaseURL      string `mapstructure:"base_url"`
	MaxFileBytes int64  `mapstructure:"max_file_bytes"`
}

type AIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type NotifyConfig struct {
	NATSURL string `mapstructure:"nats_url"`
	Subject string `mapstructure:"subject"`
}

type CacheConfig struct {
	Driver       string        `mapstructure:"driver"`
	RedisAddr    string        `mapstructure:"redis_addr"`
	DashboardTTL time.Duration `mapstructure:"dashboard_ttl"`
}

type ClaimsConfig struct {
	IDPrefix          string `mapstructure:"id_prefix"`
	StrictTransitions bool   `mapstructure:"strict_transitions"`
}

type DispatchConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

// Loader keeps the viper instance around so the config file can be watched after Load.
type Loader struct {
	v *viper.Viper
}

func Load(ctx context.Context, configFile string) (Config, error) {
	cfg, _, err := LoadWithLoader(ctx, configFile)
	return cfg, err
}

func LoadWithLoader(ctx context.Context, configFile string) (Config, *Loader, error) {
	if ctx == nil {
		return Config{}, nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, nil, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err == nil {
		logging.Debug(logCtx, "loaded .env file")
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, nil, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	cfg, err := decode(v)
	if err != nil {
		return Config{}, nil, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("cache_driver", cfg.Cache.Driver),
	)

	return cfg, &Loader{v: v}, nil
}

// Watch re-decodes the config whenever the file changes and hands the result to onChange.
// Invalid edits are logged and skipped.
func (l *Loader) Watch(ctx context.Context, onChange func(Config)) {
	if l == nil || l.v == nil || l.v.ConfigFileUsed() == "" {
		return
	}
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	l.v.OnConfigChange(func(event fsnotify.Event) {
		if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(l.v)
		if err != nil {
			logging.Warn(logCtx, "ignore invalid config change", slog.String("path", event.Name), slog.Any("err", errs.Loggable(err)))
			return
		}
		logging.Info(logCtx, "config reloaded", slog.String("path", event.Name))
		if onChange != nil {
			onChange(cfg)
		}
	})
	l.v.WatchConfig()
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return errors.New("database.dsn is required")
	}
	if cfg.Storage.MaxFileBytes <= 0 {
		return fmt.Errorf("storage.max_file_bytes must be positive, got %d", cfg.Storage.MaxFileBytes)
	}
	switch strings.ToLower(cfg.Cache.Driver) {
	case "sqlite", "redis", "none":
	default:
		return fmt.Errorf("unsupported cache driver %q", cfg.Cache.Driver)
	}
	if strings.EqualFold(cfg.Cache.Driver, "redis") && strings.TrimSpace(cfg.Cache.RedisAddr) == "" {
		return errors.New("cache.redis_addr is required for the redis cache driver")
	}
	if strings.TrimSpace(cfg.Claims.IDPrefix) == "" {
		return errors.New("claims.id_prefix is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "claimdesk")
	v.SetDefault("app.env", "local")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".claimdesk/claimdesk.sqlite")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("storage.dir", ".claimdesk/files")
	v.SetDefault("storage.base_url", "http://localhost:8080/files")
	v.SetDefault("storage.max_file_bytes", 2*1024*1024)
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("notify.nats_url", "")
	v.SetDefault("notify.subject", "claimdesk.email")
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.dashboard_ttl", time.Minute)
	v.SetDefault("claims.id_prefix", "CLM")
	v.SetDefault("claims.strict_transitions", false)
	v.SetDefault("dispatch.workers", 2)
	v.SetDefault("dispatch.queue_size", 64)
}
