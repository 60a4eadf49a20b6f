// Package practice parses practice service flags and launches the service.
package practice

import (
	"context"
	"flag"
	"time"

	"go.uber.org/zap"

	entrypoint "github.com/SingularTensor/Mathly/internal/platform/cmd"
	"github.com/SingularTensor/Mathly/internal/platform/config"
	"github.com/SingularTensor/Mathly/internal/platform/logging"
	"github.com/SingularTensor/Mathly/internal/services/practice/api/grpc/auth"
	server "github.com/SingularTensor/Mathly/internal/services/practice/app"
	"github.com/SingularTensor/Mathly/internal/services/practice/play"
)

// Config holds practice command configuration.
type Config struct {
	Port          int           `env:"PRACTICE_PORT"          envDefault:"8095"`
	DBPath        string        `env:"PRACTICE_DB_PATH"       envDefault:"data/practice.db"`
	SessionTTL    time.Duration `env:"PLAY_SESSION_TTL"       envDefault:"24h"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"10m"`
	CatalogPath   string        `env:"SECTOR_CATALOG_PATH"`
	TokenSecret   string        `env:"PLAYER_TOKEN_SECRET"`
	TokenIssuer   string        `env:"PLAYER_TOKEN_ISSUER"    envDefault:"mathly"`
	LogLevel      string        `env:"LOG_LEVEL"              envDefault:"info"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The practice gRPC server port")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path of the practice SQLite database")
	fs.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "Optional YAML sector catalog overlay")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ServerConfig converts cfg into the server runtime configuration. Durations
// that are zero or negative fall back to the service defaults.
func (cfg Config) ServerConfig(logger *zap.Logger) server.Config {
	return server.Config{
		DBPath:        cfg.DBPath,
		CatalogPath:   cfg.CatalogPath,
		SessionTTL:    config.PositiveDuration(cfg.SessionTTL, play.DefaultSessionTTL),
		SweepInterval: config.PositiveDuration(cfg.SweepInterval, server.DefaultSweepInterval),
		Token: auth.TokenConfig{
			Issuer: cfg.TokenIssuer,
			Secret: []byte(cfg.TokenSecret),
		},
		Logger: logger,
	}
}

// Run starts the practice gRPC API service.
func Run(ctx context.Context, cfg Config) error {
	logger, err := logging.New(entrypoint.ServicePractice, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	options := entrypoint.RunOptions{Logger: logger}
	return entrypoint.RunWithTelemetryAndOptions(ctx, entrypoint.ServicePractice, options, func(ctx context.Context) error {
		return server.Run(ctx, cfg.Port, cfg.ServerConfig(logger))
	})
}
