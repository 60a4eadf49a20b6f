// Package mcp parses MCP command configuration and serves practice tools on stdio.
package mcp

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/SingularTensor/Mathly/internal/platform/cmd"
	"github.com/SingularTensor/Mathly/internal/platform/config"
	"github.com/SingularTensor/Mathly/internal/platform/logging"
	mcpservice "github.com/SingularTensor/Mathly/internal/services/mcp/service"
	"github.com/SingularTensor/Mathly/internal/services/practice/play"
)

// Config holds MCP command configuration.
type Config struct {
	UserID      string        `env:"MCP_USER_ID"`
	DisplayName string        `env:"MCP_DISPLAY_NAME"`
	Locale      string        `env:"MCP_LOCALE"`
	DBPath      string        `env:"PRACTICE_DB_PATH"    envDefault:"data/practice.db"`
	CatalogPath string        `env:"SECTOR_CATALOG_PATH"`
	SessionTTL  time.Duration `env:"PLAY_SESSION_TTL"    envDefault:"24h"`
	LogLevel    string        `env:"LOG_LEVEL"           envDefault:"info"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.UserID, "user", cfg.UserID, "Player id the tools act for")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path of the practice SQLite database")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "Language of tool error messages")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// RuntimeConfig converts cfg into the MCP runtime configuration.
func (cfg Config) RuntimeConfig() mcpservice.RuntimeConfig {
	return mcpservice.RuntimeConfig{
		DBPath:      cfg.DBPath,
		CatalogPath: cfg.CatalogPath,
		UserID:      cfg.UserID,
		DisplayName: cfg.DisplayName,
		Locale:      cfg.Locale,
		SessionTTL:  config.PositiveDuration(cfg.SessionTTL, play.DefaultSessionTTL),
	}
}

// Run serves the practice MCP tools on stdio. Logs go to stderr.
func Run(ctx context.Context, cfg Config) error {
	logger, err := logging.New(entrypoint.ServiceMCP, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	runtime := cfg.RuntimeConfig()
	runtime.Logger = logger
	options := entrypoint.RunOptions{Logger: logger}
	return entrypoint.RunWithTelemetryAndOptions(ctx, entrypoint.ServiceMCP, options, func(ctx context.Context) error {
		return mcpservice.Run(ctx, runtime)
	})
}
