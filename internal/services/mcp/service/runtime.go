package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/SingularTensor/Mathly/internal/platform/timeouts"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/sector"
	"github.com/SingularTensor/Mathly/internal/services/practice/play"
	practicesqlite "github.com/SingularTensor/Mathly/internal/services/practice/storage/sqlite"
)

// RuntimeConfig configures a stdio MCP process.
type RuntimeConfig struct {
	DBPath      string
	CatalogPath string
	UserID      string
	DisplayName string
	Locale      string
	SessionTTL  time.Duration
	Logger      *zap.Logger
}

// Run opens the practice store, makes sure the player account exists and
// serves MCP on stdio.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	return runWithTransport(ctx, cfg, &mcp.StdioTransport{})
}

func runWithTransport(ctx context.Context, cfg RuntimeConfig, transport mcp.Transport) (err error) {
	if strings.TrimSpace(cfg.UserID) == "" {
		return errors.New("player user id is required")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return errors.New("practice db path is required")
	}

	catalog, err := sector.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("load sector catalog: %w", err)
	}

	openCtx, cancel := context.WithTimeout(ctx, timeouts.StoreOpen)
	store, err := practicesqlite.Open(openCtx, cfg.DBPath)
	cancel()
	if err != nil {
		return fmt.Errorf("open practice store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close practice store: %w", closeErr)
		}
	}()

	engine, err := play.NewService(play.Config{Store: store, Catalog: catalog, SessionTTL: cfg.SessionTTL, Logger: cfg.Logger})
	if err != nil {
		return err
	}
	if _, err := engine.EnsureUser(ctx, cfg.UserID, cfg.DisplayName); err != nil {
		return fmt.Errorf("ensure player: %w", err)
	}

	server, err := New(Config{Engine: engine, UserID: cfg.UserID, Locale: cfg.Locale, Logger: cfg.Logger})
	if err != nil {
		return err
	}
	return server.serveWithTransport(ctx, transport)
}
