package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/SingularTensor/Mathly/internal/services/mcp/domain"
)

const (
	serverName    = "mathly-practice"
	serverVersion = "0.1.0"
)

// Config configures a Server.
type Config struct {
	Engine domain.Engine
	// UserID is the player every tool call acts for.
	UserID string
	// Locale selects the language of tool error messages.
	Locale string
	Logger *zap.Logger
}

// Server exposes practice tools and resources over MCP.
type Server struct {
	mcpServer *mcp.Server
	player    domain.Context
	logger    *zap.Logger
}

// New registers the practice tools and resources.
func New(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("practice engine is required")
	}
	userID := strings.TrimSpace(cfg.UserID)
	if userID == "" {
		return nil, errors.New("player user id is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	server := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil),
		player:    domain.Context{UserID: userID, Locale: cfg.Locale},
		logger:    logger.Named("mcp"),
	}
	deps := domain.Deps{Engine: cfg.Engine, Context: server.context, Logger: server.logger}
	if err := registerPracticeTools(server.mcpServer, deps); err != nil {
		return nil, err
	}
	server.mcpServer.AddResource(domain.SectorsResource(), domain.SectorsResourceHandler(cfg.Engine))
	return server, nil
}

func (s *Server) context() domain.Context {
	return s.player
}

func registerPracticeTools(server *mcp.Server, deps domain.Deps) error {
	if err := addTool(server, domain.FetchProblemTool(), domain.FetchProblemHandler(deps)); err != nil {
		return err
	}
	if err := addTool(server, domain.SubmitAnswerTool(), domain.SubmitAnswerHandler(deps)); err != nil {
		return err
	}
	if err := addTool(server, domain.UpgradeSectorTool(), domain.UpgradeSectorHandler(deps)); err != nil {
		return err
	}
	return addTool(server, domain.ProgressTool(), domain.ProgressHandler(deps))
}

func addTool[I, O any](server *mcp.Server, tool *mcp.Tool, handler mcp.ToolHandlerFor[I, O]) error {
	if tool == nil {
		return fmt.Errorf("tool is nil")
	}
	if handler == nil {
		return fmt.Errorf("tool %s has no handler", tool.Name)
	}
	mcp.AddTool(server, tool, handler)
	return nil
}

// Serve runs the server on stdio until the client disconnects or ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	return s.serveWithTransport(ctx, &mcp.StdioTransport{})
}

func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.logger.Info("mcp server started", zap.String("user_id", s.player.UserID))
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	s.logger.Info("mcp server stopped")
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}
