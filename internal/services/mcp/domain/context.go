package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	apperrors "github.com/SingularTensor/Mathly/internal/platform/errors"
	"github.com/SingularTensor/Mathly/internal/platform/id"
	"github.com/SingularTensor/Mathly/internal/platform/timeouts"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/sector"
	"github.com/SingularTensor/Mathly/internal/services/practice/play"
)

// Engine is the practice surface the MCP tools drive.
type Engine interface {
	FetchProblem(ctx context.Context, req play.FetchProblemRequest) (play.FetchProblemResult, error)
	SubmitAnswer(ctx context.Context, req play.SubmitAnswerRequest) (play.SubmitAnswerResult, error)
	UpgradeSector(ctx context.Context, req play.UpgradeSectorRequest) (play.UpgradeSectorResult, error)
	GetProgress(ctx context.Context, userID string) (play.Progress, error)
	ListSectors() []sector.Config
}

// Context identifies the player and language for tool calls.
type Context struct {
	UserID string
	Locale string
}

// Deps bundles what every handler needs.
type Deps struct {
	Engine  Engine
	Context func() Context
	Logger  *zap.Logger
}

// call is the per-invocation state shared by handlers.
type call struct {
	ctx          context.Context
	cancel       context.CancelFunc
	invocationID string
	player       Context
}

func (d Deps) begin(ctx context.Context, tool string) (*call, error) {
	invocationID, err := id.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate invocation id: %w", err)
	}
	var player Context
	if d.Context != nil {
		player = d.Context()
	}
	if strings.TrimSpace(player.UserID) == "" {
		return nil, apperrors.New(apperrors.CodeUserRequired, "player id is not configured")
	}
	runCtx, cancel := context.WithTimeout(ctx, timeouts.GRPCRequest)
	d.logger().Debug("tool called",
		zap.String("tool", tool),
		zap.String("invocation_id", invocationID),
		zap.String("user_id", player.UserID),
	)
	return &call{ctx: runCtx, cancel: cancel, invocationID: invocationID, player: player}, nil
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// fail converts err into the error text shown to the assistant. Domain errors
// keep their code so clients can branch on it.
func (d Deps) fail(c *call, tool string, err error) error {
	code := apperrors.GetCode(err)
	locale := ""
	if c != nil {
		locale = c.player.Locale
	}
	fields := []zap.Field{zap.String("tool", tool), zap.String("code", string(code)), zap.Error(err)}
	if c != nil {
		fields = append(fields, zap.String("invocation_id", c.invocationID))
	}
	if code == apperrors.CodeUnknown || code == apperrors.CodeGeneratorExhausted {
		d.logger().Error("tool failed", fields...)
		return fmt.Errorf("%s failed: %w", tool, err)
	}
	d.logger().Info("tool rejected", fields...)
	return fmt.Errorf("%s (%s)", apperrors.Localize(err, locale), code)
}

// resultMeta carries the invocation id back to the client.
func resultMeta(c *call) *mcp.CallToolResult {
	return &mcp.CallToolResult{Meta: map[string]any{"invocation_id": c.invocationID}}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
