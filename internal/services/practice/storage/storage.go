// Package storage defines persistence contracts for practice service state.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/SingularTensor/Mathly/internal/services/practice/domain/problem"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/quiz"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/sector"
	"github.com/SingularTensor/Mathly/internal/services/practice/storage/filter"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrConflict indicates a play session changed since it was read.
	ErrConflict = errors.New("record version conflict")
	// ErrInsufficientFunds indicates a wallet debit would go below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// User is one player account.
type User struct {
	ID          string
	DisplayName string
	Wallet      int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SectorProgress is a user's persistent standing in one sector.
type SectorProgress struct {
	UserID         string
	Sector         sector.Key
	Level          int
	ProblemsSolved int
	ExpEarned      int
	UpdatedAt      time.Time
}

// LeaderboardEntry is one ranked row of a sector leaderboard.
type LeaderboardEntry struct {
	Rank           int
	UserID         string
	DisplayName    string
	Level          int
	ProblemsSolved int
	ExpEarned      int
}

// LeaderboardQuery selects one page of a sector leaderboard.
type LeaderboardQuery struct {
	Sector    sector.Key
	Filter    filter.SQLCondition
	PageSize  int
	PageToken string
}

// LeaderboardPage stores one page of leaderboard rows.
type LeaderboardPage struct {
	Entries       []LeaderboardEntry
	NextPageToken string
}

// RunCommit is the reward of one completed run.
type RunCommit struct {
	RunID          string
	UserID         string
	Sector         sector.Key
	ProblemsSolved int
	Exp            int
	CommittedAt    time.Time
}

// UpgradeRequest asks to raise one sector level. Cost maps the current level
// to its price and is evaluated inside the transaction.
type UpgradeRequest struct {
	UserID string
	Sector sector.Key
	Cost   func(level int) int
	Now    time.Time
}

// UpgradeResult reports the state after an upgrade attempt. On
// ErrInsufficientFunds it carries the unchanged level, the cost and balance.
type UpgradeResult struct {
	Progress SectorProgress
	Cost     int
	Wallet   int
}

// PlaySession is a user's ephemeral play state. Version guards concurrent
// writers; zero means the session has not been stored yet.
type PlaySession struct {
	UserID    string
	Run       *quiz.Run
	Problem   *problem.Problem
	Version   int64
	UpdatedAt time.Time
	ExpiresAt time.Time
}

// UserStore persists player accounts and wallets.
type UserStore interface {
	EnsureUser(ctx context.Context, userID, displayName string, now time.Time) (User, error)
	GetUser(ctx context.Context, userID string) (User, error)
	AdjustWallet(ctx context.Context, userID string, delta int, now time.Time) (User, error)
	SetWallet(ctx context.Context, userID string, amount int, now time.Time) (User, error)
}

// ProgressStore persists per-sector progress.
type ProgressStore interface {
	GetSectorProgress(ctx context.Context, userID string, key sector.Key) (SectorProgress, error)
	CreateSectorProgress(ctx context.Context, progress SectorProgress) error
	ListSectorProgress(ctx context.Context, userID string) ([]SectorProgress, error)
	ListLeaderboard(ctx context.Context, query LeaderboardQuery) (LeaderboardPage, error)
}

// LedgerStore applies wallet and progress changes atomically.
type LedgerStore interface {
	// CommitRun credits a completed run once per run ID. It reports false when
	// the run was already committed.
	CommitRun(ctx context.Context, commit RunCommit) (bool, error)
	UpgradeSector(ctx context.Context, req UpgradeRequest) (UpgradeResult, error)
}

// PlaySessionStore persists ephemeral play sessions.
type PlaySessionStore interface {
	// GetPlaySession returns ErrNotFound when the session is missing or
	// expired at now.
	GetPlaySession(ctx context.Context, userID string, now time.Time) (PlaySession, error)
	// PutPlaySession stores session if its Version still matches, returning
	// the stored session with its new version or ErrConflict.
	PutPlaySession(ctx context.Context, session PlaySession) (PlaySession, error)
	// ConsumeProblem atomically takes the pending problem when its id is
	// problemID, returning the session as it was with the problem set and the
	// version advanced. A different or missing problem yields ErrNotFound.
	ConsumeProblem(ctx context.Context, userID, problemID string, now time.Time) (PlaySession, error)
	DeletePlaySession(ctx context.Context, userID string) error
	DeleteExpiredPlaySessions(ctx context.Context, now time.Time) (int64, error)
}

// Store is the full practice persistence surface.
type Store interface {
	UserStore
	ProgressStore
	LedgerStore
	PlaySessionStore
}
