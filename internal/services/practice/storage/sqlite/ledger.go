package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/SingularTensor/Mathly/internal/services/practice/storage"
)

// CommitRun credits a completed run to the wallet and the sector counters in
// one transaction. A run ID already recorded in run_commits is a no-op.
func (s *Store) CommitRun(ctx context.Context, commit storage.RunCommit) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	runID := strings.TrimSpace(commit.RunID)
	userID := strings.TrimSpace(commit.UserID)
	if runID == "" {
		return false, fmt.Errorf("run id is required")
	}
	if userID == "" {
		return false, fmt.Errorf("user id is required")
	}
	if commit.Sector == "" {
		return false, fmt.Errorf("sector is required")
	}
	if commit.Exp < 0 || commit.ProblemsSolved < 0 {
		return false, fmt.Errorf("run reward must not be negative")
	}
	ts := toMillis(commit.CommittedAt)

	applied := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(
			ctx,
			`INSERT INTO run_commits (run_id, user_id, sector, problems_solved, exp, committed_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(run_id) DO NOTHING`,
			runID,
			userID,
			string(commit.Sector),
			commit.ProblemsSolved,
			commit.Exp,
			ts,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("record run commit: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("record run commit: %w", err)
		} else if n == 0 {
			return nil
		}

		res, err = tx.ExecContext(
			ctx,
			`UPDATE users SET wallet = wallet + ?, updated_at = ? WHERE user_id = ?`,
			commit.Exp,
			ts,
			userID,
		)
		if err != nil {
			return fmt.Errorf("credit wallet: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("credit wallet: %w", err)
		} else if n == 0 {
			return storage.ErrNotFound
		}

		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO sector_progress (user_id, sector, level, problems_solved, exp_earned, updated_at)
			 VALUES (?, ?, 1, ?, ?, ?)
			 ON CONFLICT(user_id, sector) DO UPDATE SET
			   problems_solved = sector_progress.problems_solved + excluded.problems_solved,
			   exp_earned = sector_progress.exp_earned + excluded.exp_earned,
			   updated_at = excluded.updated_at`,
			userID,
			string(commit.Sector),
			commit.ProblemsSolved,
			commit.Exp,
			ts,
		); err != nil {
			return fmt.Errorf("credit sector progress: %w", err)
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// UpgradeSector debits the upgrade cost of the current level and raises the
// level by one. A missing progress record starts at level 1.
func (s *Store) UpgradeSector(ctx context.Context, req storage.UpgradeRequest) (storage.UpgradeResult, error) {
	if err := s.ready(ctx); err != nil {
		return storage.UpgradeResult{}, err
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return storage.UpgradeResult{}, fmt.Errorf("user id is required")
	}
	if req.Sector == "" {
		return storage.UpgradeResult{}, fmt.Errorf("sector is required")
	}
	if req.Cost == nil {
		return storage.UpgradeResult{}, fmt.Errorf("cost function is required")
	}
	ts := toMillis(req.Now)

	var result storage.UpgradeResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var wallet int
		err := tx.QueryRowContext(ctx, `SELECT wallet FROM users WHERE user_id = ?`, userID).Scan(&wallet)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("read wallet: %w", err)
		}

		progress, err := scanProgress(tx.QueryRowContext(
			ctx,
			`INSERT INTO sector_progress (user_id, sector, level, problems_solved, exp_earned, updated_at)
			 VALUES (?, ?, 1, 0, 0, ?)
			 ON CONFLICT(user_id, sector) DO UPDATE SET level = sector_progress.level
			 RETURNING `+progressColumns,
			userID,
			string(req.Sector),
			ts,
		))
		if err != nil {
			return fmt.Errorf("read sector progress: %w", err)
		}

		cost := req.Cost(progress.Level)
		result = storage.UpgradeResult{Progress: progress, Cost: cost, Wallet: wallet}
		if wallet < cost {
			return storage.ErrInsufficientFunds
		}

		if _, err := tx.ExecContext(
			ctx,
			`UPDATE users SET wallet = wallet - ?, updated_at = ? WHERE user_id = ?`,
			cost,
			ts,
			userID,
		); err != nil {
			return fmt.Errorf("debit wallet: %w", err)
		}
		progress, err = scanProgress(tx.QueryRowContext(
			ctx,
			`UPDATE sector_progress SET level = level + 1, updated_at = ?
			  WHERE user_id = ? AND sector = ?
			  RETURNING `+progressColumns,
			ts,
			userID,
			string(req.Sector),
		))
		if err != nil {
			return fmt.Errorf("raise sector level: %w", err)
		}
		result = storage.UpgradeResult{Progress: progress, Cost: cost, Wallet: wallet - cost}
		return nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrInsufficientFunds) {
			return result, err
		}
		return storage.UpgradeResult{}, err
	}
	return result, nil
}
