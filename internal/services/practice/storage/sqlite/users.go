package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SingularTensor/Mathly/internal/services/practice/storage"
)

const userColumns = `user_id, display_name, wallet, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (storage.User, error) {
	var user storage.User
	var createdAt, updatedAt int64
	if err := row.Scan(&user.ID, &user.DisplayName, &user.Wallet, &createdAt, &updatedAt); err != nil {
		return storage.User{}, err
	}
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updatedAt)
	return user, nil
}

// EnsureUser creates the user when missing and returns the stored account.
// An existing account keeps its display name unless it was blank.
func (s *Store) EnsureUser(ctx context.Context, userID, displayName string, now time.Time) (storage.User, error) {
	if err := s.ready(ctx); err != nil {
		return storage.User{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.User{}, fmt.Errorf("user id is required")
	}
	displayName = strings.TrimSpace(displayName)
	ts := toMillis(now)

	row := s.sqlDB.QueryRowContext(
		ctx,
		`INSERT INTO users (user_id, display_name, wallet, created_at, updated_at)
		 VALUES (?, ?, 0, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   display_name = CASE WHEN users.display_name = '' THEN excluded.display_name ELSE users.display_name END
		 RETURNING `+userColumns,
		userID,
		displayName,
		ts,
		ts,
	)
	user, err := scanUser(row)
	if err != nil {
		return storage.User{}, fmt.Errorf("ensure user: %w", err)
	}
	return user, nil
}

// GetUser returns one user by ID.
func (s *Store) GetUser(ctx context.Context, userID string) (storage.User, error) {
	if err := s.ready(ctx); err != nil {
		return storage.User{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.User{}, fmt.Errorf("user id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = ?`, userID)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.User{}, storage.ErrNotFound
		}
		return storage.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// AdjustWallet adds delta to the wallet. A debit below zero fails with
// storage.ErrInsufficientFunds and leaves the wallet unchanged.
func (s *Store) AdjustWallet(ctx context.Context, userID string, delta int, now time.Time) (storage.User, error) {
	if err := s.ready(ctx); err != nil {
		return storage.User{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.User{}, fmt.Errorf("user id is required")
	}

	var user storage.User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var wallet int
		err := tx.QueryRowContext(ctx, `SELECT wallet FROM users WHERE user_id = ?`, userID).Scan(&wallet)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("read wallet: %w", err)
		}
		if wallet+delta < 0 {
			return storage.ErrInsufficientFunds
		}
		user, err = scanUser(tx.QueryRowContext(
			ctx,
			`UPDATE users SET wallet = ?, updated_at = ? WHERE user_id = ? RETURNING `+userColumns,
			wallet+delta,
			toMillis(now),
			userID,
		))
		if err != nil {
			return fmt.Errorf("update wallet: %w", err)
		}
		return nil
	})
	if err != nil {
		return storage.User{}, err
	}
	return user, nil
}

// SetWallet overwrites the wallet balance.
func (s *Store) SetWallet(ctx context.Context, userID string, amount int, now time.Time) (storage.User, error) {
	if err := s.ready(ctx); err != nil {
		return storage.User{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.User{}, fmt.Errorf("user id is required")
	}
	if amount < 0 {
		return storage.User{}, fmt.Errorf("wallet amount must not be negative")
	}

	user, err := scanUser(s.sqlDB.QueryRowContext(
		ctx,
		`UPDATE users SET wallet = ?, updated_at = ? WHERE user_id = ? RETURNING `+userColumns,
		amount,
		toMillis(now),
		userID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.User{}, storage.ErrNotFound
		}
		return storage.User{}, fmt.Errorf("set wallet: %w", err)
	}
	return user, nil
}
