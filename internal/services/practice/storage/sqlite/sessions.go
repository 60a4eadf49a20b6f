package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SingularTensor/Mathly/internal/services/practice/domain/problem"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/quiz"
	"github.com/SingularTensor/Mathly/internal/services/practice/storage"
)

func encodeJSON[T any](value *T) (sql.NullString, error) {
	if value == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeSession(userID string, runJSON, problemJSON sql.NullString, version, updatedAt, expiresAt int64) (storage.PlaySession, error) {
	session := storage.PlaySession{
		UserID:    userID,
		Version:   version,
		UpdatedAt: fromMillis(updatedAt),
		ExpiresAt: fromMillis(expiresAt),
	}
	if runJSON.Valid {
		var run quiz.Run
		if err := json.Unmarshal([]byte(runJSON.String), &run); err != nil {
			return storage.PlaySession{}, fmt.Errorf("decode run: %w", err)
		}
		session.Run = &run
	}
	if problemJSON.Valid {
		var p problem.Problem
		if err := json.Unmarshal([]byte(problemJSON.String), &p); err != nil {
			return storage.PlaySession{}, fmt.Errorf("decode problem: %w", err)
		}
		session.Problem = &p
	}
	return session, nil
}

// GetPlaySession returns the unexpired session of one user. A consumed problem
// is reported as absent.
func (s *Store) GetPlaySession(ctx context.Context, userID string, now time.Time) (storage.PlaySession, error) {
	if err := s.ready(ctx); err != nil {
		return storage.PlaySession{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.PlaySession{}, fmt.Errorf("user id is required")
	}

	var runJSON, problemJSON sql.NullString
	var version, updatedAt, expiresAt int64
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT run_json,
		        CASE WHEN problem_consumed = 0 THEN problem_json END,
		        version, updated_at, expires_at
		   FROM play_sessions
		  WHERE user_id = ? AND expires_at > ?`,
		userID,
		toMillis(now),
	).Scan(&runJSON, &problemJSON, &version, &updatedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.PlaySession{}, storage.ErrNotFound
		}
		return storage.PlaySession{}, fmt.Errorf("get play session: %w", err)
	}
	return decodeSession(userID, runJSON, problemJSON, version, updatedAt, expiresAt)
}

// PutPlaySession writes session when its version matches the stored one. A
// zero version inserts a new session, replacing an expired one.
func (s *Store) PutPlaySession(ctx context.Context, session storage.PlaySession) (storage.PlaySession, error) {
	if err := s.ready(ctx); err != nil {
		return storage.PlaySession{}, err
	}
	userID := strings.TrimSpace(session.UserID)
	if userID == "" {
		return storage.PlaySession{}, fmt.Errorf("user id is required")
	}
	if session.Version < 0 {
		return storage.PlaySession{}, fmt.Errorf("version must not be negative")
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = time.Now()
	}
	if !session.ExpiresAt.After(session.UpdatedAt) {
		return storage.PlaySession{}, fmt.Errorf("expiry must be after update time")
	}
	runJSON, err := encodeJSON(session.Run)
	if err != nil {
		return storage.PlaySession{}, fmt.Errorf("encode run: %w", err)
	}
	problemJSON, err := encodeJSON(session.Problem)
	if err != nil {
		return storage.PlaySession{}, fmt.Errorf("encode problem: %w", err)
	}
	updatedAt := toMillis(session.UpdatedAt)
	expiresAt := toMillis(session.ExpiresAt)

	var row *sql.Row
	if session.Version == 0 {
		row = s.sqlDB.QueryRowContext(
			ctx,
			`INSERT INTO play_sessions (user_id, run_json, problem_json, problem_consumed, version, updated_at, expires_at)
			 VALUES (?, ?, ?, 0, 1, ?, ?)
			 ON CONFLICT(user_id) DO UPDATE SET
			   run_json = excluded.run_json,
			   problem_json = excluded.problem_json,
			   problem_consumed = 0,
			   version = play_sessions.version + 1,
			   updated_at = excluded.updated_at,
			   expires_at = excluded.expires_at
			 WHERE play_sessions.expires_at <= excluded.updated_at
			 RETURNING version`,
			userID,
			runJSON,
			problemJSON,
			updatedAt,
			expiresAt,
		)
	} else {
		row = s.sqlDB.QueryRowContext(
			ctx,
			`UPDATE play_sessions SET
			   run_json = ?,
			   problem_json = ?,
			   problem_consumed = 0,
			   version = version + 1,
			   updated_at = ?,
			   expires_at = ?
			 WHERE user_id = ? AND version = ?
			 RETURNING version`,
			runJSON,
			problemJSON,
			updatedAt,
			expiresAt,
			userID,
			session.Version,
		)
	}

	var version int64
	if err := row.Scan(&version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.PlaySession{}, storage.ErrConflict
		}
		if isForeignKeyViolation(err) {
			return storage.PlaySession{}, storage.ErrNotFound
		}
		return storage.PlaySession{}, fmt.Errorf("put play session: %w", err)
	}

	session.UserID = userID
	session.Version = version
	session.UpdatedAt = fromMillis(updatedAt)
	session.ExpiresAt = fromMillis(expiresAt)
	return session, nil
}

// ConsumeProblem marks the pending problem consumed in a single statement, so
// two concurrent submissions cannot both observe it. Only the problem named by
// problemID is consumed; a replacement fetched meanwhile stays pending.
func (s *Store) ConsumeProblem(ctx context.Context, userID, problemID string, now time.Time) (storage.PlaySession, error) {
	if err := s.ready(ctx); err != nil {
		return storage.PlaySession{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.PlaySession{}, fmt.Errorf("user id is required")
	}
	problemID = strings.TrimSpace(problemID)
	if problemID == "" {
		return storage.PlaySession{}, fmt.Errorf("problem id is required")
	}

	var runJSON, problemJSON sql.NullString
	var version, updatedAt, expiresAt int64
	err := s.sqlDB.QueryRowContext(
		ctx,
		`UPDATE play_sessions SET
		   problem_consumed = 1,
		   version = version + 1
		 WHERE user_id = ?
		   AND problem_json IS NOT NULL
		   AND problem_consumed = 0
		   AND json_extract(problem_json, '$.id') = ?
		   AND expires_at > ?
		 RETURNING run_json, problem_json, version, updated_at, expires_at`,
		userID,
		problemID,
		toMillis(now),
	).Scan(&runJSON, &problemJSON, &version, &updatedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.PlaySession{}, storage.ErrNotFound
		}
		return storage.PlaySession{}, fmt.Errorf("consume problem: %w", err)
	}
	return decodeSession(userID, runJSON, problemJSON, version, updatedAt, expiresAt)
}

// DeletePlaySession removes one user's session. Missing sessions are ignored.
func (s *Store) DeletePlaySession(ctx context.Context, userID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM play_sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete play session: %w", err)
	}
	return nil
}

// DeleteExpiredPlaySessions removes sessions that expired at or before now and
// reports how many were removed.
func (s *Store) DeleteExpiredPlaySessions(ctx context.Context, now time.Time) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM play_sessions WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired play sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired play sessions: %w", err)
	}
	return n, nil
}
