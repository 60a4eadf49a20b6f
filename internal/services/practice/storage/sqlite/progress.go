package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SingularTensor/Mathly/internal/platform/grpc/pagination"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/sector"
	"github.com/SingularTensor/Mathly/internal/services/practice/storage"
)

const progressColumns = `user_id, sector, level, problems_solved, exp_earned, updated_at`

func scanProgress(row rowScanner) (storage.SectorProgress, error) {
	var progress storage.SectorProgress
	var key string
	var updatedAt int64
	if err := row.Scan(
		&progress.UserID,
		&key,
		&progress.Level,
		&progress.ProblemsSolved,
		&progress.ExpEarned,
		&updatedAt,
	); err != nil {
		return storage.SectorProgress{}, err
	}
	progress.Sector = sector.Key(key)
	progress.UpdatedAt = fromMillis(updatedAt)
	return progress, nil
}

// GetSectorProgress returns one user's progress in one sector.
func (s *Store) GetSectorProgress(ctx context.Context, userID string, key sector.Key) (storage.SectorProgress, error) {
	if err := s.ready(ctx); err != nil {
		return storage.SectorProgress{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.SectorProgress{}, fmt.Errorf("user id is required")
	}
	if key == "" {
		return storage.SectorProgress{}, fmt.Errorf("sector is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+progressColumns+` FROM sector_progress WHERE user_id = ? AND sector = ?`,
		userID,
		string(key),
	)
	progress, err := scanProgress(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.SectorProgress{}, storage.ErrNotFound
		}
		return storage.SectorProgress{}, fmt.Errorf("get sector progress: %w", err)
	}
	return progress, nil
}

// CreateSectorProgress inserts one progress record. A zero level is stored as
// level 1.
func (s *Store) CreateSectorProgress(ctx context.Context, progress storage.SectorProgress) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	userID := strings.TrimSpace(progress.UserID)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if progress.Sector == "" {
		return fmt.Errorf("sector is required")
	}
	level := progress.Level
	if level == 0 {
		level = 1
	}
	if level < 1 {
		return fmt.Errorf("level must be at least 1")
	}
	if progress.ProblemsSolved < 0 || progress.ExpEarned < 0 {
		return fmt.Errorf("progress counters must not be negative")
	}
	updatedAt := progress.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO sector_progress (`+progressColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		userID,
		string(progress.Sector),
		level,
		progress.ProblemsSolved,
		progress.ExpEarned,
		toMillis(updatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("create sector progress: %w", err)
	}
	return nil
}

// ListSectorProgress returns every progress record of one user, ordered by
// sector key.
func (s *Store) ListSectorProgress(ctx context.Context, userID string) ([]storage.SectorProgress, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+progressColumns+` FROM sector_progress WHERE user_id = ? ORDER BY sector ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sector progress: %w", err)
	}
	defer rows.Close()

	var out []storage.SectorProgress
	for rows.Next() {
		progress, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("list sector progress: %w", err)
		}
		out = append(out, progress)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sector progress: %w", err)
	}
	return out, nil
}

// ListLeaderboard returns one page of a sector leaderboard ordered by
// experience earned. Page tokens are row offsets.
func (s *Store) ListLeaderboard(ctx context.Context, query storage.LeaderboardQuery) (storage.LeaderboardPage, error) {
	if err := s.ready(ctx); err != nil {
		return storage.LeaderboardPage{}, err
	}
	if query.Sector == "" {
		return storage.LeaderboardPage{}, fmt.Errorf("sector is required")
	}
	if query.PageSize <= 0 {
		return storage.LeaderboardPage{}, fmt.Errorf("page size must be greater than zero")
	}
	offset, err := pagination.DecodeOffset(query.PageToken)
	if err != nil {
		return storage.LeaderboardPage{}, err
	}

	var b strings.Builder
	b.WriteString(`SELECT p.user_id, u.display_name, p.level, p.problems_solved, p.exp_earned
	   FROM sector_progress p
	   JOIN users u ON u.user_id = p.user_id
	  WHERE p.sector = ?`)
	args := []any{string(query.Sector)}
	if !query.Filter.Empty() {
		b.WriteString(" AND ")
		b.WriteString(query.Filter.Clause)
		args = append(args, query.Filter.Params...)
	}
	b.WriteString(` ORDER BY p.exp_earned DESC, p.level DESC, p.user_id ASC LIMIT ? OFFSET ?`)
	args = append(args, query.PageSize+1, offset)

	rows, err := s.sqlDB.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return storage.LeaderboardPage{}, fmt.Errorf("list leaderboard: %w", err)
	}
	defer rows.Close()

	page := storage.LeaderboardPage{
		Entries: make([]storage.LeaderboardEntry, 0, query.PageSize),
	}
	for rows.Next() {
		var entry storage.LeaderboardEntry
		if err := rows.Scan(
			&entry.UserID,
			&entry.DisplayName,
			&entry.Level,
			&entry.ProblemsSolved,
			&entry.ExpEarned,
		); err != nil {
			return storage.LeaderboardPage{}, fmt.Errorf("list leaderboard: %w", err)
		}
		entry.Rank = offset + len(page.Entries) + 1
		page.Entries = append(page.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return storage.LeaderboardPage{}, fmt.Errorf("list leaderboard: %w", err)
	}
	if len(page.Entries) > query.PageSize {
		page.Entries = page.Entries[:query.PageSize]
		page.NextPageToken = pagination.EncodeOffset(offset + query.PageSize)
	}
	return page, nil
}
