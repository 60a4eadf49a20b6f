package play

import (
	"context"
	"errors"
	"time"

	"github.com/SingularTensor/Mathly/internal/services/practice/storage"
	"go.uber.org/zap"
)

// loadSession returns the user's session, or an unsaved empty one.
func (s *Service) loadSession(ctx context.Context, userID string, now time.Time) (storage.PlaySession, error) {
	session, err := s.store.GetPlaySession(ctx, userID, now)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.PlaySession{UserID: userID}, nil
	}
	if err != nil {
		return storage.PlaySession{}, storageError("get play session", err)
	}
	return session, nil
}

func (s *Service) saveSession(ctx context.Context, session storage.PlaySession, now time.Time) (storage.PlaySession, error) {
	session.UpdatedAt = now
	session.ExpiresAt = now.Add(s.sessionTTL)
	stored, err := s.store.PutPlaySession(ctx, session)
	if err != nil {
		return storage.PlaySession{}, storageError("put play session", err)
	}
	return stored, nil
}

// SweepExpiredSessions deletes play sessions that expired before now and
// reports how many were removed.
func (s *Service) SweepExpiredSessions(ctx context.Context) (int64, error) {
	removed, err := s.store.DeleteExpiredPlaySessions(ctx, s.now())
	if err != nil {
		return 0, storageError("delete expired play sessions", err)
	}
	if removed > 0 {
		s.logger.Info("expired play sessions removed", zap.Int64("count", removed))
	}
	return removed, nil
}

// AbandonRun discards the user's play session.
func (s *Service) AbandonRun(ctx context.Context, userID string) error {
	userID, err := requireUser(userID)
	if err != nil {
		return err
	}
	if err := s.store.DeletePlaySession(ctx, userID); err != nil {
		return storageError("delete play session", err)
	}
	return nil
}
