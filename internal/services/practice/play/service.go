// Package play orchestrates practice runs: it resolves sector state, asks the
// generator for problems, applies answers to the run and commits rewards.
package play

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/SingularTensor/Mathly/internal/platform/errors"
	"github.com/SingularTensor/Mathly/internal/platform/config"
	"github.com/SingularTensor/Mathly/internal/platform/id"
	"github.com/SingularTensor/Mathly/internal/platform/logging"
	"github.com/SingularTensor/Mathly/internal/platform/random"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/sector"
	"github.com/SingularTensor/Mathly/internal/services/practice/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultSessionTTL is how long an untouched play session survives.
const DefaultSessionTTL = 24 * time.Hour

const tracerName = "mathly/practice/play"

// Config wires a Service.
type Config struct {
	Store   storage.Store
	Catalog *sector.Catalog
	Logger  *zap.Logger
	// SessionTTL is refreshed on every play session write.
	SessionTTL time.Duration
	Clock      func() time.Time
	Seeds      random.SeedFunc
	NewID      func() (string, error)
}

// Service runs practice operations for one user per call.
type Service struct {
	store      storage.Store
	catalog    *sector.Catalog
	logger     *zap.Logger
	tracer     trace.Tracer
	sessionTTL time.Duration
	clock      func() time.Time
	seeds      random.SeedFunc
	newID      func() (string, error)
}

// NewService validates cfg and applies defaults.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("practice store is required")
	}
	svc := &Service{
		store:      cfg.Store,
		catalog:    cfg.Catalog,
		logger:     logging.OrNop(cfg.Logger).Named("play"),
		tracer:     otel.Tracer(tracerName),
		sessionTTL: config.PositiveDuration(cfg.SessionTTL, DefaultSessionTTL),
		clock:      cfg.Clock,
		seeds:      cfg.Seeds,
		newID:      cfg.NewID,
	}
	if svc.catalog == nil {
		svc.catalog = sector.DefaultCatalog()
	}
	if svc.clock == nil {
		svc.clock = time.Now
	}
	if svc.seeds == nil {
		svc.seeds = random.NewSeed
	}
	if svc.newID == nil {
		svc.newID = id.NewID
	}
	return svc, nil
}

// Catalog returns the sector catalog the service validates against.
func (s *Service) Catalog() *sector.Catalog {
	return s.catalog
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "play."+name, trace.WithAttributes(attrs...))
}

// finishSpan records err on span and ends it.
func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperrors.GetCode(err)))
	}
	span.End()
}

func requireUser(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", apperrors.New(apperrors.CodeUserRequired, "user id is required")
	}
	return userID, nil
}

// availableSector parses raw and requires an enabled sector.
func (s *Service) availableSector(raw string) (sector.Config, error) {
	invalid := apperrors.WithMetadata(apperrors.CodeInvalidSector, fmt.Sprintf("sector %q is not available", raw), map[string]string{
		"Sector": raw,
	})
	key, err := sector.ParseKey(raw)
	if err != nil {
		return sector.Config{}, invalid
	}
	cfg, ok := s.catalog.Available(key)
	if !ok {
		return sector.Config{}, invalid
	}
	return cfg, nil
}

// storageError maps persistence failures to domain errors. Failures without a
// domain meaning are reported as transient.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.Wrap(apperrors.CodeNotFound, op+": record not found", err)
	case errors.Is(err, storage.ErrConflict):
		return apperrors.Wrap(apperrors.CodeConflict, op+": concurrent update", err)
	case errors.Is(err, storage.ErrInsufficientFunds):
		return apperrors.Wrap(apperrors.CodeInsufficientFunds, op+": insufficient funds", err)
	default:
		return apperrors.Wrap(apperrors.CodeStorageUnavailable, op, err)
	}
}

// progressFor returns the user's progress in key, creating the level 1 record
// on first use.
func (s *Service) progressFor(ctx context.Context, userID string, key sector.Key, now time.Time) (storage.SectorProgress, error) {
	progress, err := s.store.GetSectorProgress(ctx, userID, key)
	if err == nil {
		return progress, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return storage.SectorProgress{}, storageError("get sector progress", err)
	}
	created := storage.SectorProgress{UserID: userID, Sector: key, Level: 1, UpdatedAt: now}
	err = s.store.CreateSectorProgress(ctx, created)
	switch {
	case err == nil:
		return created, nil
	case errors.Is(err, storage.ErrAlreadyExists):
		progress, err = s.store.GetSectorProgress(ctx, userID, key)
		if err != nil {
			return storage.SectorProgress{}, storageError("get sector progress", err)
		}
		return progress, nil
	default:
		return storage.SectorProgress{}, storageError("create sector progress", err)
	}
}
