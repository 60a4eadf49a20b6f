// Package server wires the practice runtime and gRPC lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/SingularTensor/Mathly/internal/platform/config"
	"github.com/SingularTensor/Mathly/internal/platform/logging"
	"github.com/SingularTensor/Mathly/internal/platform/timeouts"
	"github.com/SingularTensor/Mathly/internal/services/practice/api/grpc/auth"
	"github.com/SingularTensor/Mathly/internal/services/practice/api/grpc/interceptors"
	grpcmeta "github.com/SingularTensor/Mathly/internal/services/practice/api/grpc/metadata"
	practiceservice "github.com/SingularTensor/Mathly/internal/services/practice/api/grpc/practice"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/sector"
	"github.com/SingularTensor/Mathly/internal/services/practice/play"
	practicesqlite "github.com/SingularTensor/Mathly/internal/services/practice/storage/sqlite"
)

// DefaultSweepInterval is how often expired play sessions are deleted.
const DefaultSweepInterval = 10 * time.Minute

// Config is the runtime configuration of a practice server.
type Config struct {
	DBPath string
	// CatalogPath optionally names a YAML sector overlay.
	CatalogPath   string
	SessionTTL    time.Duration
	SweepInterval time.Duration
	Token         auth.TokenConfig
	Logger        *zap.Logger
}

// Server hosts the practice gRPC API, its storage and the session janitor.
type Server struct {
	listener      net.Listener
	grpcServer    *grpc.Server
	health        *health.Server
	store         *practicesqlite.Store
	play          *play.Service
	sweepInterval time.Duration
	logger        *zap.Logger
}

// New creates a configured practice server listening on the provided port.
func New(ctx context.Context, port int, cfg Config) (*Server, error) {
	return NewWithAddr(ctx, fmt.Sprintf(":%d", port), cfg)
}

// NewWithAddr creates a configured practice server for the provided address.
func NewWithAddr(ctx context.Context, addr string, cfg Config) (*Server, error) {
	if len(cfg.Token.Secret) == 0 {
		return nil, errors.New("player token secret is required")
	}
	logger := logging.OrNop(cfg.Logger)
	catalog, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	store, err := openPracticeStore(ctx, cfg.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}
	engine, err := play.NewService(play.Config{
		Store:      store,
		Catalog:    catalog,
		Logger:     logger,
		SessionTTL: cfg.SessionTTL,
	})
	if err != nil {
		_ = store.Close()
		_ = listener.Close()
		return nil, err
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcmeta.UnaryServerInterceptor(nil),
			interceptors.AccessLogInterceptor(logger, nil),
			interceptors.TimeoutInterceptor(timeouts.GRPCRequest),
			auth.UnaryServerInterceptor(cfg.Token),
		),
	)
	healthServer := health.NewServer()
	practiceservice.RegisterPracticeServer(grpcServer, practiceservice.NewService(engine))
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(practiceservice.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	sweepInterval := config.PositiveDuration(cfg.SweepInterval, DefaultSweepInterval)
	return &Server{
		listener:      listener,
		grpcServer:    grpcServer,
		health:        healthServer,
		store:         store,
		play:          engine,
		sweepInterval: sweepInterval,
		logger:        logger,
	}, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a practice server until context cancellation.
func Run(ctx context.Context, port int, cfg Config) error {
	server, err := New(ctx, port, cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve runs the gRPC server and the session janitor until ctx is cancelled
// or serving fails.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, groupCtx := errgroup.WithContext(ctx)

	s.logger.Info("practice server listening", zap.String("addr", s.Addr()))
	group.Go(func() error {
		defer cancel()
		err := s.grpcServer.Serve(s.listener)
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		s.stop()
		return nil
	})
	group.Go(func() error {
		s.runJanitor(groupCtx)
		return nil
	})

	err := group.Wait()
	s.logger.Info("practice server stopped", zap.Error(err))
	return err
}

// stop drains in-flight calls, forcing the stop after timeouts.Shutdown.
func (s *Server) stop() {
	s.health.Shutdown()
	drained := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(timeouts.Shutdown):
		s.logger.Warn("graceful stop timed out", zap.Duration("timeout", timeouts.Shutdown))
		s.grpcServer.Stop()
		<-drained
	}
}

func (s *Server) runJanitor(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Server) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, timeouts.GRPCRequest)
	defer cancel()
	if _, err := s.play.SweepExpiredSessions(sweepCtx); err != nil && ctx.Err() == nil {
		s.logger.Warn("sweep expired play sessions", zap.Error(err))
	}
}

// Close releases practice server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("close practice store", zap.Error(err))
		}
	}
}

func loadCatalog(path string) (*sector.Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return sector.DefaultCatalog(), nil
	}
	catalog, err := sector.LoadCatalog(path)
	if err != nil {
		return nil, fmt.Errorf("load sector catalog: %w", err)
	}
	return catalog, nil
}

func openPracticeStore(ctx context.Context, path string) (*practicesqlite.Store, error) {
	if strings.TrimSpace(path) == "" {
		path = filepath.Join("data", "practice.db")
	}
	openCtx, cancel := context.WithTimeout(ctx, timeouts.StoreOpen)
	defer cancel()
	store, err := practicesqlite.Open(openCtx, path)
	if err != nil {
		return nil, fmt.Errorf("open practice sqlite store: %w", err)
	}
	return store, nil
}
