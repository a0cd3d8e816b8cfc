// Package server wires storage, the auth service and the HTTP layer into a
// runnable API server.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/HakuMatsunoki/natours-api-typeorm/internal/crypto"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/auth"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/config"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/metrics"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/notify"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/storage"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/storage/boltdb"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/storage/sqlstore"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/token"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// Server is the assembled API server.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger

	store    storage.Storage
	svc      *auth.Service
	authn    *auth.Authenticator
	metrics  *metrics.Metrics
	registry *prometheus.Registry

	handler http.Handler
	janitor *cron.Cron
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	now func() time.Time
}

// WithClock overrides the time source of token issuing and the auth flows.
func WithClock(now func() time.Time) Option {
	return func(o *serverOptions) {
		o.now = now
	}
}

// New assembles a server over an opened store. The server owns store and
// closes it in Close.
func New(cfg *config.Config, logger *slog.Logger, store storage.Storage, sender notify.Sender, opts ...Option) (*Server, error) {
	o := serverOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	hasher, err := crypto.NewHasher(cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to create hasher: %w", err)
	}

	issuer, err := token.NewIssuer(token.Config{
		AccessSecret:  []byte(cfg.AccessTokenSecret),
		RefreshSecret: []byte(cfg.RefreshTokenSecret),
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	}, token.WithClock(o.now))
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(registry)

	svc := auth.NewService(logger, store, hasher, issuer, sender, auth.Config{
		ResetTokenBytes:    cfg.ResetTokenLength,
		ResetTokenTTL:      cfg.ResetTokenTTL,
		ChangePasswordPath: cfg.ChangePasswordURL,
	}, auth.WithClock(o.now), auth.WithMetrics(m))

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		svc:      svc,
		authn:    auth.NewAuthenticator(logger, issuer, store),
		metrics:  m,
		registry: registry,
	}
	s.handler = s.routes()

	s.janitor = cron.New()
	if _, err := s.janitor.AddFunc(cfg.SessionCleanupSchedule, s.purgeExpiredSessions); err != nil {
		return nil, fmt.Errorf("invalid session cleanup schedule %q: %w", cfg.SessionCleanupSchedule, err)
	}

	return s, nil
}

// Open selects and opens the store and the mail transport from cfg, then
// assembles the server.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := OpenStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sender, err := NewSender(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	s, err := New(cfg, logger, store, sender)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return s, nil
}

// OpenStorage opens the backend named by cfg.DBDriver.
func OpenStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		return sqlstore.New(ctx, sqlstore.DriverSQLite, cfg.DB)
	case config.DriverPostgres:
		return sqlstore.New(ctx, sqlstore.DriverPostgres, cfg.DB)
	case config.DriverBolt:
		return boltdb.New(ctx, cfg.DB)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
}

// NewSender returns an SMTP mailer when a host is configured, a log mailer otherwise.
func NewSender(cfg *config.Config, logger *slog.Logger) (notify.Sender, error) {
	if cfg.Email.Host == "" {
		return notify.NewLogMailer(logger, cfg.MainSiteURL), nil
	}
	return notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
		MainURL:  cfg.MainSiteURL,
	})
}

// NewLogger creates the process logger: JSON in production, text otherwise.
func NewLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Service returns the auth service, used by administrative commands.
func (s *Server) Service() *auth.Service {
	return s.svc
}

// Run serves HTTP and the session janitor until ctx is cancelled, then shuts
// both down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}

	s.janitor.Start()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.InfoContext(gctx, "server listening",
			slog.String("addr", srv.Addr),
			slog.String("env", s.cfg.Env),
			slog.String("db_driver", s.cfg.DBDriver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// wait for a running cleanup to finish
		select {
		case <-s.janitor.Stop().Done():
		case <-shutdownCtx.Done():
		}

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Close releases the store.
func (s *Server) Close() error {
	return s.store.Close()
}

func (s *Server) purgeExpiredSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.svc.PurgeExpiredSessions(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to purge expired sessions", slog.Any("error", err))
		return
	}
	s.logger.InfoContext(ctx, "expired sessions purged", slog.Int("count", n))
}
