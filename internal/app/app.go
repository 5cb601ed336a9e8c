package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mailmerge/internal/auth"
	"github.com/mailmerge/internal/config"
	"github.com/mailmerge/internal/store"
)

const pruneInterval = time.Hour

type App struct {
	config          *config.Config
	logger          *slog.Logger
	db              *store.DB
	keyStore        *store.KeyStore
	invocationStore *store.InvocationStore
	authenticator   *auth.Authenticator
}

func (app *App) Close() {
	app.db.Close()
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := newLogger(cfg)

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	keyStore := store.NewKeyStore(db)
	invocationStore := store.NewInvocationStore(db)

	if err := auth.SeedMasterKey(ctx, keyStore, cfg.MasterKey); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed master key: %w", err)
	}

	if cfg.Anonymous() {
		logger.Warn("EmailSetup accepts anonymous requests", "auth_level", cfg.AuthLevel)
	}

	return &App{
		config:          cfg,
		logger:          logger,
		db:              db,
		keyStore:        keyStore,
		invocationStore: invocationStore,
		authenticator:   auth.NewAuthenticator(keyStore),
	}, nil
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
func (app *App) Start(ctx context.Context) error {
	// Create an errgroup derived from the parent context
	g, gctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", app.config.Port),
		Handler:      app.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
	}

	g.Go(func() error {
		app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done() // Wait for OS signal or parent context to fail

		app.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if app.config.LogInvocations && app.config.InvocationRetention > 0 {
		g.Go(func() error {
			app.pruneInvocations(gctx, pruneInterval)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	app.logger.Info("stopped server")
	return nil
}

// pruneInvocations deletes invocation records older than the retention
// window every interval until ctx is cancelled.
func (app *App) pruneInvocations(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		app.pruneOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (app *App) pruneOnce(ctx context.Context) {
	cutoff := time.Now().Add(-app.config.InvocationRetention)
	n, err := app.invocationStore.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			app.logger.Error("invocations: prune failed", "err", err)
		}
		return
	}
	if n > 0 {
		app.logger.Info("invocations: pruned", "deleted", n, "cutoff", cutoff.UTC().Format(time.RFC3339))
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	logLevel := slog.LevelInfo

	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))

	slog.SetDefault(logger)
	return logger
}
