package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/poi/internal/index"
	"github.com/starford/poi/internal/listing"
	"github.com/starford/poi/internal/models"
	"github.com/starford/poi/internal/noteservice"
	"github.com/starford/poi/internal/store"
)

// App holds the wired application: store, caches, search index, and the
// coordinating service.
type App struct {
	cfg    *Config
	logger *slog.Logger
	store  *store.Store
	db     *index.DB
	svc    *noteservice.Service
}

// New constructs the application from options. The store root must already
// exist (see Init); a missing root surfaces as apperr.ErrStoreUnavailable.
func New(opts ...Option) (*App, error) {
	a := &App{}
	for _, opt := range opts {
		opt(a)
	}
	if a.cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: a.cfg.App.Level(),
		}))
	}
	slog.SetDefault(a.logger)

	st, err := store.New(a.cfg.Store.Path, a.cfg.Store.Extension, a.logger)
	if err != nil {
		return nil, err
	}
	a.store = st

	if err := os.MkdirAll(a.cfg.Store.StateDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	db, err := index.Open(a.cfg.Index.ResolvedPath(&a.cfg.Store))
	if err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}
	a.db = db

	cache := listing.NewCache(a.cfg.Store.ListingPath())
	last := listing.NewLastNote(a.cfg.Store.LastNotePath())
	a.svc = noteservice.NewService(st, cache, last, db, a.cfg.Store.TagPrefix, a.logger)
	return a, nil
}

// Close releases the search index.
func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Service returns the coordinating note service.
func (a *App) Service() *noteservice.Service { return a.svc }

// Config returns the loaded configuration.
func (a *App) Config() *Config { return a.cfg }

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// AbsPath resolves a note to the absolute path handed to the editor.
func (a *App) AbsPath(n models.Note) (string, error) {
	return a.store.Abs(n.Path)
}

// Backup copies a note's content into the backups directory under its
// current filename.
func (a *App) Backup(n models.Note, data []byte) error {
	dir := a.cfg.Store.BackupsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create backups dir: %w", err)
	}
	dst := filepath.Join(dir, filepath.Base(n.Path))
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	return nil
}

// SyncIndex reconciles the search index with the store.
func (a *App) SyncIndex() error {
	return index.Sync(a.db, a.store, a.cfg.Store.TagPrefix, a.logger)
}

// Watch runs the index watcher until a shutdown signal or ctx cancellation.
func (a *App) Watch(ctx context.Context) error {
	if err := a.SyncIndex(); err != nil {
		a.logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return index.Watch(gCtx, a.db, a.store, a.cfg.Store.TagPrefix, a.logger)
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			a.logger.Info("received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
		}
		return nil
	})

	return g.Wait()
}

// Init prepares a store: the root directory, the state directory, and the
// backups directory. It reports whether anything was created, so the caller
// can tell a fresh init from a repeated one.
func Init(cfg *Config) (bool, error) {
	stateDir := cfg.Store.StateDir()
	if _, err := os.Stat(stateDir); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(cfg.Store.BackupsDir(), 0o755); err != nil {
		return false, fmt.Errorf("initialize store: %w", err)
	}
	return true, nil
}
