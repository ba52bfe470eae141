// Package app wires the configuration, database, store, case repository and oracle used by the commands.
package app

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/myrjola/casebook/internal/cases"
	"github.com/myrjola/casebook/internal/config"
	"github.com/myrjola/casebook/internal/errors"
	"github.com/myrjola/casebook/internal/game"
	"github.com/myrjola/casebook/internal/logging"
	"github.com/myrjola/casebook/internal/oracle"
	"github.com/myrjola/casebook/internal/sqlite"
	"github.com/myrjola/casebook/internal/store"
)

const optimizeInterval = 24 * time.Hour

type App struct {
	Config *config.Config
	Logger *slog.Logger
	DB     *sqlite.Database
	Store  *store.Store
	Cases  *cases.Repository
	Oracle oracle.Oracle

	closeOracle     func() error
	cancelOptimizer context.CancelFunc
}

// NewLogger creates the text logger used by the commands.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := logging.NewContextHandler(slog.NewTextHandler(w, &slog.HandlerOptions{
		AddSource:   true,
		Level:       level,
		ReplaceAttr: nil,
	}))
	return slog.New(handler)
}

// Open connects every collaborator described by cfg. Close must be called when done.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	var (
		err error
		a   = &App{ //nolint:exhaustruct // populated below
			Config:          cfg,
			Logger:          logger,
			closeOracle:     func() error { return nil },
			cancelOptimizer: func() {},
		}
	)
	if a.DB, err = sqlite.NewDatabase(ctx, cfg.SQLiteURL, logger); err != nil {
		return nil, errors.Wrap(err, "open database", slog.String("url", cfg.SQLiteURL))
	}
	a.Store = store.New(a.DB, logger)
	if _, err = a.Store.Init(ctx); err != nil {
		return nil, errors.Join(errors.Wrap(err, "init store"), a.Close())
	}

	a.Cases = cases.NewRepository(logger)
	if cfg.CasesPath != "" {
		err = a.Cases.LoadFile(ctx, cfg.CasesPath)
	} else {
		err = a.Cases.LoadEmbedded(ctx)
	}
	// Invalid case content leaves the repository empty and the player with no cases to pick.
	if err != nil && !errors.Is(err, cases.ErrInvalidCases) {
		return nil, errors.Join(errors.Wrap(err, "load cases"), a.Close())
	}

	if a.Oracle, a.closeOracle, err = oracle.FromConfig(ctx, cfg, logger); err != nil {
		a.closeOracle = func() error { return nil }
		return nil, errors.Join(errors.Wrap(err, "create oracle"), a.Close())
	}

	// In-memory databases do not outlive the process, so they are never optimized.
	if !strings.Contains(cfg.SQLiteURL, ":memory:") {
		var optimizerCtx context.Context
		optimizerCtx, a.cancelOptimizer = context.WithCancel(context.WithoutCancel(ctx))
		go a.DB.StartDatabaseOptimizer(optimizerCtx, optimizeInterval)
	}

	logger.LogAttrs(ctx, slog.LevelDebug, "app ready",
		slog.String("oracle", cfg.Oracle), slog.Int("cases", len(a.Cases.List())))
	return a, nil
}

// NewGame creates a game with the configured lab delay.
func (a *App) NewGame(observer game.Observer) *game.Game {
	return game.NewGame(a.Cases, a.Store, a.Oracle, a.Logger, observer, game.WithLabDelay(a.Config.LabDelay))
}

func (a *App) Close() error {
	a.cancelOptimizer()
	return errors.Join(
		errors.Wrap(a.closeOracle(), "close oracle"),
		errors.Wrap(a.DB.Close(), "close database"),
	)
}
