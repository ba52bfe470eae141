package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/myrjola/casebook/internal/errors"
	"github.com/myrjola/casebook/internal/sqlite"
	"github.com/myrjola/casebook/internal/store"
	"github.com/myrjola/casebook/internal/testhelpers"
)

// main opens a copy of a production save, migrates it and checks that no profile was lost.
func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	var (
		err       error
		start     = time.Now()
		ctx       context.Context
		sqliteURL string
		ok        bool
		cancel    context.CancelFunc
	)
	ctx = context.Background()
	ctx, cancel = context.WithTimeout(ctx, 5*time.Second) //nolint:mnd // 5 seconds

	if sqliteURL, ok = os.LookupEnv("CASEBOOK_SQLITE_URL"); !ok {
		logger.LogAttrs(ctx, slog.LevelError, "CASEBOOK_SQLITE_URL not set")
		os.Exit(1)
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, sqliteURL, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating database",
			slog.String("url", sqliteURL), errors.SlogError(err))
		os.Exit(1)
	}

	// Count the stored profiles before the store gets a chance to migrate the document.
	var before int
	row := db.ReadWrite.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents, json_each(documents.value, '$.users') WHERE documents.key = 'casebook'`)
	if err = row.Scan(&before); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error counting stored users", errors.SlogError(err))
		os.Exit(1)
	}

	s := store.New(db, logger)
	migrated, err := s.Init(ctx)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error migrating document", errors.SlogError(err))
		os.Exit(1)
	}
	if migrated.Version != store.CurrentVersion {
		logger.LogAttrs(ctx, slog.LevelError, "document not at the current version",
			slog.Int("version", migrated.Version), slog.Int("want", store.CurrentVersion))
		os.Exit(1)
	}
	if len(migrated.Users) == 0 || len(migrated.Users) != before {
		logger.LogAttrs(ctx, slog.LevelError, "user count changed or empty, something is likely wrong",
			slog.Int("before", before), slog.Int("after", len(migrated.Users)))
		os.Exit(1)
	}

	// A second load must not change the document.
	again, err := s.Init(ctx)
	if err != nil || again.Statistics != migrated.Statistics {
		logger.LogAttrs(ctx, slog.LevelError, "migration is not idempotent", errors.SlogError(err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "user count", slog.Int("count", len(migrated.Users)))

	logger.LogAttrs(ctx, slog.LevelInfo, "Migration test successful 🙌", slog.Duration("duration", time.Since(start)))
	cancel()
	_ = db.Close()
	os.Exit(0)
}
