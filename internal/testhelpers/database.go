package testhelpers

import (
	"context"
	"io"
	"testing"

	"github.com/myrjola/casebook/internal/sqlite"
)

// NewDatabase opens a fresh in-memory database that is closed when the test ends.
func NewDatabase(t *testing.T) *sqlite.Database {
	t.Helper()
	dbs, err := sqlite.NewDatabase(context.Background(), ":memory:", NewLogger(io.Discard))
	if err != nil {
		t.Fatalf("open in-memory database: %v", err)
	}
	t.Cleanup(func() {
		if err = dbs.Close(); err != nil {
			t.Errorf("close in-memory database: %v", err)
		}
	})
	return dbs
}
