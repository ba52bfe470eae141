package store_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/myrjola/casebook/internal/models"
	"github.com/myrjola/casebook/internal/sqlite"
	"github.com/myrjola/casebook/internal/store"
	"github.com/myrjola/casebook/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

var testRanks = []models.Rank{
	{Threshold: 0, Name: "Rookie"},
	{Threshold: 100, Name: "Constable"},
	{Threshold: 300, Name: "Detective"},
}

var fixedNow = time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*store.Store, *sqlite.Database) {
	t.Helper()
	dbs := testhelpers.NewDatabase(t)
	s := store.New(dbs, testhelpers.NewLogger(io.Discard),
		store.WithRanks(testRanks),
		store.WithClock(func() time.Time { return fixedNow }))
	return s, dbs
}

// writeRaw stores value as the document bypassing the store.
func writeRaw(t *testing.T, dbs *sqlite.Database, value string) {
	t.Helper()
	_, err := dbs.ReadWrite.ExecContext(context.Background(),
		`INSERT INTO documents (key, value, version, updated_at) VALUES ('casebook', ?, 0, '')
ON CONFLICT (key) DO UPDATE SET value = excluded.value`, value)
	require.NoError(t, err)
}
