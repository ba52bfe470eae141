package data

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/myrjola/casebook/internal/models"
	"github.com/myrjola/casebook/internal/store"
	"github.com/myrjola/casebook/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func Test_printProfile(t *testing.T) {
	ctx := context.Background()
	st := store.New(testhelpers.NewDatabase(t), testhelpers.NewLogger(io.Discard))

	_, err := st.Login(ctx, "Jane Marple")
	require.NoError(t, err)
	xp := 110
	_, err = st.UpdateUser(ctx, "jane_marple", store.UserPatch{ //nolint:exhaustruct // partial update
		XP:          &xp,
		AddPlayTime: 90 * time.Second,
		SolvedCase: &models.SolvedCase{ //nolint:exhaustruct // only what is printed
			CaseID:    "vicarage",
			Title:     "Murder at the Vicarage",
			AccusedID: "butler",
			Success:   true,
			XPAwarded: 100,
		},
	})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, printProfile(ctx, &out, st, "jane marple"))
	text := out.String()
	require.Contains(t, text, "Constable Jane Marple")
	require.Contains(t, text, "XP: 110 (190 to Detective)")
	require.Contains(t, text, "Play time: 1m30s")
	require.Contains(t, text, "Murder at the Vicarage")
	require.Contains(t, text, "solved")

	err = printProfile(ctx, &out, st, "Poirot")
	require.ErrorIs(t, err, store.ErrUserNotFound)
}
