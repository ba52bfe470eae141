package play

import (
	"context"
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/myrjola/casebook/internal/app"
	"github.com/myrjola/casebook/internal/broker"
	"github.com/myrjola/casebook/internal/config"
	"github.com/myrjola/casebook/internal/game"
	"github.com/myrjola/casebook/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T) model {
	t.Helper()
	ctx := context.Background()
	cfg, err := config.LoadFrom(map[string]string{
		"CASEBOOK_SQLITE_URL": ":memory:",
		"CASEBOOK_LAB_DELAY":  "1ms",
	})
	require.NoError(t, err)
	a, err := app.Open(ctx, cfg, testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, a.Close())
	})
	events := broker.NewEventBroker[game.Event]()
	go events.Start()
	t.Cleanup(events.Stop)
	g := a.NewGame(events.Publish)
	m, _ := newModel(ctx, g, events.Subscribe(eventBuffer)).Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m.(model) //nolint:forcetypeassert // Update returns the same model type
}

// send delivers msg and runs the resulting command once, as the bubbletea runtime would.
func send(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(model) //nolint:forcetypeassert // Update returns the same model type
	if cmd == nil {
		return m
	}
	done := make(chan tea.Msg, 1)
	go func() {
		done <- cmd()
	}()
	select {
	case result := <-done:
		if result == nil {
			return m
		}
		if _, ok := result.(tea.BatchMsg); ok {
			return m
		}
		next, _ = m.Update(result)
		return next.(model) //nolint:forcetypeassert // Update returns the same model type
	case <-time.After(50 * time.Millisecond):
		// Blinking cursors and event waits never finish on their own.
		return m
	}
}

func typeText(t *testing.T, m model, text string) model {
	t.Helper()
	m = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)}) //nolint:exhaustruct // plain runes
	return send(t, m, tea.KeyMsg{Type: tea.KeyEnter})                   //nolint:exhaustruct // plain key
}

func TestModel_playthrough(t *testing.T) {
	m := newTestModel(t)
	require.Contains(t, m.View(), "CASEBOOK")

	// Nobody has played yet.
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter}) //nolint:exhaustruct // plain key
	require.Equal(t, screenLogin, m.screen)
	require.Contains(t, m.status, "Nobody has played yet")

	m = typeText(t, m, "Holmes")
	require.Equal(t, screenCases, m.screen)
	require.Len(t, m.cases, 2)
	require.Contains(t, m.View(), "Rookie Holmes")

	// Pick the manor, whatever order the cases were loaded in.
	for m.cases[m.cursor].ID != "blackwood-manor" {
		m = send(t, m, tea.KeyMsg{Type: tea.KeyDown}) //nolint:exhaustruct // plain key
	}
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter}) //nolint:exhaustruct // plain key
	require.Equal(t, screenStory, m.screen)
	require.Contains(t, m.View(), "BLACKWOOD")

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter}) //nolint:exhaustruct // plain key
	require.Equal(t, screenInvestigation, m.screen)

	m = typeText(t, m, "/talk nobody")
	require.Contains(t, m.status, "unknown suspect")

	m = typeText(t, m, "/body")
	require.Equal(t, game.ActionBudget-1, m.game.Session().Snapshot().ActionPoints)

	m = typeText(t, m, "/accuse charles debt money inheritance")
	require.Equal(t, screenResolved, m.screen)
	require.NotNil(t, m.outcome)
	require.True(t, m.outcome.Verdict.Success)
	require.Contains(t, m.View(), "CASE SOLVED")

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter}) //nolint:exhaustruct // plain key
	require.Equal(t, screenCases, m.screen)
	require.Len(t, m.cases, 1)
}
