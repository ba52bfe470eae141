package play

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/myrjola/casebook/internal/app"
	"github.com/myrjola/casebook/internal/broker"
	"github.com/myrjola/casebook/internal/config"
	"github.com/myrjola/casebook/internal/errors"
	"github.com/myrjola/casebook/internal/game"
	"github.com/spf13/cobra"
)

// eventBuffer bounds the events waiting for the terminal to render them.
const eventBuffer = 256

var Group = &cobra.Group{
	ID:    "play",
	Title: "Game",
}

var Command = &cobra.Command{
	Use:     "play",
	GroupID: "play",
	Short:   "Play a case",
	Long:    `Opens the casebook in the terminal. Logs are written to CASEBOOK_LOG_FILE.`,
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := run(cmd.Context()); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "play: %v\n", err)
			os.Exit(1)
		}
	},
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logFile, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) //nolint:mnd // owner only
	if err != nil {
		return errors.Wrap(err, "open log file", slog.String("path", cfg.LogFile))
	}
	defer func() {
		_ = logFile.Close()
	}()

	a, err := app.Open(ctx, cfg, app.NewLogger(logFile, cfg.LogLevel))
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	events := broker.NewEventBroker[game.Event]()
	go events.Start()
	defer events.Stop()
	go logEvents(ctx, a.Logger, events.Subscribe(eventBuffer))

	g := a.NewGame(events.Publish)
	p := tea.NewProgram(newModel(ctx, g, events.Subscribe(eventBuffer)), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	if dropped := events.Dropped(); dropped > 0 {
		a.Logger.LogAttrs(ctx, slog.LevelWarn, "game events were dropped", slog.Int64("dropped", dropped))
	}
	return err
}

// logEvents records the game events in the log file until the broker stops.
func logEvents(ctx context.Context, logger *slog.Logger, events <-chan game.Event) {
	logger = logger.With("source", "play")
	for e := range events {
		logger.LogAttrs(ctx, slog.LevelDebug, "game event",
			slog.String("kind", string(e.Kind)),
			slog.String("session_id", e.SessionID),
			slog.String("case_id", e.CaseID),
			slog.String("suspect_id", e.SuspectID),
			slog.Int("action_points", e.ActionPoints))
	}
}
