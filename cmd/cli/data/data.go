package data

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/myrjola/casebook/internal/app"
	"github.com/myrjola/casebook/internal/config"
	"github.com/myrjola/casebook/internal/errors"
	"github.com/myrjola/casebook/internal/progression"
	"github.com/myrjola/casebook/internal/store"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "data",
	Title: "Save data operations",
}

var Command = &cobra.Command{
	Use:     "data",
	GroupID: "data",
	Short:   "Export, import and inspect the save data",
}

var titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFA500"))

func init() {
	Command.AddCommand(Export, Import, Profile)
}

var Export = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the save data as JSON",
	Long:  `Writes the save data to the file, or to stdout when the file is "-".`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withStore(cmd, func(ctx context.Context, st *store.Store) error {
			if args[0] == "-" {
				return st.Export(ctx, cmd.OutOrStdout())
			}
			f, err := os.Create(args[0])
			if err != nil {
				return errors.Wrap(err, "create export file", slog.String("path", args[0]))
			}
			if err = st.Export(ctx, f); err != nil {
				_ = f.Close()
				return err
			}
			return errors.Wrap(f.Close(), "close export file")
		})
	},
}

var Import = &cobra.Command{
	Use:   "import [file]",
	Short: "Replace the save data with an export",
	Long:  `Reads an exported document. Invalid documents are rejected and the save data is left untouched.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withStore(cmd, func(ctx context.Context, st *store.Store) error {
			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrap(err, "open import file", slog.String("path", args[0]))
			}
			defer func() {
				_ = f.Close()
			}()
			return st.Import(ctx, f)
		})
	},
}

var Profile = &cobra.Command{
	Use:   "profile [name]",
	Short: "Show a detective's profile",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withStore(cmd, func(ctx context.Context, st *store.Store) error {
			return printProfile(ctx, cmd.OutOrStdout(), st, args[0])
		})
	},
}

func printProfile(ctx context.Context, w io.Writer, st *store.Store, name string) error {
	user, err := st.User(ctx, store.DeriveUserID(name))
	if err != nil {
		return err
	}
	current, next, hasNext := progression.Progress(st.Ranks(), user.XP)
	_, _ = fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s %s", current.Name, user.Name)))
	_, _ = fmt.Fprintf(w, "XP: %d", user.XP)
	if hasNext {
		_, _ = fmt.Fprintf(w, " (%d to %s)", next.Threshold-user.XP, next.Name)
	}
	_, _ = fmt.Fprintf(w, "\nLogins: %d, last %s\nPlay time: %s\n\n",
		user.LoginCount, user.LastLogin.Format("2006-01-02 15:04"), user.TotalPlayTime.Round(time.Second))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0) //nolint:mnd // column padding
	_, _ = fmt.Fprintln(tw, "CASE\tACCUSED\tRESULT\tXP")
	for _, solved := range user.SolvedCases {
		result := "failed"
		if solved.Success {
			result = "solved"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", solved.Title, solved.AccusedID, result, solved.XPAwarded)
	}
	return errors.Wrap(tw.Flush(), "write profile")
}

// withStore opens the configured database, runs fn and exits with an error message on failure.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, st *store.Store) error) {
	ctx := cmd.Context()
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	a, err := app.Open(ctx, cfg, app.NewLogger(os.Stderr, cfg.LogLevel))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Startup error: %v\n", err)
		os.Exit(1)
	}
	err = fn(ctx, a.Store)
	if closeErr := a.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s: %v\n", cmd.Name(), err)
		os.Exit(1)
	}
}
