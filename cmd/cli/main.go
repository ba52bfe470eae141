package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/myrjola/casebook/cmd/cli/casefile"
	"github.com/myrjola/casebook/cmd/cli/data"
	"github.com/myrjola/casebook/cmd/cli/play"
	"github.com/myrjola/casebook/internal/errors"
	"github.com/spf13/cobra"
)

func init() {
	// The .env file is optional, the environment can be set directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rootCmd.AddGroup(play.Group)
	rootCmd.AddCommand(play.Command)
	rootCmd.AddGroup(casefile.Group)
	rootCmd.AddCommand(casefile.Command)
	rootCmd.AddGroup(data.Group)
	rootCmd.AddCommand(data.Command)
}

var rootCmd = &cobra.Command{
	Use:  "casebook",
	Long: `Casebook is a detective game. Interrogate suspects, gather evidence and name the killer.`,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1) //nolint:gocritic // stop only releases the signal handler
	}
}

func main() {
	Execute()
}
