package casefile

import (
	"fmt"
	"io"
	"os"

	"github.com/myrjola/casebook/internal/cases"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "cases",
	Title: "Case file operations",
}

var Command = &cobra.Command{
	Use:     "cases",
	GroupID: "cases",
	Short:   "Work with case files",
}

func init() {
	Command.AddCommand(Validate)
}

var Validate = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a case file",
	Long:  `Checks that a YAML or JSON case file has every field the game needs and lists the cases in it.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
			os.Exit(1)
		}
		if err = validate(cmd.OutOrStdout(), data); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Invalid case file: %v\n", err)
			os.Exit(1)
		}
	},
}

func validate(w io.Writer, data []byte) error {
	parsed, err := cases.Parse(data)
	if err != nil {
		return err //nolint:wrapcheck // already annotated by Parse
	}
	for _, c := range parsed {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d suspects\t%d clues\n",
			c.ID, c.Title, len(c.Suspects),
			len(c.Evidence.Initial)+len(c.Evidence.BodySearch)+len(c.Evidence.RoomSearch))
	}
	_, _ = fmt.Fprintf(w, "%d cases OK\n", len(parsed))
	return nil
}
