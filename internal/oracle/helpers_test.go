package oracle_test

import (
	"io"
	"log/slog"

	"github.com/myrjola/casebook/internal/testhelpers"
)

func discardLogger() *slog.Logger {
	return testhelpers.NewLogger(io.Discard)
}
