package oracle

import (
	"context"
	"log/slog"
	"strings"

	"github.com/myrjola/casebook/internal/errors"
)

// FallbackMarker is appended to scripted replies given in place of a failed remote oracle.
const FallbackMarker = " [the line crackles: scripted answer]"

var ErrEmptyReply = errors.NewSentinel("oracle returned an empty reply")

// Fallback asks Primary and answers with the [Scripted] responder when it fails. It never returns an error.
type Fallback struct {
	Primary Oracle
	logger  *slog.Logger
}

func NewFallback(primary Oracle, logger *slog.Logger) *Fallback {
	return &Fallback{
		Primary: primary,
		logger:  logger.With("source", "OracleFallback"),
	}
}

func (f *Fallback) Reply(ctx context.Context, req Request) (string, error) {
	reply, err := f.Primary.Reply(ctx, req)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = ErrEmptyReply
	}
	if err == nil {
		return reply, nil
	}
	f.logger.LogAttrs(ctx, slog.LevelWarn, "oracle failed, using scripted reply",
		slog.String("case_id", req.Case.ID), slog.String("suspect_id", req.Suspect.ID), errors.SlogError(err))
	return Recover(req), nil
}

// Recover answers req with the scripted responder and marks the reply as a fallback.
func Recover(req Request) string {
	return scriptedReply(req) + FallbackMarker
}
