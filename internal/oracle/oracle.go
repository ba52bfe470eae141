// Package oracle produces in-character suspect replies during interrogations.
//
// Remote language-model oracles are always wrapped in [Fallback] so that a failing call degrades to the
// deterministic [Scripted] responder instead of failing the interrogation.
package oracle

import (
	"context"

	"github.com/myrjola/casebook/internal/models"
)

// Oracle answers a question put to a suspect.
type Oracle interface {
	Reply(ctx context.Context, req Request) (string, error)
}

// Request carries everything an oracle may use to answer.
type Request struct {
	Case     models.Case
	Suspect  models.Suspect
	History  []models.DialogueLine
	Question string
	// Cursor is the suspect's position in its generic lines. It is owned by the caller and advanced by the
	// scripted responder. Nil disables generic lines.
	Cursor *int
}

// HistoryLimit is the number of most recent dialogue lines sent to remote oracles.
const HistoryLimit = 10

func recentHistory(history []models.DialogueLine) []models.DialogueLine {
	if len(history) <= HistoryLimit {
		return history
	}
	return history[len(history)-HistoryLimit:]
}
