package oracle

import (
	"context"
	"strings"
)

// NothingToSay is the reply of a suspect without generic lines when no topic matches.
const NothingToSay = "I have nothing more to say."

type topic struct {
	keywords []string
	answer   func(req Request) string
}

// topics are checked in order, the first match wins.
var topics = []topic{ //nolint:gochecknoglobals // constant table
	{keywords: []string{"alibi", "where", "time"}, answer: func(req Request) string { return req.Suspect.Alibi }},
	{keywords: []string{"motive", "why"}, answer: func(req Request) string { return req.Suspect.Motive }},
	{keywords: []string{"relationship", "victim"}, answer: func(req Request) string { return req.Suspect.Relationship }},
	{keywords: []string{"evidence", "clue"}, answer: func(req Request) string { return req.Suspect.Evidence }},
}

// Scripted answers from the suspect profile by keyword and otherwise cycles through the suspect's generic lines.
type Scripted struct{}

func (Scripted) Reply(_ context.Context, req Request) (string, error) {
	return scriptedReply(req), nil
}

func scriptedReply(req Request) string {
	question := strings.ToLower(req.Question)
	for _, t := range topics {
		for _, keyword := range t.keywords {
			if strings.Contains(question, keyword) {
				return t.answer(req)
			}
		}
	}

	lines := req.Suspect.GenericLines
	if len(lines) == 0 || req.Cursor == nil {
		return NothingToSay
	}
	line := lines[*req.Cursor%len(lines)]
	*req.Cursor++
	return line
}
