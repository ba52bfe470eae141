package game

import (
	"strings"

	"github.com/myrjola/casebook/internal/models"
)

// Verdict is the outcome of an accusation.
type Verdict struct {
	CorrectSuspect bool
	CorrectMotive  bool
	Success        bool
	KeywordHits    int
	RequiredHits   int
}

// Judge scores an accusation. The suspect must be the killer and the motive text must contain at least half of the
// case's motive keywords, rounded up. Keywords are matched as plain case-insensitive substrings.
func Judge(c models.Case, suspectID string, motive string) Verdict {
	text := strings.ToLower(strings.TrimSpace(motive))
	hits := 0
	for _, keyword := range c.MotiveKeywords {
		if strings.Contains(text, strings.ToLower(keyword)) {
			hits++
		}
	}
	required := (len(c.MotiveKeywords) + 1) / 2 //nolint:mnd // ceil(n/2)
	v := Verdict{
		CorrectSuspect: suspectID == c.KillerID,
		CorrectMotive:  hits >= required,
		Success:        false,
		KeywordHits:    hits,
		RequiredHits:   required,
	}
	v.Success = v.CorrectSuspect && v.CorrectMotive
	return v
}
