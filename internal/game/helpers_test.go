package game_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/myrjola/casebook/internal/game"
	"github.com/myrjola/casebook/internal/models"
	"github.com/myrjola/casebook/internal/oracle"
	"github.com/myrjola/casebook/internal/testhelpers"
)

func discardLogger() *slog.Logger {
	return testhelpers.NewLogger(io.Discard)
}

// testCase is a small case with two suspects where the butler did it.
func testCase() models.Case {
	return models.Case{
		ID:        "vicarage",
		Title:     "Murder at the Vicarage",
		Theme:     "village",
		Narrative: "The colonel is found dead in the study.",
		Summary:   "Colonel Protheroe was shot.",
		Victim:    "Colonel Protheroe",
		Cause:     "Gunshot",
		Location:  "Study",
		Time:      "18:30",
		Suspects: []models.Suspect{
			{
				ID:           "butler",
				Name:         "Mr. Hawes",
				Persona:      "Nervous and polite.",
				Alibi:        "I was polishing the silver.",
				Motive:       "The colonel owed me wages.",
				Relationship: "I served him for twenty years.",
				Evidence:     "I heard a shot at half past six.",
				GenericLines: []string{"I really could not say.", "Is that all, sir?"},
			},
			{
				ID:           "vicar",
				Name:         "Reverend Clement",
				Persona:      "Dry wit.",
				Alibi:        "I was visiting a parishioner.",
				Motive:       "None that I would admit.",
				Relationship: "He was a difficult churchwarden.",
				Evidence:     "The clock in the study was wrong.",
			},
		},
		Evidence: models.EvidenceBundle{
			Initial:    []string{"A note signed 6:20"},
			BodySearch: []string{"Powder burns on the collar", "A torn glove"},
			RoomSearch: []string{"A torn glove", "Footprints under the window"},
			LabClue:    "The butler's fingerprints on the pistol",
			SmokingGun: "The butler's bloody cuff",
		},
		KillerID:       "butler",
		MotiveText:     "Unpaid wages and revenge",
		MotiveKeywords: []string{"money", "debt", "revenge"},
		Solution:       "The butler shot the colonel over unpaid debt.",
	}
}

// stubOracle answers with reply or err and records the requests it received.
type stubOracle struct {
	mu       sync.Mutex
	reply    string
	err      error
	block    chan struct{}
	requests []oracle.Request
}

func (o *stubOracle) Reply(_ context.Context, req oracle.Request) (string, error) {
	o.mu.Lock()
	o.requests = append(o.requests, req)
	block := o.block
	o.mu.Unlock()
	if block != nil {
		<-block
	}
	return o.reply, o.err
}

// recorder collects the events published by a session.
type recorder struct {
	mu     sync.Mutex
	events []game.Event
}

func (r *recorder) observe(e game.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) count(kind game.EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

var fixedNow = time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)
