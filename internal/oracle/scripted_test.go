package oracle_test

import (
	"context"
	"testing"

	"github.com/myrjola/casebook/internal/models"
	"github.com/myrjola/casebook/internal/oracle"
	"github.com/stretchr/testify/require"
)

var butler = models.Suspect{
	ID:           "butler",
	Name:         "Hughes",
	Alibi:        "I was polishing silver.",
	Motive:       "I had none.",
	Relationship: "I served him for years.",
	Evidence:     "I saw muddy boots.",
	GenericLines: []string{"Indeed.", "Quite so.", "As you wish."},
}

func TestScripted_Reply(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     string
	}{
		{name: "alibi", question: "What is your ALIBI?", want: butler.Alibi},
		{name: "where", question: "Where were you?", want: butler.Alibi},
		{name: "time", question: "At what time did you retire?", want: butler.Alibi},
		{name: "motive", question: "Any motive?", want: butler.Motive},
		{name: "why", question: "Why did you lie?", want: butler.Motive},
		{name: "relationship", question: "Describe your relationship.", want: butler.Relationship},
		{name: "victim", question: "Did you like the victim?", want: butler.Relationship},
		{name: "evidence", question: "Seen any evidence?", want: butler.Evidence},
		{name: "clue", question: "A clue, perhaps?", want: butler.Evidence},
		{name: "alibi wins over motive", question: "Why should I believe your alibi?", want: butler.Alibi},
		{name: "motive wins over evidence", question: "Why hide the evidence?", want: butler.Motive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cursor := 0
			got, err := oracle.Scripted{}.Reply(context.Background(), oracle.Request{
				Suspect:  butler,
				Question: tt.question,
				Cursor:   &cursor,
			})
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Equal(t, 0, cursor, "topic answers must not advance the cursor")
		})
	}
}

func TestScripted_genericLinesRoundRobin(t *testing.T) {
	cursor := 0
	req := oracle.Request{Suspect: butler, Question: "Nice weather.", Cursor: &cursor}
	var got []string
	for range 5 {
		reply, err := oracle.Scripted{}.Reply(context.Background(), req)
		require.NoError(t, err)
		got = append(got, reply)
	}
	require.Equal(t, []string{"Indeed.", "Quite so.", "As you wish.", "Indeed.", "Quite so."}, got)
	require.Equal(t, 5, cursor)
}

func TestScripted_withoutGenericLines(t *testing.T) {
	cursor := 3
	silent := butler
	silent.GenericLines = nil
	reply, err := oracle.Scripted{}.Reply(context.Background(), oracle.Request{
		Suspect:  silent,
		Question: "Nice weather.",
		Cursor:   &cursor,
	})
	require.NoError(t, err)
	require.Equal(t, oracle.NothingToSay, reply)
	require.Equal(t, 3, cursor)
}
