package game_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/myrjola/casebook/internal/game"
	"github.com/myrjola/casebook/internal/models"
	"github.com/myrjola/casebook/internal/oracle"
	"github.com/stretchr/testify/require"
)

func newInvestigation(t *testing.T, o oracle.Oracle, opts ...game.Option) (*game.Session, *recorder) {
	t.Helper()
	rec := &recorder{} //nolint:exhaustruct // zero value
	opts = append([]game.Option{
		game.WithObserver(rec.observe),
		game.WithLabDelay(10 * time.Millisecond),
		game.WithClock(func() time.Time { return fixedNow }),
	}, opts...)
	s := game.NewSession(o, discardLogger(), opts...)
	s.StartCase(testCase())
	require.NoError(t, s.EnterInvestigation())
	return s, rec
}

func TestSession_StartCase(t *testing.T) {
	rec := &recorder{} //nolint:exhaustruct // zero value
	s := game.NewSession(oracle.Scripted{}, discardLogger(), game.WithObserver(rec.observe))
	require.NotEmpty(t, s.ID())
	require.Equal(t, game.StateIdle, s.Snapshot().State)

	_, err := s.Search(game.SearchBody)
	require.ErrorIs(t, err, game.ErrNoActiveCase)

	s.StartCase(testCase())
	snap := s.Snapshot()
	require.Equal(t, game.StateStoryIntro, snap.State)
	require.Equal(t, "vicarage", snap.CaseID)
	require.Equal(t, game.ActionBudget, snap.ActionPoints)
	require.Equal(t, []string{"A note signed 6:20"}, snap.EvidenceFound)
	require.True(t, snap.LabReady)
	require.Nil(t, snap.Verdict)
	require.Equal(t, 1, rec.count(game.EventCaseOpened))

	// Investigation actions wait for the story introduction to end.
	_, err = s.Search(game.SearchBody)
	require.ErrorIs(t, err, game.ErrInvalidState)
	require.ErrorIs(t, s.SelectSuspect("butler"), game.ErrInvalidState)

	require.NoError(t, s.EnterInvestigation())
	require.Equal(t, game.StateInvestigating, s.Snapshot().State)
	require.ErrorIs(t, s.EnterInvestigation(), game.ErrInvalidState)
}

func TestSession_Search(t *testing.T) {
	s, rec := newInvestigation(t, oracle.Scripted{})

	found, err := s.Search(game.SearchBody)
	require.NoError(t, err)
	require.Equal(t, []string{"Powder burns on the collar", "A torn glove"}, found)
	require.Equal(t, game.ActionBudget-1, s.Snapshot().ActionPoints)

	// The glove was already logged from the body.
	found, err = s.Search(game.SearchRoom)
	require.NoError(t, err)
	require.Equal(t, []string{"Footprints under the window"}, found)
	require.Equal(t, game.ActionBudget-2, s.Snapshot().ActionPoints)

	// Searching again finds nothing and costs nothing.
	found, err = s.Search(game.SearchBody)
	require.NoError(t, err)
	require.Empty(t, found)
	require.Equal(t, game.ActionBudget-2, s.Snapshot().ActionPoints)
	require.Equal(t, 1, rec.count(game.EventNothingFound))
	require.Equal(t, 3, rec.count(game.EventEvidenceLogged))

	require.Equal(t, []string{
		"A note signed 6:20",
		"Powder burns on the collar",
		"A torn glove",
		"Footprints under the window",
	}, s.Snapshot().EvidenceFound)

	_, err = s.Search("attic")
	require.ErrorIs(t, err, game.ErrUnknownSearch)
}

func TestSession_SendToLab(t *testing.T) {
	s, rec := newInvestigation(t, oracle.Scripted{})

	require.NoError(t, s.SendToLab())
	snap := s.Snapshot()
	require.Equal(t, game.ActionBudget-1, snap.ActionPoints)
	require.True(t, snap.LabProcessing)
	require.ErrorIs(t, s.SendToLab(), game.ErrLabProcessing)

	require.Eventually(t, func() bool {
		return rec.count(game.EventLabComplete) == 1
	}, time.Second, 5*time.Millisecond)

	snap = s.Snapshot()
	require.False(t, snap.LabProcessing)
	require.False(t, snap.LabReady)
	require.Contains(t, snap.EvidenceFound, "The butler's fingerprints on the pistol")

	require.ErrorIs(t, s.SendToLab(), game.ErrLabUnavailable)
	require.Equal(t, game.ActionBudget-1, s.Snapshot().ActionPoints)
}

func TestSession_labResultOfPreviousCaseIsDropped(t *testing.T) {
	s, rec := newInvestigation(t, oracle.Scripted{}, game.WithLabDelay(20*time.Millisecond))
	require.NoError(t, s.SendToLab())

	other := testCase()
	other.ID = "other"
	s.StartCase(other)

	time.Sleep(60 * time.Millisecond)
	require.Zero(t, rec.count(game.EventLabComplete))
	snap := s.Snapshot()
	require.True(t, snap.LabReady)
	require.NotContains(t, snap.EvidenceFound, "The butler's fingerprints on the pistol")
}

func TestSession_labResultAfterAccusationIsDropped(t *testing.T) {
	s, rec := newInvestigation(t, oracle.Scripted{}, game.WithLabDelay(20*time.Millisecond))
	require.NoError(t, s.SendToLab())
	_, err := s.Accuse("butler", "money and revenge")
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	require.Zero(t, rec.count(game.EventLabComplete))
	snap := s.Snapshot()
	require.Equal(t, game.StateResolved, snap.State)
	require.False(t, snap.LabProcessing)
	require.NotContains(t, snap.EvidenceFound, "The butler's fingerprints on the pistol")
}

func TestSession_SendMessage(t *testing.T) {
	ctx := context.Background()
	s, _ := newInvestigation(t, oracle.Scripted{})

	_, err := s.SendMessage(ctx, "Where were you?")
	require.ErrorIs(t, err, game.ErrNoSuspectSelected)
	require.ErrorIs(t, s.SelectSuspect("gardener"), game.ErrUnknownSuspect)
	require.NoError(t, s.SelectSuspect("butler"))

	_, err = s.SendMessage(ctx, "   ")
	require.ErrorIs(t, err, game.ErrEmptyMessage)
	require.Equal(t, game.ActionBudget, s.Snapshot().ActionPoints)

	reply, err := s.SendMessage(ctx, "Where were you at six?")
	require.NoError(t, err)
	require.Equal(t, "I was polishing the silver.", reply)

	// Generic lines cycle per suspect.
	reply, err = s.SendMessage(ctx, "Hmm.")
	require.NoError(t, err)
	require.Equal(t, "I really could not say.", reply)
	reply, err = s.SendMessage(ctx, "Go on.")
	require.NoError(t, err)
	require.Equal(t, "Is that all, sir?", reply)

	require.Equal(t, game.ActionBudget-3, s.Snapshot().ActionPoints)
	require.Equal(t, []models.DialogueLine{
		{Speaker: models.SpeakerDetective, Text: "Where were you at six?"},
		{Speaker: models.SpeakerSuspect, Text: "I was polishing the silver."},
		{Speaker: models.SpeakerDetective, Text: "Hmm."},
		{Speaker: models.SpeakerSuspect, Text: "I really could not say."},
		{Speaker: models.SpeakerDetective, Text: "Go on."},
		{Speaker: models.SpeakerSuspect, Text: "Is that all, sir?"},
	}, s.Dialogue("butler"))
	require.Empty(t, s.Dialogue("vicar"))
}

func TestSession_SendMessageRecoversFromOracleFailure(t *testing.T) {
	stub := &stubOracle{reply: "", err: errors.New("connection reset")} //nolint:exhaustruct // no blocking
	s, _ := newInvestigation(t, stub)
	require.NoError(t, s.SelectSuspect("butler"))

	reply, err := s.SendMessage(context.Background(), "What is your motive?")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(reply, "The colonel owed me wages."))
	require.True(t, strings.HasSuffix(reply, oracle.FallbackMarker))
	require.Equal(t, game.ActionBudget-1, s.Snapshot().ActionPoints)
	require.False(t, s.Snapshot().MessagePending)
}

func TestSession_oneMessageInFlight(t *testing.T) {
	ctx := context.Background()
	stub := &stubOracle{reply: "I was in the pantry.", block: make(chan struct{})} //nolint:exhaustruct // no error
	s, _ := newInvestigation(t, stub)
	require.NoError(t, s.SelectSuspect("butler"))

	done := make(chan string)
	go func() {
		reply, err := s.SendMessage(ctx, "Where were you?")
		if err != nil {
			reply = err.Error()
		}
		done <- reply
	}()
	require.Eventually(t, func() bool {
		return s.Snapshot().MessagePending
	}, time.Second, time.Millisecond)

	_, err := s.SendMessage(ctx, "Answer me!")
	require.ErrorIs(t, err, game.ErrMessagePending)

	// The reply still lands in the transcript after the interrogation ends.
	s.DeselectSuspect()
	close(stub.block)
	require.Equal(t, "I was in the pantry.", <-done)

	snap := s.Snapshot()
	require.False(t, snap.MessagePending)
	require.Empty(t, snap.SelectedSuspectID)
	require.Equal(t, game.ActionBudget-1, snap.ActionPoints)
	require.Len(t, s.Dialogue("butler"), 2)
}

func TestSession_replyForReplacedCaseIsDropped(t *testing.T) {
	stub := &stubOracle{reply: "Too late.", block: make(chan struct{})} //nolint:exhaustruct // no error
	s, _ := newInvestigation(t, stub)
	require.NoError(t, s.SelectSuspect("butler"))

	done := make(chan struct{})
	go func() {
		_, _ = s.SendMessage(context.Background(), "Where were you?")
		close(done)
	}()
	require.Eventually(t, func() bool {
		return s.Snapshot().MessagePending
	}, time.Second, time.Millisecond)

	s.StartCase(testCase())
	close(stub.block)
	<-done

	require.Empty(t, s.Dialogue("butler"))
	require.Equal(t, game.ActionBudget, s.Snapshot().ActionPoints)
}

func TestSession_actionsExhausted(t *testing.T) {
	ctx := context.Background()
	s, rec := newInvestigation(t, oracle.Scripted{})
	require.NoError(t, s.SelectSuspect("vicar"))

	for range game.ActionBudget {
		_, err := s.SendMessage(ctx, "Anything else?")
		require.NoError(t, err)
	}
	require.Zero(t, s.Snapshot().ActionPoints)
	require.Equal(t, 1, rec.count(game.EventActionsExhausted))

	_, err := s.SendMessage(ctx, "One more thing.")
	require.ErrorIs(t, err, game.ErrActionsExhausted)
	_, err = s.Search(game.SearchRoom)
	require.ErrorIs(t, err, game.ErrActionsExhausted)
	require.ErrorIs(t, s.SendToLab(), game.ErrActionsExhausted)
	require.Zero(t, s.Snapshot().ActionPoints)
	require.Equal(t, 1, rec.count(game.EventActionsExhausted))

	// Accusing is always possible.
	verdict, err := s.Accuse("butler", "He was in debt and wanted revenge")
	require.NoError(t, err)
	require.True(t, verdict.Success)
}

func TestSession_Accuse(t *testing.T) {
	s := game.NewSession(oracle.Scripted{}, discardLogger())
	_, err := s.Accuse("butler", "money")
	require.ErrorIs(t, err, game.ErrNoActiveCase)

	s.StartCase(testCase())
	_, err = s.Accuse("butler", "money")
	require.ErrorIs(t, err, game.ErrInvalidState)
	require.NoError(t, s.EnterInvestigation())

	_, err = s.Accuse("butler", " ")
	require.ErrorIs(t, err, game.ErrInvalidAccusation)
	require.ErrorIs(t, s.ReturnToCaseList(), game.ErrInvalidState)

	verdict, err := s.Accuse("vicar", "money and revenge")
	require.NoError(t, err)
	require.False(t, verdict.Success)
	require.False(t, verdict.CorrectSuspect)
	require.True(t, verdict.CorrectMotive)

	snap := s.Snapshot()
	require.Equal(t, game.StateResolved, snap.State)
	require.Equal(t, &verdict, snap.Verdict)

	_, err = s.Search(game.SearchBody)
	require.ErrorIs(t, err, game.ErrInvalidState)

	require.NoError(t, s.ReturnToCaseList())
	require.Equal(t, game.StateIdle, s.Snapshot().State)
	_, ok := s.Case()
	require.False(t, ok)
}
