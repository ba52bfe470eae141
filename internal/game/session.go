package game

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/casebook/internal/errors"
	"github.com/myrjola/casebook/internal/models"
	"github.com/myrjola/casebook/internal/oracle"
)

type State string

const (
	StateIdle          State = "idle"
	StateStoryIntro    State = "story_intro"
	StateInvestigating State = "investigating"
	StateResolved      State = "resolved"
)

// ActionBudget is the number of action points a case starts with.
const ActionBudget = 20

// DefaultLabDelay is how long the forensic lab takes to process evidence.
const DefaultLabDelay = 5 * time.Second

type SearchKind string

const (
	SearchBody SearchKind = "body"
	SearchRoom SearchKind = "room"
)

var (
	ErrNoActiveCase      = errors.NewSentinel("no active case")
	ErrInvalidState      = errors.NewSentinel("action not allowed in the current state")
	ErrUnknownSuspect    = errors.NewSentinel("unknown suspect")
	ErrNoSuspectSelected = errors.NewSentinel("no suspect selected")
	ErrEmptyMessage      = errors.NewSentinel("empty message")
	ErrMessagePending    = errors.NewSentinel("waiting for the previous reply")
	ErrActionsExhausted  = errors.NewSentinel("no action points left")
	ErrUnknownSearch     = errors.NewSentinel("unknown search kind")
	ErrLabProcessing     = errors.NewSentinel("the lab is still processing")
	ErrLabUnavailable    = errors.NewSentinel("the lab has already been used for this case")
	ErrInvalidAccusation = errors.NewSentinel("an accusation needs a suspect and a motive")
)

// Session is the state of one case being played. All methods are safe for concurrent use.
//
// The only operations that complete asynchronously are SendMessage, which waits for the oracle without holding the
// session lock, and SendToLab, whose result arrives after the lab delay.
type Session struct {
	id       string
	oracle   oracle.Oracle
	logger   *slog.Logger
	observer Observer
	labDelay time.Duration
	now      func() time.Time

	mu    sync.Mutex
	state State
	// generation increases whenever the case is replaced so that late oracle replies and lab results of a previous
	// case can be recognized and dropped.
	generation        int
	current           *models.Case
	actionPoints      int
	selectedSuspectID string
	evidenceFound     []string
	found             map[string]bool
	labReady          bool
	labProcessing     bool
	labTimer          *time.Timer
	responseIndex     map[string]int
	dialogue          map[string][]models.DialogueLine
	messagePending    bool
	exhaustedFired    bool
	startedAt         time.Time
	verdict           *Verdict
}

type Option func(*Session)

// WithObserver registers the function that receives every [Event].
func WithObserver(observer Observer) Option {
	return func(s *Session) {
		s.observer = observer
	}
}

// WithLabDelay overrides [DefaultLabDelay].
func WithLabDelay(delay time.Duration) Option {
	return func(s *Session) {
		s.labDelay = delay
	}
}

// WithClock replaces time.Now for event and play time stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// NewSession creates an idle session that interrogates suspects through o.
func NewSession(o oracle.Oracle, logger *slog.Logger, opts ...Option) *Session {
	id := uuid.NewString()
	s := &Session{ //nolint:exhaustruct // the case state is initialized by StartCase
		id:            id,
		oracle:        o,
		logger:        logger.With("source", "Session", slog.String("session_id", id)),
		labDelay:      DefaultLabDelay,
		now:           time.Now,
		state:         StateIdle,
		found:         map[string]bool{},
		responseIndex: map[string]int{},
		dialogue:      map[string][]models.DialogueLine{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) ID() string {
	return s.id
}

// StartCase opens c from any state, discarding whatever was in progress.
func (s *Session) StartCase(c models.Case) {
	s.mu.Lock()
	s.stopLabLocked()
	s.generation++
	s.current = &c
	s.state = StateStoryIntro
	s.actionPoints = ActionBudget
	s.selectedSuspectID = ""
	s.evidenceFound = make([]string, 0, len(c.Evidence.Initial))
	s.found = map[string]bool{}
	s.addEvidenceLocked(c.Evidence.Initial)
	s.labReady = true
	s.labProcessing = false
	s.responseIndex = map[string]int{}
	s.dialogue = map[string][]models.DialogueLine{}
	s.messagePending = false
	s.exhaustedFired = false
	s.startedAt = s.now()
	s.verdict = nil
	event := s.eventLocked(EventCaseOpened, "", c.Narrative)
	s.mu.Unlock()

	s.logger.LogAttrs(context.Background(), slog.LevelDebug, "case opened", slog.String("case_id", c.ID))
	s.publish(event)
}

// EnterInvestigation moves from the story introduction to the investigation.
func (s *Session) EnterInvestigation() error {
	s.mu.Lock()
	if err := s.requireStateLocked(StateStoryIntro); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = StateInvestigating
	event := s.eventLocked(EventInvestigationStarted, "", "")
	s.mu.Unlock()

	s.publish(event)
	return nil
}

// SelectSuspect starts interrogating the suspect with the given id. It costs nothing.
func (s *Session) SelectSuspect(suspectID string) error {
	s.mu.Lock()
	if err := s.requireStateLocked(StateInvestigating); err != nil {
		s.mu.Unlock()
		return err
	}
	suspect, ok := s.current.Suspect(suspectID)
	if !ok {
		s.mu.Unlock()
		return errors.Wrap(ErrUnknownSuspect, "select suspect", slog.String("suspect_id", suspectID))
	}
	s.selectedSuspectID = suspect.ID
	event := s.eventLocked(EventInterrogationStarted, suspect.ID, suspect.Name)
	s.mu.Unlock()

	s.publish(event)
	return nil
}

// DeselectSuspect ends the current interrogation. Replies still in flight are recorded in the suspect's dialogue.
func (s *Session) DeselectSuspect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedSuspectID = ""
}

// SendMessage asks the selected suspect a question for one action point and returns the reply.
//
// Only one message may be in flight per session. The point is charged before the oracle is asked and the reply is
// always recorded, even if the suspect was deselected in the meantime.
func (s *Session) SendMessage(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	if err := s.requireStateLocked(StateInvestigating); err != nil {
		s.mu.Unlock()
		return "", err
	}
	var err error
	switch {
	case s.messagePending:
		err = ErrMessagePending
	case s.actionPoints <= 0:
		err = ErrActionsExhausted
	case s.selectedSuspectID == "":
		err = ErrNoSuspectSelected
	case text == "":
		err = ErrEmptyMessage
	}
	if err != nil {
		s.mu.Unlock()
		return "", errors.Wrap(err, "send message")
	}

	suspect, _ := s.current.Suspect(s.selectedSuspectID)
	generation := s.generation
	cursor := s.responseIndex[suspect.ID]
	req := oracle.Request{
		Case:     *s.current,
		Suspect:  suspect,
		History:  slices.Clone(s.dialogue[suspect.ID]),
		Question: text,
		Cursor:   &cursor,
	}
	s.actionPoints--
	s.messagePending = true
	s.dialogue[suspect.ID] = append(s.dialogue[suspect.ID],
		models.DialogueLine{Speaker: models.SpeakerDetective, Text: text})
	question := s.eventLocked(EventQuestion, suspect.ID, text)
	s.mu.Unlock()
	s.publish(question)

	reply, err := s.oracle.Reply(ctx, req)
	if err != nil || strings.TrimSpace(reply) == "" {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "oracle failed, using scripted reply",
			slog.String("suspect_id", suspect.ID), errors.SlogError(err))
		reply = oracle.Recover(req)
	}

	s.mu.Lock()
	if generation != s.generation {
		s.mu.Unlock()
		s.logger.LogAttrs(ctx, slog.LevelDebug, "dropping reply for a closed case",
			slog.String("suspect_id", suspect.ID))
		return reply, nil
	}
	s.responseIndex[suspect.ID] = cursor
	s.dialogue[suspect.ID] = append(s.dialogue[suspect.ID],
		models.DialogueLine{Speaker: models.SpeakerSuspect, Text: reply})
	s.messagePending = false
	events := []Event{s.eventLocked(EventReply, suspect.ID, reply)}
	events = s.exhaustionLocked(events)
	s.mu.Unlock()

	s.publish(events...)
	return reply, nil
}

// Search looks for evidence on the body or in the room. It costs one action point only when something new is
// found and returns the new items.
func (s *Session) Search(kind SearchKind) ([]string, error) {
	s.mu.Lock()
	if err := s.requireStateLocked(StateInvestigating); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	var pool []string
	switch kind {
	case SearchBody:
		pool = s.current.Evidence.BodySearch
	case SearchRoom:
		pool = s.current.Evidence.RoomSearch
	default:
		s.mu.Unlock()
		return nil, errors.Wrap(ErrUnknownSearch, "search", slog.String("kind", string(kind)))
	}
	if s.actionPoints <= 0 {
		s.mu.Unlock()
		return nil, errors.Wrap(ErrActionsExhausted, "search")
	}

	var (
		fresh  []string
		events []Event
	)
	for _, item := range pool {
		if !s.found[item] && !slices.Contains(fresh, item) {
			fresh = append(fresh, item)
		}
	}
	if len(fresh) == 0 {
		events = append(events, s.eventLocked(EventNothingFound, "", string(kind)))
	} else {
		s.actionPoints--
		s.addEvidenceLocked(fresh)
		for _, item := range fresh {
			events = append(events, s.eventLocked(EventEvidenceLogged, "", item))
		}
		events = s.exhaustionLocked(events)
	}
	s.mu.Unlock()

	s.publish(events...)
	return fresh, nil
}

// SendToLab sends the evidence to the forensic lab for one action point. The lab clue is logged after the lab delay.
// The lab can be used once per case.
func (s *Session) SendToLab() error {
	s.mu.Lock()
	if err := s.requireStateLocked(StateInvestigating); err != nil {
		s.mu.Unlock()
		return err
	}
	var err error
	switch {
	case s.actionPoints <= 0:
		err = ErrActionsExhausted
	case s.labProcessing:
		err = ErrLabProcessing
	case !s.labReady:
		err = ErrLabUnavailable
	}
	if err != nil {
		s.mu.Unlock()
		return errors.Wrap(err, "send to lab")
	}

	s.actionPoints--
	s.labProcessing = true
	generation := s.generation
	s.labTimer = time.AfterFunc(s.labDelay, func() {
		s.completeLab(generation)
	})
	events := []Event{s.eventLocked(EventLabStarted, "", "")}
	events = s.exhaustionLocked(events)
	s.mu.Unlock()

	s.publish(events...)
	return nil
}

func (s *Session) completeLab(generation int) {
	s.mu.Lock()
	if generation != s.generation || !s.labProcessing || s.state != StateInvestigating {
		s.mu.Unlock()
		return
	}
	clue := s.current.Evidence.LabClue
	if clue != "" {
		s.addEvidenceLocked([]string{clue})
	}
	s.labProcessing = false
	s.labReady = false
	s.labTimer = nil
	event := s.eventLocked(EventLabComplete, "", clue)
	s.mu.Unlock()

	s.publish(event)
}

// Accuse scores an accusation against the current case and marks it resolved. It is allowed without action points
// and may be repeated, each call re-evaluating the accusation.
func (s *Session) Accuse(suspectID string, motive string) (Verdict, error) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return Verdict{}, ErrNoActiveCase
	}
	if s.state != StateInvestigating && s.state != StateResolved {
		s.mu.Unlock()
		return Verdict{}, errors.Wrap(ErrInvalidState, "accuse", slog.String("state", string(s.state)))
	}
	if strings.TrimSpace(suspectID) == "" || strings.TrimSpace(motive) == "" {
		s.mu.Unlock()
		return Verdict{}, ErrInvalidAccusation
	}
	verdict := Judge(*s.current, suspectID, motive)
	// Pending lab work is abandoned once the case is closed.
	s.stopLabLocked()
	s.labProcessing = false
	s.state = StateResolved
	s.verdict = &verdict
	outcome := "failure"
	if verdict.Success {
		outcome = "success"
	}
	event := s.eventLocked(EventCaseResolved, suspectID, outcome)
	s.mu.Unlock()

	s.publish(event)
	return verdict, nil
}

// ReturnToCaseList closes a resolved case.
func (s *Session) ReturnToCaseList() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireStateLocked(StateResolved); err != nil {
		return err
	}
	s.stopLabLocked()
	s.generation++
	s.current = nil
	s.selectedSuspectID = ""
	s.state = StateIdle
	return nil
}

// Case returns the case being played.
func (s *Session) Case() (models.Case, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return models.Case{}, false
	}
	return *s.current, true
}

// Dialogue returns the interrogation transcript of a suspect.
func (s *Session) Dialogue(suspectID string) []models.DialogueLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.dialogue[suspectID])
}

// PlayTime is the time since the case was opened.
func (s *Session) PlayTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return 0
	}
	return s.now().Sub(s.startedAt)
}

// Snapshot is a copy of the observable session state.
type Snapshot struct {
	SessionID         string
	State             State
	CaseID            string
	ActionPoints      int
	SelectedSuspectID string
	EvidenceFound     []string
	LabReady          bool
	LabProcessing     bool
	MessagePending    bool
	Verdict           *Verdict
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		SessionID:         s.id,
		State:             s.state,
		CaseID:            "",
		ActionPoints:      s.actionPoints,
		SelectedSuspectID: s.selectedSuspectID,
		EvidenceFound:     slices.Clone(s.evidenceFound),
		LabReady:          s.labReady,
		LabProcessing:     s.labProcessing,
		MessagePending:    s.messagePending,
		Verdict:           nil,
	}
	if s.current != nil {
		snap.CaseID = s.current.ID
	}
	if s.verdict != nil {
		v := *s.verdict
		snap.Verdict = &v
	}
	return snap
}

func (s *Session) requireStateLocked(want State) error {
	if s.current == nil {
		return ErrNoActiveCase
	}
	if s.state != want {
		return errors.Wrap(ErrInvalidState, "check state",
			slog.String("state", string(s.state)), slog.String("want", string(want)))
	}
	return nil
}

func (s *Session) addEvidenceLocked(items []string) {
	for _, item := range items {
		if s.found[item] {
			continue
		}
		s.found[item] = true
		s.evidenceFound = append(s.evidenceFound, item)
	}
}

// exhaustionLocked appends the one-off actions exhausted event once the budget is spent.
func (s *Session) exhaustionLocked(events []Event) []Event {
	if s.actionPoints > 0 || s.exhaustedFired {
		return events
	}
	s.exhaustedFired = true
	return append(events, s.eventLocked(EventActionsExhausted, "", ""))
}

func (s *Session) stopLabLocked() {
	if s.labTimer != nil {
		s.labTimer.Stop()
		s.labTimer = nil
	}
}

func (s *Session) eventLocked(kind EventKind, suspectID string, text string) Event {
	caseID := ""
	if s.current != nil {
		caseID = s.current.ID
	}
	return Event{
		Kind:         kind,
		SessionID:    s.id,
		CaseID:       caseID,
		SuspectID:    suspectID,
		Text:         text,
		ActionPoints: s.actionPoints,
		At:           s.now(),
	}
}

func (s *Session) publish(events ...Event) {
	if s.observer == nil {
		return
	}
	for _, e := range events {
		s.observer(e)
	}
}
