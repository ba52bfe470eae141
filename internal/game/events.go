package game

import "time"

type EventKind string

const (
	EventCaseOpened           EventKind = "case_opened"
	EventInvestigationStarted EventKind = "investigation_started"
	EventInterrogationStarted EventKind = "interrogation_started"
	EventQuestion             EventKind = "question"
	EventReply                EventKind = "reply"
	EventNothingFound         EventKind = "nothing_found"
	EventEvidenceLogged       EventKind = "evidence_logged"
	EventLabStarted           EventKind = "lab_started"
	EventLabComplete          EventKind = "lab_complete"
	EventActionsExhausted     EventKind = "actions_exhausted"
	EventCaseResolved         EventKind = "case_resolved"
	EventPromoted             EventKind = "promoted"
)

// Event is published after a state change so that front-ends can re-render. ActionPoints is the budget after the
// change.
type Event struct {
	Kind         EventKind
	SessionID    string
	CaseID       string
	SuspectID    string
	Text         string
	ActionPoints int
	At           time.Time
}

// Observer receives events. It is called without any session lock held, so it may call back into the session.
type Observer func(Event)
