package game

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/myrjola/casebook/internal/cases"
	"github.com/myrjola/casebook/internal/errors"
	"github.com/myrjola/casebook/internal/logging"
	"github.com/myrjola/casebook/internal/models"
	"github.com/myrjola/casebook/internal/oracle"
	"github.com/myrjola/casebook/internal/progression"
	"github.com/myrjola/casebook/internal/store"
)

var (
	ErrNotLoggedIn     = errors.NewSentinel("no detective logged in")
	ErrCaseUnavailable = errors.NewSentinel("case is not available")
	ErrAlreadyResolved = errors.NewSentinel("case has already been resolved")
)

// Outcome is the result of [Game.Accuse].
type Outcome struct {
	Verdict    Verdict
	Case       models.Case
	XPAwarded  int
	Promoted   bool
	User       models.UserProfile
	PlayTime   time.Duration
	Persistent bool
}

// Game ties a player's [Session] to the case repository, the store and the progression engine.
type Game struct {
	cases       *cases.Repository
	store       *store.Store
	progression *progression.Engine
	session     *Session
	observer    Observer
	logger      *slog.Logger

	// accusing serializes Accuse so that a case is scored once.
	accusing sync.Mutex
	mu       sync.Mutex
	user     *models.UserProfile
}

// NewGame creates a game whose session interrogates through o. Every session and promotion event goes to observer,
// which may be nil.
func NewGame(
	repo *cases.Repository,
	st *store.Store,
	o oracle.Oracle,
	logger *slog.Logger,
	observer Observer,
	opts ...Option,
) *Game {
	g := &Game{ //nolint:exhaustruct // set below
		cases:    repo,
		store:    st,
		observer: observer,
		logger:   logger.With("source", "Game"),
	}
	g.progression = progression.New(st, logger, g.promoted)
	g.session = NewSession(o, logger, append(opts, WithObserver(g.publish))...)
	return g
}

// Session returns the session the player is acting on.
func (g *Game) Session() *Session {
	return g.session
}

// Login fetches or creates the profile for name and makes it the active player.
func (g *Game) Login(ctx context.Context, name string) (models.UserProfile, error) {
	user, err := g.store.Login(ctx, name)
	if err != nil {
		return models.UserProfile{}, errors.Wrap(err, "login")
	}
	g.setUser(user)
	return user, nil
}

// ResumeLastUser logs in the player that played last, if any.
func (g *Game) ResumeLastUser(ctx context.Context) (models.UserProfile, bool, error) {
	last, ok, err := g.store.LastUser(ctx)
	if err != nil || !ok {
		return models.UserProfile{}, false, errors.Wrap(err, "resume last user")
	}
	user, err := g.Login(ctx, last.Name)
	if err != nil {
		return models.UserProfile{}, false, err
	}
	return user, true, nil
}

// User returns the active player.
func (g *Game) User() (models.UserProfile, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.user == nil {
		return models.UserProfile{}, false
	}
	return *g.user, true
}

// Ranks returns the rank table of the store.
func (g *Game) Ranks() []models.Rank {
	return g.store.Ranks()
}

// Cases lists the cases the active player can still attempt.
func (g *Game) Cases() []models.Case {
	all := g.cases.List()
	user, ok := g.User()
	if !ok {
		return all
	}
	available := make([]models.Case, 0, len(all))
	for _, c := range all {
		if !user.HasSolved(c.ID) {
			available = append(available, c)
		}
	}
	return available
}

// Open starts the case with the given id in the session.
func (g *Game) Open(ctx context.Context, caseID string) (models.Case, error) {
	user, ok := g.User()
	if !ok {
		return models.Case{}, ErrNotLoggedIn
	}
	c, ok := g.cases.Get(caseID)
	if !ok || user.HasSolved(caseID) {
		return models.Case{}, errors.Wrap(ErrCaseUnavailable, "open case", slog.String("case_id", caseID))
	}
	g.session.StartCase(c)
	g.logger.LogAttrs(ctx, slog.LevelInfo, "case opened",
		slog.String("case_id", caseID), slog.String("session_id", g.session.ID()))
	return c, nil
}

// Accuse resolves the open case. XP, the solved case record and the play time are recorded once, and the case is
// taken out of the available list. Persistence failures are logged and reported with Outcome.Persistent false.
func (g *Game) Accuse(ctx context.Context, suspectID string, motive string) (Outcome, error) {
	g.accusing.Lock()
	defer g.accusing.Unlock()
	player, ok := g.User()
	if !ok {
		return Outcome{}, ErrNotLoggedIn
	}
	if g.session.Snapshot().State == StateResolved {
		return Outcome{}, ErrAlreadyResolved
	}
	verdict, err := g.session.Accuse(suspectID, motive)
	if err != nil {
		return Outcome{}, errors.Wrap(err, "accuse")
	}

	c, _ := g.session.Case()
	snap := g.session.Snapshot()
	ctx = logging.WithAttrs(ctx, slog.String("user_id", player.ID), slog.String("case_id", c.ID))
	g.cases.Remove(c.ID)
	outcome := Outcome{
		Verdict:    verdict,
		Case:       c,
		XPAwarded:  progression.PityXP,
		Promoted:   false,
		User:       player,
		PlayTime:   g.session.PlayTime(),
		Persistent: true,
	}
	if verdict.Success {
		outcome.XPAwarded = progression.SolvedXP
	}

	solved := models.SolvedCase{
		CaseID:         c.ID,
		Title:          c.Title,
		AccusedID:      suspectID,
		Success:        verdict.Success,
		CorrectSuspect: verdict.CorrectSuspect,
		CorrectMotive:  verdict.CorrectMotive,
		XPAwarded:      outcome.XPAwarded,
		ActionsLeft:    snap.ActionPoints,
		PlayTime:       outcome.PlayTime,
		SolvedAt:       g.session.now(),
	}
	result, err := g.progression.Award(ctx, player.ID, verdict.Success, store.UserPatch{ //nolint:exhaustruct // xp is set by the engine
		SolvedCase:  &solved,
		AddPlayTime: outcome.PlayTime,
	})
	if err != nil {
		g.logger.LogAttrs(ctx, slog.LevelError, "record resolution", errors.SlogError(err))
		outcome.Persistent = false
		return outcome, nil
	}
	g.setUser(result.User)
	outcome.Promoted = result.Promoted
	outcome.User = result.User
	g.logger.LogAttrs(ctx, slog.LevelInfo, "case resolved",
		slog.Bool("success", verdict.Success), slog.Int("xp", result.User.XP))
	return outcome, nil
}

// ReturnToCaseList closes the resolved case.
func (g *Game) ReturnToCaseList() error {
	return g.session.ReturnToCaseList()
}

func (g *Game) setUser(user models.UserProfile) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.user = &user
}

func (g *Game) promoted(p progression.Promotion) {
	g.publish(Event{
		Kind:         EventPromoted,
		SessionID:    g.session.ID(),
		CaseID:       "",
		SuspectID:    "",
		Text:         p.To.Name,
		ActionPoints: g.session.Snapshot().ActionPoints,
		At:           g.session.now(),
	})
}

func (g *Game) publish(e Event) {
	if g.observer != nil {
		g.observer(e)
	}
}
