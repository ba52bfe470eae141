// Package progression awards experience points and detects rank promotions.
package progression

import (
	"context"
	"log/slog"
	"sync"

	"github.com/myrjola/casebook/internal/errors"
	"github.com/myrjola/casebook/internal/models"
	"github.com/myrjola/casebook/internal/store"
)

// XP awarded for resolving a case.
const (
	SolvedXP = 100
	PityXP   = 10
)

var ErrNegativeXP = errors.NewSentinel("xp amount must not be negative")

// Users is the part of [store.Store] the engine needs.
type Users interface {
	User(ctx context.Context, id string) (models.UserProfile, error)
	UpdateUser(ctx context.Context, id string, patch store.UserPatch) (models.UserProfile, error)
	Ranks() []models.Rank
}

// Promotion describes a rank change.
type Promotion struct {
	User models.UserProfile
	From models.Rank
	To   models.Rank
}

// Observer is notified once per promotion.
type Observer func(Promotion)

// Result is the outcome of [Engine.AddXP].
type Result struct {
	User     models.UserProfile
	Promoted bool
}

type Engine struct {
	users    Users
	logger   *slog.Logger
	observer Observer
	// mu serializes the read-modify-write of AddXP.
	mu sync.Mutex
}

func New(users Users, logger *slog.Logger, observer Observer) *Engine {
	return &Engine{ //nolint:exhaustruct // mutex zero value
		users:    users,
		logger:   logger.With("source", "ProgressionEngine"),
		observer: observer,
	}
}

// AddXP adds amount to the user's experience and persists the profile. The rank is recomputed by the store and a
// promotion is reported when the new rank is higher than the previous one.
func (e *Engine) AddXP(ctx context.Context, userID string, amount int) (Result, error) {
	return e.apply(ctx, userID, amount, store.UserPatch{}) //nolint:exhaustruct // xp only
}

// Award adds the XP for an accusation outcome. record carries the rest of the resolution, typically the solved case
// and the play time, and is persisted in the same update as the XP.
func (e *Engine) Award(ctx context.Context, userID string, success bool, record store.UserPatch) (Result, error) {
	amount := PityXP
	if success {
		amount = SolvedXP
	}
	return e.apply(ctx, userID, amount, record)
}

func (e *Engine) apply(ctx context.Context, userID string, amount int, patch store.UserPatch) (Result, error) {
	if amount < 0 {
		return Result{}, errors.Wrap(ErrNegativeXP, "add xp", slog.Int("amount", amount))
	}

	e.mu.Lock()
	var (
		err    error
		before models.UserProfile
		after  models.UserProfile
	)
	if before, err = e.users.User(ctx, userID); err != nil {
		e.mu.Unlock()
		return Result{}, errors.Wrap(err, "read user")
	}
	xp := before.XP + amount
	patch.XP = &xp
	if after, err = e.users.UpdateUser(ctx, userID, patch); err != nil {
		e.mu.Unlock()
		return Result{}, errors.Wrap(err, "persist xp")
	}
	e.mu.Unlock()

	result := Result{User: after, Promoted: after.RankIndex > before.RankIndex}
	e.logger.LogAttrs(ctx, slog.LevelDebug, "xp added",
		slog.String("user_id", userID), slog.Int("amount", amount), slog.Int("xp", after.XP))
	if !result.Promoted {
		return result, nil
	}

	ranks := e.users.Ranks()
	promotion := Promotion{User: after, From: ranks[before.RankIndex], To: ranks[after.RankIndex]}
	e.logger.LogAttrs(ctx, slog.LevelInfo, "promoted",
		slog.String("user_id", userID), slog.String("rank", promotion.To.Name))
	if e.observer != nil {
		e.observer(promotion)
	}
	return result, nil
}

// Progress reports how far xp is between the current and the next rank. next is false at the top rank.
func Progress(ranks []models.Rank, xp int) (current models.Rank, nextRank models.Rank, next bool) {
	i := models.RankIndex(ranks, xp)
	current = ranks[i]
	if i+1 >= len(ranks) {
		return current, models.Rank{}, false
	}
	return current, ranks[i+1], true
}
