package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/myrjola/casebook/internal/errors"
	"github.com/myrjola/casebook/internal/models"
	"github.com/myrjola/casebook/internal/sqlite"
)

// CurrentVersion is the schema version of [models.Document] written by this package.
//
// Version 1 documents lack the per-user language, login bookkeeping, play time and the aggregate play time.
const CurrentVersion = 2

const (
	documentKey     = "casebook"
	defaultLanguage = "en"
)

var (
	ErrUserExists      = errors.NewSentinel("user already exists")
	ErrUserNotFound    = errors.NewSentinel("user not found")
	ErrInvalidName     = errors.NewSentinel("invalid user name")
	ErrInvalidPatch    = errors.NewSentinel("invalid user patch")
	ErrInvalidDocument = errors.NewSentinel("invalid document")
)

// Store persists the [models.Document] as a single JSON row.
//
// Every mutation reads, modifies and rewrites the whole document. Writes from one Store are serialized; writes
// from several processes sharing the database are last-write-wins.
type Store struct {
	dbs    *sqlite.Database
	logger *slog.Logger
	ranks  []models.Rank
	now    func() time.Time
	mu     sync.Mutex
}

type Option func(*Store)

// WithRanks replaces [models.DefaultRanks] as the table rank indexes are derived from.
func WithRanks(ranks []models.Rank) Option {
	return func(s *Store) {
		s.ranks = ranks
	}
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func New(dbs *sqlite.Database, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{ //nolint:exhaustruct // mutex zero value
		dbs:    dbs,
		logger: logger.With("source", "Store"),
		ranks:  models.DefaultRanks,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ranks returns the rank table used to derive [models.UserProfile.RankIndex].
func (s *Store) Ranks() []models.Rank {
	return s.ranks
}

// Init makes sure a document at [CurrentVersion] exists, creating or migrating it as needed.
func (s *Store) Init(ctx context.Context) (models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Document returns the current document.
func (s *Store) Document(ctx context.Context) (models.Document, error) {
	return s.Init(ctx)
}

// User returns the profile with the given id.
func (s *Store) User(ctx context.Context, id string) (models.UserProfile, error) {
	doc, err := s.Init(ctx)
	if err != nil {
		return models.UserProfile{}, err
	}
	user, ok := doc.Users[id]
	if !ok {
		return models.UserProfile{}, errors.Wrap(ErrUserNotFound, "get user", slog.String("user_id", id))
	}
	return user, nil
}

// LastUser returns the profile that logged in most recently, if any.
func (s *Store) LastUser(ctx context.Context) (models.UserProfile, bool, error) {
	doc, err := s.Init(ctx)
	if err != nil {
		return models.UserProfile{}, false, err
	}
	if doc.LastUser == nil {
		return models.UserProfile{}, false, nil
	}
	user, ok := doc.Users[*doc.LastUser]
	return user, ok, nil
}

// CreateUser adds a new profile whose id is derived from name with [DeriveUserID].
//
// ErrUserExists is returned when the id is taken. Login flows should treat that as "fetch existing", see [Store.Login].
func (s *Store) CreateUser(ctx context.Context, name string) (models.UserProfile, error) {
	id, err := validName(name)
	if err != nil {
		return models.UserProfile{}, err
	}
	var user models.UserProfile
	err = s.mutate(ctx, func(doc *models.Document) error {
		if _, ok := doc.Users[id]; ok {
			return errors.Wrap(ErrUserExists, "create user", slog.String("user_id", id))
		}
		user = s.newUser(id, name, doc.Settings.Language)
		doc.Users[id] = user
		return nil
	})
	if err != nil {
		return models.UserProfile{}, err
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "created user", slog.String("user_id", id))
	return user, nil
}

// Login fetches or creates the profile for name, bumps its login bookkeeping and remembers it as the last user.
func (s *Store) Login(ctx context.Context, name string) (models.UserProfile, error) {
	id, err := validName(name)
	if err != nil {
		return models.UserProfile{}, err
	}
	var user models.UserProfile
	err = s.mutate(ctx, func(doc *models.Document) error {
		existing, ok := doc.Users[id]
		if !ok {
			existing = s.newUser(id, name, doc.Settings.Language)
		}
		now := s.now()
		count := existing.LoginCount + 1
		if user, err = s.applyPatch(existing, UserPatch{LastLogin: &now, LoginCount: &count}); err != nil {
			return err
		}
		doc.Users[id] = user
		doc.LastUser = &id
		return nil
	})
	if err != nil {
		return models.UserProfile{}, err
	}
	return user, nil
}

// UpdateUser merges patch onto the stored profile and returns the result.
func (s *Store) UpdateUser(ctx context.Context, id string, patch UserPatch) (models.UserProfile, error) {
	var user models.UserProfile
	err := s.mutate(ctx, func(doc *models.Document) error {
		existing, ok := doc.Users[id]
		if !ok {
			return errors.Wrap(ErrUserNotFound, "update user", slog.String("user_id", id))
		}
		var err error
		if user, err = s.applyPatch(existing, patch); err != nil {
			return err
		}
		doc.Users[id] = user
		return nil
	})
	if err != nil {
		return models.UserProfile{}, err
	}
	return user, nil
}

// UpdateSettings replaces the installation-wide settings.
func (s *Store) UpdateSettings(ctx context.Context, settings models.Settings) error {
	return s.mutate(ctx, func(doc *models.Document) error {
		if settings.Language == "" {
			settings.Language = defaultLanguage
		}
		doc.Settings = settings
		return nil
	})
}

func (s *Store) newUser(id, name, language string) models.UserProfile {
	if language == "" {
		language = defaultLanguage
	}
	return models.UserProfile{
		ID:            id,
		Name:          name,
		XP:            0,
		RankIndex:     models.RankIndex(s.ranks, 0),
		Language:      language,
		SolvedCases:   []models.SolvedCase{},
		CreatedAt:     s.now(),
		LastLogin:     time.Time{},
		LoginCount:    0,
		TotalPlayTime: 0,
	}
}

// mutate loads the document, applies fn and writes the document back when fn succeeds.
func (s *Store) mutate(ctx context.Context, fn func(doc *models.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err = fn(&doc); err != nil {
		return err
	}
	return s.save(ctx, &doc)
}

// load reads the stored document. A missing document is created, a corrupt one is replaced and an outdated one is
// migrated. Only database errors are returned.
func (s *Store) load(ctx context.Context) (models.Document, error) {
	var (
		raw string
		doc models.Document
		err error
	)
	err = s.dbs.ReadOnly.GetContext(ctx, &raw, `SELECT value FROM documents WHERE key = ?`, documentKey)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		doc = s.freshDocument()
		s.logger.LogAttrs(ctx, slog.LevelInfo, "creating document", slog.Int("version", CurrentVersion))
	case err != nil:
		return models.Document{}, errors.Wrap(err, "read document")
	default:
		if err = json.Unmarshal([]byte(raw), &doc); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "replacing corrupt document",
				errors.SlogError(errors.Wrap(err, "decode document")))
			doc = s.freshDocument()
			break
		}
		if doc.Version == CurrentVersion && intact(doc) {
			return doc, nil
		}
		s.logger.LogAttrs(ctx, slog.LevelInfo, "migrating document",
			slog.Int("from", doc.Version), slog.Int("to", CurrentVersion))
		doc = s.migrate(doc)
	}
	if err = s.save(ctx, &doc); err != nil {
		return models.Document{}, err
	}
	return doc, nil
}

// intact reports whether doc can be mutated as stored. Anything else is repaired by [Store.migrate].
func intact(doc models.Document) bool {
	if doc.Users == nil {
		return false
	}
	for key, user := range doc.Users {
		if key == "" || user.ID != key || user.XP < 0 || user.SolvedCases == nil {
			return false
		}
	}
	if doc.LastUser != nil {
		if _, ok := doc.Users[*doc.LastUser]; !ok {
			return false
		}
	}
	return true
}

func (s *Store) save(ctx context.Context, doc *models.Document) error {
	doc.Version = CurrentVersion
	doc.UpdatedAt = s.now().UTC()
	doc.Statistics = tally(doc.Users)
	value, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "encode document")
	}
	row := documentRow{
		Key:       documentKey,
		Value:     string(value),
		Version:   doc.Version,
		UpdatedAt: doc.UpdatedAt.Format(time.RFC3339Nano),
	}
	stmt := `INSERT INTO documents (key, value, version, updated_at)
VALUES (:key, :value, :version, :updated_at)
ON CONFLICT (key) DO UPDATE SET value      = excluded.value,
                                version    = excluded.version,
                                updated_at = excluded.updated_at`
	if _, err = s.dbs.ReadWrite.NamedExecContext(ctx, stmt, row); err != nil {
		return errors.Wrap(err, "write document")
	}
	return nil
}

type documentRow struct {
	Key       string `db:"key"`
	Value     string `db:"value"`
	Version   int    `db:"version"`
	UpdatedAt string `db:"updated_at"`
}

func (s *Store) freshDocument() models.Document {
	return models.Document{
		Version:  CurrentVersion,
		Users:    map[string]models.UserProfile{},
		LastUser: nil,
		Settings: models.Settings{
			Language:     defaultLanguage,
			SoundEnabled: true,
		},
		Statistics: models.Statistics{},
		UpdatedAt:  s.now().UTC(),
	}
}
