package cases

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"

	"github.com/myrjola/casebook/internal/errors"
	"github.com/myrjola/casebook/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed casefiles/*.yaml
var caseFiles embed.FS

var ErrInvalidCases = errors.NewSentinel("invalid case data")

// Repository holds the cases that are currently available for play.
type Repository struct {
	mu     sync.RWMutex
	cases  []models.Case
	logger *slog.Logger
}

func NewRepository(logger *slog.Logger) *Repository {
	return &Repository{ //nolint:exhaustruct // mutex zero value
		cases:  []models.Case{},
		logger: logger.With("source", "CaseRepository"),
	}
}

// Load replaces the cases with the ones parsed from data. On failure the repository is left empty, never partially
// loaded.
func (r *Repository) Load(ctx context.Context, data []byte) error {
	loaded, err := Parse(data)
	return r.replace(ctx, loaded, err)
}

// LoadFile loads cases from a YAML or JSON file.
func (r *Repository) LoadFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return r.replace(ctx, nil, errors.Wrap(err, "read case file", slog.String("path", path)))
	}
	return r.Load(ctx, data)
}

// LoadEmbedded loads the case files shipped with the binary.
func (r *Repository) LoadEmbedded(ctx context.Context) error {
	entries, err := caseFiles.ReadDir("casefiles")
	if err != nil {
		return r.replace(ctx, nil, errors.Wrap(err, "list embedded case files"))
	}
	var (
		all  []models.Case
		seen = map[string]bool{}
	)
	for _, entry := range entries {
		var (
			data   []byte
			parsed []models.Case
		)
		if data, err = caseFiles.ReadFile("casefiles/" + entry.Name()); err != nil {
			return r.replace(ctx, nil, errors.Wrap(err, "read embedded case file", slog.String("name", entry.Name())))
		}
		if parsed, err = Parse(data); err != nil {
			return r.replace(ctx, nil, errors.Wrap(err, "parse embedded case file", slog.String("name", entry.Name())))
		}
		for _, c := range parsed {
			if seen[c.ID] {
				return r.replace(ctx, nil, errors.Wrap(ErrInvalidCases, "duplicate case id",
					slog.String("case_id", c.ID), slog.String("name", entry.Name())))
			}
			seen[c.ID] = true
		}
		all = append(all, parsed...)
	}
	return r.replace(ctx, all, nil)
}

func (r *Repository) replace(ctx context.Context, loaded []models.Case, err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.cases = []models.Case{}
		r.logger.LogAttrs(ctx, slog.LevelError, "discarding case data", errors.SlogError(err))
		return err
	}
	if loaded == nil {
		loaded = []models.Case{}
	}
	r.cases = loaded
	r.logger.LogAttrs(ctx, slog.LevelInfo, "loaded cases", slog.Int("count", len(loaded)))
	return nil
}

// List returns the available cases in load order.
func (r *Repository) List() []models.Case {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.cases)
}

// Get returns the case with the given id.
func (r *Repository) Get(id string) (models.Case, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.cases {
		if c.ID == id {
			return c, true
		}
	}
	return models.Case{}, false
}

// Remove takes a resolved case out of the available list. It reports whether the case was present.
func (r *Repository) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	before := len(r.cases)
	r.cases = slices.DeleteFunc(r.cases, func(c models.Case) bool {
		return c.ID == id
	})
	return len(r.cases) != before
}

// Parse decodes and validates a YAML or JSON list of cases.
//
// Only the shape is validated: the fields the game relies on must be present and suspect references must resolve.
func Parse(data []byte) ([]models.Case, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errors.Wrap(ErrInvalidCases, fmt.Sprintf("decode: %v", err))
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) != 1 || root.Content[0].Kind != yaml.SequenceNode {
		return nil, errors.Wrap(ErrInvalidCases, "expected a list of cases")
	}

	items := root.Content[0].Content
	parsed := make([]models.Case, 0, len(items))
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		if err := checkShape(item); err != nil {
			return nil, errors.Wrap(err, "check case", slog.Int("index", i))
		}
		var c models.Case
		if err := item.Decode(&c); err != nil {
			return nil, errors.Wrap(ErrInvalidCases, fmt.Sprintf("decode case: %v", err), slog.Int("index", i))
		}
		if err := checkReferences(c); err != nil {
			return nil, errors.Wrap(err, "check case", slog.String("case_id", c.ID))
		}
		if seen[c.ID] {
			return nil, errors.Wrap(ErrInvalidCases, "duplicate case id", slog.String("case_id", c.ID))
		}
		seen[c.ID] = true
		parsed = append(parsed, c)
	}
	return parsed, nil
}

func checkShape(item *yaml.Node) error {
	if item.Kind != yaml.MappingNode {
		return errors.Wrap(ErrInvalidCases, "case is not an object")
	}
	for name, kind := range map[string]yaml.Kind{
		"id":             yaml.ScalarNode,
		"title":          yaml.ScalarNode,
		"suspects":       yaml.SequenceNode,
		"evidence":       yaml.MappingNode,
		"killerId":       yaml.ScalarNode,
		"motiveKeywords": yaml.SequenceNode,
	} {
		if err := expectField(item, name, kind); err != nil {
			return err
		}
	}
	evidence := field(item, "evidence")
	for name, kind := range map[string]yaml.Kind{
		"initial":    yaml.SequenceNode,
		"bodySearch": yaml.SequenceNode,
		"roomSearch": yaml.SequenceNode,
		"labClue":    yaml.ScalarNode,
		"smokingGun": yaml.ScalarNode,
	} {
		if err := expectField(evidence, name, kind); err != nil {
			return errors.Wrap(err, "check evidence")
		}
	}
	return nil
}

func expectField(mapping *yaml.Node, name string, kind yaml.Kind) error {
	value := field(mapping, name)
	if value == nil {
		return errors.Wrap(ErrInvalidCases, "missing field", slog.String("field", name))
	}
	if value.Kind != kind {
		return errors.Wrap(ErrInvalidCases, "unexpected field type", slog.String("field", name))
	}
	return nil
}

// field returns the value node of key in a mapping node.
func field(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func checkReferences(c models.Case) error {
	if c.ID == "" {
		return errors.Wrap(ErrInvalidCases, "empty case id")
	}
	if len(c.Suspects) == 0 {
		return errors.Wrap(ErrInvalidCases, "case has no suspects")
	}
	ids := make(map[string]bool, len(c.Suspects))
	for _, s := range c.Suspects {
		if s.ID == "" || ids[s.ID] {
			return errors.Wrap(ErrInvalidCases, "suspect ids must be unique and non-empty",
				slog.String("suspect_id", s.ID))
		}
		ids[s.ID] = true
	}
	if !ids[c.KillerID] {
		return errors.Wrap(ErrInvalidCases, "killer is not a suspect", slog.String("killer_id", c.KillerID))
	}
	return nil
}
