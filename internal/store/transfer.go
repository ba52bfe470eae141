package store

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/myrjola/casebook/internal/errors"
	"github.com/myrjola/casebook/internal/models"
)

// Export writes the current document as indented JSON.
func (s *Store) Export(ctx context.Context, w io.Writer) error {
	doc, err := s.Init(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err = enc.Encode(doc); err != nil {
		return errors.Wrap(err, "encode export")
	}
	return nil
}

// Import replaces the stored document with the one read from r.
//
// The input must have the exported shape. Anything structurally invalid is rejected with ErrInvalidDocument before
// the stored document is touched. Older versions are migrated.
func (s *Store) Import(ctx context.Context, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "read import")
	}
	doc, err := decodeDocument(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	migrated := s.migrate(doc)
	if err = s.save(ctx, &migrated); err != nil {
		return err
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "imported document",
		slog.Int("from_version", doc.Version), slog.Int("users", len(migrated.Users)))
	return nil
}

func decodeDocument(data []byte) (models.Document, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return models.Document{}, errors.Wrap(ErrInvalidDocument, "not a JSON object")
	}
	for _, required := range []string{"version", "users"} {
		if _, ok := fields[required]; !ok {
			return models.Document{}, errors.Wrap(ErrInvalidDocument, "missing field",
				slog.String("field", required))
		}
	}

	var doc models.Document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return models.Document{}, errors.Wrap(ErrInvalidDocument, err.Error())
	}
	if doc.Version < 1 || doc.Version > CurrentVersion {
		return models.Document{}, errors.Wrap(ErrInvalidDocument, "unsupported version",
			slog.Int("version", doc.Version))
	}
	if doc.Users == nil {
		return models.Document{}, errors.Wrap(ErrInvalidDocument, "users must be an object")
	}
	for key, user := range doc.Users {
		if key == "" || (user.ID != "" && user.ID != key) {
			return models.Document{}, errors.Wrap(ErrInvalidDocument, "user id does not match its key",
				slog.String("key", key), slog.String("user_id", user.ID))
		}
		if user.XP < 0 {
			return models.Document{}, errors.Wrap(ErrInvalidDocument, "negative xp", slog.String("user_id", key))
		}
	}
	if doc.LastUser != nil {
		if _, ok := doc.Users[*doc.LastUser]; !ok {
			return models.Document{}, errors.Wrap(ErrInvalidDocument, "last user does not exist",
				slog.String("last_user", *doc.LastUser))
		}
	}
	return doc, nil
}
