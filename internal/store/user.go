package store

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/myrjola/casebook/internal/errors"
	"github.com/myrjola/casebook/internal/models"
)

// UserPatch lists the profile fields that may change after creation. Nil fields are left untouched.
//
// Identity (ID, CreatedAt) is deliberately absent and credentials are never persisted.
type UserPatch struct {
	Name       *string
	XP         *int
	Language   *string
	LastLogin  *time.Time
	LoginCount *int
	// AddPlayTime is added to the accumulated play time.
	AddPlayTime time.Duration
	// SolvedCase is appended to the solved case list.
	SolvedCase *models.SolvedCase
}

func (s *Store) applyPatch(user models.UserProfile, patch UserPatch) (models.UserProfile, error) {
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return user, errors.Wrap(ErrInvalidPatch, "empty name")
		}
		user.Name = *patch.Name
	}
	if patch.XP != nil {
		if *patch.XP < 0 {
			return user, errors.Wrap(ErrInvalidPatch, "negative xp", slog.Int("xp", *patch.XP))
		}
		user.XP = *patch.XP
	}
	if patch.Language != nil {
		user.Language = *patch.Language
	}
	if patch.LastLogin != nil {
		user.LastLogin = *patch.LastLogin
	}
	if patch.LoginCount != nil {
		user.LoginCount = *patch.LoginCount
	}
	if patch.AddPlayTime < 0 {
		return user, errors.Wrap(ErrInvalidPatch, "negative play time")
	}
	user.TotalPlayTime += patch.AddPlayTime
	if patch.SolvedCase != nil {
		// Copy so that the caller's slice never aliases the stored one.
		solved := make([]models.SolvedCase, 0, len(user.SolvedCases)+1)
		solved = append(solved, user.SolvedCases...)
		user.SolvedCases = append(solved, *patch.SolvedCase)
	}
	user.RankIndex = models.RankIndex(s.ranks, user.XP)
	return user, nil
}

var (
	invalidIDChars = regexp.MustCompile(`[^a-z0-9_]`)
	underscoreRuns = regexp.MustCompile(`_{2,}`)
)

// DeriveUserID maps a display name to a stable user id: lower-cased, trimmed, every character outside [a-z0-9_]
// replaced with an underscore and runs of underscores collapsed.
func DeriveUserID(name string) string {
	id := strings.TrimSpace(strings.ToLower(name))
	id = invalidIDChars.ReplaceAllString(id, "_")
	return underscoreRuns.ReplaceAllString(id, "_")
}

func validName(name string) (string, error) {
	id := DeriveUserID(name)
	if strings.Trim(id, "_") == "" {
		return "", errors.Wrap(ErrInvalidName, "derive user id", slog.String("name", name))
	}
	return id, nil
}

// migrate upgrades doc to [CurrentVersion]. It only fills defaults and recomputes derived values, so running it on
// an already migrated document changes nothing.
func (s *Store) migrate(doc models.Document) models.Document {
	migrated := models.Document{
		Version:    CurrentVersion,
		Users:      make(map[string]models.UserProfile, len(doc.Users)),
		LastUser:   nil,
		Settings:   doc.Settings,
		Statistics: models.Statistics{},
		UpdatedAt:  doc.UpdatedAt,
	}
	if migrated.Settings.Language == "" {
		migrated.Settings.Language = defaultLanguage
	}
	for key, user := range doc.Users {
		if key == "" {
			continue
		}
		user.ID = key
		if user.Name == "" {
			user.Name = key
		}
		if user.Language == "" {
			user.Language = migrated.Settings.Language
		}
		if user.SolvedCases == nil {
			user.SolvedCases = []models.SolvedCase{}
		}
		if user.XP < 0 {
			user.XP = 0
		}
		if user.LoginCount < 0 {
			user.LoginCount = 0
		}
		if user.CreatedAt.IsZero() {
			user.CreatedAt = s.now()
		}
		user.RankIndex = models.RankIndex(s.ranks, user.XP)
		migrated.Users[key] = user
	}
	if doc.LastUser != nil {
		if _, ok := migrated.Users[*doc.LastUser]; ok {
			last := *doc.LastUser
			migrated.LastUser = &last
		}
	}
	migrated.Statistics = tally(migrated.Users)
	return migrated
}

// tally recomputes the aggregate statistics from the users.
func tally(users map[string]models.UserProfile) models.Statistics {
	stats := models.Statistics{
		TotalUsers:       len(users),
		TotalCasesSolved: 0,
		TotalPlayTime:    0,
	}
	for _, u := range users {
		stats.TotalCasesSolved += len(u.SolvedCases)
		stats.TotalPlayTime += u.TotalPlayTime
	}
	return stats
}
