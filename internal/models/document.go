package models

import "time"

// Document is the whole persisted state of one installation.
type Document struct {
	Version    int                    `json:"version"`
	Users      map[string]UserProfile `json:"users"`
	LastUser   *string                `json:"lastUser"`
	Settings   Settings               `json:"settings"`
	Statistics Statistics             `json:"statistics"`
	UpdatedAt  time.Time              `json:"updatedAt"`
}

// Settings are installation-wide preferences.
type Settings struct {
	Language     string `json:"language"`
	SoundEnabled bool   `json:"soundEnabled"`
}

// Statistics aggregate over every user of the installation.
type Statistics struct {
	TotalUsers       int           `json:"totalUsers"`
	TotalCasesSolved int           `json:"totalCasesSolved"`
	TotalPlayTime    time.Duration `json:"totalPlayTime"`
}
