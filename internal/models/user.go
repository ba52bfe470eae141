package models

import "time"

// UserProfile is the persistent record of a player.
//
// RankIndex is derived from XP with [RankIndex] and must never be set by hand.
type UserProfile struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	XP            int           `json:"xp"`
	RankIndex     int           `json:"rankIndex"`
	Language      string        `json:"language"`
	SolvedCases   []SolvedCase  `json:"solvedCases"`
	CreatedAt     time.Time     `json:"createdAt"`
	LastLogin     time.Time     `json:"lastLogin"`
	LoginCount    int           `json:"loginCount"`
	TotalPlayTime time.Duration `json:"totalPlayTime"`
}

// HasSolved reports whether a resolution has been recorded for caseID.
func (u UserProfile) HasSolved(caseID string) bool {
	for _, sc := range u.SolvedCases {
		if sc.CaseID == caseID {
			return true
		}
	}
	return false
}

// SolvedCase records the resolution of a case, successful or not.
type SolvedCase struct {
	CaseID         string        `json:"caseId"`
	Title          string        `json:"title"`
	AccusedID      string        `json:"accusedId"`
	Success        bool          `json:"success"`
	CorrectSuspect bool          `json:"correctSuspect"`
	CorrectMotive  bool          `json:"correctMotive"`
	XPAwarded      int           `json:"xpAwarded"`
	ActionsLeft    int           `json:"actionsLeft"`
	PlayTime       time.Duration `json:"playTime"`
	SolvedAt       time.Time     `json:"solvedAt"`
}

// Rank is a named progression tier reached at Threshold XP.
type Rank struct {
	Threshold int    `json:"threshold"`
	Name      string `json:"name"`
}

// DefaultRanks is the ascending rank table used by the game.
var DefaultRanks = []Rank{ //nolint:gochecknoglobals // constant table
	{Threshold: 0, Name: "Rookie"},
	{Threshold: 100, Name: "Constable"},
	{Threshold: 300, Name: "Detective"},
	{Threshold: 600, Name: "Inspector"},
	{Threshold: 1000, Name: "Chief Inspector"},
	{Threshold: 1500, Name: "Superintendent"},
	{Threshold: 2500, Name: "Commissioner"},
}

// RankIndex returns the highest index whose threshold does not exceed xp. The table is scanned in ascending order
// and every satisfied threshold replaces the candidate, so equal thresholds resolve to the higher index.
func RankIndex(ranks []Rank, xp int) int {
	idx := 0
	for i, r := range ranks {
		if xp >= r.Threshold {
			idx = i
		}
	}
	return idx
}
