package model

import (
	"slices"

	"github.com/vk/bracketflow/internal/nodeid"
)

// Position is a canvas coordinate. It has no effect on validity.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Category groups the rounds of one competition bracket within a league.
type Category struct {
	CategoryID   nodeid.ID `json:"category_id"`
	LeagueID     string    `json:"league_id,omitempty"`
	CategoryName string    `json:"category_name"`
}

// Group is a pool of matches inside a round.
type Group struct {
	GroupID     nodeid.ID `json:"group_id"`
	RoundID     nodeid.ID `json:"round_id"`
	CategoryID  nodeid.ID `json:"category_id"`
	DisplayName string    `json:"display_name"`
}

// Match is a single fixture of the bracket.
type Match struct {
	LeagueMatchID     nodeid.ID   `json:"league_match_id"`
	RoundID           nodeid.ID   `json:"round_id"`
	GroupID           nodeid.ID   `json:"group_id,omitempty"`
	CategoryID        nodeid.ID   `json:"category_id,omitempty"`
	HomeTeamID        string      `json:"home_team_id,omitempty"`
	AwayTeamID        string      `json:"away_team_id,omitempty"`
	NextMatchID       nodeid.ID   `json:"next_match_id,omitempty"`
	LoserNextMatchID  nodeid.ID   `json:"loser_next_match_id,omitempty"`
	DependsOnMatchIDs []nodeid.ID `json:"depends_on_match_ids"`
	EliminatedTeamIDs []string    `json:"eliminated_team_ids,omitempty"`
	IsFinal           bool        `json:"is_final"`
	IsThirdPlace      bool        `json:"is_third_place"`
	IsRunnerUp        bool        `json:"is_runner_up"`
	IsElimination     bool        `json:"is_elimination"`
	IsRoundRobin      bool        `json:"is_round_robin"`
	DisplayName       string      `json:"display_name"`
}

// Clone returns a deep copy of the match.
func (m Match) Clone() Match {
	m.DependsOnMatchIDs = slices.Clone(m.DependsOnMatchIDs)
	m.EliminatedTeamIDs = slices.Clone(m.EliminatedTeamIDs)
	return m
}

// IsSpecial reports whether the match keeps a caller supplied label instead of
// a generated one.
func (m Match) IsSpecial() bool {
	return m.IsFinal || m.IsThirdPlace || m.IsRunnerUp
}

// HasLoserPort reports whether the match may feed its loser into another match.
func (m Match) HasLoserPort() bool {
	return !m.IsFinal && !m.IsThirdPlace && !m.IsRoundRobin
}

// AddDependency appends a match the receiver waits on. Existing entries are
// kept and duplicates are not added twice.
func (m *Match) AddDependency(id nodeid.ID) {
	if slices.Contains(m.DependsOnMatchIDs, id) {
		return
	}
	m.DependsOnMatchIDs = append(m.DependsOnMatchIDs, id)
}

// RemoveDependency drops a match from the dependency list.
func (m *Match) RemoveDependency(id nodeid.ID) {
	m.DependsOnMatchIDs = slices.DeleteFunc(m.DependsOnMatchIDs, func(d nodeid.ID) bool { return d == id })
}

// MatchUpdate lists the match fields a partial update may touch. Nil fields
// are left unchanged; a non-nil empty DependsOnMatchIDs clears the list.
type MatchUpdate struct {
	NextMatchID       *nodeid.ID   `json:"next_match_id,omitempty"`
	LoserNextMatchID  *nodeid.ID   `json:"loser_next_match_id,omitempty"`
	DependsOnMatchIDs *[]nodeid.ID `json:"depends_on_match_ids,omitempty"`
	HomeTeamID        *string      `json:"home_team_id,omitempty"`
	AwayTeamID        *string      `json:"away_team_id,omitempty"`
	DisplayName       *string      `json:"display_name,omitempty"`
}

// DependsOn returns the update field replacing a dependency list with ids.
// A nil ids is sent as an empty list.
func DependsOn(ids []nodeid.ID) *[]nodeid.ID {
	deps := slices.Clone(ids)
	if deps == nil {
		deps = []nodeid.ID{}
	}
	return &deps
}

// Apply copies the set fields of the update onto the match.
func (u MatchUpdate) Apply(m *Match) {
	if u.NextMatchID != nil {
		m.NextMatchID = *u.NextMatchID
	}
	if u.LoserNextMatchID != nil {
		m.LoserNextMatchID = *u.LoserNextMatchID
	}
	if u.DependsOnMatchIDs != nil {
		m.DependsOnMatchIDs = slices.Clone(*u.DependsOnMatchIDs)
	}
	if u.HomeTeamID != nil {
		m.HomeTeamID = *u.HomeTeamID
	}
	if u.AwayTeamID != nil {
		m.AwayTeamID = *u.AwayTeamID
	}
	if u.DisplayName != nil {
		m.DisplayName = *u.DisplayName
	}
}

// RoundUpdate lists the round fields the automatic canvas persists on save.
type RoundUpdate struct {
	RoundStatus *RoundStatus `json:"round_status,omitempty"`
	RoundFormat *Format      `json:"round_format,omitempty"`
	ClearFormat bool         `json:"clear_format,omitempty"`
	NextRoundID *nodeid.ID   `json:"next_round_id,omitempty"`
}

// Apply copies the set fields of the update onto the round.
func (u RoundUpdate) Apply(r *Round) {
	if u.RoundStatus != nil {
		r.RoundStatus = *u.RoundStatus
	}
	if u.ClearFormat {
		r.ClearFormat()
	}
	if u.RoundFormat != nil {
		r.SetFormat(u.RoundFormat.Clone())
	}
	if u.NextRoundID != nil {
		r.NextRoundID = *u.NextRoundID
	}
}
