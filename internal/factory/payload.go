package factory

import (
	"github.com/vk/bracketflow/internal/backend"
	"github.com/vk/bracketflow/internal/graphstore"
	"github.com/vk/bracketflow/internal/model"
	"github.com/vk/bracketflow/internal/node"
	"github.com/vk/bracketflow/internal/nodeid"
)

// Lineage is the ancestor context a new entity inherits from the node it is
// connected to.
type Lineage struct {
	CategoryID nodeid.ID
	RoundID    nodeid.ID
	RoundName  string
	GroupID    nodeid.ID
	GroupName  string
}

// Scope returns the match scope described by the lineage.
func (l Lineage) Scope() MatchScope {
	return MatchScope{RoundID: l.RoundID, RoundName: l.RoundName, GroupID: l.GroupID, GroupName: l.GroupName}
}

// LineageOf walks from src up to its category. A match source passes on its
// own round and group, so a match fed by another match is created next to it.
func LineageOf(snap *graphstore.Snapshot, src *node.Node) Lineage {
	lin := Lineage{CategoryID: src.CategoryID()}

	switch src.Kind {
	case node.Category:
	case node.Round:
		r := src.AsRound()
		lin.RoundID, lin.RoundName = src.ID, r.RoundName
	case node.Group:
		g := src.Data.(*node.GroupData)
		lin.RoundID, lin.RoundName = g.Group.RoundID, g.RoundName
		lin.GroupID, lin.GroupName = src.ID, g.Group.DisplayName
	case node.Match:
		m := src.AsMatch()
		lin.RoundID, lin.GroupID = m.RoundID, m.GroupID
	case node.Format:
		lin.RoundID = src.AsFormat().RoundID
	default:
		node.Unhandled(src.Kind)
	}

	if lin.RoundName == "" && !lin.RoundID.IsZero() {
		if r, ok := snap.Node(lin.RoundID); ok && r.Kind == node.Round {
			lin.RoundName = r.AsRound().RoundName
			if lin.CategoryID.IsZero() {
				lin.CategoryID = r.CategoryID()
			}
		}
	}
	if lin.GroupName == "" && !lin.GroupID.IsZero() {
		if g, ok := snap.Node(lin.GroupID); ok && g.Kind == node.Group {
			lin.GroupName = g.AsGroup().DisplayName
		}
	}
	return lin
}

// RoundPayload builds the create request of a dropped round connected to a
// category.
func RoundPayload(lin Lineage, target *node.Node) backend.CreateRoundRequest {
	r := target.AsRound()
	return backend.CreateRoundRequest{
		CategoryID: lin.CategoryID,
		RoundName:  RoundName(r.RoundName, r.RoundOrder),
		RoundOrder: r.RoundOrder,
		Position:   target.Position,
	}
}

// GroupPayload builds the create request of a dropped group connected to a
// round.
func GroupPayload(lin Lineage, target *node.Node, displayName string) backend.CreateGroupRequest {
	return backend.CreateGroupRequest{
		RoundID:     lin.RoundID,
		CategoryID:  lin.CategoryID,
		RoundName:   lin.RoundName,
		DisplayName: displayName,
		Position:    target.Position,
	}
}

// MatchPayload builds the create request of a dropped match. Special matches
// keep their label; every other match is named by displayName.
func MatchPayload(lin Lineage, target *node.Node, displayName string) backend.CreateMatchRequest {
	data := target.Data.(*node.MatchData)
	m := model.Match{
		RoundID:           lin.RoundID,
		GroupID:           lin.GroupID,
		CategoryID:        lin.CategoryID,
		DependsOnMatchIDs: []nodeid.ID{},
		IsFinal:           data.Match.IsFinal,
		IsThirdPlace:      data.Match.IsThirdPlace,
		IsRunnerUp:        data.Match.IsRunnerUp,
		IsElimination:     data.Match.IsElimination,
		IsRoundRobin:      data.Match.IsRoundRobin,
		DisplayName:       displayName,
	}
	if m.IsSpecial() {
		m.DisplayName = SpecialLabel(data.Label, m)
	}
	return backend.CreateMatchRequest{Match: m, Position: target.Position}
}

// SpecialLabel returns the label of a final, third place or runner-up match,
// falling back to the match type when the caller supplied none.
func SpecialLabel(label string, m model.Match) string {
	if label != "" {
		return label
	}
	switch {
	case m.IsFinal:
		return "Final"
	case m.IsThirdPlace:
		return "Third Place"
	case m.IsRunnerUp:
		return "Runner-up"
	}
	return ""
}
