package node

import (
	"github.com/vk/bracketflow/internal/model"
	"github.com/vk/bracketflow/internal/nodeid"
)

// Data is the kind-specific payload of a node. It is sealed: only the types
// in this package implement it.
type Data interface {
	Kind() Kind
	clone() Data
}

// CategoryData is the payload of a Category node.
type CategoryData struct {
	Category model.Category
}

// RoundData is the payload of a Round node.
type RoundData struct {
	Round model.Round
}

// GroupData is the payload of a Group node.
type GroupData struct {
	Group model.Group
	// RoundName is denormalized from the parent round for match naming.
	RoundName string
}

// MatchData is the payload of a Match node.
type MatchData struct {
	Match model.Match
	// Label is the caller supplied name of a special match.
	Label string
}

// FormatData is the payload of a Format node.
type FormatData struct {
	Format model.Format
}

func (*CategoryData) Kind() Kind { return Category }
func (*RoundData) Kind() Kind    { return Round }
func (*GroupData) Kind() Kind    { return Group }
func (*MatchData) Kind() Kind    { return Match }
func (*FormatData) Kind() Kind   { return Format }

func (d *CategoryData) clone() Data { c := *d; return &c }
func (d *RoundData) clone() Data    { return &RoundData{Round: d.Round.Clone()} }
func (d *GroupData) clone() Data    { c := *d; return &c }
func (d *MatchData) clone() Data    { return &MatchData{Match: d.Match.Clone(), Label: d.Label} }
func (d *FormatData) clone() Data   { return &FormatData{Format: d.Format.Clone()} }

// AsRound returns the round payload of n, or nil when n is not a round.
func (n *Node) AsRound() *model.Round {
	if d, ok := n.Data.(*RoundData); ok {
		return &d.Round
	}
	return nil
}

// AsGroup returns the group payload of n, or nil when n is not a group.
func (n *Node) AsGroup() *model.Group {
	if d, ok := n.Data.(*GroupData); ok {
		return &d.Group
	}
	return nil
}

// AsMatch returns the match payload of n, or nil when n is not a match.
func (n *Node) AsMatch() *model.Match {
	if d, ok := n.Data.(*MatchData); ok {
		return &d.Match
	}
	return nil
}

// AsFormat returns the format payload of n, or nil when n is not a format.
func (n *Node) AsFormat() *model.Format {
	if d, ok := n.Data.(*FormatData); ok {
		return &d.Format
	}
	return nil
}

// Rekey rewrites every reference to from inside the node's own payload. It
// is used when a temporary id is promoted.
func (n *Node) Rekey(from, to nodeid.ID) {
	if n.ID == from {
		n.ID = to
	}
	if n.ParentCategoryID == from {
		n.ParentCategoryID = to
	}
	swap := func(id *nodeid.ID) {
		if *id == from {
			*id = to
		}
	}
	switch d := n.Data.(type) {
	case *CategoryData:
		swap(&d.Category.CategoryID)
	case *RoundData:
		swap(&d.Round.RoundID)
		swap(&d.Round.CategoryID)
		swap(&d.Round.NextRoundID)
		if d.Round.RoundFormat != nil {
			swap(&d.Round.RoundFormat.RoundID)
			swap(&d.Round.RoundFormat.FormatID)
		}
	case *GroupData:
		swap(&d.Group.GroupID)
		swap(&d.Group.RoundID)
		swap(&d.Group.CategoryID)
	case *MatchData:
		swap(&d.Match.LeagueMatchID)
		swap(&d.Match.RoundID)
		swap(&d.Match.GroupID)
		swap(&d.Match.CategoryID)
		swap(&d.Match.NextMatchID)
		swap(&d.Match.LoserNextMatchID)
		for i := range d.Match.DependsOnMatchIDs {
			swap(&d.Match.DependsOnMatchIDs[i])
		}
	case *FormatData:
		swap(&d.Format.FormatID)
		swap(&d.Format.RoundID)
	case nil:
	default:
		Unhandled(n.Data.Kind())
	}
}
