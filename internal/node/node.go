// Package node defines the vertices and edges of the tournament canvases.
//
// A Node is tagged with a Kind and carries kind-specific Data. Data is a
// sealed sum type: the only implementations are the five *Data structs in
// this package, and code that switches over Kind is expected to handle every
// kind and panic on anything else (see Unhandled).
package node

import (
	"fmt"
	"strings"

	"github.com/vk/bracketflow/internal/model"
	"github.com/vk/bracketflow/internal/nodeid"
)

// Kind distinguishes the entities that can be placed on a canvas.
type Kind int

const (
	// Category is the root of a bracket. It is never created from the canvas.
	Category Kind = iota + 1
	// Round is a stage of a category.
	Round
	// Group is a pool of matches inside a round.
	Group
	// Match is a single fixture.
	Match
	// Format describes how a round is played. Automatic canvas only.
	Format
)

var kindNames = map[Kind]string{
	Category: "category",
	Round:    "round",
	Group:    "group",
	Match:    "match",
	Format:   "format",
}

// Kinds lists every node kind.
func Kinds() []Kind {
	return []Kind{Category, Round, Group, Match, Format}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Unhandled panics for a kind a switch does not cover. Switches over Kind
// call it in their default branch.
func Unhandled(k Kind) {
	panic(fmt.Sprintf("node: unhandled kind %s", k))
}

// ParseKind maps a kind name ("round", "Match") to its Kind.
func ParseKind(s string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == normalized {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown node kind %q", s)
}

// Node is a single vertex on a canvas.
type Node struct {
	ID nodeid.ID
	// Kind selects which Data variant the node carries.
	Kind Kind
	// ParentCategoryID is the category the node was dropped into, if any.
	ParentCategoryID nodeid.ID
	Position         model.Position
	Data             Data
	Selected         bool
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Data != nil {
		c.Data = n.Data.clone()
	}
	return &c
}

// CategoryID resolves the category the node belongs to, looking at its data
// first and falling back to the category it was dropped into.
func (n *Node) CategoryID() nodeid.ID {
	switch d := n.Data.(type) {
	case *CategoryData:
		return n.ID
	case *RoundData:
		if !d.Round.CategoryID.IsZero() {
			return d.Round.CategoryID
		}
	case *GroupData:
		if !d.Group.CategoryID.IsZero() {
			return d.Group.CategoryID
		}
	case *MatchData:
		if !d.Match.CategoryID.IsZero() {
			return d.Match.CategoryID
		}
	}
	return n.ParentCategoryID
}

// New builds a node of the given kind with empty data of the matching variant.
func New(id nodeid.ID, kind Kind, pos model.Position) *Node {
	return &Node{ID: id, Kind: kind, Position: pos, Data: EmptyData(kind)}
}

// EmptyData returns the zero data variant for a kind.
func EmptyData(kind Kind) Data {
	switch kind {
	case Category:
		return &CategoryData{}
	case Round:
		return &RoundData{}
	case Group:
		return &GroupData{}
	case Match:
		return &MatchData{}
	case Format:
		return &FormatData{}
	default:
		Unhandled(kind)
		return nil
	}
}
