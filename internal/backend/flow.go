package backend

import (
	"fmt"

	"github.com/vk/bracketflow/internal/model"
	"github.com/vk/bracketflow/internal/node"
	"github.com/vk/bracketflow/internal/nodeid"
)

// FlowState is the full structure of a league used to hydrate a canvas.
type FlowState struct {
	Nodes []FlowNode `json:"nodes"`
	Edges []Edge     `json:"edges"`
}

// FlowNode is a node as the server reports it. Exactly one of the entity
// fields is set, matching Type.
type FlowNode struct {
	ID               nodeid.ID       `json:"id"`
	Type             string          `json:"type"`
	ParentCategoryID nodeid.ID       `json:"parent_category_id,omitempty"`
	Position         model.Position  `json:"position"`
	Category         *model.Category `json:"category,omitempty"`
	Round            *model.Round    `json:"round,omitempty"`
	Group            *model.Group    `json:"group,omitempty"`
	Match            *model.Match    `json:"match,omitempty"`
	Format           *model.Format   `json:"format,omitempty"`
	// RoundName is set on group nodes.
	RoundName string `json:"round_name,omitempty"`
}

// ToNode converts the server representation into a canvas node.
func (f FlowNode) ToNode() (*node.Node, error) {
	kind, err := node.ParseKind(f.Type)
	if err != nil {
		return nil, fmt.Errorf("flow node %s: %w", f.ID, err)
	}
	n := &node.Node{ID: f.ID, Kind: kind, ParentCategoryID: f.ParentCategoryID, Position: f.Position}

	missing := func() error { return fmt.Errorf("flow node %s of type %s has no %s payload", f.ID, f.Type, kind) }
	switch kind {
	case node.Category:
		if f.Category == nil {
			return nil, missing()
		}
		n.Data = &node.CategoryData{Category: *f.Category}
	case node.Round:
		if f.Round == nil {
			return nil, missing()
		}
		n.Data = &node.RoundData{Round: f.Round.Clone()}
	case node.Group:
		if f.Group == nil {
			return nil, missing()
		}
		n.Data = &node.GroupData{Group: *f.Group, RoundName: f.RoundName}
	case node.Match:
		if f.Match == nil {
			return nil, missing()
		}
		m := f.Match.Clone()
		if m.DependsOnMatchIDs == nil {
			m.DependsOnMatchIDs = []nodeid.ID{}
		}
		data := &node.MatchData{Match: m}
		if m.IsSpecial() {
			data.Label = m.DisplayName
		}
		n.Data = data
	case node.Format:
		if f.Format == nil {
			return nil, missing()
		}
		n.Data = &node.FormatData{Format: f.Format.Clone()}
	default:
		node.Unhandled(kind)
	}
	return n, nil
}

// FromNode converts a canvas node into its server representation.
func FromNode(n *node.Node) FlowNode {
	f := FlowNode{ID: n.ID, Type: n.Kind.String(), ParentCategoryID: n.ParentCategoryID, Position: n.Position}
	switch d := n.Data.(type) {
	case *node.CategoryData:
		c := d.Category
		f.Category = &c
	case *node.RoundData:
		r := d.Round.Clone()
		f.Round = &r
	case *node.GroupData:
		g := d.Group
		f.Group = &g
		f.RoundName = d.RoundName
	case *node.MatchData:
		m := d.Match.Clone()
		f.Match = &m
	case *node.FormatData:
		fm := d.Format.Clone()
		f.Format = &fm
	}
	return f
}

// Graph converts the flow state into canvas nodes and edges.
func (s FlowState) Graph() ([]*node.Node, []node.Edge, error) {
	nodes := make([]*node.Node, 0, len(s.Nodes))
	for _, fn := range s.Nodes {
		n, err := fn.ToNode()
		if err != nil {
			return nil, nil, err
		}
		nodes = append(nodes, n)
	}
	edges := make([]node.Edge, 0, len(s.Edges))
	for _, e := range s.Edges {
		edges = append(edges, e.ToNode())
	}
	return nodes, edges, nil
}
