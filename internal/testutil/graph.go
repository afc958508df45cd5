package testutil

import (
	"github.com/vk/bracketflow/internal/model"
	"github.com/vk/bracketflow/internal/node"
	"github.com/vk/bracketflow/internal/nodeid"
	"github.com/vk/bracketflow/internal/port"
)

// CategoryNode builds a durable category node.
func CategoryNode(id nodeid.ID, name string) *node.Node {
	n := node.New(id, node.Category, model.Position{})
	n.Data = &node.CategoryData{Category: model.Category{CategoryID: id, CategoryName: name}}
	return n
}

// RoundNode builds a round node belonging to a category.
func RoundNode(id, categoryID nodeid.ID, order model.RoundOrder) *node.Node {
	n := node.New(id, node.Round, model.Position{})
	n.ParentCategoryID = categoryID
	n.Data = &node.RoundData{Round: model.Round{
		RoundID:     id,
		CategoryID:  categoryID,
		RoundName:   order.String(),
		RoundOrder:  order,
		RoundStatus: model.RoundPending,
	}}
	return n
}

// GroupNode builds a group node inside a round.
func GroupNode(id, roundID, categoryID nodeid.ID, name, roundName string) *node.Node {
	n := node.New(id, node.Group, model.Position{})
	n.ParentCategoryID = categoryID
	n.Data = &node.GroupData{
		Group:     model.Group{GroupID: id, RoundID: roundID, CategoryID: categoryID, DisplayName: name},
		RoundName: roundName,
	}
	return n
}

// MatchNode builds a plain match node inside a round and optional group.
func MatchNode(id, roundID, groupID, categoryID nodeid.ID) *node.Node {
	n := node.New(id, node.Match, model.Position{})
	n.ParentCategoryID = categoryID
	n.Data = &node.MatchData{Match: model.Match{
		LeagueMatchID:     id,
		RoundID:           roundID,
		GroupID:           groupID,
		CategoryID:        categoryID,
		DependsOnMatchIDs: []nodeid.ID{},
		DisplayName:       string(id),
	}}
	return n
}

// FormatNode builds a format node not yet attached to any round.
func FormatNode(id nodeid.ID, formatType string) *node.Node {
	n := node.New(id, node.Format, model.Position{})
	n.Data = &node.FormatData{Format: model.Format{FormatType: formatType}}
	return n
}

// Edge builds an edge.
func Edge(id, source nodeid.ID, sourceHandle port.Port, target nodeid.ID, targetHandle port.Port) node.Edge {
	return node.Edge{ID: id, Source: source, SourceHandle: sourceHandle, Target: target, TargetHandle: targetHandle}
}
