// Package backend defines the contract of the server that owns the durable
// tournament structure.
//
// The editor never assumes a transport: it talks to a Backend. The
// httpbackend package implements it over HTTP+JSON and the memorybackend
// package implements it in process, for tests and offline runs.
package backend

import (
	"context"

	"github.com/vk/bracketflow/internal/model"
	"github.com/vk/bracketflow/internal/node"
	"github.com/vk/bracketflow/internal/nodeid"
	"github.com/vk/bracketflow/internal/port"
)

// Backend is the server-authoritative store of a league's tournament
// structure. Every call may block on a round trip and may fail; callers
// decide how a failure is surfaced.
type Backend interface {
	CreateRound(ctx context.Context, req CreateRoundRequest) (model.Round, error)
	CreateGroup(ctx context.Context, req CreateGroupRequest) (model.Group, error)
	CreateEmptyMatch(ctx context.Context, req CreateMatchRequest) (model.Match, error)
	UpdateMatch(ctx context.Context, matchID nodeid.ID, fields model.MatchUpdate) error
	UpdateRound(ctx context.Context, roundID nodeid.ID, fields model.RoundUpdate) error
	EliminateTeam(ctx context.Context, matchID nodeid.ID, teamID string) error

	CreateEdge(ctx context.Context, req CreateEdgeRequest) (Edge, error)
	DeleteEdge(ctx context.Context, edgeID nodeid.ID) error

	DeleteSingleNode(ctx context.Context, kind node.Kind, id nodeid.ID) error
	// ResetCategoryLayout deletes every descendant of a category server side.
	ResetCategoryLayout(ctx context.Context, categoryID nodeid.ID) error
	UpdateNodePosition(ctx context.Context, kind node.Kind, id nodeid.ID, pos model.Position) error

	GetFlowState(ctx context.Context, leagueID string) (FlowState, error)

	GenerateMatches(ctx context.Context, roundID nodeid.ID) (TriggerResult, error)
	ProgressRound(ctx context.Context, roundID nodeid.ID) (TriggerResult, error)
	ResetRound(ctx context.Context, roundID nodeid.ID) (TriggerResult, error)
	SynchronizeBracket(ctx context.Context, categoryID nodeid.ID) (TriggerResult, error)
}

// CreateRoundRequest is the payload of CreateRound.
type CreateRoundRequest struct {
	CategoryID nodeid.ID        `json:"category_id"`
	RoundName  string           `json:"round_name"`
	RoundOrder model.RoundOrder `json:"round_order"`
	Position   model.Position   `json:"position"`
}

// CreateGroupRequest is the payload of CreateGroup.
type CreateGroupRequest struct {
	RoundID     nodeid.ID      `json:"round_id"`
	CategoryID  nodeid.ID      `json:"category_id"`
	RoundName   string         `json:"round_name"`
	DisplayName string         `json:"display_name"`
	Position    model.Position `json:"position"`
}

// CreateMatchRequest is the payload of CreateEmptyMatch. The match id is
// assigned by the server and ignored here.
type CreateMatchRequest struct {
	Match    model.Match    `json:"match"`
	Position model.Position `json:"position"`
}

// CreateEdgeRequest is the payload of CreateEdge.
type CreateEdgeRequest struct {
	LeagueID     string    `json:"league_id"`
	CategoryID   nodeid.ID `json:"category_id"`
	SourceID     nodeid.ID `json:"source_id"`
	TargetID     nodeid.ID `json:"target_id"`
	SourceHandle port.Port `json:"source_handle"`
	TargetHandle port.Port `json:"target_handle"`
}

// Edge is a persisted connection as the server reports it.
type Edge struct {
	EdgeID       nodeid.ID `json:"edge_id"`
	SourceID     nodeid.ID `json:"source_id"`
	TargetID     nodeid.ID `json:"target_id"`
	SourceHandle port.Port `json:"source_handle"`
	TargetHandle port.Port `json:"target_handle"`
}

// ToNode converts the persisted edge to its canvas form.
func (e Edge) ToNode() node.Edge {
	return node.Edge{
		ID:           e.EdgeID,
		Source:       e.SourceID,
		SourceHandle: e.SourceHandle,
		Target:       e.TargetID,
		TargetHandle: e.TargetHandle,
	}
}

// TriggerResult is what the opaque bracket-generation calls return.
type TriggerResult struct {
	Message string `json:"message"`
}
