package httpbackend

import (
	"context"
	"net/http"

	"github.com/vk/bracketflow/internal/backend"
	"github.com/vk/bracketflow/internal/model"
	"github.com/vk/bracketflow/internal/node"
	"github.com/vk/bracketflow/internal/nodeid"
)

func (c *Client) CreateRound(ctx context.Context, req backend.CreateRoundRequest) (model.Round, error) {
	var r model.Round
	err := c.do(ctx, backend.OpCreateRound, http.MethodPost, path("rounds"), req, &r)
	return r, err
}

func (c *Client) CreateGroup(ctx context.Context, req backend.CreateGroupRequest) (model.Group, error) {
	var g model.Group
	err := c.do(ctx, backend.OpCreateGroup, http.MethodPost, path("groups"), req, &g)
	return g, err
}

func (c *Client) CreateEmptyMatch(ctx context.Context, req backend.CreateMatchRequest) (model.Match, error) {
	var m model.Match
	err := c.do(ctx, backend.OpCreateEmptyMatch, http.MethodPost, path("matches"), req, &m)
	if err == nil && m.DependsOnMatchIDs == nil {
		m.DependsOnMatchIDs = []nodeid.ID{}
	}
	return m, err
}

func (c *Client) UpdateMatch(ctx context.Context, matchID nodeid.ID, fields model.MatchUpdate) error {
	return c.do(ctx, backend.OpUpdateMatch, http.MethodPatch, path("matches", matchID.String()), fields, nil)
}

func (c *Client) UpdateRound(ctx context.Context, roundID nodeid.ID, fields model.RoundUpdate) error {
	return c.do(ctx, backend.OpUpdateRound, http.MethodPatch, path("rounds", roundID.String()), fields, nil)
}

func (c *Client) EliminateTeam(ctx context.Context, matchID nodeid.ID, teamID string) error {
	body := struct {
		TeamID string `json:"team_id"`
	}{teamID}
	return c.do(ctx, backend.OpEliminateTeam, http.MethodPost, path("matches", matchID.String(), "eliminate"), body, nil)
}

func (c *Client) CreateEdge(ctx context.Context, req backend.CreateEdgeRequest) (backend.Edge, error) {
	var e backend.Edge
	err := c.do(ctx, backend.OpCreateEdge, http.MethodPost, path("edges"), req, &e)
	return e, err
}

func (c *Client) DeleteEdge(ctx context.Context, edgeID nodeid.ID) error {
	return c.do(ctx, backend.OpDeleteEdge, http.MethodDelete, path("edges", edgeID.String()), nil, nil)
}

func (c *Client) DeleteSingleNode(ctx context.Context, kind node.Kind, id nodeid.ID) error {
	return c.do(ctx, backend.OpDeleteSingleNode, http.MethodDelete, path("nodes", kind.String(), id.String()), nil, nil)
}

func (c *Client) ResetCategoryLayout(ctx context.Context, categoryID nodeid.ID) error {
	return c.do(ctx, backend.OpResetCategoryLayout, http.MethodPost, path("categories", categoryID.String(), "reset-layout"), nil, nil)
}

func (c *Client) UpdateNodePosition(ctx context.Context, kind node.Kind, id nodeid.ID, pos model.Position) error {
	return c.do(ctx, backend.OpUpdateNodePosition, http.MethodPatch, path("nodes", kind.String(), id.String(), "position"), pos, nil)
}

func (c *Client) GetFlowState(ctx context.Context, leagueID string) (backend.FlowState, error) {
	var s backend.FlowState
	err := c.do(ctx, backend.OpGetFlowState, http.MethodGet, path("leagues", leagueID, "flow"), nil, &s)
	return s, err
}

func (c *Client) GenerateMatches(ctx context.Context, roundID nodeid.ID) (backend.TriggerResult, error) {
	return c.trigger(ctx, backend.OpGenerateMatches, path("rounds", roundID.String(), "generate-matches"))
}

func (c *Client) ProgressRound(ctx context.Context, roundID nodeid.ID) (backend.TriggerResult, error) {
	return c.trigger(ctx, backend.OpProgressRound, path("rounds", roundID.String(), "progress"))
}

func (c *Client) ResetRound(ctx context.Context, roundID nodeid.ID) (backend.TriggerResult, error) {
	return c.trigger(ctx, backend.OpResetRound, path("rounds", roundID.String(), "reset"))
}

func (c *Client) SynchronizeBracket(ctx context.Context, categoryID nodeid.ID) (backend.TriggerResult, error) {
	return c.trigger(ctx, backend.OpSynchronizeBracket, path("categories", categoryID.String(), "synchronize-bracket"))
}

func (c *Client) trigger(ctx context.Context, op backend.Op, p string) (backend.TriggerResult, error) {
	var res backend.TriggerResult
	err := c.do(ctx, op, http.MethodPost, p, nil, &res)
	return res, err
}
