package metrics

import (
	"context"
	"time"

	"github.com/vk/bracketflow/internal/backend"
	"github.com/vk/bracketflow/internal/model"
	"github.com/vk/bracketflow/internal/node"
	"github.com/vk/bracketflow/internal/nodeid"
)

// Instrumented wraps a Backend and records every call.
type Instrumented struct {
	next backend.Backend
	m    *Metrics
}

var _ backend.Backend = (*Instrumented)(nil)

// Instrument returns b wrapped with call counters and latency histograms.
func Instrument(b backend.Backend, m *Metrics) *Instrumented {
	return &Instrumented{next: b, m: m}
}

func (i *Instrumented) observe(op backend.Op, start time.Time, err error) {
	i.m.BackendCall(op, time.Since(start), err)
}

func (i *Instrumented) CreateRound(ctx context.Context, req backend.CreateRoundRequest) (r model.Round, err error) {
	defer func(start time.Time) { i.observe(backend.OpCreateRound, start, err) }(time.Now())
	return i.next.CreateRound(ctx, req)
}

func (i *Instrumented) CreateGroup(ctx context.Context, req backend.CreateGroupRequest) (g model.Group, err error) {
	defer func(start time.Time) { i.observe(backend.OpCreateGroup, start, err) }(time.Now())
	return i.next.CreateGroup(ctx, req)
}

func (i *Instrumented) CreateEmptyMatch(ctx context.Context, req backend.CreateMatchRequest) (m model.Match, err error) {
	defer func(start time.Time) { i.observe(backend.OpCreateEmptyMatch, start, err) }(time.Now())
	return i.next.CreateEmptyMatch(ctx, req)
}

func (i *Instrumented) UpdateMatch(ctx context.Context, matchID nodeid.ID, fields model.MatchUpdate) (err error) {
	defer func(start time.Time) { i.observe(backend.OpUpdateMatch, start, err) }(time.Now())
	return i.next.UpdateMatch(ctx, matchID, fields)
}

func (i *Instrumented) UpdateRound(ctx context.Context, roundID nodeid.ID, fields model.RoundUpdate) (err error) {
	defer func(start time.Time) { i.observe(backend.OpUpdateRound, start, err) }(time.Now())
	return i.next.UpdateRound(ctx, roundID, fields)
}

func (i *Instrumented) EliminateTeam(ctx context.Context, matchID nodeid.ID, teamID string) (err error) {
	defer func(start time.Time) { i.observe(backend.OpEliminateTeam, start, err) }(time.Now())
	return i.next.EliminateTeam(ctx, matchID, teamID)
}

func (i *Instrumented) CreateEdge(ctx context.Context, req backend.CreateEdgeRequest) (e backend.Edge, err error) {
	defer func(start time.Time) { i.observe(backend.OpCreateEdge, start, err) }(time.Now())
	return i.next.CreateEdge(ctx, req)
}

func (i *Instrumented) DeleteEdge(ctx context.Context, edgeID nodeid.ID) (err error) {
	defer func(start time.Time) { i.observe(backend.OpDeleteEdge, start, err) }(time.Now())
	return i.next.DeleteEdge(ctx, edgeID)
}

func (i *Instrumented) DeleteSingleNode(ctx context.Context, kind node.Kind, id nodeid.ID) (err error) {
	defer func(start time.Time) { i.observe(backend.OpDeleteSingleNode, start, err) }(time.Now())
	return i.next.DeleteSingleNode(ctx, kind, id)
}

func (i *Instrumented) ResetCategoryLayout(ctx context.Context, categoryID nodeid.ID) (err error) {
	defer func(start time.Time) { i.observe(backend.OpResetCategoryLayout, start, err) }(time.Now())
	return i.next.ResetCategoryLayout(ctx, categoryID)
}

func (i *Instrumented) UpdateNodePosition(ctx context.Context, kind node.Kind, id nodeid.ID, pos model.Position) (err error) {
	defer func(start time.Time) { i.observe(backend.OpUpdateNodePosition, start, err) }(time.Now())
	return i.next.UpdateNodePosition(ctx, kind, id, pos)
}

func (i *Instrumented) GetFlowState(ctx context.Context, leagueID string) (s backend.FlowState, err error) {
	defer func(start time.Time) { i.observe(backend.OpGetFlowState, start, err) }(time.Now())
	return i.next.GetFlowState(ctx, leagueID)
}

func (i *Instrumented) GenerateMatches(ctx context.Context, roundID nodeid.ID) (r backend.TriggerResult, err error) {
	defer func(start time.Time) { i.observe(backend.OpGenerateMatches, start, err) }(time.Now())
	return i.next.GenerateMatches(ctx, roundID)
}

func (i *Instrumented) ProgressRound(ctx context.Context, roundID nodeid.ID) (r backend.TriggerResult, err error) {
	defer func(start time.Time) { i.observe(backend.OpProgressRound, start, err) }(time.Now())
	return i.next.ProgressRound(ctx, roundID)
}

func (i *Instrumented) ResetRound(ctx context.Context, roundID nodeid.ID) (r backend.TriggerResult, err error) {
	defer func(start time.Time) { i.observe(backend.OpResetRound, start, err) }(time.Now())
	return i.next.ResetRound(ctx, roundID)
}

func (i *Instrumented) SynchronizeBracket(ctx context.Context, categoryID nodeid.ID) (r backend.TriggerResult, err error) {
	defer func(start time.Time) { i.observe(backend.OpSynchronizeBracket, start, err) }(time.Now())
	return i.next.SynchronizeBracket(ctx, categoryID)
}
