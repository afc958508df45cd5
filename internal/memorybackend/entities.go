package memorybackend

import (
	"context"
	"fmt"
	"slices"

	"github.com/vk/bracketflow/internal/backend"
	"github.com/vk/bracketflow/internal/model"
	"github.com/vk/bracketflow/internal/node"
	"github.com/vk/bracketflow/internal/nodeid"
)

func (b *Backend) CreateRound(ctx context.Context, req backend.CreateRoundRequest) (model.Round, error) {
	if err := b.begin(ctx, backend.OpCreateRound, req.CategoryID); err != nil {
		return model.Round{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.lookup(node.Category, req.CategoryID); err != nil {
		return model.Round{}, err
	}
	r := model.Round{
		RoundID:     newID(),
		CategoryID:  req.CategoryID,
		RoundName:   req.RoundName,
		RoundOrder:  req.RoundOrder,
		RoundStatus: model.RoundPending,
	}
	n := node.New(r.RoundID, node.Round, req.Position)
	n.ParentCategoryID = req.CategoryID
	n.Data = &node.RoundData{Round: r}
	b.put(n)
	return r.Clone(), nil
}

func (b *Backend) CreateGroup(ctx context.Context, req backend.CreateGroupRequest) (model.Group, error) {
	if err := b.begin(ctx, backend.OpCreateGroup, req.RoundID); err != nil {
		return model.Group{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.lookup(node.Round, req.RoundID); err != nil {
		return model.Group{}, err
	}
	g := model.Group{GroupID: newID(), RoundID: req.RoundID, CategoryID: req.CategoryID, DisplayName: req.DisplayName}
	n := node.New(g.GroupID, node.Group, req.Position)
	n.ParentCategoryID = req.CategoryID
	n.Data = &node.GroupData{Group: g, RoundName: req.RoundName}
	b.put(n)
	return g, nil
}

func (b *Backend) CreateEmptyMatch(ctx context.Context, req backend.CreateMatchRequest) (model.Match, error) {
	if err := b.begin(ctx, backend.OpCreateEmptyMatch, req.Match.RoundID); err != nil {
		return model.Match{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.lookup(node.Round, req.Match.RoundID); err != nil {
		return model.Match{}, err
	}
	m := req.Match.Clone()
	m.LeagueMatchID = newID()
	if m.DependsOnMatchIDs == nil {
		m.DependsOnMatchIDs = []nodeid.ID{}
	}
	n := node.New(m.LeagueMatchID, node.Match, req.Position)
	n.ParentCategoryID = m.CategoryID
	data := &node.MatchData{Match: m}
	if m.IsSpecial() {
		data.Label = m.DisplayName
	}
	n.Data = data
	b.put(n)
	return m.Clone(), nil
}

func (b *Backend) UpdateMatch(ctx context.Context, matchID nodeid.ID, fields model.MatchUpdate) error {
	if err := b.begin(ctx, backend.OpUpdateMatch, matchID); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	n, err := b.lookup(node.Match, matchID)
	if err != nil {
		return err
	}
	fields.Apply(n.AsMatch())
	return nil
}

func (b *Backend) UpdateRound(ctx context.Context, roundID nodeid.ID, fields model.RoundUpdate) error {
	if err := b.begin(ctx, backend.OpUpdateRound, roundID); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	n, err := b.lookup(node.Round, roundID)
	if err != nil {
		return err
	}
	fields.Apply(n.AsRound())
	return nil
}

func (b *Backend) EliminateTeam(ctx context.Context, matchID nodeid.ID, teamID string) error {
	if err := b.begin(ctx, backend.OpEliminateTeam, matchID); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	n, err := b.lookup(node.Match, matchID)
	if err != nil {
		return err
	}
	m := n.AsMatch()
	if !m.IsRoundRobin {
		return fmt.Errorf("match %s is not a round robin match", matchID)
	}
	if !slices.Contains(m.EliminatedTeamIDs, teamID) {
		m.EliminatedTeamIDs = append(m.EliminatedTeamIDs, teamID)
	}
	return nil
}

func (b *Backend) DeleteSingleNode(ctx context.Context, kind node.Kind, id nodeid.ID) error {
	if err := b.begin(ctx, backend.OpDeleteSingleNode, id); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.lookup(kind, id); err != nil {
		return err
	}
	b.remove(id)
	return nil
}

// ResetCategoryLayout removes every entity reachable from the category.
func (b *Backend) ResetCategoryLayout(ctx context.Context, categoryID nodeid.ID) error {
	if err := b.begin(ctx, backend.OpResetCategoryLayout, categoryID); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.lookup(node.Category, categoryID); err != nil {
		return err
	}
	var descendants []nodeid.ID
	for _, id := range b.order {
		if id != categoryID && b.nodes[id].CategoryID() == categoryID {
			descendants = append(descendants, id)
		}
	}
	b.remove(descendants...)
	return nil
}

func (b *Backend) UpdateNodePosition(ctx context.Context, kind node.Kind, id nodeid.ID, pos model.Position) error {
	if err := b.begin(ctx, backend.OpUpdateNodePosition, id); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	n, err := b.lookup(kind, id)
	if err != nil {
		return err
	}
	n.Position = pos
	return nil
}

func (b *Backend) GetFlowState(ctx context.Context, leagueID string) (backend.FlowState, error) {
	if err := b.begin(ctx, backend.OpGetFlowState, nodeid.ID(leagueID)); err != nil {
		return backend.FlowState{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if leagueID != b.leagueID {
		return backend.FlowState{}, fmt.Errorf("league %q not found", leagueID)
	}
	state := backend.FlowState{
		Nodes: make([]backend.FlowNode, 0, len(b.order)),
		Edges: slices.Clone(b.edges),
	}
	for _, id := range b.order {
		state.Nodes = append(state.Nodes, backend.FromNode(b.nodes[id]))
	}
	return state, nil
}
