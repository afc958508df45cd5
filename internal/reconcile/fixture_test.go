package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/bracketflow/internal/backend"
	"github.com/vk/bracketflow/internal/inmemorygraph"
	"github.com/vk/bracketflow/internal/memorybackend"
	"github.com/vk/bracketflow/internal/model"
	"github.com/vk/bracketflow/internal/node"
	"github.com/vk/bracketflow/internal/nodeid"
	"github.com/vk/bracketflow/internal/testutil"
	"github.com/vk/bracketflow/internal/validate"
)

type fixture struct {
	ctx      context.Context
	store    *inmemorygraph.Store
	backend  *memorybackend.Backend
	pipeline *Pipeline
}

// newFixture hydrates a store and a backend with the same durable graph.
func newFixture(t *testing.T, canvas validate.Canvas, nodes []*node.Node, edges []node.Edge) *fixture {
	t.Helper()
	ctx := testutil.Context(t)

	mem := memorybackend.New("league-1")
	stored := make([]backend.Edge, 0, len(edges))
	for _, e := range edges {
		stored = append(stored, backend.Edge{EdgeID: e.ID, SourceID: e.Source, TargetID: e.Target, SourceHandle: e.SourceHandle, TargetHandle: e.TargetHandle})
	}
	mem.Seed(nodes, stored)

	store := inmemorygraph.New()
	store.Hydrate(ctx, nodes, edges)

	return &fixture{
		ctx:      ctx,
		store:    store,
		backend:  mem,
		pipeline: New(store, mem, canvas, "league-1"),
	}
}

// drop places a temporary node on the canvas, the way a drop gesture does.
func (f *fixture) drop(t *testing.T, kind node.Kind, categoryID nodeid.ID, mutate func(n *node.Node)) nodeid.ID {
	t.Helper()
	n := node.New(nodeid.NewTemporary(), kind, model.Position{X: 100, Y: 200})
	n.ParentCategoryID = categoryID
	if mutate != nil {
		mutate(n)
	}
	require.NoError(t, f.store.AddNode(f.ctx, n))
	return n.ID
}

func (f *fixture) node(t *testing.T, id nodeid.ID) *node.Node {
	t.Helper()
	n, ok := f.store.Node(f.ctx, id)
	require.True(t, ok, "node %s missing from the store", id)
	return n
}

// bracket is a category with an elimination round, a group and one match.
func bracket() []*node.Node {
	return []*node.Node{
		testutil.CategoryNode("c1", "Open"),
		testutil.RoundNode("r1", "c1", model.Elimination),
		testutil.GroupNode("g1", "r1", "c1", "Group A", "Elimination"),
		testutil.MatchNode("m1", "r1", "g1", "c1"),
	}
}
