package cascade

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/bracketflow/internal/backend"
	"github.com/vk/bracketflow/internal/flowerr"
	"github.com/vk/bracketflow/internal/graphstore"
	"github.com/vk/bracketflow/internal/inmemorygraph"
	"github.com/vk/bracketflow/internal/memorybackend"
	"github.com/vk/bracketflow/internal/model"
	"github.com/vk/bracketflow/internal/node"
	"github.com/vk/bracketflow/internal/nodeid"
	"github.com/vk/bracketflow/internal/port"
	"github.com/vk/bracketflow/internal/testutil"
	"github.com/vk/bracketflow/internal/validate"
)

type recorder struct {
	deleted   []nodeid.ID
	forgotten []nodeid.ID
}

func (r *recorder) RecordDeletion(n *node.Node) { r.deleted = append(r.deleted, n.ID) }

func (r *recorder) ForgetCategory(id nodeid.ID) { r.forgotten = append(r.forgotten, id) }

type fixture struct {
	ctx      context.Context
	store    *inmemorygraph.Store
	backend  *memorybackend.Backend
	deferred *recorder
	resolver *Resolver
}

func newFixture(t *testing.T, canvas validate.Canvas, confirm Confirmer, nodes []*node.Node, edges []node.Edge) *fixture {
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
	deferred := &recorder{}
	return &fixture{
		ctx:      ctx,
		store:    store,
		backend:  mem,
		deferred: deferred,
		resolver: New(store, mem, canvas, confirm, deferred),
	}
}

// twoBrackets builds category c1 with seven reachable descendants and an
// unrelated category c2 with one round.
func twoBrackets() ([]*node.Node, []node.Edge) {
	nodes := []*node.Node{
		testutil.CategoryNode("c1", "Open"),
		testutil.RoundNode("r1", "c1", model.Elimination),
		testutil.RoundNode("r2", "c1", model.SemiFinal),
		testutil.GroupNode("g1", "r1", "c1", "Group A", "Elimination"),
		testutil.MatchNode("m1", "r1", "g1", "c1"),
		testutil.MatchNode("m2", "r1", "g1", "c1"),
		testutil.MatchNode("m3", "r2", "", "c1"),
		testutil.MatchNode("m4", "r2", "", "c1"),
		testutil.CategoryNode("c2", "Juniors"),
		testutil.RoundNode("r9", "c2", model.Elimination),
	}
	edges := []node.Edge{
		testutil.Edge("e1", "c1", port.CategoryOut, "r1", port.RoundIn),
		testutil.Edge("e2", "c1", port.CategoryOut, "r2", port.RoundIn),
		testutil.Edge("e3", "r1", port.RoundOut, "g1", port.GroupIn),
		testutil.Edge("e4", "g1", port.GroupOut, "m1", port.MatchIn),
		testutil.Edge("e5", "g1", port.GroupOut, "m2", port.MatchIn),
		testutil.Edge("e6", "m1", port.Winner("m1"), "m3", port.MatchIn),
		testutil.Edge("e7", "m2", port.Winner("m2"), "m3", port.MatchIn),
		testutil.Edge("e8", "r2", port.RoundOut, "m4", port.MatchIn),
		testutil.Edge("e9", "m3", port.Winner("m3"), "m4", port.MatchIn),
		testutil.Edge("e10", "c2", port.CategoryOut, "r9", port.RoundIn),
	}
	return nodes, edges
}

func TestReachable(t *testing.T) {
	t.Parallel()

	_, edges := twoBrackets()
	got := Reachable(edges, "c1")
	assert.ElementsMatch(t, []nodeid.ID{"r1", "r2", "g1", "m1", "m2", "m3", "m4"}, got)
	assert.Equal(t, []nodeid.ID{"r1", "r2"}, got[:2], "breadth first")

	cyclic := []node.Edge{
		testutil.Edge("a", "x", "", "y", ""),
		testutil.Edge("b", "y", "", "x", ""),
	}
	assert.Equal(t, []nodeid.ID{"y"}, Reachable(cyclic, "x"))
	assert.Empty(t, Reachable(nil, "x"))
}

func TestRemoveNode_CategoryCascade(t *testing.T) {
	t.Parallel()

	// Arrange
	nodes, edges := twoBrackets()
	f := newFixture(t, validate.Manual, AlwaysConfirm, nodes, edges)

	// Act
	removed, err := f.resolver.RemoveNode(f.ctx, "c1")

	// Assert
	require.NoError(t, err)
	assert.Len(t, removed.Nodes, 7)
	assert.Len(t, removed.Edges, 9)
	assert.Len(t, f.backend.Calls(), 1, "one cascade call, not one per node")
	assert.Len(t, f.backend.CallsOf(backend.OpResetCategoryLayout), 1)

	var left []nodeid.ID
	for _, n := range f.store.Nodes(f.ctx) {
		left = append(left, n.ID)
	}
	assert.Equal(t, []nodeid.ID{"c1", "c2", "r9"}, left)
	require.Len(t, f.store.Edges(f.ctx), 1)
	assert.Equal(t, nodeid.ID("e10"), f.store.Edges(f.ctx)[0].ID)
}

func TestRemoveNode_CategoryNotConfirmed(t *testing.T) {
	t.Parallel()

	nodes, edges := twoBrackets()
	var prompts []string
	deny := ConfirmFunc(func(_ context.Context, prompt string) bool {
		prompts = append(prompts, prompt)
		return false
	})
	f := newFixture(t, validate.Manual, deny, nodes, edges)

	removed, err := f.resolver.RemoveNode(f.ctx, "c1")

	require.NoError(t, err)
	assert.Empty(t, removed.Nodes)
	assert.Empty(t, f.backend.Calls())
	assert.Len(t, f.store.Nodes(f.ctx), len(nodes))
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "category Open")
}

func TestRemoveNode_CategoryResetFails(t *testing.T) {
	t.Parallel()

	nodes, edges := twoBrackets()
	f := newFixture(t, validate.Manual, AlwaysConfirm, nodes, edges)
	f.backend.Fail(backend.OpResetCategoryLayout, errors.New("forbidden"))

	_, err := f.resolver.RemoveNode(f.ctx, "c1")

	assert.True(t, flowerr.IsKind(err, flowerr.DeleteFailure))
	assert.Len(t, f.store.Nodes(f.ctx), len(nodes))
	assert.Len(t, f.store.Edges(f.ctx), len(edges))
}

func TestRemoveNode_SingleDurable(t *testing.T) {
	t.Parallel()

	// Arrange
	nodes, edges := twoBrackets()
	nodes[4].AsMatch().NextMatchID = "m3"
	f := newFixture(t, validate.Manual, nil, nodes, edges)

	// Act
	removed, err := f.resolver.RemoveNode(f.ctx, "m3")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []memorybackend.Call{{Op: backend.OpDeleteSingleNode, ID: "m3"}}, f.backend.Calls())
	assert.Len(t, removed.Edges, 3)

	_, ok := f.store.Node(f.ctx, "m4")
	assert.True(t, ok, "dependents are not removed")
	m1, _ := f.store.Node(f.ctx, "m1")
	assert.Equal(t, nodeid.ID(""), m1.AsMatch().NextMatchID, "back references to the removed match are cleared")
}

func TestRemoveNode_DeleteFailureKeepsNode(t *testing.T) {
	t.Parallel()

	nodes, edges := twoBrackets()
	f := newFixture(t, validate.Manual, nil, nodes, edges)
	f.backend.Fail(backend.OpDeleteSingleNode, errors.New("has results"))

	_, err := f.resolver.RemoveNode(f.ctx, "g1")

	assert.True(t, flowerr.IsKind(err, flowerr.DeleteFailure))
	_, ok := f.store.Node(f.ctx, "g1")
	assert.True(t, ok)
	assert.Len(t, f.store.Edges(f.ctx), len(edges))
}

func TestRemoveNode_TemporaryIsLocal(t *testing.T) {
	t.Parallel()

	f := newFixture(t, validate.Manual, nil, []*node.Node{testutil.CategoryNode("c1", "Open")}, nil)
	tmp := node.New(nodeid.NewTemporary(), node.Round, model.Position{})
	require.NoError(t, f.store.AddNode(f.ctx, tmp))

	_, err := f.resolver.RemoveNode(f.ctx, tmp.ID)

	require.NoError(t, err)
	assert.Empty(t, f.backend.Calls())
	_, ok := f.store.Node(f.ctx, tmp.ID)
	assert.False(t, ok)
}

func TestRemoveNode_FormatClearsRound(t *testing.T) {
	t.Parallel()

	round := testutil.RoundNode("r1", "c1", model.Elimination)
	round.AsRound().SetFormat(model.Format{FormatID: "f1", FormatType: "RoundRobin"})
	format := testutil.FormatNode("f1", "RoundRobin")
	format.AsFormat().RoundID = "r1"
	f := newFixture(t, validate.Automatic, nil,
		[]*node.Node{testutil.CategoryNode("c1", "Open"), round, format},
		[]node.Edge{testutil.Edge("e1", "r1", port.Bottom, "f1", port.Top)},
	)

	_, err := f.resolver.RemoveNode(f.ctx, "f1")

	require.NoError(t, err)
	r1, _ := f.store.Node(f.ctx, "r1")
	assert.Nil(t, r1.AsRound().RoundFormat)
	assert.Empty(t, f.store.Edges(f.ctx))
	assert.Empty(t, f.backend.Calls())
	assert.Empty(t, f.deferred.deleted)
}

func TestRemoveNode_AutomaticDefersDelete(t *testing.T) {
	t.Parallel()

	f := newFixture(t, validate.Automatic, nil,
		[]*node.Node{
			testutil.CategoryNode("c1", "Open"),
			testutil.RoundNode("r1", "c1", model.Elimination),
			testutil.RoundNode("r2", "c1", model.SemiFinal),
		},
		[]node.Edge{testutil.Edge("e1", "r1", port.RoundOut, "r2", port.RoundIn)},
	)
	require.NoError(t, f.store.UpdateNodeData(f.ctx, "r1", func(n *node.Node) { n.AsRound().NextRoundID = "r2" }))

	_, err := f.resolver.RemoveNode(f.ctx, "r2")

	require.NoError(t, err)
	assert.Empty(t, f.backend.Calls())
	assert.Equal(t, []nodeid.ID{"r2"}, f.deferred.deleted)
	r1, _ := f.store.Node(f.ctx, "r1")
	assert.Equal(t, nodeid.ID(""), r1.AsRound().NextRoundID)
}

func TestRemoveNode_AutomaticResetForgetsCategory(t *testing.T) {
	t.Parallel()

	f := newFixture(t, validate.Automatic, nil,
		[]*node.Node{
			testutil.CategoryNode("c1", "Open"),
			testutil.RoundNode("r1", "c1", model.Elimination),
		},
		[]node.Edge{testutil.Edge("e1", "c1", port.CategoryOut, "r1", port.RoundIn)},
	)

	_, err := f.resolver.RemoveNode(f.ctx, "r1")
	require.NoError(t, err)
	_, err = f.resolver.RemoveNode(f.ctx, "c1")
	require.NoError(t, err)

	assert.Equal(t, []nodeid.ID{"r1"}, f.deferred.deleted)
	assert.Equal(t, []nodeid.ID{"c1"}, f.deferred.forgotten)
	assert.Len(t, f.backend.CallsOf(backend.OpResetCategoryLayout), 1)
}

func TestRemoveNode_FailedResetKeepsDeletions(t *testing.T) {
	t.Parallel()

	f := newFixture(t, validate.Automatic, nil,
		[]*node.Node{testutil.CategoryNode("c1", "Open")}, nil)
	f.backend.Fail(backend.OpResetCategoryLayout, errors.New("forbidden"))

	_, err := f.resolver.RemoveNode(f.ctx, "c1")

	assert.True(t, flowerr.IsKind(err, flowerr.DeleteFailure))
	assert.Empty(t, f.deferred.forgotten)
}

func TestRemoveEdge(t *testing.T) {
	t.Parallel()

	t.Run("match link is cleared and persisted", func(t *testing.T) {
		t.Parallel()
		nodes, edges := twoBrackets()
		nodes[4].AsMatch().NextMatchID = "m3"
		nodes[6].AsMatch().DependsOnMatchIDs = []nodeid.ID{"m1", "m2"}
		f := newFixture(t, validate.Manual, nil, nodes, edges)

		require.NoError(t, f.resolver.RemoveEdge(f.ctx, "e6"))

		m1, _ := f.store.Node(f.ctx, "m1")
		m3, _ := f.store.Node(f.ctx, "m3")
		assert.Equal(t, nodeid.ID(""), m1.AsMatch().NextMatchID)
		assert.Equal(t, []nodeid.ID{"m2"}, m3.AsMatch().DependsOnMatchIDs)
		assert.Len(t, f.backend.CallsOf(backend.OpDeleteEdge), 1)
		assert.Len(t, f.backend.CallsOf(backend.OpUpdateMatch), 2)

		stored, _ := f.backend.Entity("m3")
		assert.Equal(t, []nodeid.ID{"m2"}, stored.AsMatch().DependsOnMatchIDs)
	})

	t.Run("temporary edge is local", func(t *testing.T) {
		t.Parallel()
		nodes, edges := twoBrackets()
		f := newFixture(t, validate.Manual, nil, nodes, edges)
		tmp := testutil.Edge(nodeid.NewTemporaryEdge(), "r2", port.RoundOut, "m3", port.MatchIn)
		require.NoError(t, f.store.ApplyEdgeDelta(f.ctx, graphstoreAdd(tmp)))

		require.NoError(t, f.resolver.RemoveEdge(f.ctx, tmp.ID))

		assert.Empty(t, f.backend.Calls())
		assert.Len(t, f.store.Edges(f.ctx), len(edges))
	})

	t.Run("delete failure keeps the edge", func(t *testing.T) {
		t.Parallel()
		nodes, edges := twoBrackets()
		f := newFixture(t, validate.Manual, nil, nodes, edges)
		f.backend.Fail(backend.OpDeleteEdge, errors.New("nope"))

		err := f.resolver.RemoveEdge(f.ctx, "e3")

		assert.True(t, flowerr.IsKind(err, flowerr.DeleteFailure))
		_, ok := f.store.Edge(f.ctx, "e3")
		assert.True(t, ok)
	})

	t.Run("automatic round links", func(t *testing.T) {
		t.Parallel()
		r1 := testutil.RoundNode("r1", "c1", model.Elimination)
		r1.AsRound().NextRoundID = "r2"
		r1.AsRound().SetFormat(model.Format{FormatType: "Knockout"})
		format := testutil.FormatNode("f1", "Knockout")
		format.AsFormat().RoundID = "r1"
		f := newFixture(t, validate.Automatic, nil,
			[]*node.Node{testutil.CategoryNode("c1", "Open"), r1, testutil.RoundNode("r2", "c1", model.SemiFinal), format},
			[]node.Edge{
				testutil.Edge("e1", "r1", port.RoundOut, "r2", port.RoundIn),
				testutil.Edge("e2", "r1", port.Bottom, "f1", port.Top),
			},
		)

		require.NoError(t, f.resolver.RemoveEdge(f.ctx, "e1"))
		require.NoError(t, f.resolver.RemoveEdge(f.ctx, "e2"))

		round, _ := f.store.Node(f.ctx, "r1")
		assert.Equal(t, nodeid.ID(""), round.AsRound().NextRoundID)
		assert.Nil(t, round.AsRound().RoundFormat)
		fm, _ := f.store.Node(f.ctx, "f1")
		assert.Equal(t, nodeid.ID(""), fm.AsFormat().RoundID)
		assert.Empty(t, f.backend.Calls(), "round links are saved with the round")
	})
}

func graphstoreAdd(e node.Edge) graphstore.EdgeDelta {
	return graphstore.EdgeDelta{Add: []node.Edge{e}}
}
