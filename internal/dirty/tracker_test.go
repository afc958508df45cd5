package dirty

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/bracketflow/internal/backend"
	"github.com/vk/bracketflow/internal/flowerr"
	"github.com/vk/bracketflow/internal/graphstore"
	"github.com/vk/bracketflow/internal/memorybackend"
	"github.com/vk/bracketflow/internal/model"
	"github.com/vk/bracketflow/internal/node"
	"github.com/vk/bracketflow/internal/nodeid"
	"github.com/vk/bracketflow/internal/testutil"
)

func loaded() []*node.Node {
	return []*node.Node{
		testutil.CategoryNode("c1", "Open"),
		testutil.RoundNode("r1", "c1", model.Elimination),
		testutil.RoundNode("r2", "c1", model.SemiFinal),
		testutil.FormatNode("f1", "RoundRobin"),
	}
}

func snap(nodes ...*node.Node) *graphstore.Snapshot {
	return graphstore.NewSnapshot(1, nodes, nil)
}

func TestChanges(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		edit      func(nodes []*node.Node) []*node.Node
		wantIDs   []nodeid.ID
		wantRound bool
	}{
		{
			name:    "untouched",
			edit:    func(nodes []*node.Node) []*node.Node { return nodes },
			wantIDs: nil,
		},
		{
			name: "category moves are ignored",
			edit: func(nodes []*node.Node) []*node.Node {
				nodes[0].Position = model.Position{X: 1}
				return nodes
			},
		},
		{
			name: "moved format",
			edit: func(nodes []*node.Node) []*node.Node {
				nodes[3].Position = model.Position{X: 1}
				return nodes
			},
			wantIDs: []nodeid.ID{"f1"},
		},
		{
			name: "round status",
			edit: func(nodes []*node.Node) []*node.Node {
				nodes[1].AsRound().RoundStatus = model.RoundInProgress
				return nodes
			},
			wantIDs:   []nodeid.ID{"r1"},
			wantRound: true,
		},
		{
			name: "round format",
			edit: func(nodes []*node.Node) []*node.Node {
				nodes[1].AsRound().SetFormat(model.Format{FormatType: "Knockout"})
				return nodes
			},
			wantIDs:   []nodeid.ID{"r1"},
			wantRound: true,
		},
		{
			name: "next round",
			edit: func(nodes []*node.Node) []*node.Node {
				nodes[1].AsRound().NextRoundID = "r2"
				return nodes
			},
			wantIDs:   []nodeid.ID{"r1"},
			wantRound: true,
		},
		{
			name: "durable node missing from the baseline",
			edit: func(nodes []*node.Node) []*node.Node {
				return append(nodes, testutil.RoundNode("r3", "c1", model.Final))
			},
			wantIDs:   []nodeid.ID{"r3"},
			wantRound: true,
		},
		{
			name: "temporary nodes are not tracked",
			edit: func(nodes []*node.Node) []*node.Node {
				return append(nodes, node.New(nodeid.NewTemporary(), node.Format, model.Position{}))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// Arrange
			tr := New()
			tr.Reset(loaded())

			// Act
			changes := tr.Changes(snap(tc.edit(loaded())...))

			// Assert
			var ids []nodeid.ID
			for _, c := range changes {
				ids = append(ids, c.Node.ID)
				assert.Equal(t, tc.wantRound, c.RoundChanged)
			}
			assert.Equal(t, tc.wantIDs, ids)
			assert.Equal(t, len(tc.wantIDs) > 0, tr.HasUnsavedChanges(snap(tc.edit(loaded())...)))
		})
	}
}

func TestRecordDeletion(t *testing.T) {
	t.Parallel()

	tr := New()
	tr.Reset(loaded())
	nodes := loaded()

	tr.RecordDeletion(nodes[2])
	tr.RecordDeletion(nodes[2])
	tr.RecordDeletion(nodes[0])
	tr.RecordDeletion(nodes[3])
	tr.RecordDeletion(node.New(nodeid.NewTemporary(), node.Round, model.Position{}))

	ids, kinds := tr.Deleted()
	assert.Equal(t, []nodeid.ID{"r2"}, ids)
	assert.Equal(t, node.Round, kinds["r2"])
	assert.Equal(t, 1, tr.Count(snap(nodes[0], nodes[1], nodes[3])))
}

func TestForgetCategory(t *testing.T) {
	t.Parallel()

	// Arrange
	tr := New()
	nodes := append(loaded(), testutil.CategoryNode("c2", "Masters"), testutil.RoundNode("r9", "c2", model.Final))
	tr.Reset(nodes)
	tr.RecordDeletion(nodes[1])
	tr.RecordDeletion(nodes[5])

	// Act
	tr.ForgetCategory("c1")

	// Assert
	ids, _ := tr.Deleted()
	assert.Equal(t, []nodeid.ID{"r9"}, ids)
	assert.Equal(t, 1, tr.Count(snap(nodes[0], nodes[4])))

	tr.ForgetCategory("c2")
	assert.False(t, tr.HasUnsavedChanges(snap(nodes[0], nodes[4])))
}

func TestSave_AfterCategoryReset(t *testing.T) {
	t.Parallel()
	ctx := testutil.Context(t)

	// Arrange: r1 deleted on the canvas, then its category reset on the backend.
	mem := memorybackend.New("league-1")
	mem.Seed(loaded(), nil)
	tr := New()
	tr.Reset(loaded())
	nodes := loaded()
	tr.RecordDeletion(nodes[1])
	require.NoError(t, mem.ResetCategoryLayout(ctx, "c1"))
	tr.ForgetCategory("c1")
	current := snap(nodes[0], nodes[3])

	// Act
	err := tr.Save(ctx, mem, current, 1)

	// Assert
	require.NoError(t, err)
	assert.False(t, tr.HasUnsavedChanges(current))
	assert.Empty(t, mem.CallsOf(backend.OpDeleteSingleNode))
}

func TestSave(t *testing.T) {
	t.Parallel()
	ctx := testutil.Context(t)

	// Arrange
	mem := memorybackend.New("league-1")
	mem.Seed(loaded(), nil)
	tr := New()
	tr.Reset(loaded())

	nodes := loaded()
	nodes[1].Position = model.Position{X: 40, Y: 50}
	nodes[1].AsRound().NextRoundID = "r2"
	nodes[1].AsRound().SetFormat(model.Format{FormatType: "RoundRobin"})
	deleted := nodes[2]
	tr.RecordDeletion(deleted)
	current := snap(nodes[0], nodes[1], nodes[3])
	require.Equal(t, 2, tr.Count(current))

	// Act
	err := tr.Save(ctx, mem, current, 2)

	// Assert
	require.NoError(t, err)
	assert.False(t, tr.HasUnsavedChanges(current))
	assert.Len(t, mem.CallsOf(backend.OpUpdateNodePosition), 1)
	assert.Len(t, mem.CallsOf(backend.OpUpdateRound), 1)
	assert.Len(t, mem.CallsOf(backend.OpDeleteSingleNode), 1)

	r1, _ := mem.Entity("r1")
	assert.Equal(t, model.Position{X: 40, Y: 50}, r1.Position)
	assert.Equal(t, nodeid.ID("r2"), r1.AsRound().NextRoundID)
	require.NotNil(t, r1.AsRound().RoundFormat)
	assert.Equal(t, "RoundRobin", r1.AsRound().RoundFormat.FormatType)
	_, ok := mem.Entity("r2")
	assert.False(t, ok)
}

func TestRoundUpdate_NeverSendsTemporaryFormatID(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		formatID nodeid.ID
		want     nodeid.ID
	}{
		{name: "temporary", formatID: nodeid.NewTemporary(), want: ""},
		{name: "permanent", formatID: "f1", want: "f1"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			n := testutil.RoundNode("r1", "c1", model.Elimination)
			n.AsRound().SetFormat(model.Format{FormatID: tc.formatID, FormatType: "RoundRobin"})

			u := RoundUpdate(n)

			require.NotNil(t, u.RoundFormat)
			assert.Equal(t, tc.want, u.RoundFormat.FormatID)
			assert.Equal(t, "RoundRobin", u.RoundFormat.FormatType)
			assert.Equal(t, tc.formatID, n.AsRound().RoundFormat.FormatID, "the canvas copy is untouched")
		})
	}
}

func TestSave_PartialFailureStaysDirty(t *testing.T) {
	t.Parallel()
	ctx := testutil.Context(t)

	// Arrange
	mem := memorybackend.New("league-1")
	mem.Seed(loaded(), nil)
	mem.Fail(backend.OpUpdateRound, errors.New("locked"))
	tr := New()
	tr.Reset(loaded())

	nodes := loaded()
	nodes[1].AsRound().RoundStatus = model.RoundCompleted
	nodes[3].Position = model.Position{X: 9}
	current := snap(nodes...)

	// Act
	err := tr.Save(ctx, mem, current, 0)

	// Assert
	require.Error(t, err)
	assert.True(t, flowerr.IsKind(err, flowerr.SaveFailure))
	assert.ErrorContains(t, err, "1 of 2 changes")
	assert.ErrorContains(t, err, "locked")

	changes := tr.Changes(current)
	require.Len(t, changes, 1)
	assert.Equal(t, nodeid.ID("r1"), changes[0].Node.ID)
}

func TestSave_NothingToDo(t *testing.T) {
	t.Parallel()
	ctx := testutil.Context(t)
	mem := memorybackend.New("league-1")
	tr := New()
	tr.Reset(loaded())

	require.NoError(t, tr.Save(ctx, mem, snap(loaded()...), 1))
	assert.Empty(t, mem.Calls())
}

func TestRoundUpdate(t *testing.T) {
	t.Parallel()

	n := testutil.RoundNode("r1", "c1", model.Elimination)
	u := RoundUpdate(n)
	assert.True(t, u.ClearFormat)
	assert.Nil(t, u.RoundFormat)
	require.NotNil(t, u.NextRoundID)
	assert.Equal(t, nodeid.ID(""), *u.NextRoundID)

	n.AsRound().SetFormat(model.Format{FormatType: "Knockout"})
	u = RoundUpdate(n)
	assert.False(t, u.ClearFormat)
	assert.Equal(t, "Knockout", u.RoundFormat.FormatType)
}
