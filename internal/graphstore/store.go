// Package graphstore defines the interface for holding the node list and edge
// list of a tournament canvas while an operator edits it.
//
// # Why Graph Store Exists
//
// Every gesture on a canvas ends as a structural change to the graph: a node is
// dropped, an edge is drawn, a temporary id is promoted, a subtree is removed.
// The graph store is the single place where those changes are applied, so the
// pipeline, the cascade resolver and the dirty tracker never manipulate node or
// edge slices themselves.
//
// # The Synchronous Mirror
//
// Gestures run their backend round trips on their own goroutines and several
// gestures may be in flight at once. A continuation that resumes after a round
// trip must observe the latest promoted ids, not the ids that were current
// when its gesture started. Mirror returns an immutable Snapshot that the
// store replaces before any mutating call returns, so a continuation that
// reads Mirror after ReplaceNodeID sees the permanent id.
//
// # Lifecycle
//
// A store is:
//  1. **Created** when an editing session mounts
//  2. **Hydrated** from the backend's flow state
//  3. **Mutated** by gestures for the life of the session
//  4. **Discarded** when the session closes (the server stays the source of truth)
package graphstore

import (
	"context"
	"errors"

	"github.com/vk/bracketflow/internal/model"
	"github.com/vk/bracketflow/internal/node"
	"github.com/vk/bracketflow/internal/nodeid"
)

var (
	// ErrNodeNotFound is returned when an operation names a node the store does not hold.
	ErrNodeNotFound = errors.New("node not found")
	// ErrNodeExists is returned when adding or promoting to an id already in use.
	ErrNodeExists = errors.New("node already exists")
	// ErrDanglingEdge is returned when an edge would reference a missing node.
	ErrDanglingEdge = errors.New("edge references a missing node")
)

// Store is the interface for the graph of one canvas.
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent use. Gestures are not serialized
// against each other, so independent goroutines add, promote and remove nodes
// at the same time.
//
// # Typical Implementation
//
// See internal/inmemorygraph for the reference implementation.
type Store interface {
	// Hydrate replaces the whole graph, typically with the backend's flow state.
	// Edges whose endpoints are missing are dropped.
	Hydrate(ctx context.Context, nodes []*node.Node, edges []node.Edge)

	// AddNode inserts a node. Returns ErrNodeExists if the id is taken.
	AddNode(ctx context.Context, n *node.Node) error

	// RemoveNodes removes the given nodes and every edge incident to them in a
	// single step. It is not cascade-aware: descendants are left in place.
	// Unknown ids are ignored. The removed nodes and edges are returned.
	RemoveNodes(ctx context.Context, ids ...nodeid.ID) Removed

	// UpdateNodeData applies mutate to a copy of the node and stores the result.
	// mutate must not change the node's id or kind.
	UpdateNodeData(ctx context.Context, id nodeid.ID, mutate func(n *node.Node)) error

	// SetPosition moves a node.
	SetPosition(ctx context.Context, id nodeid.ID, pos model.Position) error

	// ReplaceNodeID swaps a temporary node for its permanent counterpart. Every
	// edge endpoint, match port and data reference to tempID is rewritten to the
	// permanent id, and the mirror is updated before the call returns.
	ReplaceNodeID(ctx context.Context, tempID nodeid.ID, permanent *node.Node) error

	// ApplyEdgeDelta adds, removes and replaces edges atomically. Either the
	// whole delta is applied or, on ErrDanglingEdge, nothing is.
	ApplyEdgeDelta(ctx context.Context, delta EdgeDelta) error

	// MarkSelected sets the selection flag of the given nodes and clears it on
	// every other node.
	MarkSelected(ctx context.Context, ids ...nodeid.ID)

	// Node returns a copy of a node.
	Node(ctx context.Context, id nodeid.ID) (*node.Node, bool)

	// Edge returns an edge.
	Edge(ctx context.Context, id nodeid.ID) (node.Edge, bool)

	// Nodes returns copies of all nodes in insertion order.
	Nodes(ctx context.Context) []*node.Node

	// Edges returns all edges in insertion order.
	Edges(ctx context.Context) []node.Edge

	// Mirror returns the latest published snapshot. It never blocks on writers.
	Mirror() *Snapshot
}

// EdgeDelta is a batch of edge changes.
type EdgeDelta struct {
	Add     []node.Edge
	Remove  []nodeid.ID
	Replace []EdgeReplacement
}

// EdgeReplacement swaps the edge with id Old for New, typically a temporary
// edge for the durable edge returned by the backend.
type EdgeReplacement struct {
	Old nodeid.ID
	New node.Edge
}

// Removed reports what a RemoveNodes call took out of the graph.
type Removed struct {
	Nodes []*node.Node
	Edges []node.Edge
}
