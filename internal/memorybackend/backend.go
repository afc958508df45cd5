// Package memorybackend is an in-process implementation of backend.Backend.
//
// It keeps a single league's structure in memory, issues ULIDs for every
// created entity and records each call it receives. Tests use the recorded
// calls and the failure hooks to observe the editor's network behavior; the
// CLI uses the package for -offline runs.
package memorybackend

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/vk/bracketflow/internal/backend"
	"github.com/vk/bracketflow/internal/ctxlog"
	"github.com/vk/bracketflow/internal/node"
	"github.com/vk/bracketflow/internal/nodeid"
)

// Call is one recorded Backend invocation.
type Call struct {
	Op backend.Op
	// ID is the primary entity the call was about, if any.
	ID nodeid.ID
}

// Backend implements backend.Backend in memory. It is safe for concurrent use.
type Backend struct {
	mu       sync.Mutex
	leagueID string
	nodes    map[nodeid.ID]*node.Node
	order    []nodeid.ID
	edges    []backend.Edge
	calls    []Call
	failures map[backend.Op]error
	hooks    map[backend.Op]func()
}

var _ backend.Backend = (*Backend)(nil)

// New creates an empty backend for a league.
func New(leagueID string) *Backend {
	return &Backend{
		leagueID: leagueID,
		nodes:    make(map[nodeid.ID]*node.Node),
		failures: make(map[backend.Op]error),
		hooks:    make(map[backend.Op]func()),
	}
}

// Seed stores nodes and edges as if they had been created earlier. It is not
// recorded as a call.
func (b *Backend) Seed(nodes []*node.Node, edges []backend.Edge) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, n := range nodes {
		b.put(n.Clone())
	}
	b.edges = append(b.edges, edges...)
}

// Fail makes every later call of op return err. A nil err clears the failure.
func (b *Backend) Fail(op backend.Op, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failures, op)
		return
	}
	b.failures[op] = err
}

// OnCall runs fn, outside the backend's lock, every time op is called and
// before the call is served. Tests use it to interleave gestures.
func (b *Backend) OnCall(op backend.Op, fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hooks[op] = fn
}

// Calls returns every recorded call in arrival order.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.calls)
}

// CallsOf returns the recorded calls of one operation.
func (b *Backend) CallsOf(op backend.Op) []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Call
	for _, c := range b.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Entity returns a copy of a stored entity.
func (b *Backend) Entity(id nodeid.ID) (*node.Node, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.nodes[id]
	return n.Clone(), ok
}

// StoredEdges returns the persisted edges.
func (b *Backend) StoredEdges() []backend.Edge {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.edges)
}

// begin records the call and returns the injected failure, if any. It must
// be called without the lock held.
func (b *Backend) begin(ctx context.Context, op backend.Op, id nodeid.ID) error {
	b.mu.Lock()
	hook := b.hooks[op]
	b.mu.Unlock()
	if hook != nil {
		hook()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, Call{Op: op, ID: id})
	ctxlog.FromContext(ctx).Debug("Backend call.", "op", op, "id", id)
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.failures[op]
}

func newID() nodeid.ID {
	return nodeid.ID(ulid.Make().String())
}

func (b *Backend) put(n *node.Node) {
	if _, ok := b.nodes[n.ID]; !ok {
		b.order = append(b.order, n.ID)
	}
	b.nodes[n.ID] = n
}

func (b *Backend) remove(ids ...nodeid.ID) {
	drop := make(map[nodeid.ID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
		delete(b.nodes, id)
	}
	b.order = slices.DeleteFunc(b.order, func(id nodeid.ID) bool { return drop[id] })
	b.edges = slices.DeleteFunc(b.edges, func(e backend.Edge) bool { return drop[e.SourceID] || drop[e.TargetID] })
}

func (b *Backend) lookup(kind node.Kind, id nodeid.ID) (*node.Node, error) {
	n, ok := b.nodes[id]
	if !ok || n.Kind != kind {
		return nil, fmt.Errorf("%s %s not found", kind, id)
	}
	return n, nil
}
