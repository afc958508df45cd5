package inmemorygraph

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/vk/bracketflow/internal/ctxlog"
	"github.com/vk/bracketflow/internal/graphstore"
	"github.com/vk/bracketflow/internal/model"
	"github.com/vk/bracketflow/internal/node"
	"github.com/vk/bracketflow/internal/nodeid"
)

// Store is the in-memory graph of a single canvas.
type Store struct {
	mu        sync.RWMutex
	nodes     map[nodeid.ID]*node.Node
	nodeOrder []nodeid.ID
	edges     map[nodeid.ID]node.Edge
	edgeOrder []nodeid.ID

	version uint64
	mirror  atomic.Pointer[graphstore.Snapshot]
}

var _ graphstore.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	s := &Store{
		nodes: make(map[nodeid.ID]*node.Node),
		edges: make(map[nodeid.ID]node.Edge),
	}
	s.mirror.Store(graphstore.NewSnapshot(0, nil, nil))
	return s
}

// Hydrate implements graphstore.Store.
func (s *Store) Hydrate(ctx context.Context, nodes []*node.Node, edges []node.Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = make(map[nodeid.ID]*node.Node, len(nodes))
	s.nodeOrder = s.nodeOrder[:0]
	s.edges = make(map[nodeid.ID]node.Edge, len(edges))
	s.edgeOrder = s.edgeOrder[:0]

	for _, n := range nodes {
		if _, dup := s.nodes[n.ID]; dup {
			continue
		}
		s.nodes[n.ID] = n.Clone()
		s.nodeOrder = append(s.nodeOrder, n.ID)
	}
	dropped := 0
	for _, e := range edges {
		if !s.hasEndpoints(e) {
			dropped++
			continue
		}
		s.edges[e.ID] = e
		s.edgeOrder = append(s.edgeOrder, e.ID)
	}
	ctxlog.FromContext(ctx).Debug("Graph hydrated.", "nodes", len(s.nodeOrder), "edges", len(s.edgeOrder), "dropped_edges", dropped)
	s.publish()
}

// AddNode implements graphstore.Store.
func (s *Store) AddNode(ctx context.Context, n *node.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[n.ID]; exists {
		return fmt.Errorf("add node %s: %w", n.ID, graphstore.ErrNodeExists)
	}
	s.nodes[n.ID] = n.Clone()
	s.nodeOrder = append(s.nodeOrder, n.ID)
	s.publish()
	return nil
}

// RemoveNodes implements graphstore.Store.
func (s *Store) RemoveNodes(ctx context.Context, ids ...nodeid.ID) graphstore.Removed {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed graphstore.Removed
	gone := make(map[nodeid.ID]struct{}, len(ids))
	for _, id := range ids {
		n, ok := s.nodes[id]
		if !ok {
			continue
		}
		gone[id] = struct{}{}
		removed.Nodes = append(removed.Nodes, n.Clone())
		delete(s.nodes, id)
	}
	if len(gone) == 0 {
		return removed
	}
	s.nodeOrder = slices.DeleteFunc(s.nodeOrder, func(id nodeid.ID) bool {
		_, ok := gone[id]
		return ok
	})
	s.edgeOrder = slices.DeleteFunc(s.edgeOrder, func(id nodeid.ID) bool {
		e := s.edges[id]
		_, src := gone[e.Source]
		_, tgt := gone[e.Target]
		if src || tgt {
			removed.Edges = append(removed.Edges, e)
			delete(s.edges, id)
			return true
		}
		return false
	})
	s.publish()
	return removed
}

// UpdateNodeData implements graphstore.Store.
func (s *Store) UpdateNodeData(ctx context.Context, id nodeid.ID, mutate func(n *node.Node)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("update node %s: %w", id, graphstore.ErrNodeNotFound)
	}
	next := current.Clone()
	mutate(next)
	if next.ID != id || next.Kind != current.Kind {
		return fmt.Errorf("update node %s: mutation changed the node's identity", id)
	}
	s.nodes[id] = next
	s.publish()
	return nil
}

// SetPosition implements graphstore.Store.
func (s *Store) SetPosition(ctx context.Context, id nodeid.ID, pos model.Position) error {
	return s.UpdateNodeData(ctx, id, func(n *node.Node) { n.Position = pos })
}

// ReplaceNodeID implements graphstore.Store.
func (s *Store) ReplaceNodeID(ctx context.Context, tempID nodeid.ID, permanent *node.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[tempID]; !ok {
		return fmt.Errorf("promote %s: %w", tempID, graphstore.ErrNodeNotFound)
	}
	newID := permanent.ID
	if newID != tempID {
		if _, taken := s.nodes[newID]; taken {
			return fmt.Errorf("promote %s to %s: %w", tempID, newID, graphstore.ErrNodeExists)
		}
	}

	delete(s.nodes, tempID)
	s.nodes[newID] = permanent.Clone()
	for i, id := range s.nodeOrder {
		if id == tempID {
			s.nodeOrder[i] = newID
			break
		}
	}
	// Published snapshots share node pointers, so nodes are never modified in place.
	for id, n := range s.nodes {
		if id == newID {
			continue
		}
		c := n.Clone()
		c.Rekey(tempID, newID)
		s.nodes[id] = c
	}
	for _, id := range s.edgeOrder {
		e := s.edges[id]
		e.Rekey(tempID, newID)
		s.edges[id] = e
	}

	ctxlog.FromContext(ctx).Debug("Node promoted.", "temp_id", tempID, "node_id", newID)
	s.publish()
	return nil
}

// ApplyEdgeDelta implements graphstore.Store.
func (s *Store) ApplyEdgeDelta(ctx context.Context, delta graphstore.EdgeDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range delta.Add {
		if !s.hasEndpoints(e) {
			return fmt.Errorf("add edge %s (%s -> %s): %w", e.ID, e.Source, e.Target, graphstore.ErrDanglingEdge)
		}
	}
	for _, r := range delta.Replace {
		if !s.hasEndpoints(r.New) {
			return fmt.Errorf("replace edge %s with %s: %w", r.Old, r.New.ID, graphstore.ErrDanglingEdge)
		}
	}

	for _, id := range delta.Remove {
		if _, ok := s.edges[id]; !ok {
			continue
		}
		delete(s.edges, id)
		s.edgeOrder = slices.DeleteFunc(s.edgeOrder, func(other nodeid.ID) bool { return other == id })
	}
	for _, r := range delta.Replace {
		idx := slices.Index(s.edgeOrder, r.Old)
		delete(s.edges, r.Old)
		if idx >= 0 {
			s.edgeOrder[idx] = r.New.ID
		} else {
			s.edgeOrder = append(s.edgeOrder, r.New.ID)
		}
		s.edges[r.New.ID] = r.New
	}
	for _, e := range delta.Add {
		if _, exists := s.edges[e.ID]; !exists {
			s.edgeOrder = append(s.edgeOrder, e.ID)
		}
		s.edges[e.ID] = e
	}
	s.publish()
	return nil
}

// MarkSelected implements graphstore.Store.
func (s *Store) MarkSelected(ctx context.Context, ids ...nodeid.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[nodeid.ID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	for id, n := range s.nodes {
		_, selected := want[id]
		if n.Selected == selected {
			continue
		}
		c := n.Clone()
		c.Selected = selected
		s.nodes[id] = c
	}
	s.publish()
}

// Node implements graphstore.Store.
func (s *Store) Node(ctx context.Context, id nodeid.ID) (*node.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// Edge implements graphstore.Store.
func (s *Store) Edge(ctx context.Context, id nodeid.ID) (node.Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.edges[id]
	return e, ok
}

// Nodes implements graphstore.Store.
func (s *Store) Nodes(ctx context.Context) []*node.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*node.Node, 0, len(s.nodeOrder))
	for _, id := range s.nodeOrder {
		out = append(out, s.nodes[id].Clone())
	}
	return out
}

// Edges implements graphstore.Store.
func (s *Store) Edges(ctx context.Context) []node.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]node.Edge, 0, len(s.edgeOrder))
	for _, id := range s.edgeOrder {
		out = append(out, s.edges[id])
	}
	return out
}

// Mirror implements graphstore.Store.
func (s *Store) Mirror() *graphstore.Snapshot {
	return s.mirror.Load()
}

// hasEndpoints must be called with the lock held.
func (s *Store) hasEndpoints(e node.Edge) bool {
	_, src := s.nodes[e.Source]
	_, tgt := s.nodes[e.Target]
	return src && tgt
}

// publish must be called with the write lock held.
func (s *Store) publish() {
	s.version++
	nodes := make([]*node.Node, 0, len(s.nodeOrder))
	for _, id := range s.nodeOrder {
		nodes = append(nodes, s.nodes[id])
	}
	edges := make([]node.Edge, 0, len(s.edgeOrder))
	for _, id := range s.edgeOrder {
		edges = append(edges, s.edges[id])
	}
	s.mirror.Store(graphstore.NewSnapshot(s.version, nodes, edges))
}
