package graphstore

import (
	"github.com/vk/bracketflow/internal/model"
	"github.com/vk/bracketflow/internal/node"
	"github.com/vk/bracketflow/internal/nodeid"
)

// Snapshot is an immutable view of the graph at one point in time. Callers
// must not modify the nodes it returns.
type Snapshot struct {
	// Version increases by one with every published change.
	Version uint64

	nodes     []*node.Node
	edges     []node.Edge
	nodeIndex map[nodeid.ID]int
	edgeIndex map[nodeid.ID]int
}

// NewSnapshot indexes the given nodes and edges. The slices are retained.
func NewSnapshot(version uint64, nodes []*node.Node, edges []node.Edge) *Snapshot {
	s := &Snapshot{
		Version:   version,
		nodes:     nodes,
		edges:     edges,
		nodeIndex: make(map[nodeid.ID]int, len(nodes)),
		edgeIndex: make(map[nodeid.ID]int, len(edges)),
	}
	for i, n := range nodes {
		s.nodeIndex[n.ID] = i
	}
	for i, e := range edges {
		s.edgeIndex[e.ID] = i
	}
	return s
}

// Node looks a node up by id.
func (s *Snapshot) Node(id nodeid.ID) (*node.Node, bool) {
	i, ok := s.nodeIndex[id]
	if !ok {
		return nil, false
	}
	return s.nodes[i], true
}

// Edge looks an edge up by id.
func (s *Snapshot) Edge(id nodeid.ID) (node.Edge, bool) {
	i, ok := s.edgeIndex[id]
	if !ok {
		return node.Edge{}, false
	}
	return s.edges[i], true
}

// Nodes returns all nodes in insertion order.
func (s *Snapshot) Nodes() []*node.Node { return s.nodes }

// Edges returns all edges in insertion order.
func (s *Snapshot) Edges() []node.Edge { return s.edges }

// NodesOfKind returns the nodes of one kind in insertion order.
func (s *Snapshot) NodesOfKind(kind node.Kind) []*node.Node {
	var out []*node.Node
	for _, n := range s.nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// Incoming returns the edges whose target is id.
func (s *Snapshot) Incoming(id nodeid.ID) []node.Edge {
	var out []node.Edge
	for _, e := range s.edges {
		if e.Target == id {
			out = append(out, e)
		}
	}
	return out
}

// Outgoing returns the edges whose source is id.
func (s *Snapshot) Outgoing(id nodeid.ID) []node.Edge {
	var out []node.Edge
	for _, e := range s.edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// CategoryHasRound reports whether any round of the category has the given order.
func (s *Snapshot) CategoryHasRound(categoryID nodeid.ID, order model.RoundOrder) bool {
	for _, n := range s.nodes {
		r := n.AsRound()
		if r == nil {
			continue
		}
		if n.CategoryID() == categoryID && r.RoundOrder == order {
			return true
		}
	}
	return false
}
