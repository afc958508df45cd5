package cascade

import (
	"context"

	"github.com/vk/bracketflow/internal/ctxlog"
	"github.com/vk/bracketflow/internal/flowerr"
	"github.com/vk/bracketflow/internal/graphstore"
	"github.com/vk/bracketflow/internal/model"
	"github.com/vk/bracketflow/internal/node"
	"github.com/vk/bracketflow/internal/nodeid"
	"github.com/vk/bracketflow/internal/validate"
)

// RemoveEdge deletes an edge and clears the references it maintained.
// Temporary edges, and the local round links of the automatic canvas, are
// removed without a backend call.
func (r *Resolver) RemoveEdge(ctx context.Context, id nodeid.ID) error {
	ctx = ctxlog.With(ctx, "gesture", opDeleteEdge, "edge_id", id)
	logger := ctxlog.FromContext(ctx)

	snap := r.store.Mirror()
	e, ok := snap.Edge(id)
	if !ok {
		logger.Debug("Edge already gone.")
		return nil
	}

	if !id.IsTemporary() && !r.isLocalLink(snap, e) {
		if err := r.backend.DeleteEdge(ctx, id); err != nil {
			logger.Warn("Backend refused the edge delete.", "error", err)
			return flowerr.Wrap(flowerr.DeleteFailure, opDeleteEdge, err, "could not delete the connection")
		}
	}
	if err := r.store.ApplyEdgeDelta(ctx, graphstore.EdgeDelta{Remove: []nodeid.ID{id}}); err != nil {
		return flowerr.Wrap(flowerr.DeleteFailure, opDeleteEdge, err, "could not delete the connection")
	}
	logger.Debug("Edge removed.")
	return r.persistReferences(ctx, e, r.clearReferences(ctx, e, nil))
}

func (r *Resolver) isLocalLink(snap *graphstore.Snapshot, e node.Edge) bool {
	if r.canvas != validate.Automatic {
		return false
	}
	src, okS := snap.Node(e.Source)
	tgt, okT := snap.Node(e.Target)
	if !okS || !okT || src.Kind != node.Round {
		return false
	}
	return tgt.Kind == node.Round || tgt.Kind == node.Format
}

// matchLinks is the change clearReferences made to a match -> match edge's
// endpoints, for persistence.
type matchLinks struct {
	source     model.MatchUpdate
	targetDeps []nodeid.ID
}

// clearReferences undoes, in the store, the data links an edge stood for.
// Endpoints that were just removed are looked up in gone and left alone. It
// returns the match updates to persist, if the edge linked two matches.
func (r *Resolver) clearReferences(ctx context.Context, e node.Edge, gone map[nodeid.ID]*node.Node) *matchLinks {
	logger := ctxlog.FromContext(ctx)
	snap := r.store.Mirror()
	resolve := func(id nodeid.ID) (*node.Node, bool) {
		if n, ok := snap.Node(id); ok {
			return n, true
		}
		n, ok := gone[id]
		return n, ok
	}
	src, okS := resolve(e.Source)
	tgt, okT := resolve(e.Target)
	if !okS || !okT {
		return nil
	}

	update := func(id nodeid.ID, mutate func(n *node.Node)) {
		if _, live := snap.Node(id); !live {
			return
		}
		if err := r.store.UpdateNodeData(ctx, id, mutate); err != nil {
			logger.Warn("Could not clear reference.", "node_id", id, "error", err)
		}
	}

	switch {
	case src.Kind == node.Round && tgt.Kind == node.Round:
		update(src.ID, func(n *node.Node) {
			if round := n.AsRound(); round.NextRoundID == tgt.ID {
				round.NextRoundID = ""
			}
		})
	case src.Kind == node.Round && tgt.Kind == node.Format:
		update(src.ID, func(n *node.Node) { n.AsRound().ClearFormat() })
		update(tgt.ID, func(n *node.Node) { n.AsFormat().RoundID = "" })
	case src.Kind == node.Match && tgt.Kind == node.Match:
		links := &matchLinks{}
		empty := nodeid.ID("")
		update(src.ID, func(n *node.Node) {
			m := n.AsMatch()
			if e.SourceHandle.IsWinner() {
				if m.NextMatchID == tgt.ID {
					m.NextMatchID = ""
					links.source.NextMatchID = &empty
				}
			} else if m.LoserNextMatchID == tgt.ID {
				m.LoserNextMatchID = ""
				links.source.LoserNextMatchID = &empty
			}
		})
		update(tgt.ID, func(n *node.Node) {
			m := n.AsMatch()
			m.RemoveDependency(src.ID)
			links.targetDeps = append([]nodeid.ID{}, m.DependsOnMatchIDs...)
		})
		return links
	}
	return nil
}

// persistReferences writes cleared match links to the backend. Failures are
// reported and not rolled back.
func (r *Resolver) persistReferences(ctx context.Context, e node.Edge, links *matchLinks) error {
	if links == nil || r.canvas != validate.Manual || e.ID.IsTemporary() {
		return nil
	}
	var failed error
	if links.source.NextMatchID != nil || links.source.LoserNextMatchID != nil {
		if err := r.backend.UpdateMatch(ctx, e.Source, links.source); err != nil {
			failed = err
		}
	}
	if links.targetDeps != nil {
		if err := r.backend.UpdateMatch(ctx, e.Target, model.MatchUpdate{DependsOnMatchIDs: model.DependsOn(links.targetDeps)}); err != nil && failed == nil {
			failed = err
		}
	}
	if failed != nil {
		ctxlog.FromContext(ctx).Warn("Progression links could not be cleared.", "error", failed)
		return flowerr.Wrap(flowerr.SecondaryUpdateFailure, opDeleteEdge, failed, "the connection was deleted but the bracket progression could not be updated")
	}
	return nil
}
