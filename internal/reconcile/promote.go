package reconcile

import (
	"context"

	"github.com/vk/bracketflow/internal/ctxlog"
	"github.com/vk/bracketflow/internal/factory"
	"github.com/vk/bracketflow/internal/flowerr"
	"github.com/vk/bracketflow/internal/node"
	"github.com/vk/bracketflow/internal/nodeid"
)

// promote makes the temporary target durable. Gestures that target the same
// node while its create call runs share that call instead of creating the
// entity twice. On failure the temporary node and every temporary edge into
// it are removed.
func (p *Pipeline) promote(ctx context.Context, sourceID, tempID, tempEdgeID nodeid.ID) (nodeid.ID, error) {
	logger := ctxlog.FromContext(ctx)

	ch := p.promotions.DoChan(tempID.String(), func() (any, error) {
		// A promotion that finished before this gesture got here has already
		// rekeyed the temporary edge.
		e, ok := p.store.Mirror().Edge(tempEdgeID)
		if !ok {
			return nodeid.ID(""), flowerr.New(flowerr.CreateFailure, opConnect, "the connection was removed before the node could be created")
		}
		if e.Target != tempID {
			return e.Target, nil
		}
		// The create call outlives the gesture that started it; other
		// gestures may be waiting on it.
		id, err := p.create(context.WithoutCancel(ctx), sourceID, tempID)
		if err != nil {
			removed := p.store.RemoveNodes(ctx, tempID)
			p.dropEdge(ctx, tempEdgeID)
			logger.Warn("Promotion failed, rolled back.", "node_id", tempID, "removed_edges", len(removed.Edges), "error", err)
			return nodeid.ID(""), err
		}
		return id, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			logger.Debug("Shared in-flight promotion.", "node_id", tempID)
		}
		if res.Err != nil {
			p.dropOwnEdge(ctx, tempEdgeID)
			return "", res.Err
		}
		return res.Val.(nodeid.ID), nil
	case <-ctx.Done():
		p.dropOwnEdge(ctx, tempEdgeID)
		return "", flowerr.Wrap(flowerr.CreateFailure, opConnect, ctx.Err(), "gave up waiting for the node to be created")
	}
}

// dropOwnEdge removes a gesture's temporary edge unless a rollback already
// took it.
func (p *Pipeline) dropOwnEdge(ctx context.Context, id nodeid.ID) {
	if _, ok := p.store.Mirror().Edge(id); ok {
		p.dropEdge(ctx, id)
	}
}

// create calls the backend create operation matching the target's kind and
// swaps the temporary node for the created entity.
func (p *Pipeline) create(ctx context.Context, sourceID, tempID nodeid.ID) (nodeid.ID, error) {
	logger := ctxlog.FromContext(ctx)

	snap := p.store.Mirror()
	src, srcOK := snap.Node(sourceID)
	tgt, tgtOK := snap.Node(tempID)
	if !srcOK || !tgtOK {
		return "", flowerr.New(flowerr.CreateFailure, opConnect, "a connected node was removed before it could be created")
	}
	lin := factory.LineageOf(snap, src)

	var data node.Data
	var permanentID nodeid.ID
	switch tgt.Kind {
	case node.Round:
		req := factory.RoundPayload(lin, tgt)
		r, err := p.backend.CreateRound(ctx, req)
		if err != nil {
			return "", flowerr.Wrap(flowerr.CreateFailure, opConnect, err, "could not create round %q", req.RoundName)
		}
		permanentID, data = r.RoundID, &node.RoundData{Round: r}
	case node.Group:
		name, err := p.claimGroupName(ctx, lin, tempID)
		if err != nil {
			return "", flowerr.Wrap(flowerr.CreateFailure, opConnect, err, "the group was removed before it could be created")
		}
		req := factory.GroupPayload(lin, tgt, name)
		g, err := p.backend.CreateGroup(ctx, req)
		if err != nil {
			return "", flowerr.Wrap(flowerr.CreateFailure, opConnect, err, "could not create %s", name)
		}
		permanentID, data = g.GroupID, &node.GroupData{Group: g, RoundName: req.RoundName}
	case node.Match:
		label := tgt.Data.(*node.MatchData).Label
		name, err := p.claimMatchName(ctx, lin, tempID)
		if err != nil {
			return "", flowerr.Wrap(flowerr.CreateFailure, opConnect, err, "the match was removed before it could be created")
		}
		req := factory.MatchPayload(lin, tgt, name)
		m, err := p.backend.CreateEmptyMatch(ctx, req)
		if err != nil {
			return "", flowerr.Wrap(flowerr.CreateFailure, opConnect, err, "could not create match %q", req.Match.DisplayName)
		}
		md := &node.MatchData{Match: m}
		if m.IsSpecial() {
			md.Label = factory.SpecialLabel(label, m)
		}
		permanentID, data = m.LeagueMatchID, md
	case node.Category, node.Format:
		return "", flowerr.New(flowerr.CreateFailure, opConnect, "%s nodes cannot be created from the canvas", tgt.Kind)
	default:
		node.Unhandled(tgt.Kind)
	}

	// Re-read the node: it may have been moved while the create call ran.
	current, ok := p.store.Node(ctx, tempID)
	if !ok {
		return "", flowerr.New(flowerr.CreateFailure, opConnect, "the %s was removed while it was being created", tgt.Kind)
	}
	current.ID = permanentID
	current.Data = data
	if current.ParentCategoryID.IsZero() {
		current.ParentCategoryID = lin.CategoryID
	}
	if err := p.store.ReplaceNodeID(ctx, tempID, current); err != nil {
		return "", flowerr.Wrap(flowerr.CreateFailure, opConnect, err, "the %s was removed while it was being created", tgt.Kind)
	}
	logger.Debug("Target promoted.", "temp_id", tempID, "node_id", permanentID, "kind", tgt.Kind)
	return permanentID, nil
}

// claimMatchName computes the next match name of the scope and writes the
// scope onto the temporary node, so the next gesture counts it.
func (p *Pipeline) claimMatchName(ctx context.Context, lin factory.Lineage, tempID nodeid.ID) (string, error) {
	p.nameMu.Lock()
	defer p.nameMu.Unlock()

	var name string
	err := p.store.UpdateNodeData(ctx, tempID, func(n *node.Node) {
		m := n.AsMatch()
		if !m.IsSpecial() {
			name = factory.MatchDisplayName(p.store.Mirror(), lin.Scope(), m.IsElimination, tempID)
		}
		m.RoundID, m.GroupID, m.CategoryID = lin.RoundID, lin.GroupID, lin.CategoryID
		m.DisplayName = name
	})
	return name, err
}

// claimGroupName is claimMatchName for groups.
func (p *Pipeline) claimGroupName(ctx context.Context, lin factory.Lineage, tempID nodeid.ID) (string, error) {
	p.nameMu.Lock()
	defer p.nameMu.Unlock()

	var name string
	err := p.store.UpdateNodeData(ctx, tempID, func(n *node.Node) {
		g := n.AsGroup()
		name = factory.GroupDisplayName(p.store.Mirror(), lin.RoundID, tempID)
		g.RoundID, g.CategoryID = lin.RoundID, lin.CategoryID
		g.DisplayName = name
	})
	return name, err
}
