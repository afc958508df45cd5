// Package reconcile turns a connect gesture into an optimistic local edit
// that is reconciled against the backend.
//
// A connection moves through these steps:
//
//  1. Validate the pair. A rejection changes nothing and calls nothing.
//  2. Insert a temporary edge so the graph shows the connection at once.
//  3. If the target is temporary, promote it: create the entity on the
//     backend and swap the temporary id for the permanent one everywhere.
//     A failure removes the temporary edge and the temporary node.
//  4. Persist the edge and replace the temporary edge with the durable one.
//     A failure removes the temporary edge; a promoted target stays.
//  5. For match -> match edges, write the progression links. Failures are
//     reported but nothing is rolled back.
//
// On the automatic canvas, round -> round and round -> format edges are not
// backend entities. Step 4 records them in the source round's data instead and
// the dirty tracker persists them on save.
//
// Gestures are not serialized against each other. Every continuation reads
// the store's mirror after a round trip instead of reusing ids captured
// before it.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vk/bracketflow/internal/backend"
	"github.com/vk/bracketflow/internal/ctxlog"
	"github.com/vk/bracketflow/internal/flowerr"
	"github.com/vk/bracketflow/internal/graphstore"
	"github.com/vk/bracketflow/internal/model"
	"github.com/vk/bracketflow/internal/node"
	"github.com/vk/bracketflow/internal/nodeid"
	"github.com/vk/bracketflow/internal/port"
	"github.com/vk/bracketflow/internal/validate"
	"golang.org/x/sync/singleflight"
)

const opConnect = "connect"

// Request is a connect gesture as reported by the canvas.
type Request struct {
	Source       nodeid.ID
	SourceHandle port.Port
	Target       nodeid.ID
	TargetHandle port.Port
}

// Result describes a connection that got past validation.
type Result struct {
	// Edge is the edge as it stands in the store. It is durable unless the
	// connection is a local automatic-canvas link.
	Edge node.Edge
	// Promoted is the permanent id the target received, zero when the target
	// was already durable.
	Promoted nodeid.ID
}

// Pipeline reconciles connect gestures of one canvas.
type Pipeline struct {
	store    graphstore.Store
	backend  backend.Backend
	canvas   validate.Canvas
	leagueID string

	// nameMu makes computing and claiming a generated name atomic.
	nameMu sync.Mutex

	promotions singleflight.Group
}

// New creates a pipeline over a store.
func New(store graphstore.Store, b backend.Backend, canvas validate.Canvas, leagueID string) *Pipeline {
	return &Pipeline{
		store:    store,
		backend:  b,
		canvas:   canvas,
		leagueID: leagueID,
	}
}

// Connect runs a connect gesture to completion. The returned error is a
// *flowerr.Error; on a SecondaryUpdateFailure the Result is still valid.
func (p *Pipeline) Connect(ctx context.Context, req Request) (Result, error) {
	ctx = ctxlog.With(ctx, "gesture", opConnect, "source", req.Source, "target", req.Target)
	logger := ctxlog.FromContext(ctx)

	snap := p.store.Mirror()
	conn := connection(snap, req)
	if err := p.canvas.Pair()(snap, conn); err != nil {
		logger.Debug("Connection rejected.", "error", err)
		return Result{}, err
	}
	if duplicate(snap, req) {
		return Result{}, flowerr.New(flowerr.ValidationRejection, opConnect, "these ports are already connected")
	}

	temp := node.Edge{
		ID:           nodeid.NewTemporaryEdge(),
		Source:       req.Source,
		SourceHandle: req.SourceHandle,
		Target:       req.Target,
		TargetHandle: req.TargetHandle,
	}
	if err := p.store.ApplyEdgeDelta(ctx, graphstore.EdgeDelta{Add: []node.Edge{temp}}); err != nil {
		return Result{}, flowerr.Wrap(flowerr.ValidationRejection, opConnect, err, "both ends of a connection must exist")
	}
	logger.Debug("Optimistic edge added.", "edge_id", temp.ID)

	var res Result
	if conn.Target.ID.IsTemporary() && conn.Target.Kind != node.Format {
		id, err := p.promote(ctx, conn.Source.ID, conn.Target.ID, temp.ID)
		if err != nil {
			return Result{}, err
		}
		res.Promoted = id
	}

	if p.isLocalLink(conn) {
		e, err := p.linkLocally(ctx, temp.ID)
		res.Edge = e
		return res, err
	}

	e, ok, err := p.persistEdge(ctx, temp.ID)
	if err != nil || !ok {
		return res, err
	}
	res.Edge = e

	if conn.Source.Kind == node.Match && conn.Target.Kind == node.Match {
		if err := p.propagate(ctx, e); err != nil {
			return res, err
		}
	}
	logger.Debug("Connection reconciled.", "edge_id", e.ID)
	return res, nil
}

// connection resolves the request against the snapshot. Missing ends stay
// nil and are rejected by the validators.
func connection(snap *graphstore.Snapshot, req Request) validate.Connection {
	c := validate.Connection{SourceHandle: req.SourceHandle, TargetHandle: req.TargetHandle}
	if n, ok := snap.Node(req.Source); ok {
		c.Source = n
	}
	if n, ok := snap.Node(req.Target); ok {
		c.Target = n
	}
	return c
}

func duplicate(snap *graphstore.Snapshot, req Request) bool {
	for _, e := range snap.Outgoing(req.Source) {
		if e.Target == req.Target && e.SourceHandle == req.SourceHandle && e.TargetHandle == req.TargetHandle {
			return true
		}
	}
	return false
}

func (p *Pipeline) isLocalLink(c validate.Connection) bool {
	if p.canvas != validate.Automatic || c.Source.Kind != node.Round {
		return false
	}
	return c.Target.Kind == node.Round || c.Target.Kind == node.Format
}

// persistEdge stores the temporary edge on the backend. ok is false when the
// edge was removed locally while the gesture was in flight.
func (p *Pipeline) persistEdge(ctx context.Context, tempID nodeid.ID) (node.Edge, bool, error) {
	logger := ctxlog.FromContext(ctx)

	snap := p.store.Mirror()
	temp, ok := snap.Edge(tempID)
	if !ok {
		logger.Info("Edge removed before it was saved.", "edge_id", tempID)
		return node.Edge{}, false, nil
	}
	var categoryID nodeid.ID
	if src, ok := snap.Node(temp.Source); ok {
		categoryID = src.CategoryID()
	}

	saved, err := p.backend.CreateEdge(ctx, backend.CreateEdgeRequest{
		LeagueID:     p.leagueID,
		CategoryID:   categoryID,
		SourceID:     temp.Source,
		TargetID:     temp.Target,
		SourceHandle: temp.SourceHandle,
		TargetHandle: temp.TargetHandle,
	})
	if err != nil {
		p.dropEdge(ctx, tempID)
		logger.Warn("Edge could not be saved.", "edge_id", tempID, "error", err)
		return node.Edge{}, false, flowerr.Wrap(flowerr.EdgePersistFailure, opConnect, err, "the connection could not be saved")
	}

	durable := saved.ToNode()
	delta := graphstore.EdgeDelta{Replace: []graphstore.EdgeReplacement{{Old: tempID, New: durable}}}
	if err := p.store.ApplyEdgeDelta(ctx, delta); err != nil {
		// An endpoint was deleted while the edge was being saved.
		p.dropEdge(ctx, tempID)
		return node.Edge{}, false, flowerr.Wrap(flowerr.EdgePersistFailure, opConnect, err, "a connected node was removed while the connection was being saved")
	}
	logger.Debug("Edge saved.", "temp_edge_id", tempID, "edge_id", durable.ID)
	return durable, true, nil
}

func (p *Pipeline) dropEdge(ctx context.Context, id nodeid.ID) {
	if err := p.store.ApplyEdgeDelta(ctx, graphstore.EdgeDelta{Remove: []nodeid.ID{id}}); err != nil {
		ctxlog.FromContext(ctx).Error("Failed to roll back edge.", "edge_id", id, "error", err)
	}
}

// linkLocally records an automatic-canvas round link in the source round.
func (p *Pipeline) linkLocally(ctx context.Context, edgeID nodeid.ID) (node.Edge, error) {
	snap := p.store.Mirror()
	e, ok := snap.Edge(edgeID)
	if !ok {
		return node.Edge{}, nil
	}
	target, ok := snap.Node(e.Target)
	if !ok {
		return node.Edge{}, nil
	}

	var err error
	switch target.Kind {
	case node.Round:
		err = p.store.UpdateNodeData(ctx, e.Source, func(n *node.Node) {
			n.AsRound().NextRoundID = e.Target
		})
	case node.Format:
		format := target.AsFormat().Clone()
		err = p.store.UpdateNodeData(ctx, e.Source, func(n *node.Node) {
			n.AsRound().SetFormat(format)
		})
		if err == nil {
			err = p.store.UpdateNodeData(ctx, e.Target, func(n *node.Node) {
				n.AsFormat().RoundID = e.Source
			})
		}
	}
	if err != nil {
		p.dropEdge(ctx, edgeID)
		return node.Edge{}, flowerr.Wrap(flowerr.EdgePersistFailure, opConnect, err, "a connected node was removed while linking")
	}
	ctxlog.FromContext(ctx).Debug("Round linked locally.", "edge_id", edgeID, "kind", target.Kind)
	return e, nil
}

// propagate writes the progression fields of a match -> match edge.
func (p *Pipeline) propagate(ctx context.Context, e node.Edge) error {
	logger := ctxlog.FromContext(ctx)
	winner := e.SourceHandle.IsWinner()
	target := e.Target

	err := p.store.UpdateNodeData(ctx, e.Source, func(n *node.Node) {
		if winner {
			n.AsMatch().NextMatchID = target
		} else {
			n.AsMatch().LoserNextMatchID = target
		}
	})
	if err != nil {
		logger.Warn("Source match vanished before its progression was set.", "node_id", e.Source, "error", err)
	}
	var deps []nodeid.ID
	err = p.store.UpdateNodeData(ctx, e.Target, func(n *node.Node) {
		m := n.AsMatch()
		m.AddDependency(e.Source)
		deps = append([]nodeid.ID(nil), m.DependsOnMatchIDs...)
	})
	if err != nil {
		logger.Warn("Target match vanished before its dependencies were set.", "node_id", e.Target, "error", err)
	}

	var update model.MatchUpdate
	if winner {
		update.NextMatchID = &target
	} else {
		update.LoserNextMatchID = &target
	}

	var errs []error
	if err := p.backend.UpdateMatch(ctx, e.Source, update); err != nil {
		errs = append(errs, fmt.Errorf("match %s: %w", e.Source, err))
	}
	if deps != nil {
		if err := p.backend.UpdateMatch(ctx, e.Target, model.MatchUpdate{DependsOnMatchIDs: model.DependsOn(deps)}); err != nil {
			errs = append(errs, fmt.Errorf("match %s: %w", e.Target, err))
		}
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		logger.Warn("Progression links could not be saved.", "edge_id", e.ID, "error", err)
		return flowerr.Wrap(flowerr.SecondaryUpdateFailure, opConnect, err, "the connection was saved but the bracket progression could not be updated")
	}
	logger.Debug("Progression links saved.", "edge_id", e.ID, "winner", winner)
	return nil
}
