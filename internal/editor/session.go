package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vk/bracketflow/internal/backend"
	"github.com/vk/bracketflow/internal/cascade"
	"github.com/vk/bracketflow/internal/ctxlog"
	"github.com/vk/bracketflow/internal/dirty"
	"github.com/vk/bracketflow/internal/flowerr"
	"github.com/vk/bracketflow/internal/graphstore"
	"github.com/vk/bracketflow/internal/inmemorygraph"
	"github.com/vk/bracketflow/internal/metrics"
	"github.com/vk/bracketflow/internal/node"
	"github.com/vk/bracketflow/internal/nodeid"
	"github.com/vk/bracketflow/internal/notify"
	"github.com/vk/bracketflow/internal/reconcile"
	"github.com/vk/bracketflow/internal/validate"
)

// ErrClosed is returned by gestures on a closed session.
var ErrClosed = errors.New("editor: session closed")

// Session is one mounted canvas. It is safe for concurrent use; gestures are
// not serialized against each other.
type Session struct {
	leagueID string
	canvas   validate.Canvas
	backend  backend.Backend

	store    *inmemorygraph.Store
	pipeline *reconcile.Pipeline
	resolver *cascade.Resolver
	tracker  *dirty.Tracker

	notifier        notify.Notifier
	metrics         *metrics.Metrics
	saveConcurrency int

	wg     sync.WaitGroup
	closed atomic.Bool
}

// LeagueID returns the league the session edits.
func (s *Session) LeagueID() string { return s.leagueID }

// Canvas returns the canvas the session edits.
func (s *Session) Canvas() validate.Canvas { return s.canvas }

// Mirror returns the current graph snapshot.
func (s *Session) Mirror() *graphstore.Snapshot { return s.store.Mirror() }

// Hydrate replaces the graph with the backend's flow state and takes it as
// the new save baseline.
func (s *Session) Hydrate(ctx context.Context) error {
	state, err := s.backend.GetFlowState(ctx, s.leagueID)
	if err != nil {
		return fmt.Errorf("failed to load flow state of league %s: %w", s.leagueID, err)
	}
	nodes, edges, err := state.Graph()
	if err != nil {
		return fmt.Errorf("failed to decode flow state of league %s: %w", s.leagueID, err)
	}
	s.store.Hydrate(ctx, nodes, edges)
	s.tracker.Reset(s.store.Nodes(ctx))
	s.metrics.UnsavedChanges(0)
	ctxlog.FromContext(ctx).Debug("Canvas hydrated.", "nodes", len(nodes), "edges", len(edges))
	return nil
}

// Handle applies a gesture and waits for it to finish.
func (s *Session) Handle(ctx context.Context, g Gesture) error {
	if s.closed.Load() {
		return ErrClosed
	}
	ctx = ctxlog.With(ctx, "gesture", g.Name())
	return g.apply(ctx, s)
}

// Go applies a gesture on its own goroutine. The gesture outlives the
// cancellation of ctx; use Wait to join it.
func (s *Session) Go(ctx context.Context, g Gesture) {
	if s.closed.Load() {
		ctxlog.FromContext(ctx).Warn("Gesture on closed session ignored.", "gesture", g.Name())
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Failures are already notified.
		_ = s.Handle(ctx, g)
	}()
}

// Wait blocks until every gesture started with Go has finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Drop places a temporary node and returns its id.
func (s *Session) Drop(ctx context.Context, d Drop) (nodeid.ID, error) {
	if s.closed.Load() {
		return "", ErrClosed
	}
	return s.drop(ctxlog.With(ctx, "gesture", GestureDrop), d)
}

func (s *Session) drop(ctx context.Context, d Drop) (nodeid.ID, error) {
	n, err := d.node(s.canvas)
	if err == nil {
		err = s.store.AddNode(ctx, n)
	}
	if err != nil {
		return "", s.finish(ctx, GestureDrop, err)
	}
	ctxlog.FromContext(ctx).Debug("Node dropped.", "node_id", n.ID, "kind", n.Kind)
	return n.ID, s.finish(ctx, GestureDrop, nil)
}

// Connect runs the reconciliation pipeline for a new edge. On a
// SecondaryUpdateFailure the returned result is still valid.
func (s *Session) Connect(ctx context.Context, c Connect) (reconcile.Result, error) {
	if s.closed.Load() {
		return reconcile.Result{}, ErrClosed
	}
	return s.connect(ctxlog.With(ctx, "gesture", GestureConnect), c)
}

func (s *Session) connect(ctx context.Context, c Connect) (reconcile.Result, error) {
	res, err := s.pipeline.Connect(ctx, reconcile.Request{
		Source:       c.Source,
		SourceHandle: c.SourceHandle,
		Target:       c.Target,
		TargetHandle: c.TargetHandle,
	})
	return res, s.finish(ctx, GestureConnect, err)
}

// DragStop moves a node. The manual canvas persists the position of durable
// nodes immediately; the automatic canvas leaves it to Save.
func (s *Session) DragStop(ctx context.Context, d DragStop) error {
	return s.Handle(ctx, d)
}

func (s *Session) dragStop(ctx context.Context, d DragStop) error {
	if err := s.store.SetPosition(ctx, d.NodeID, d.Position); err != nil {
		return s.finish(ctx, GestureDragStop, flowerr.Wrap(flowerr.ValidationRejection, GestureDragStop, err, "the node is no longer on the canvas"))
	}
	n, _ := s.store.Node(ctx, d.NodeID)
	if s.canvas == validate.Automatic || n == nil || d.NodeID.IsTemporary() || n.Kind == node.Format {
		return s.finish(ctx, GestureDragStop, nil)
	}
	if err := s.backend.UpdateNodePosition(ctx, n.Kind, n.ID, d.Position); err != nil {
		return s.finish(ctx, GestureDragStop, flowerr.Wrap(flowerr.SecondaryUpdateFailure, GestureDragStop, err, "the new position of the %s could not be saved", n.Kind))
	}
	return s.finish(ctx, GestureDragStop, nil)
}

// Remove deletes nodes and edges. Edges are removed first so a batch that
// names a node and its edges deletes each edge once. Every failure is
// notified; the returned error joins them.
func (s *Session) Remove(ctx context.Context, r Remove) error {
	return s.Handle(ctx, r)
}

func (s *Session) remove(ctx context.Context, r Remove) error {
	snap := s.store.Mirror()
	var edges, nodes []nodeid.ID
	for _, id := range r.IDs {
		if _, ok := snap.Edge(id); ok {
			edges = append(edges, id)
		} else {
			nodes = append(nodes, id)
		}
	}

	var errs []error
	for _, id := range edges {
		if err := s.resolver.RemoveEdge(ctx, id); err != nil {
			errs = append(errs, s.finish(ctx, GestureRemove, err))
		}
	}
	for _, id := range nodes {
		if _, err := s.resolver.RemoveNode(ctx, id); err != nil {
			errs = append(errs, s.finish(ctx, GestureRemove, err))
		}
	}
	if len(errs) == 0 {
		return s.finish(ctx, GestureRemove, nil)
	}
	return errors.Join(errs...)
}

// SelectionChange replaces the selection.
func (s *Session) SelectionChange(ctx context.Context, c SelectionChange) error {
	return s.Handle(ctx, c)
}

// HasUnsavedChanges reports whether the automatic canvas differs from what
// was last loaded or saved. The manual canvas never has unsaved changes.
func (s *Session) HasUnsavedChanges() bool {
	if s.canvas != validate.Automatic {
		return false
	}
	return s.tracker.HasUnsavedChanges(s.store.Mirror())
}

// UnsavedChanges returns the number of changed and deleted nodes a Save
// would persist.
func (s *Session) UnsavedChanges() int {
	if s.canvas != validate.Automatic {
		return 0
	}
	return s.tracker.Count(s.store.Mirror())
}

// Changes lists the changed nodes a Save would persist.
func (s *Session) Changes() []dirty.Change {
	if s.canvas != validate.Automatic {
		return nil
	}
	return s.tracker.Changes(s.store.Mirror())
}

// Save persists the unsaved changes of the automatic canvas.
func (s *Session) Save(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	ctx = ctxlog.With(ctx, "gesture", GestureSave)
	if s.canvas != validate.Automatic {
		return s.finish(ctx, GestureSave, flowerr.New(flowerr.ValidationRejection, GestureSave, "the %s canvas saves every change immediately", s.canvas))
	}
	err := s.tracker.Save(ctx, s.backend, s.store.Mirror(), s.saveConcurrency)
	if err == nil {
		s.notifier.Notify(ctx, notify.Info("Changes saved"))
	}
	return s.finish(ctx, GestureSave, err)
}

// Close unmounts the session. In-flight gestures are not cancelled; gestures
// started afterwards return ErrClosed.
func (s *Session) Close(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if !s.closed.CompareAndSwap(false, true) {
		logger.Debug("editor.Session.Close called twice")
		return nil
	}
	if n := s.UnsavedChanges(); n > 0 {
		logger.Warn("Session closed with unsaved changes.", "league_id", s.leagueID, "unsaved", n)
	}
	logger.Debug("Editor session closed.", "league_id", s.leagueID)
	return nil
}

// finish records the outcome of a gesture and notifies its failure. It
// returns err unchanged.
func (s *Session) finish(ctx context.Context, gesture string, err error) error {
	s.metrics.Gesture(s.canvas.String(), gesture, err)
	if s.canvas == validate.Automatic {
		s.metrics.UnsavedChanges(s.tracker.Count(s.store.Mirror()))
	}
	if err != nil {
		ctxlog.FromContext(ctx).Debug("Gesture failed.", "gesture", gesture, "error", err)
		s.notifier.Notify(ctx, notify.FromError(err))
	}
	return err
}
