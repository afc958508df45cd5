// Package cascade removes nodes and edges from a canvas together with the
// state that depends on them.
//
// Deleting a category is a server-side cascade: one ResetCategoryLayout call,
// then every node reachable from the category along outgoing edges is removed
// locally in a single batch. Any other durable node is deleted on the backend
// first and only removed locally once that call succeeded. Temporary nodes
// and edges never reached the backend and are removed locally only.
//
// Nothing is re-parented: the dependents of a removed round, group or match
// are left in place for the operator to reconnect.
package cascade

import (
	"context"

	"github.com/vk/bracketflow/internal/backend"
	"github.com/vk/bracketflow/internal/ctxlog"
	"github.com/vk/bracketflow/internal/flowerr"
	"github.com/vk/bracketflow/internal/graphstore"
	"github.com/vk/bracketflow/internal/node"
	"github.com/vk/bracketflow/internal/nodeid"
	"github.com/vk/bracketflow/internal/validate"
)

const (
	opDeleteNode = "delete node"
	opDeleteEdge = "delete connection"
)

// Confirmer asks the operator to confirm a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// AlwaysConfirm confirms every prompt.
var AlwaysConfirm = ConfirmFunc(func(context.Context, string) bool { return true })

// DeletionRecorder receives the durable nodes whose backend delete is
// deferred to an explicit save. ForgetCategory is called after a category
// reset deleted everything in it on the backend.
type DeletionRecorder interface {
	RecordDeletion(n *node.Node)
	ForgetCategory(categoryID nodeid.ID)
}

// Resolver removes nodes and edges of one canvas.
type Resolver struct {
	store    graphstore.Store
	backend  backend.Backend
	canvas   validate.Canvas
	confirm  Confirmer
	deferred DeletionRecorder
}

// New creates a resolver. deferred is required on the automatic canvas and
// ignored on the manual one.
func New(store graphstore.Store, b backend.Backend, canvas validate.Canvas, confirm Confirmer, deferred DeletionRecorder) *Resolver {
	if confirm == nil {
		confirm = AlwaysConfirm
	}
	return &Resolver{store: store, backend: b, canvas: canvas, confirm: confirm, deferred: deferred}
}

// RemoveNode deletes a node. It returns what was removed locally, which is
// empty when the node is unknown or a category delete was not confirmed.
func (r *Resolver) RemoveNode(ctx context.Context, id nodeid.ID) (graphstore.Removed, error) {
	ctx = ctxlog.With(ctx, "gesture", opDeleteNode, "node_id", id)
	logger := ctxlog.FromContext(ctx)

	n, ok := r.store.Mirror().Node(id)
	if !ok {
		logger.Debug("Node already gone.")
		return graphstore.Removed{}, nil
	}

	switch n.Kind {
	case node.Category:
		return r.resetCategory(ctx, n)
	case node.Format:
		return r.removeLocally(ctx, n), nil
	case node.Round, node.Group, node.Match:
		if id.IsTemporary() {
			return r.removeLocally(ctx, n), nil
		}
		if r.canvas == validate.Automatic {
			r.deferred.RecordDeletion(n)
			logger.Debug("Backend delete deferred to save.", "kind", n.Kind)
			return r.removeLocally(ctx, n), nil
		}
		if err := r.backend.DeleteSingleNode(ctx, n.Kind, id); err != nil {
			logger.Warn("Backend refused the delete.", "kind", n.Kind, "error", err)
			return graphstore.Removed{}, flowerr.Wrap(flowerr.DeleteFailure, opDeleteNode, err, "could not delete %s", describe(n))
		}
		return r.removeLocally(ctx, n), nil
	default:
		node.Unhandled(n.Kind)
		return graphstore.Removed{}, nil
	}
}

func (r *Resolver) resetCategory(ctx context.Context, category *node.Node) (graphstore.Removed, error) {
	logger := ctxlog.FromContext(ctx)

	if !r.confirm.Confirm(ctx, "Reset the layout of "+describe(category)+"? Every round, group and match in it is deleted.") {
		logger.Info("Category reset not confirmed.")
		return graphstore.Removed{}, nil
	}
	if err := r.backend.ResetCategoryLayout(ctx, category.ID); err != nil {
		return graphstore.Removed{}, flowerr.Wrap(flowerr.DeleteFailure, opDeleteNode, err, "could not reset %s", describe(category))
	}
	if r.deferred != nil {
		r.deferred.ForgetCategory(category.ID)
	}

	// Collect against the graph as it is now, not as it was before the call.
	ids := Reachable(r.store.Mirror().Edges(), category.ID)
	removed := r.store.RemoveNodes(ctx, ids...)
	logger.Info("Category reset.", "removed_nodes", len(removed.Nodes), "removed_edges", len(removed.Edges))
	return removed, nil
}

// removeLocally removes the node with its incident edges and clears the
// references those edges maintained on the surviving nodes.
func (r *Resolver) removeLocally(ctx context.Context, n *node.Node) graphstore.Removed {
	removed := r.store.RemoveNodes(ctx, n.ID)
	gone := map[nodeid.ID]*node.Node{n.ID: n}
	for _, e := range removed.Edges {
		r.clearReferences(ctx, e, gone)
	}
	if f := n.AsFormat(); f != nil && !f.RoundID.IsZero() {
		// A hydrated format may reference its round without an edge.
		err := r.store.UpdateNodeData(ctx, f.RoundID, func(rn *node.Node) {
			if round := rn.AsRound(); round != nil {
				round.ClearFormat()
			}
		})
		if err != nil {
			ctxlog.FromContext(ctx).Debug("Format round already gone.", "node_id", f.RoundID)
		}
	}
	ctxlog.FromContext(ctx).Debug("Node removed.", "kind", n.Kind, "removed_edges", len(removed.Edges))
	return removed
}

// Reachable returns every node reachable from root along outgoing edges, in
// breadth-first order. The adjacency is built from edges on every call.
func Reachable(edges []node.Edge, root nodeid.ID) []nodeid.ID {
	adjacency := make(map[nodeid.ID][]nodeid.ID)
	for _, e := range edges {
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
	}

	seen := map[nodeid.ID]bool{root: true}
	queue := []nodeid.ID{root}
	var out []nodeid.ID
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range adjacency[id] {
			if seen[next] {
				continue
			}
			seen[next] = true
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	return out
}

func describe(n *node.Node) string {
	switch d := n.Data.(type) {
	case *node.CategoryData:
		if d.Category.CategoryName != "" {
			return "category " + d.Category.CategoryName
		}
	case *node.RoundData:
		if d.Round.RoundName != "" {
			return "round " + d.Round.RoundName
		}
	case *node.GroupData:
		if d.Group.DisplayName != "" {
			return d.Group.DisplayName
		}
	case *node.MatchData:
		if d.Match.DisplayName != "" {
			return d.Match.DisplayName
		}
	}
	return n.Kind.String() + " " + n.ID.String()
}
