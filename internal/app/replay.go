package app

import (
	"context"
	"fmt"

	"github.com/vk/bracketflow/internal/config"
	"github.com/vk/bracketflow/internal/ctxlog"
	"github.com/vk/bracketflow/internal/editor"
	"github.com/vk/bracketflow/internal/flowerr"
	"github.com/vk/bracketflow/internal/model"
	"github.com/vk/bracketflow/internal/node"
	"github.com/vk/bracketflow/internal/nodeid"
	"github.com/vk/bracketflow/internal/port"
)

// replayer feeds layout steps to a session as gestures.
type replayer struct {
	session *editor.Session
	// refs maps layout references to the current id of the node they
	// dropped. A promotion rewrites the entry.
	refs map[string]nodeid.ID
}

// Replay applies every step of the layout in order and returns the
// reference table it built. It stops at the first failing step, except
// secondary update failures, which leave the primary change in place and are
// only logged.
func Replay(ctx context.Context, s *editor.Session, layout *config.Layout) (map[string]nodeid.ID, error) {
	logger := ctxlog.FromContext(ctx)
	r := &replayer{session: s, refs: make(map[string]nodeid.ID)}

	for i, step := range layout.Steps {
		err := r.apply(ctx, step)
		if err == nil {
			continue
		}
		if flowerr.IsKind(err, flowerr.SecondaryUpdateFailure) {
			logger.Warn("Layout step partially applied.", "step", i+1, "kind", step.Kind, "at", step.Range.String(), "error", err)
			continue
		}
		return r.refs, fmt.Errorf("step %d (%s at %s): %w", i+1, step.Kind, step.Range, err)
	}
	logger.Info("Layout replayed.", "steps", len(layout.Steps), "nodes", len(r.refs))
	return r.refs, nil
}

func (r *replayer) apply(ctx context.Context, step config.Step) error {
	switch step.Kind {
	case config.StepNode:
		return r.drop(ctx, step.Node)
	case config.StepConnect:
		return r.connect(ctx, step.Connect)
	case config.StepMove:
		return r.session.DragStop(ctx, editor.DragStop{
			NodeID:   r.resolve(step.Move.Ref),
			Position: model.Position(step.Move.Position),
		})
	case config.StepRemove:
		ids := make([]nodeid.ID, 0, len(step.Remove.Refs))
		for _, ref := range step.Remove.Refs {
			ids = append(ids, r.resolve(ref))
		}
		if err := r.session.Remove(ctx, editor.Remove{IDs: ids}); err != nil {
			return err
		}
		for _, ref := range step.Remove.Refs {
			delete(r.refs, ref)
		}
		return nil
	default:
		return fmt.Errorf("unknown step kind %q", step.Kind)
	}
}

func (r *replayer) drop(ctx context.Context, n *config.NodeStep) error {
	d, err := r.dropOf(n)
	if err != nil {
		return err
	}
	id, err := r.session.Drop(ctx, d)
	if err != nil {
		return err
	}
	r.refs[n.Ref] = id
	return nil
}

// dropOf translates a node step into a drop gesture.
func (r *replayer) dropOf(n *config.NodeStep) (editor.Drop, error) {
	kind, err := node.ParseKind(n.Kind)
	if err != nil {
		return editor.Drop{}, err
	}
	d := editor.Drop{
		Kind:             kind,
		ParentCategoryID: r.resolve(n.Category),
		Label:            n.Label,
		FormatType:       n.FormatType,
		IsElimination:    n.Elimination,
		IsRoundRobin:     n.RoundRobin,
	}
	if n.Position != nil {
		d.Position = model.Position(*n.Position)
	}
	if n.Order != "" {
		if d.RoundOrder, err = model.ParseRoundOrder(n.Order); err != nil {
			return d, err
		}
	}
	if n.Special != "" {
		if d.Special, err = editor.ParseSpecial(n.Special); err != nil {
			return d, err
		}
	}
	if d.FormatConfig, err = n.Config(); err != nil {
		return d, err
	}
	return d, nil
}

func (r *replayer) connect(ctx context.Context, c *config.ConnectStep) error {
	source := r.resolve(c.Source)
	target := r.resolve(c.Target)
	res, err := r.session.Connect(ctx, editor.Connect{
		Source:       source,
		SourceHandle: handle(c.SourceHandle, source),
		Target:       target,
		TargetHandle: handle(c.TargetHandle, target),
	})
	if !res.Promoted.IsZero() {
		r.promote(target, res.Promoted)
	}
	return err
}

// promote points every reference to the temporary id at its permanent id.
func (r *replayer) promote(from, to nodeid.ID) {
	for ref, id := range r.refs {
		if id == from {
			r.refs[ref] = to
		}
	}
}

// resolve returns the node a reference names. Unknown references are taken
// as ids of nodes already on the canvas.
func (r *replayer) resolve(ref string) nodeid.ID {
	if id, ok := r.refs[ref]; ok {
		return id
	}
	return nodeid.ID(ref)
}

// handle expands the short match handles "winner", "loser" and "result" into
// the port of the given match.
func handle(name string, owner nodeid.ID) port.Port {
	switch name {
	case "winner":
		return port.Winner(owner)
	case "loser":
		return port.Loser(owner)
	case "result":
		return port.Result(owner)
	default:
		return port.Port(name)
	}
}
