package editor

import (
	"context"
	"slices"

	"github.com/vk/bracketflow/internal/backend"
	"github.com/vk/bracketflow/internal/ctxlog"
	"github.com/vk/bracketflow/internal/flowerr"
	"github.com/vk/bracketflow/internal/model"
	"github.com/vk/bracketflow/internal/node"
	"github.com/vk/bracketflow/internal/nodeid"
	"github.com/vk/bracketflow/internal/notify"
	"github.com/vk/bracketflow/internal/validate"
)

type triggerFunc func(ctx context.Context, id nodeid.ID) (backend.TriggerResult, error)

// GenerateMatches asks the backend to generate the matches of a round.
func (s *Session) GenerateMatches(ctx context.Context, roundID nodeid.ID) error {
	return s.trigger(ctx, backend.OpGenerateMatches, node.Round, roundID, s.backend.GenerateMatches)
}

// ProgressRound advances a round's winners to the next round.
func (s *Session) ProgressRound(ctx context.Context, roundID nodeid.ID) error {
	return s.trigger(ctx, backend.OpProgressRound, node.Round, roundID, s.backend.ProgressRound)
}

// ResetRound discards the results of a round.
func (s *Session) ResetRound(ctx context.Context, roundID nodeid.ID) error {
	return s.trigger(ctx, backend.OpResetRound, node.Round, roundID, s.backend.ResetRound)
}

// SynchronizeBracket rebuilds the match links of a category from its rounds.
func (s *Session) SynchronizeBracket(ctx context.Context, categoryID nodeid.ID) error {
	return s.trigger(ctx, backend.OpSynchronizeBracket, node.Category, categoryID, s.backend.SynchronizeBracket)
}

// trigger runs a server-side bracket operation, notifies its message and
// reloads the canvas, since the backend may have changed any part of it.
func (s *Session) trigger(ctx context.Context, op backend.Op, kind node.Kind, id nodeid.ID, call triggerFunc) error {
	if s.closed.Load() {
		return ErrClosed
	}
	ctx = ctxlog.With(ctx, "gesture", op.String(), "node_id", id)
	logger := ctxlog.FromContext(ctx)

	if n, ok := s.store.Mirror().Node(id); !ok || n.Kind != kind || id.IsTemporary() {
		return s.finish(ctx, op.String(), flowerr.New(flowerr.ValidationRejection, op.String(), "%s needs a saved %s", op, kind))
	}
	res, err := call(ctx, id)
	if err != nil {
		return s.finish(ctx, op.String(), flowerr.Wrap(flowerr.TriggerFailure, op.String(), err, "%s failed", op))
	}
	logger.Info("Trigger completed.", "message", res.Message)
	s.notifier.Notify(ctx, notify.Info(res.Message))

	if n := s.UnsavedChanges(); n > 0 {
		logger.Warn("Reloading the canvas discards unsaved changes.", "unsaved", n)
	}
	if err := s.Hydrate(ctx); err != nil {
		return s.finish(ctx, op.String(), flowerr.Wrap(flowerr.TriggerFailure, op.String(), err, "%s succeeded but the canvas could not be reloaded", op))
	}
	return s.finish(ctx, op.String(), nil)
}

// SetFormat attaches a format to a round of the automatic canvas, replacing
// the one it has. The change is persisted by Save.
func (s *Session) SetFormat(ctx context.Context, roundID nodeid.ID, f model.Format) error {
	if s.closed.Load() {
		return ErrClosed
	}
	ctx = ctxlog.With(ctx, "gesture", GestureSetFormat, "node_id", roundID)
	reject := func(format string, args ...any) error {
		return s.finish(ctx, GestureSetFormat, flowerr.New(flowerr.ValidationRejection, GestureSetFormat, format, args...))
	}

	if s.canvas != validate.Automatic {
		return reject("formats are set on the automatic canvas")
	}
	if f.FormatType == "" {
		return reject("a format needs a type")
	}
	snap := s.store.Mirror()
	rn, ok := snap.Node(roundID)
	if !ok || rn.Kind != node.Round {
		return reject("formats are set on rounds")
	}

	err := s.store.UpdateNodeData(ctx, roundID, func(n *node.Node) {
		n.AsRound().SetFormat(f.Clone())
	})
	if err != nil {
		return s.finish(ctx, GestureSetFormat, flowerr.Wrap(flowerr.ValidationRejection, GestureSetFormat, err, "the round is no longer on the canvas"))
	}
	// Keep an attached format node in step with the round.
	for _, e := range snap.Outgoing(roundID) {
		if target, ok := snap.Node(e.Target); ok && target.Kind == node.Format {
			err := s.store.UpdateNodeData(ctx, target.ID, func(n *node.Node) {
				fd := n.AsFormat()
				fd.FormatType, fd.FormatConfig = f.FormatType, f.Clone().FormatConfig
			})
			if err != nil {
				ctxlog.FromContext(ctx).Debug("Format node already gone.", "node_id", target.ID, "error", err)
			}
		}
	}
	ctxlog.FromContext(ctx).Debug("Round format set.", "format_type", f.FormatType)
	return s.finish(ctx, GestureSetFormat, nil)
}

// EliminateTeam removes a team from a round-robin match.
func (s *Session) EliminateTeam(ctx context.Context, matchID nodeid.ID, teamID string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	ctx = ctxlog.With(ctx, "gesture", GestureEliminate, "node_id", matchID)

	n, ok := s.store.Mirror().Node(matchID)
	if !ok || n.Kind != node.Match || matchID.IsTemporary() {
		return s.finish(ctx, GestureEliminate, flowerr.New(flowerr.ValidationRejection, GestureEliminate, "teams are eliminated from saved matches"))
	}
	if !n.AsMatch().IsRoundRobin {
		return s.finish(ctx, GestureEliminate, flowerr.New(flowerr.ValidationRejection, GestureEliminate, "only round-robin matches eliminate teams directly"))
	}
	if err := s.backend.EliminateTeam(ctx, matchID, teamID); err != nil {
		return s.finish(ctx, GestureEliminate, flowerr.Wrap(flowerr.TriggerFailure, GestureEliminate, err, "could not eliminate team %s", teamID))
	}
	err := s.store.UpdateNodeData(ctx, matchID, func(n *node.Node) {
		m := n.AsMatch()
		if !slices.Contains(m.EliminatedTeamIDs, teamID) {
			m.EliminatedTeamIDs = append(m.EliminatedTeamIDs, teamID)
		}
	})
	if err != nil {
		ctxlog.FromContext(ctx).Debug("Match left the canvas before the elimination was applied.", "error", err)
	}
	s.notifier.Notify(ctx, notify.Info("Team "+teamID+" eliminated"))
	return s.finish(ctx, GestureEliminate, nil)
}
