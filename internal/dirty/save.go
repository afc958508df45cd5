package dirty

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
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the backend calls of a save.
const DefaultConcurrency = 4

// Save persists the diff between snap and the baseline: positions through
// UpdateNodePosition, round fields through UpdateRound and deletions through
// DeleteSingleNode. Entries are saved concurrently, at most concurrency at a
// time. Every entry that was saved completely is re-baselined; the others
// stay dirty and their failures are returned joined in a SaveFailure.
func (t *Tracker) Save(ctx context.Context, b backend.Backend, snap *graphstore.Snapshot, concurrency int) error {
	logger := ctxlog.FromContext(ctx)
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	changes := t.Changes(snap)
	deletedIDs, kinds := t.Deleted()
	total := len(changes) + len(deletedIDs)
	if total == 0 {
		logger.Debug("Nothing to save.")
		return nil
	}
	logger.Info("Saving canvas.", "changed", len(changes), "deleted", len(deletedIDs))

	var (
		mu   sync.Mutex
		errs []error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err)
	}

	var g errgroup.Group
	g.SetLimit(concurrency)
	for _, c := range changes {
		g.Go(func() error {
			if err := saveChange(ctx, b, c); err != nil {
				fail(err)
				return nil
			}
			t.settle(c.Node)
			return nil
		})
	}
	for _, id := range deletedIDs {
		kind := kinds[id]
		g.Go(func() error {
			if err := b.DeleteSingleNode(ctx, kind, id); err != nil {
				fail(fmt.Errorf("delete %s %s: %w", kind, id, err))
				return nil
			}
			t.forget(id)
			return nil
		})
	}
	// Tasks never return errors; failures are collected so that one failed
	// entry does not stop the others.
	_ = g.Wait()

	if len(errs) > 0 {
		err := errors.Join(errs...)
		logger.Warn("Save incomplete.", "failed", len(errs), "total", total, "error", err)
		return flowerr.Wrap(flowerr.SaveFailure, "save", err, "%d of %d changes could not be saved", len(errs), total)
	}
	logger.Info("Canvas saved.", "total", total)
	return nil
}

func saveChange(ctx context.Context, b backend.Backend, c Change) error {
	n := c.Node
	if c.Moved {
		if err := b.UpdateNodePosition(ctx, n.Kind, n.ID, n.Position); err != nil {
			return fmt.Errorf("move %s %s: %w", n.Kind, n.ID, err)
		}
	}
	if c.RoundChanged {
		if err := b.UpdateRound(ctx, n.ID, RoundUpdate(n)); err != nil {
			return fmt.Errorf("update round %s: %w", n.ID, err)
		}
	}
	return nil
}

// RoundUpdate builds the update that brings the backend's copy of a round in
// line with n.
func RoundUpdate(n *node.Node) model.RoundUpdate {
	r := n.AsRound()
	status, next := r.RoundStatus, r.NextRoundID
	u := model.RoundUpdate{RoundStatus: &status, NextRoundID: &next}
	if r.RoundFormat == nil {
		u.ClearFormat = true
	} else {
		f := r.RoundFormat.Clone()
		if f.FormatID.IsTemporary() {
			f.FormatID = ""
		}
		u.RoundFormat = &f
	}
	return u
}
