// Package dirty tracks what the automatic canvas still has to persist.
//
// The automatic canvas does not write every edit through. A Tracker keeps a
// baseline of the graph as it was loaded and diffs the current graph against
// it: a node is changed when it moved, and a round is also changed when its
// status, format or next round differ. Categories are never tracked. Durable
// nodes that are not in the baseline count as changed, temporary ones do not.
// Durable nodes deleted on the canvas accumulate in a separate set until they
// are saved.
package dirty

import (
	"slices"
	"sync"

	"github.com/vk/bracketflow/internal/graphstore"
	"github.com/vk/bracketflow/internal/model"
	"github.com/vk/bracketflow/internal/node"
	"github.com/vk/bracketflow/internal/nodeid"
)

type entry struct {
	kind      node.Kind
	category  nodeid.ID
	position  model.Position
	status    model.RoundStatus
	format    string
	nextRound nodeid.ID
}

func entryOf(n *node.Node) entry {
	e := entry{kind: n.Kind, category: categoryOf(n), position: n.Position}
	if r := n.AsRound(); r != nil {
		e.status = r.RoundStatus
		e.format = r.RoundFormat.Serialize()
		e.nextRound = r.NextRoundID
	}
	return e
}

// Change is a node that differs from the baseline.
type Change struct {
	Node *node.Node
	// Moved is set when the position differs.
	Moved bool
	// RoundChanged is set when the round's status, format or next round differ.
	RoundChanged bool
}

// Tracker is safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	baseline map[nodeid.ID]entry
	deleted  map[nodeid.ID]node.Kind
	order    []nodeid.ID
	// deletedIn maps a deleted node to its category.
	deletedIn map[nodeid.ID]nodeid.ID
}

// New creates a tracker with an empty baseline.
func New() *Tracker {
	return &Tracker{
		baseline:  make(map[nodeid.ID]entry),
		deleted:   make(map[nodeid.ID]node.Kind),
		deletedIn: make(map[nodeid.ID]nodeid.ID),
	}
}

// Reset takes nodes as the new baseline and forgets recorded deletions.
func (t *Tracker) Reset(nodes []*node.Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.baseline = make(map[nodeid.ID]entry, len(nodes))
	for _, n := range nodes {
		t.baseline[n.ID] = entryOf(n)
	}
	t.deleted = make(map[nodeid.ID]node.Kind)
	t.deletedIn = make(map[nodeid.ID]nodeid.ID)
	t.order = nil
}

// RecordDeletion adds a durable node to the deleted set. Categories, formats
// and temporary nodes are ignored.
func (t *Tracker) RecordDeletion(n *node.Node) {
	if n.ID.IsTemporary() || n.Kind == node.Category || n.Kind == node.Format {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.deleted[n.ID]; !ok {
		t.order = append(t.order, n.ID)
	}
	t.deleted[n.ID] = n.Kind
	t.deletedIn[n.ID] = categoryOf(n)
}

// ForgetCategory drops the pending deletions and baseline entries of every
// node in the category. It is called once the backend has reset the
// category's layout, which already deleted them.
func (t *Tracker) ForgetCategory(categoryID nodeid.ID) {
	if categoryID.IsZero() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, category := range t.deletedIn {
		if category == categoryID {
			delete(t.deleted, id)
			delete(t.deletedIn, id)
		}
	}
	t.order = slices.DeleteFunc(t.order, func(id nodeid.ID) bool {
		_, ok := t.deleted[id]
		return !ok
	})
	for id, e := range t.baseline {
		if e.category == categoryID {
			delete(t.baseline, id)
		}
	}
}

// categoryOf returns the category a node belongs to.
func categoryOf(n *node.Node) nodeid.ID {
	if !n.ParentCategoryID.IsZero() {
		return n.ParentCategoryID
	}
	switch d := n.Data.(type) {
	case *node.RoundData:
		return d.Round.CategoryID
	case *node.GroupData:
		return d.Group.CategoryID
	case *node.MatchData:
		return d.Match.CategoryID
	}
	return ""
}

// Changes diffs snap against the baseline.
func (t *Tracker) Changes(snap *graphstore.Snapshot) []Change {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Change
	for _, n := range snap.Nodes() {
		if n.Kind == node.Category || n.ID.IsTemporary() {
			continue
		}
		cur := entryOf(n)
		base, ok := t.baseline[n.ID]
		if !ok {
			out = append(out, Change{Node: n, Moved: true, RoundChanged: n.Kind == node.Round})
			continue
		}
		c := Change{
			Node:  n,
			Moved: cur.position != base.position,
		}
		if n.Kind == node.Round {
			c.RoundChanged = cur.status != base.status || cur.format != base.format || cur.nextRound != base.nextRound
		}
		if c.Moved || c.RoundChanged {
			out = append(out, c)
		}
	}
	return out
}

// Deleted returns the durable nodes deleted since the baseline, in deletion
// order, with their kinds.
func (t *Tracker) Deleted() ([]nodeid.ID, map[nodeid.ID]node.Kind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	kinds := make(map[nodeid.ID]node.Kind, len(t.deleted))
	for id, k := range t.deleted {
		kinds[id] = k
	}
	return slices.Clone(t.order), kinds
}

// Count is the number of changed nodes plus the number of deleted nodes.
func (t *Tracker) Count(snap *graphstore.Snapshot) int {
	changes := len(t.Changes(snap))
	t.mu.Lock()
	defer t.mu.Unlock()
	return changes + len(t.deleted)
}

// HasUnsavedChanges reports whether a save would persist anything.
func (t *Tracker) HasUnsavedChanges(snap *graphstore.Snapshot) bool {
	return t.Count(snap) > 0
}

// settle re-baselines a saved node.
func (t *Tracker) settle(n *node.Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.baseline[n.ID] = entryOf(n)
}

// forget drops a deleted node once the backend delete succeeded.
func (t *Tracker) forget(id nodeid.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.deleted, id)
	delete(t.deletedIn, id)
	delete(t.baseline, id)
	t.order = slices.DeleteFunc(t.order, func(other nodeid.ID) bool { return other == id })
}
