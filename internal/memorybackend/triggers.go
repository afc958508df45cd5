package memorybackend

import (
	"context"
	"fmt"

	"github.com/vk/bracketflow/internal/backend"
	"github.com/vk/bracketflow/internal/model"
	"github.com/vk/bracketflow/internal/node"
	"github.com/vk/bracketflow/internal/nodeid"
)

// GenerateMatches marks the round in progress. Bracket generation itself is
// owned by the real server.
func (b *Backend) GenerateMatches(ctx context.Context, roundID nodeid.ID) (backend.TriggerResult, error) {
	return b.setStatus(ctx, backend.OpGenerateMatches, roundID, model.RoundInProgress, "Matches generated for %s")
}

func (b *Backend) ProgressRound(ctx context.Context, roundID nodeid.ID) (backend.TriggerResult, error) {
	return b.setStatus(ctx, backend.OpProgressRound, roundID, model.RoundCompleted, "%s progressed")
}

func (b *Backend) ResetRound(ctx context.Context, roundID nodeid.ID) (backend.TriggerResult, error) {
	return b.setStatus(ctx, backend.OpResetRound, roundID, model.RoundPending, "%s reset")
}

func (b *Backend) SynchronizeBracket(ctx context.Context, categoryID nodeid.ID) (backend.TriggerResult, error) {
	if err := b.begin(ctx, backend.OpSynchronizeBracket, categoryID); err != nil {
		return backend.TriggerResult{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	n, err := b.lookup(node.Category, categoryID)
	if err != nil {
		return backend.TriggerResult{}, err
	}
	name := n.Data.(*node.CategoryData).Category.CategoryName
	return backend.TriggerResult{Message: fmt.Sprintf("Bracket of %s synchronized", name)}, nil
}

func (b *Backend) setStatus(ctx context.Context, op backend.Op, roundID nodeid.ID, status model.RoundStatus, message string) (backend.TriggerResult, error) {
	if err := b.begin(ctx, op, roundID); err != nil {
		return backend.TriggerResult{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	n, err := b.lookup(node.Round, roundID)
	if err != nil {
		return backend.TriggerResult{}, err
	}
	r := n.AsRound()
	r.RoundStatus = status
	return backend.TriggerResult{Message: fmt.Sprintf(message, r.RoundName)}, nil
}
