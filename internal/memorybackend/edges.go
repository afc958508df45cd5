package memorybackend

import (
	"context"
	"fmt"
	"slices"

	"github.com/vk/bracketflow/internal/backend"
	"github.com/vk/bracketflow/internal/nodeid"
)

func (b *Backend) CreateEdge(ctx context.Context, req backend.CreateEdgeRequest) (backend.Edge, error) {
	if err := b.begin(ctx, backend.OpCreateEdge, req.SourceID); err != nil {
		return backend.Edge{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, id := range []nodeid.ID{req.SourceID, req.TargetID} {
		if _, ok := b.nodes[id]; !ok {
			return backend.Edge{}, fmt.Errorf("edge endpoint %s not found", id)
		}
	}
	e := backend.Edge{
		EdgeID:       newID(),
		SourceID:     req.SourceID,
		TargetID:     req.TargetID,
		SourceHandle: req.SourceHandle,
		TargetHandle: req.TargetHandle,
	}
	b.edges = append(b.edges, e)
	return e, nil
}

func (b *Backend) DeleteEdge(ctx context.Context, edgeID nodeid.ID) error {
	if err := b.begin(ctx, backend.OpDeleteEdge, edgeID); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	i := slices.IndexFunc(b.edges, func(e backend.Edge) bool { return e.EdgeID == edgeID })
	if i < 0 {
		return fmt.Errorf("edge %s not found", edgeID)
	}
	b.edges = slices.Delete(b.edges, i, i+1)
	return nil
}
