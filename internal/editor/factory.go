package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/bracketflow/internal/backend"
	"github.com/vk/bracketflow/internal/cascade"
	"github.com/vk/bracketflow/internal/ctxlog"
	"github.com/vk/bracketflow/internal/dirty"
	"github.com/vk/bracketflow/internal/inmemorygraph"
	"github.com/vk/bracketflow/internal/metrics"
	"github.com/vk/bracketflow/internal/notify"
	"github.com/vk/bracketflow/internal/reconcile"
	"github.com/vk/bracketflow/internal/validate"
)

// Factory mounts editing sessions against one backend.
type Factory struct {
	Backend backend.Backend
	// Notifier receives gesture failures and trigger messages. Defaults to
	// notify.Log.
	Notifier notify.Notifier
	// Metrics is optional. When set, backend calls are instrumented too.
	Metrics *metrics.Metrics
	// Confirm asks before a category layout is reset. Defaults to
	// cascade.AlwaysConfirm.
	Confirm cascade.Confirmer
	// SaveConcurrency bounds the parallel writes of an automatic canvas save.
	SaveConcurrency int
}

// NewSession mounts the canvas of a league and hydrates it from the backend.
func (f *Factory) NewSession(ctx context.Context, leagueID string, canvas validate.Canvas) (*Session, error) {
	ctx = ctxlog.With(ctx, "league_id", leagueID, "canvas", canvas.String())
	logger := ctxlog.FromContext(ctx)
	logger.Debug("editor.Factory.NewSession called")

	if f.Backend == nil {
		return nil, errors.New("editor: no backend configured")
	}
	if canvas != validate.Manual && canvas != validate.Automatic {
		return nil, fmt.Errorf("editor: unknown canvas %d", int(canvas))
	}

	var b backend.Backend = f.Backend
	if f.Metrics != nil {
		b = metrics.Instrument(b, f.Metrics)
	}
	notifier := f.Notifier
	if notifier == nil {
		notifier = notify.Log{}
	}

	// --- Session wiring ---
	store := inmemorygraph.New()
	tracker := dirty.New()
	var deferred cascade.DeletionRecorder
	if canvas == validate.Automatic {
		deferred = tracker
	}
	s := &Session{
		leagueID:        leagueID,
		canvas:          canvas,
		backend:         b,
		store:           store,
		pipeline:        reconcile.New(store, b, canvas, leagueID),
		resolver:        cascade.New(store, b, canvas, f.Confirm, deferred),
		tracker:         tracker,
		notifier:        notifier,
		metrics:         f.Metrics,
		saveConcurrency: f.SaveConcurrency,
	}
	// --- End of session wiring ---

	if err := s.Hydrate(ctx); err != nil {
		return nil, err
	}
	logger.Info("Editor session mounted.", "nodes", len(store.Mirror().Nodes()), "edges", len(store.Mirror().Edges()))
	return s, nil
}
