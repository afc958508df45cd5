package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/bracketflow/internal/cascade"
	"github.com/vk/bracketflow/internal/config"
	"github.com/vk/bracketflow/internal/ctxlog"
	"github.com/vk/bracketflow/internal/editor"
	"github.com/vk/bracketflow/internal/notify"
	"github.com/vk/bracketflow/internal/validate"
)

// Run mounts an editing session for the configured league, replays the
// layout against it and optionally saves the automatic canvas.
func (a *App) Run(ctx context.Context) (err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	a.healthCheckServer()
	defer func() {
		err = errors.Join(err, a.closeHealthCheckServer())
	}()

	notifier, closeNotifier := a.newNotifier(ctx)
	defer closeNotifier()

	factory := editor.Factory{
		Backend:         a.backend,
		Notifier:        notifier,
		Metrics:         a.metrics,
		Confirm:         cascade.ConfirmFunc(a.confirm),
		SaveConcurrency: a.editor.SaveConcurrency(),
	}
	session, err := factory.NewSession(ctx, a.editor.LeagueID, a.editor.CanvasKind())
	if err != nil {
		return fmt.Errorf("failed to open canvas: %w", err)
	}
	defer func() {
		session.Wait()
		err = errors.Join(err, session.Close(ctx))
	}()

	if a.config.LayoutPath != "" {
		layout, err := config.LoadLayout(ctx, a.config.LayoutPath)
		if err != nil {
			return err
		}
		a.logger.Info("🚀 Replaying layout...", "steps", len(layout.Steps))
		if _, err := Replay(ctx, session, layout); err != nil {
			return fmt.Errorf("layout replay failed: %w", err)
		}
	} else {
		a.logger.Warn("No layout given, nothing to replay.")
	}

	if a.config.Save {
		if session.Canvas() != validate.Automatic {
			a.logger.Warn("Save requested on a canvas that saves every change immediately.", "canvas", session.Canvas())
		} else if err := session.Save(ctx); err != nil {
			return fmt.Errorf("save failed: %w", err)
		}
	}

	snap := session.Mirror()
	a.logger.Info("🏁 Editing finished.",
		"nodes", len(snap.Nodes()),
		"edges", len(snap.Edges()),
		"unsaved_changes", session.UnsavedChanges(),
	)
	return nil
}

// newNotifier logs every notice and, when configured, also pushes it to the
// console over socket.io. A failed dial is not fatal.
func (a *App) newNotifier(ctx context.Context) (notify.Notifier, func()) {
	cfg := a.editor.Notify
	if cfg == nil {
		return notify.Log{}, func() {}
	}
	sio, err := notify.DialSocketIO(ctx, notify.SocketIOOptions{
		URL:                cfg.SocketIOURL,
		Namespace:          cfg.Namespace,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		ConnectTimeout:     cfg.ConnectTimeoutDuration(),
	})
	if err != nil {
		a.logger.Warn("Notifier unavailable, notices are only logged.", "url", cfg.SocketIOURL, "error", err)
		return notify.Log{}, func() {}
	}
	return notify.Multi{notify.Log{}, sio}, func() {
		if err := sio.Close(); err != nil {
			a.logger.Warn("Failed to close notifier.", "error", err)
		}
	}
}

// confirm accepts destructive prompts. A layout that removes a category has
// already stated its intent.
func (a *App) confirm(ctx context.Context, prompt string) bool {
	ctxlog.FromContext(ctx).Warn("Confirmed destructive change.", "prompt", prompt)
	return true
}
