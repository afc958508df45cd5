// Package notify surfaces gesture outcomes to the operator.
//
// The editor reports every failure exactly once, and every trigger message,
// through a Notifier. Where the notice ends up (the log, a socket.io channel
// watched by the console UI, a test recorder) is decided at wiring time.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/vk/bracketflow/internal/ctxlog"
	"github.com/vk/bracketflow/internal/flowerr"
)

// Level is the severity of a notice.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notice is a single operator-facing message.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
	// Kind is the failure class of an error notice, empty otherwise.
	Kind string `json:"kind,omitempty"`
	Op   string `json:"op,omitempty"`
}

// Notifier delivers notices. Implementations must be safe for concurrent use
// and must not block the caller for long.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Info builds an informational notice.
func Info(message string) Notice {
	return Notice{Level: LevelInfo, Message: message}
}

// FromError builds the error notice of a gesture failure.
func FromError(err error) Notice {
	n := Notice{Level: LevelError, Message: flowerr.Message(err)}
	var fe *flowerr.Error
	if errors.As(err, &fe) {
		n.Kind = fe.Kind.String()
		n.Op = fe.Op
	}
	return n
}

// Log writes notices to the context's logger.
type Log struct{}

func (Log) Notify(ctx context.Context, n Notice) {
	level := slog.LevelInfo
	if n.Level == LevelError {
		level = slog.LevelWarn
	}
	ctxlog.FromContext(ctx).Log(ctx, level, n.Message, "notice_kind", n.Kind, "op", n.Op)
}

// Multi fans a notice out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notice) {
	for _, target := range m {
		target.Notify(ctx, n)
	}
}

// Recorder keeps every notice it receives.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(_ context.Context, n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns the recorded notices in arrival order.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Errors returns the recorded error notices.
func (r *Recorder) Errors() []Notice {
	var out []Notice
	for _, n := range r.Notices() {
		if n.Level == LevelError {
			out = append(out, n)
		}
	}
	return out
}
