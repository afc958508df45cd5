// Package editor is the editing view of one league canvas.
//
// A Factory mounts a Session: it hydrates an in-memory graph from the
// backend's flow state and wires the reconciliation pipeline, the cascade
// resolver and (on the automatic canvas) the dirty-change tracker around it.
// Gestures are plain blocking calls that take a context.Context; Go runs one
// on its own goroutine. Every gesture failure is reported once through the
// session's notify.Notifier and returned to the caller.
package editor
