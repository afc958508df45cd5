// Package factory computes the payloads used to materialize rounds, groups
// and matches on the backend, and the display names they carry.
//
// Everything here is a pure function of a graph snapshot. Callers that need
// names to stay unique across concurrent gestures must compute and claim a
// name under their own lock (see reconcile.Pipeline).
package factory
