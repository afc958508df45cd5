// Package validate decides whether a proposed connection between two canvas
// nodes is legal.
//
// Validators are pure: they read a graph snapshot and never mutate it, and a
// rejection is always returned before the caller changes any state or issues
// any backend call. Each canvas has its own type-pair validator; both share
// the round-order rule in RoundProgression.
package validate
