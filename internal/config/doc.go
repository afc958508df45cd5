// Package config loads the editor's HCL files: the connection settings of a
// run (league, canvas, backend, notifications) and layout scripts, which are
// sequences of canvas gestures replayed against an editor session.
//
// Both file kinds are evaluated with an env(name, default...) function, so
// secrets and hosts can come from the environment.
package config
