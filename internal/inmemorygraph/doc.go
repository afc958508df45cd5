// Package inmemorygraph provides a thread-safe, in-memory implementation of
// the graphstore.Store interface.
//
// Nodes and edges are kept in maps for lookup plus id slices that preserve
// insertion order, the order in which a canvas renders them. Every mutation
// runs under a write lock and ends by publishing a fresh immutable snapshot
// through an atomic pointer, which is what Mirror returns.
package inmemorygraph
