// internal/nodeid/doc.go

/*
Package nodeid provides the identifiers used for nodes and edges on the
tournament canvases.

An identifier is either temporary or permanent. Temporary identifiers are
minted on the client when a node is dropped or an edge is drawn; they carry no
durability guarantee and always start with the "tmp-" prefix. Permanent
identifiers are issued by the backend once the entity has been stored.

Promotion is the act of swapping a temporary identifier for the permanent one
everywhere it is referenced. This package only knows how to tell the two apart
and how to mint temporary ones; promotion itself is done by the graph store.
*/
package nodeid
