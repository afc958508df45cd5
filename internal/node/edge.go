package node

import (
	"github.com/vk/bracketflow/internal/nodeid"
	"github.com/vk/bracketflow/internal/port"
)

// Edge connects a port of one node to a port of another.
type Edge struct {
	ID           nodeid.ID
	Source       nodeid.ID
	SourceHandle port.Port
	Target       nodeid.ID
	TargetHandle port.Port
}

// Touches reports whether id is one of the edge's endpoints.
func (e Edge) Touches(id nodeid.ID) bool {
	return e.Source == id || e.Target == id
}

// Rekey rewrites endpoints and match ports that reference from.
func (e *Edge) Rekey(from, to nodeid.ID) {
	if e.Source == from {
		e.Source = to
	}
	if e.Target == from {
		e.Target = to
	}
	e.SourceHandle = e.SourceHandle.Rebind(from, to)
	e.TargetHandle = e.TargetHandle.Rebind(from, to)
}
