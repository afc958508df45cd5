// internal/nodeid/id.go
package nodeid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// TemporaryPrefix marks an identifier as client-minted.
const TemporaryPrefix = "tmp-"

// ID identifies a node or an edge on a canvas.
type ID string

// NewTemporary mints a fresh temporary identifier.
func NewTemporary() ID {
	return ID(TemporaryPrefix + uuid.NewString())
}

// NewTemporaryEdge mints a fresh temporary edge identifier.
func NewTemporaryEdge() ID {
	return ID(TemporaryPrefix + "edge-" + uuid.NewString())
}

// IsTemporary reports whether the identifier was minted on the client and has
// not yet been promoted.
func (id ID) IsTemporary() bool {
	return strings.HasPrefix(string(id), TemporaryPrefix)
}

// IsZero reports whether the identifier is empty.
func (id ID) IsZero() bool {
	return id == ""
}

func (id ID) String() string {
	return string(id)
}

// Parse validates a raw identifier coming from outside the process (a layout
// script, an HTTP response).
func Parse(raw string) (ID, error) {
	if raw == "" {
		return "", fmt.Errorf("identifier cannot be empty")
	}
	if strings.ContainsAny(raw, " \t\n") {
		return "", fmt.Errorf("identifier %q contains whitespace", raw)
	}
	if raw == TemporaryPrefix {
		return "", fmt.Errorf("identifier %q has no body after the temporary prefix", raw)
	}
	return ID(raw), nil
}

// Strings converts a slice of identifiers to plain strings.
func Strings(ids []ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
