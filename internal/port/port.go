// Package port names the connection points (handles) of canvas nodes.
//
// Most ports are fixed names ("top", "bottom", "category-out", ...). Match
// ports embed the id of the match that owns them, e.g. "winner-<matchId>", so
// that a bracket edge records which outcome advances.
package port

import (
	"strings"

	"github.com/vk/bracketflow/internal/nodeid"
)

// Port is a named connection point on a node.
type Port string

const (
	Top         Port = "top"
	Bottom      Port = "bottom"
	CategoryOut Port = "category-out"
	RoundIn     Port = "round-in"
	RoundOut    Port = "round-out"
	GroupIn     Port = "group-in"
	GroupOut    Port = "group-out"
	MatchIn     Port = "match-in"
)

const (
	winnerPrefix = "winner-"
	loserPrefix  = "loser-"
	resultPrefix = "result-"
)

// Winner is the port through which a match's winner advances.
func Winner(matchID nodeid.ID) Port { return Port(winnerPrefix + matchID.String()) }

// Loser is the port through which a match's loser advances.
func Loser(matchID nodeid.ID) Port { return Port(loserPrefix + matchID.String()) }

// Result is the single undifferentiated port of a round-robin match.
func Result(matchID nodeid.ID) Port { return Port(resultPrefix + matchID.String()) }

// IsWinner reports whether the port carries a match's winner.
func (p Port) IsWinner() bool { return strings.HasPrefix(string(p), winnerPrefix) }

// IsLoser reports whether the port carries a match's loser.
func (p Port) IsLoser() bool { return strings.HasPrefix(string(p), loserPrefix) }

// IsResult reports whether the port is a round-robin result port.
func (p Port) IsResult() bool { return strings.HasPrefix(string(p), resultPrefix) }

// Owner returns the match id embedded in a match port, or false for fixed ports.
func (p Port) Owner() (nodeid.ID, bool) {
	for _, prefix := range []string{winnerPrefix, loserPrefix, resultPrefix} {
		if rest, ok := strings.CutPrefix(string(p), prefix); ok && rest != "" {
			return nodeid.ID(rest), true
		}
	}
	return "", false
}

// Rebind rewrites the match id embedded in the port when it equals from.
// Fixed ports and ports owned by other matches are returned unchanged.
func (p Port) Rebind(from, to nodeid.ID) Port {
	owner, ok := p.Owner()
	if !ok || owner != from {
		return p
	}
	prefix := strings.TrimSuffix(string(p), owner.String())
	return Port(prefix + to.String())
}

func (p Port) String() string { return string(p) }
