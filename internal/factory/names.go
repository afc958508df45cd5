package factory

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vk/bracketflow/internal/graphstore"
	"github.com/vk/bracketflow/internal/model"
	"github.com/vk/bracketflow/internal/node"
	"github.com/vk/bracketflow/internal/nodeid"
)

// MatchScope is the round, and optionally the group, a match is created in.
type MatchScope struct {
	RoundID   nodeid.ID
	RoundName string
	GroupID   nodeid.ID
	GroupName string
}

// MatchDisplayName returns the generated name of a non-special match:
//
//	<round name>[ - <group name>] - <Match|Elimination Match> <n>
//
// n is one more than the number of matches of snap in the same round and,
// when scope names one, the same group. The match being named is excluded
// from the count so a name can be recomputed for a node already in the graph.
func MatchDisplayName(snap *graphstore.Snapshot, scope MatchScope, isElimination bool, exclude nodeid.ID) string {
	n := 1
	for _, candidate := range snap.NodesOfKind(node.Match) {
		if candidate.ID == exclude {
			continue
		}
		m := candidate.AsMatch()
		if m.RoundID != scope.RoundID {
			continue
		}
		if !scope.GroupID.IsZero() && m.GroupID != scope.GroupID {
			continue
		}
		n++
	}

	matchType := "Match"
	if isElimination {
		matchType = "Elimination Match"
	}

	parts := []string{scope.RoundName}
	if !scope.GroupID.IsZero() && scope.GroupName != "" {
		parts = append(parts, scope.GroupName)
	}
	parts = append(parts, fmt.Sprintf("%s %d", matchType, n))
	return strings.Join(parts, " - ")
}

// GroupDisplayName names the next group of a round: "Group A" through
// "Group Z", then "Group 27" onwards.
func GroupDisplayName(snap *graphstore.Snapshot, roundID nodeid.ID, exclude nodeid.ID) string {
	index := 0
	for _, candidate := range snap.NodesOfKind(node.Group) {
		if candidate.ID != exclude && candidate.AsGroup().RoundID == roundID {
			index++
		}
	}
	if index < 26 {
		return "Group " + string(rune('A'+index))
	}
	return "Group " + strconv.Itoa(index+1)
}

// RoundName returns the name a dropped round is created with. An explicit
// label wins over the stage label.
func RoundName(label string, order model.RoundOrder) string {
	if label = strings.TrimSpace(label); label != "" {
		return label
	}
	return order.String()
}
