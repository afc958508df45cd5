package validate

import (
	"github.com/vk/bracketflow/internal/flowerr"
	"github.com/vk/bracketflow/internal/graphstore"
	"github.com/vk/bracketflow/internal/model"
	"github.com/vk/bracketflow/internal/node"
	"github.com/vk/bracketflow/internal/port"
)

const op = "connect"

// Connection is a proposed edge between two nodes of the same canvas.
type Connection struct {
	Source       *node.Node
	SourceHandle port.Port
	Target       *node.Node
	TargetHandle port.Port
}

// Func validates a connection against the graph it would be added to.
type Func func(snap *graphstore.Snapshot, c Connection) error

func reject(format string, args ...any) error {
	return flowerr.New(flowerr.ValidationRejection, op, format, args...)
}

// AutomaticPair validates a connection on the automatic (round -> format)
// canvas.
func AutomaticPair(snap *graphstore.Snapshot, c Connection) error {
	if err := common(c); err != nil {
		return err
	}
	src, tgt := c.Source.Kind, c.Target.Kind

	switch src {
	case node.Format:
		return reject("a format cannot be the source of a connection")
	case node.Category:
		if tgt != node.Round {
			return reject("a category can only be connected to a round")
		}
		return nil
	case node.Round:
		switch tgt {
		case node.Format:
			return roundToFormat(snap, c)
		case node.Round:
			return roundToRound(snap, c)
		default:
			return reject("a round can only be connected to a format or another round here")
		}
	case node.Group, node.Match:
		return reject("%s nodes are not part of the automatic canvas", src)
	default:
		node.Unhandled(src)
		return nil
	}
}

func roundToFormat(snap *graphstore.Snapshot, c Connection) error {
	if c.SourceHandle != port.Bottom || c.TargetHandle != port.Top {
		return reject("a format attaches from the round's bottom port to the format's top port")
	}
	for _, e := range snap.Outgoing(c.Source.ID) {
		if n, ok := snap.Node(e.Target); ok && n.Kind == node.Format {
			return reject("round %q already has a format", c.Source.AsRound().RoundName)
		}
	}
	if len(snap.Incoming(c.Target.ID)) > 0 {
		return reject("this format is already attached to a round")
	}
	return nil
}

func roundToRound(snap *graphstore.Snapshot, c Connection) error {
	src, tgt := c.Source.AsRound(), c.Target.AsRound()
	if c.Source.CategoryID() != c.Target.CategoryID() {
		return reject("rounds of different categories cannot be linked")
	}
	if src.RoundOrder == model.Final {
		return reject("the final round has no next round")
	}
	for _, e := range snap.Outgoing(c.Source.ID) {
		if n, ok := snap.Node(e.Target); ok && n.Kind == node.Round {
			return reject("round %q already progresses to another round", src.RoundName)
		}
	}
	hasQF := snap.CategoryHasRound(c.Source.CategoryID(), model.QuarterFinal)
	if !RoundProgression(src.RoundOrder, tgt.RoundOrder, hasQF) {
		return reject("%s cannot progress to %s", src.RoundOrder, tgt.RoundOrder)
	}
	return nil
}

// ManualPair validates a connection on the manual (category -> round ->
// group -> match) canvas.
func ManualPair(snap *graphstore.Snapshot, c Connection) error {
	if err := common(c); err != nil {
		return err
	}
	src, tgt := c.Source.Kind, c.Target.Kind

	switch src {
	case node.Category:
		if tgt == node.Round {
			return nil
		}
	case node.Round:
		if tgt == node.Group || tgt == node.Match {
			return nil
		}
	case node.Group:
		if tgt == node.Match {
			return nil
		}
	case node.Match:
		if tgt == node.Match {
			return matchToMatch(snap, c)
		}
	case node.Format:
	default:
		node.Unhandled(src)
	}
	return reject("a %s cannot be connected to a %s", src, tgt)
}

func matchToMatch(snap *graphstore.Snapshot, c Connection) error {
	src := c.Source.AsMatch()
	h := c.SourceHandle

	if src.IsRoundRobin {
		if h.IsWinner() || h.IsLoser() {
			return reject("a round-robin match only has a result port")
		}
	} else if h.IsResult() {
		return reject("only round-robin matches have a result port")
	}
	if h.IsLoser() && !src.HasLoserPort() {
		return reject("a final or third-place match has no loser progression")
	}

	tgt := c.Target.AsMatch()
	if c.Target.ID.IsTemporary() || src.RoundID == tgt.RoundID || src.RoundID.IsZero() || tgt.RoundID.IsZero() {
		return nil
	}
	srcRound, okS := snap.Node(src.RoundID)
	tgtRound, okT := snap.Node(tgt.RoundID)
	if !okS || !okT || srcRound.AsRound() == nil || tgtRound.AsRound() == nil {
		return nil
	}
	from, to := srcRound.AsRound().RoundOrder, tgtRound.AsRound().RoundOrder
	hasQF := snap.CategoryHasRound(srcRound.CategoryID(), model.QuarterFinal)
	if !RoundProgression(from, to, hasQF) {
		return reject("a %s match cannot feed a %s match", from, to)
	}
	return nil
}

// common holds the rules shared by both canvases.
func common(c Connection) error {
	if c.Source == nil || c.Target == nil {
		return reject("both ends of a connection must be nodes on the canvas")
	}
	if c.Source.ID == c.Target.ID {
		return reject("a node cannot be connected to itself")
	}
	if c.Target.Kind == node.Category {
		return reject("a category cannot be the target of a connection")
	}
	if c.Source.ID.IsTemporary() {
		return reject("connect the %s into the bracket before drawing connections from it", c.Source.Kind)
	}
	return nil
}
