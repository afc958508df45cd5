package editor

import (
	"context"
	"fmt"

	"github.com/vk/bracketflow/internal/factory"
	"github.com/vk/bracketflow/internal/flowerr"
	"github.com/vk/bracketflow/internal/model"
	"github.com/vk/bracketflow/internal/node"
	"github.com/vk/bracketflow/internal/nodeid"
	"github.com/vk/bracketflow/internal/port"
	"github.com/vk/bracketflow/internal/validate"
)

// Gesture names, used as metric labels and log attributes.
const (
	GestureDrop      = "drop"
	GestureConnect   = "connect"
	GestureDragStop  = "drag_stop"
	GestureRemove    = "remove"
	GestureSelection = "selection_change"
	GestureSave      = "save"
	GestureSetFormat = "set_format"
	GestureEliminate = "eliminate_team"
)

// Gesture is a canvas event a session can apply.
type Gesture interface {
	Name() string
	apply(ctx context.Context, s *Session) error
}

// Special marks a match that keeps its label instead of a generated name.
type Special string

const (
	NotSpecial Special = ""
	Final      Special = "final"
	ThirdPlace Special = "third_place"
	RunnerUp   Special = "runner_up"
)

// ParseSpecial maps a special match name to its value.
func ParseSpecial(s string) (Special, error) {
	switch sp := Special(s); sp {
	case NotSpecial, Final, ThirdPlace, RunnerUp:
		return sp, nil
	default:
		return "", fmt.Errorf("unknown special match %q", s)
	}
}

// Drop places a new, temporary node on the canvas. It becomes durable when
// it is connected into the bracket.
type Drop struct {
	Kind             node.Kind
	Position         model.Position
	ParentCategoryID nodeid.ID
	// Label names a round or a special match.
	Label        string
	RoundOrder   model.RoundOrder
	FormatType   string
	FormatConfig map[string]any
	Special      Special
	// IsElimination names a match "Elimination Match n" instead of "Match n".
	IsElimination bool
	IsRoundRobin  bool
}

func (Drop) Name() string { return GestureDrop }

func (d Drop) apply(ctx context.Context, s *Session) error {
	_, err := s.drop(ctx, d)
	return err
}

// node builds the temporary node of the drop, rejecting kinds the canvas
// does not place.
func (d Drop) node(canvas validate.Canvas) (*node.Node, error) {
	reject := func(format string, args ...any) error {
		return flowerr.New(flowerr.ValidationRejection, GestureDrop, format, args...)
	}

	n := node.New(nodeid.NewTemporary(), d.Kind, d.Position)
	n.ParentCategoryID = d.ParentCategoryID

	switch d.Kind {
	case node.Category:
		return nil, reject("categories are created outside the canvas")
	case node.Round:
		if !d.RoundOrder.Valid() {
			return nil, reject("unknown round order %d", int(d.RoundOrder))
		}
		n.Data = &node.RoundData{Round: model.Round{
			CategoryID:  d.ParentCategoryID,
			RoundName:   factory.RoundName(d.Label, d.RoundOrder),
			RoundOrder:  d.RoundOrder,
			RoundStatus: model.RoundPending,
		}}
	case node.Group:
		if canvas != validate.Manual {
			return nil, reject("groups are placed on the manual canvas")
		}
		n.Data = &node.GroupData{Group: model.Group{CategoryID: d.ParentCategoryID}}
	case node.Match:
		if canvas != validate.Manual {
			return nil, reject("matches are placed on the manual canvas")
		}
		m := model.Match{
			CategoryID:        d.ParentCategoryID,
			DependsOnMatchIDs: []nodeid.ID{},
			IsFinal:           d.Special == Final,
			IsThirdPlace:      d.Special == ThirdPlace,
			IsRunnerUp:        d.Special == RunnerUp,
			IsElimination:     d.IsElimination,
			IsRoundRobin:      d.IsRoundRobin,
		}
		data := &node.MatchData{Match: m}
		if m.IsSpecial() {
			data.Label = factory.SpecialLabel(d.Label, m)
			data.Match.DisplayName = data.Label
		}
		n.Data = data
	case node.Format:
		if canvas != validate.Automatic {
			return nil, reject("formats are placed on the automatic canvas")
		}
		if d.FormatType == "" {
			return nil, reject("a format needs a type")
		}
		// The format id is issued by the backend; the node id stays local.
		n.Data = &node.FormatData{Format: model.Format{
			FormatType:   d.FormatType,
			FormatConfig: d.FormatConfig,
		}}
	default:
		node.Unhandled(d.Kind)
	}
	return n, nil
}

// Connect draws an edge between two ports.
type Connect struct {
	Source       nodeid.ID
	SourceHandle port.Port
	Target       nodeid.ID
	TargetHandle port.Port
}

func (Connect) Name() string { return GestureConnect }

func (c Connect) apply(ctx context.Context, s *Session) error {
	_, err := s.connect(ctx, c)
	return err
}

// DragStop ends a node drag at Position.
type DragStop struct {
	NodeID   nodeid.ID
	Position model.Position
}

func (DragStop) Name() string { return GestureDragStop }

func (d DragStop) apply(ctx context.Context, s *Session) error { return s.dragStop(ctx, d) }

// Remove deletes nodes and edges. IDs may name either.
type Remove struct {
	IDs []nodeid.ID
}

func (Remove) Name() string { return GestureRemove }

func (r Remove) apply(ctx context.Context, s *Session) error { return s.remove(ctx, r) }

// SelectionChange replaces the selection.
type SelectionChange struct {
	IDs []nodeid.ID
}

func (SelectionChange) Name() string { return GestureSelection }

func (c SelectionChange) apply(ctx context.Context, s *Session) error {
	s.store.MarkSelected(ctx, c.IDs...)
	return nil
}
