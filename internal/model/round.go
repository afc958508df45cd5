package model

import (
	"fmt"
	"strings"

	"github.com/vk/bracketflow/internal/nodeid"
)

// RoundOrder is the ordinal stage number of a round.
type RoundOrder int

const (
	// Elimination is the opening stage.
	Elimination RoundOrder = iota
	// QuarterFinal is the stage of the last eight.
	QuarterFinal
	// SemiFinal is the stage of the last four.
	SemiFinal
	// Final is the closing stage. It has no outgoing progression and no loser port.
	Final
)

var roundOrderLabels = map[RoundOrder]string{
	Elimination:  "Elimination",
	QuarterFinal: "Quarterfinal",
	SemiFinal:    "Semifinal",
	Final:        "Final",
}

// Valid reports whether the order is one of the four known stages.
func (o RoundOrder) Valid() bool {
	_, ok := roundOrderLabels[o]
	return ok
}

// String returns the human label of the stage, used as the default round name.
func (o RoundOrder) String() string {
	if label, ok := roundOrderLabels[o]; ok {
		return label
	}
	return fmt.Sprintf("RoundOrder(%d)", int(o))
}

// ParseRoundOrder accepts either a label ("semifinal", "Final") or nothing else.
func ParseRoundOrder(s string) (RoundOrder, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "")
	normalized = strings.ReplaceAll(normalized, " ", "")
	for order, label := range roundOrderLabels {
		if strings.ToLower(label) == normalized {
			return order, nil
		}
	}
	return 0, fmt.Errorf("unknown round order %q", s)
}

// RoundStatus is the lifecycle status of a round as reported by the backend.
type RoundStatus string

const (
	RoundPending    RoundStatus = "pending"
	RoundInProgress RoundStatus = "in_progress"
	RoundCompleted  RoundStatus = "completed"
)

// Round is one stage of a category's tournament.
type Round struct {
	RoundID     nodeid.ID   `json:"round_id"`
	CategoryID  nodeid.ID   `json:"category_id"`
	RoundName   string      `json:"round_name"`
	RoundOrder  RoundOrder  `json:"round_order"`
	RoundStatus RoundStatus `json:"round_status"`
	RoundFormat *Format     `json:"round_format,omitempty"`
	NextRoundID nodeid.ID   `json:"next_round_id,omitempty"`
}

// Clone returns a deep copy of the round.
func (r Round) Clone() Round {
	if r.RoundFormat != nil {
		f := r.RoundFormat.Clone()
		r.RoundFormat = &f
	}
	return r
}

// SetFormat attaches a format to the round. A round holds at most one format,
// so an existing reference is replaced rather than extended.
func (r *Round) SetFormat(f Format) {
	f.RoundID = r.RoundID
	r.RoundFormat = &f
}

// ClearFormat drops the round's format reference.
func (r *Round) ClearFormat() {
	r.RoundFormat = nil
}
