package model

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/bracketflow/internal/nodeid"
)

func TestParseRoundOrder(t *testing.T) {
	t.Parallel()

	testCases := map[string]RoundOrder{
		"Elimination":   Elimination,
		"quarterfinal":  QuarterFinal,
		"Quarter-Final": QuarterFinal,
		"semi final":    SemiFinal,
		"FINAL":         Final,
	}
	for input, expected := range testCases {
		got, err := ParseRoundOrder(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, got, input)
	}

	_, err := ParseRoundOrder("playoff")
	assert.ErrorContains(t, err, "unknown round order")
}

func TestRound_SetFormatReplaces(t *testing.T) {
	t.Parallel()

	r := Round{RoundID: "r1"}
	r.SetFormat(Format{FormatType: "RoundRobin"})
	r.SetFormat(Format{FormatType: "SingleElimination"})

	require.NotNil(t, r.RoundFormat)
	assert.Equal(t, "SingleElimination", r.RoundFormat.FormatType)
	assert.Equal(t, nodeid.ID("r1"), r.RoundFormat.RoundID)

	r.ClearFormat()
	assert.Nil(t, r.RoundFormat)
}

func TestRound_CloneDoesNotShareFormat(t *testing.T) {
	t.Parallel()

	r := Round{RoundID: "r1"}
	r.SetFormat(Format{FormatType: "RoundRobin", FormatConfig: map[string]any{"legs": 2}})

	c := r.Clone()
	c.RoundFormat.FormatConfig["legs"] = 3

	assert.Equal(t, 2, r.RoundFormat.FormatConfig["legs"])
}

func TestFormat_SerializeIsStable(t *testing.T) {
	t.Parallel()

	a := &Format{FormatType: "RoundRobin", FormatConfig: map[string]any{"b": 1, "a": 2}}
	b := &Format{FormatType: "RoundRobin", FormatConfig: map[string]any{"a": 2, "b": 1}}

	assert.Equal(t, a.Serialize(), b.Serialize())
	assert.Empty(t, (*Format)(nil).Serialize())
}

func TestMatch_Dependencies(t *testing.T) {
	t.Parallel()

	m := Match{DependsOnMatchIDs: []nodeid.ID{"m1"}}
	m.AddDependency("m2")
	m.AddDependency("m2")
	assert.Equal(t, []nodeid.ID{"m1", "m2"}, m.DependsOnMatchIDs)

	m.RemoveDependency("m1")
	assert.Equal(t, []nodeid.ID{"m2"}, m.DependsOnMatchIDs)
}

func TestMatch_Ports(t *testing.T) {
	t.Parallel()

	assert.True(t, Match{}.HasLoserPort())
	assert.False(t, Match{IsFinal: true}.HasLoserPort())
	assert.False(t, Match{IsThirdPlace: true}.HasLoserPort())
	assert.False(t, Match{IsRoundRobin: true}.HasLoserPort())
	assert.True(t, Match{IsRunnerUp: true}.IsSpecial())
}

func TestMatchUpdate_Apply(t *testing.T) {
	t.Parallel()

	next := nodeid.ID("m9")
	m := Match{LeagueMatchID: "m1", LoserNextMatchID: "m5"}
	MatchUpdate{NextMatchID: &next}.Apply(&m)

	assert.Equal(t, next, m.NextMatchID)
	assert.Equal(t, nodeid.ID("m5"), m.LoserNextMatchID, "unset fields stay untouched")
}

func TestMatchUpdate_JSONOmitsUnsetDependencies(t *testing.T) {
	t.Parallel()

	next := nodeid.ID("m2")
	testCases := []struct {
		name   string
		update MatchUpdate
		want   string
	}{
		{name: "next match only", update: MatchUpdate{NextMatchID: &next}, want: `{"next_match_id":"m2"}`},
		{name: "cleared dependencies", update: MatchUpdate{DependsOnMatchIDs: DependsOn(nil)}, want: `{"depends_on_match_ids":[]}`},
		{name: "dependencies", update: MatchUpdate{DependsOnMatchIDs: DependsOn([]nodeid.ID{"m1"})}, want: `{"depends_on_match_ids":["m1"]}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			raw, err := json.Marshal(tc.update)

			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(raw))
		})
	}
}

func TestMatchUpdate_ApplyClearsDependencies(t *testing.T) {
	t.Parallel()

	m := Match{DependsOnMatchIDs: []nodeid.ID{"m1"}}
	MatchUpdate{DependsOnMatchIDs: DependsOn(nil)}.Apply(&m)

	assert.Equal(t, []nodeid.ID{}, m.DependsOnMatchIDs)
}
