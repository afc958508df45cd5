package validate

import "github.com/vk/bracketflow/internal/model"

// RoundProgression reports whether a round of order src may feed a round of
// order tgt. Elimination may skip straight to the semifinal only when the
// category has no quarterfinal.
func RoundProgression(src, tgt model.RoundOrder, categoryHasQuarterFinal bool) bool {
	switch {
	case src == model.Elimination && tgt == model.QuarterFinal:
		return true
	case src == model.Elimination && tgt == model.SemiFinal:
		return !categoryHasQuarterFinal
	case src == model.QuarterFinal && tgt == model.SemiFinal:
		return true
	case src == model.SemiFinal && tgt == model.Final:
		return true
	default:
		return false
	}
}
