package validate

import (
	"fmt"
	"strings"
)

// Canvas selects the rule set a session edits under.
type Canvas int

const (
	// Manual is the category -> round -> group -> match bracket canvas.
	// Every edit is persisted immediately.
	Manual Canvas = iota + 1
	// Automatic is the round -> format canvas. Round data is persisted by an
	// explicit save.
	Automatic
)

func (c Canvas) String() string {
	switch c {
	case Manual:
		return "manual"
	case Automatic:
		return "automatic"
	default:
		return fmt.Sprintf("Canvas(%d)", int(c))
	}
}

// ParseCanvas maps "manual" or "automatic" to its Canvas.
func ParseCanvas(s string) (Canvas, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "manual":
		return Manual, nil
	case "automatic":
		return Automatic, nil
	default:
		return 0, fmt.Errorf("unknown canvas %q", s)
	}
}

// Pair returns the type-pair validator of the canvas.
func (c Canvas) Pair() Func {
	if c == Automatic {
		return AutomaticPair
	}
	return ManualPair
}
