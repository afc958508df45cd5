package model

import (
	"maps"

	"github.com/goccy/go-json"
	"github.com/vk/bracketflow/internal/nodeid"
)

// Format describes how the matches of a round are played (round robin,
// single elimination, ...).
type Format struct {
	FormatID     nodeid.ID      `json:"format_id,omitempty"`
	RoundID      nodeid.ID      `json:"round_id,omitempty"`
	FormatType   string         `json:"format_type"`
	FormatConfig map[string]any `json:"format_config,omitempty"`
}

// Clone returns a copy whose config map is not shared with the receiver.
func (f Format) Clone() Format {
	f.FormatConfig = maps.Clone(f.FormatConfig)
	return f
}

// Serialize renders a format in a stable form for change detection. Map keys
// are emitted in sorted order.
func (f *Format) Serialize() string {
	if f == nil {
		return ""
	}
	b, err := json.Marshal(struct {
		FormatType   string         `json:"format_type"`
		FormatConfig map[string]any `json:"format_config,omitempty"`
	}{f.FormatType, f.FormatConfig})
	if err != nil {
		return f.FormatType
	}
	return string(b)
}
