package config

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/bracketflow/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// StepKind is the gesture a layout step replays.
type StepKind string

const (
	StepNode    StepKind = "node"
	StepConnect StepKind = "connect"
	StepMove    StepKind = "move"
	StepRemove  StepKind = "remove"
)

// Layout is an ordered list of gestures. Steps refer to the nodes they drop
// by reference name; any other reference is taken as a node id.
//
//	node "semi" {
//	  kind     = "round"
//	  category = "cat-1"
//	  order    = "semifinal"
//	  position = { x = 0, y = 200 }
//	}
//	connect {
//	  source        = "cat-1"
//	  source_handle = "category-out"
//	  target        = "semi"
//	  target_handle = "round-in"
//	}
//	move "semi" { position = { x = 40, y = 200 } }
//	remove { refs = ["semi"] }
type Layout struct {
	Steps []Step
}

// Step is one gesture of a layout. Exactly one of the pointers is set,
// matching Kind.
type Step struct {
	Kind    StepKind
	Range   hcl.Range
	Node    *NodeStep
	Connect *ConnectStep
	Move    *MoveStep
	Remove  *RemoveStep
}

// Position is a canvas position in a layout file.
type Position struct {
	X float64 `cty:"x"`
	Y float64 `cty:"y"`
}

// NodeStep drops a node.
type NodeStep struct {
	Ref      string    `hcl:"ref,label"`
	Kind     string    `hcl:"kind"`
	Category string    `hcl:"category,optional"`
	Label    string    `hcl:"label,optional"`
	Order    string    `hcl:"order,optional"`
	Position *Position `hcl:"position,optional"`
	// FormatType and FormatConfig describe a format node.
	FormatType   string    `hcl:"format_type,optional"`
	FormatConfig cty.Value `hcl:"format_config,optional"`
	// Special is "final", "third_place" or "runner_up".
	Special     string `hcl:"special,optional"`
	Elimination bool   `hcl:"elimination,optional"`
	RoundRobin  bool   `hcl:"round_robin,optional"`
}

// Config returns the format config as plain Go values.
func (n *NodeStep) Config() (map[string]any, error) {
	v, err := ctyToGo(n.FormatConfig)
	if err != nil || v == nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("format_config of %q must be an object", n.Ref)
	}
	return m, nil
}

// ConnectStep draws an edge. A source handle of "winner", "loser" or
// "result" names the match port of the resolved source.
type ConnectStep struct {
	Source       string `hcl:"source"`
	SourceHandle string `hcl:"source_handle"`
	Target       string `hcl:"target"`
	TargetHandle string `hcl:"target_handle"`
}

// MoveStep ends a drag.
type MoveStep struct {
	Ref      string   `hcl:"ref,label"`
	Position Position `hcl:"position"`
}

// RemoveStep deletes nodes or edges.
type RemoveStep struct {
	Refs []string `hcl:"refs"`
}

// LoadLayout reads a layout file, or every .hcl file of a directory in
// lexical order.
func LoadLayout(ctx context.Context, path string) (*Layout, error) {
	files, err := findHCLFiles(path)
	if err != nil {
		return nil, err
	}
	layout := &Layout{}
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read layout %s: %w", file, err)
		}
		part, err := ParseLayout(ctx, src, file)
		if err != nil {
			return nil, err
		}
		layout.Steps = append(layout.Steps, part.Steps...)
	}
	return layout, nil
}

// ParseLayout decodes layout source. Blocks are kept in source order.
func ParseLayout(ctx context.Context, src []byte, filename string) (*Layout, error) {
	logger := ctxlog.FromContext(ctx)

	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse layout %s: %w", filename, diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("layout %s is not native HCL syntax", filename)
	}
	if len(body.Attributes) > 0 {
		for name, attr := range body.Attributes {
			return nil, fmt.Errorf("layout %s: unexpected attribute %q at %s", filename, name, attr.SrcRange)
		}
	}

	evalCtx := evalContext()
	refs := make(map[string]hcl.Range)
	layout := &Layout{}
	for _, block := range body.Blocks {
		step, err := decodeStep(block, evalCtx)
		if err != nil {
			return nil, fmt.Errorf("layout %s: %w", filename, err)
		}
		if step.Node != nil {
			if prev, dup := refs[step.Node.Ref]; dup {
				return nil, fmt.Errorf("layout %s: node %q at %s already declared at %s", filename, step.Node.Ref, block.Range(), prev)
			}
			refs[step.Node.Ref] = block.Range()
		}
		layout.Steps = append(layout.Steps, step)
	}
	logger.Debug("Layout parsed.", "file", filename, "steps", len(layout.Steps))
	return layout, nil
}

func decodeStep(block *hclsyntax.Block, evalCtx *hcl.EvalContext) (Step, error) {
	step := Step{Kind: StepKind(block.Type), Range: block.Range()}
	var target any
	switch step.Kind {
	case StepNode:
		if len(block.Labels) != 1 {
			return step, fmt.Errorf("node block at %s needs exactly one reference label", block.Range())
		}
		step.Node = &NodeStep{Ref: block.Labels[0]}
		target = step.Node
	case StepConnect:
		step.Connect = &ConnectStep{}
		target = step.Connect
	case StepMove:
		if len(block.Labels) != 1 {
			return step, fmt.Errorf("move block at %s needs exactly one reference label", block.Range())
		}
		step.Move = &MoveStep{Ref: block.Labels[0]}
		target = step.Move
	case StepRemove:
		step.Remove = &RemoveStep{}
		target = step.Remove
	default:
		return step, fmt.Errorf("unknown block %q at %s", block.Type, block.Range())
	}

	// Labels were taken above; decode only the body.
	if diags := gohcl.DecodeBody(block.Body, evalCtx, target); diags.HasErrors() {
		return step, diagError("invalid "+block.Type+" block", block.Range(), diags)
	}
	return step, nil
}
