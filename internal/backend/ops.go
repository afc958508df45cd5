package backend

// Op names a Backend operation in logs, metrics and recorded calls.
type Op string

const (
	OpCreateRound         Op = "create_round"
	OpCreateGroup         Op = "create_group"
	OpCreateEmptyMatch    Op = "create_empty_match"
	OpUpdateMatch         Op = "update_match"
	OpUpdateRound         Op = "update_round"
	OpEliminateTeam       Op = "eliminate_team"
	OpCreateEdge          Op = "create_edge"
	OpDeleteEdge          Op = "delete_edge"
	OpDeleteSingleNode    Op = "delete_single_node"
	OpResetCategoryLayout Op = "reset_category_layout"
	OpUpdateNodePosition  Op = "update_node_position"
	OpGetFlowState        Op = "get_flow_state"
	OpGenerateMatches     Op = "generate_matches"
	OpProgressRound       Op = "progress_round"
	OpResetRound          Op = "reset_round"
	OpSynchronizeBracket  Op = "synchronize_bracket"
)

// Ops lists every operation.
func Ops() []Op {
	return []Op{
		OpCreateRound, OpCreateGroup, OpCreateEmptyMatch, OpUpdateMatch, OpUpdateRound,
		OpEliminateTeam, OpCreateEdge, OpDeleteEdge, OpDeleteSingleNode, OpResetCategoryLayout,
		OpUpdateNodePosition, OpGetFlowState, OpGenerateMatches, OpProgressRound, OpResetRound,
		OpSynchronizeBracket,
	}
}

func (o Op) String() string { return string(o) }
