package dsl

// MachineNode represents a parsed fsm block. Items keep source order;
// the builder and all downstream stages depend on that order.
type MachineNode struct {
	Name    string
	Initial *InitialNode
	States  []*StateNode
	Trans   []*TransNode
	Timers  []*TimerNode
	Choices []*ChoiceNode

	// Decls records every item in source order, interleaved, for tools that
	// need the exact declaration sequence rather than the per-kind slices.
	Decls []Node
}

// Node is implemented by every AST node.
type Node interface {
	NodePos() Pos
}

// InitialNode represents the [*] --> Target marker.
type InitialNode struct {
	Target string
	Pos    Pos
}

// StateNode represents a state declaration with optional description and
// entry/exit hook lines.
type StateNode struct {
	ID          string
	Description string
	Entry       []*ActionNode
	Exit        []*ActionNode
	Pos         Pos
}

// TransNode represents a transition line: Source --> Target : Event [Guard] / actions.
type TransNode struct {
	Source  string
	Target  string
	Event   string
	Guard   string
	Actions []*ActionNode
	Pos     Pos
}

// TimerNode represents a timer declaration: timer ID = Duration -> Event [periodic].
type TimerNode struct {
	ID       string
	Duration int
	Event    string
	Periodic bool
	Pos      Pos
}

// ChoiceNode represents a choice block with ordered branches.
type ChoiceNode struct {
	ID       string
	Branches []*BranchNode
	Pos      Pos
}

// BranchNode represents one branch of a choice. Else branches have no
// condition text.
type BranchNode struct {
	Cond    string
	Target  string
	Actions []*ActionNode
	Else    bool
	Pos     Pos
}

// ActionNode represents one call-shaped action reference.
type ActionNode struct {
	Name string
	Args []string
	Pos  Pos
}

func (n *InitialNode) NodePos() Pos { return n.Pos }
func (n *StateNode) NodePos() Pos   { return n.Pos }
func (n *TransNode) NodePos() Pos   { return n.Pos }
func (n *TimerNode) NodePos() Pos   { return n.Pos }
func (n *ChoiceNode) NodePos() Pos  { return n.Pos }
func (n *BranchNode) NodePos() Pos  { return n.Pos }
func (n *ActionNode) NodePos() Pos  { return n.Pos }
