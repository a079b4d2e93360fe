// Package guard evaluates the boolean conditions gating transitions and
// choice branches. Guard text is opaque to the rest of the system; the
// engine resolves it through the Evaluator interface, and this package
// supplies the default implementation: a small expression language with
// 256-bit integer arithmetic, comparisons, short-circuit logic, and host
// registered functions.
package guard

// Node is implemented by every expression AST node.
type Node interface {
	exprNode()
}

// BoolLit is a true/false literal.
type BoolLit struct {
	Value bool
}

// NumberLit is a decimal integer literal.
type NumberLit struct {
	Value int64
}

// StringLit is a quoted string literal.
type StringLit struct {
	Value string
}

// Identifier resolves a name from the evaluation environment.
type Identifier struct {
	Name string
}

// UnaryOp applies ! or - to an operand.
type UnaryOp struct {
	Op      string
	Operand Node
}

// BinaryOp applies an arithmetic, relational, equality, or logical operator.
// Logical operators short-circuit.
type BinaryOp struct {
	Op    string
	Left  Node
	Right Node
}

// CallExpr invokes a registered function.
type CallExpr struct {
	Func string
	Args []Node
}

// IndexExpr looks up a key in a map-valued expression; missing keys
// evaluate to zero rather than failing.
type IndexExpr struct {
	Object Node
	Index  Node
}

func (*BoolLit) exprNode()    {}
func (*NumberLit) exprNode()  {}
func (*StringLit) exprNode()  {}
func (*Identifier) exprNode() {}
func (*UnaryOp) exprNode()    {}
func (*BinaryOp) exprNode()   {}
func (*CallExpr) exprNode()   {}
func (*IndexExpr) exprNode()  {}
