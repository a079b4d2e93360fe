package guard

import (
	"fmt"
	"strconv"

	"github.com/holiman/uint256"
)

// Func is a host function callable from guard expressions.
type Func func(args ...any) (any, error)

// Env holds the named bindings visible to one evaluation.
type Env map[string]any

// evalContext carries bindings and functions through one evaluation.
type evalContext struct {
	env   Env
	funcs map[string]Func
}

// evalNode evaluates an AST node.
func evalNode(node Node, ctx *evalContext) (any, error) {
	if node == nil {
		return nil, fmt.Errorf("nil node")
	}

	switch n := node.(type) {
	case *BoolLit:
		return n.Value, nil

	case *NumberLit:
		return n.Value, nil

	case *StringLit:
		return n.Value, nil

	case *Identifier:
		val, ok := ctx.env[n.Name]
		if !ok {
			return nil, fmt.Errorf("unknown identifier: %s", n.Name)
		}
		return val, nil

	case *UnaryOp:
		operand, err := evalNode(n.Operand, ctx)
		if err != nil {
			return nil, err
		}
		return evalUnary(n.Op, operand)

	case *BinaryOp:
		// Short-circuit evaluation for && and ||.
		if n.Op == "&&" || n.Op == "||" {
			return evalLogical(n, ctx)
		}
		left, err := evalNode(n.Left, ctx)
		if err != nil {
			return nil, err
		}
		right, err := evalNode(n.Right, ctx)
		if err != nil {
			return nil, err
		}
		return evalBinary(n.Op, left, right)

	case *CallExpr:
		fn, ok := ctx.funcs[n.Func]
		if !ok {
			return nil, fmt.Errorf("unknown function: %s", n.Func)
		}
		args := make([]any, len(n.Args))
		for i, arg := range n.Args {
			val, err := evalNode(arg, ctx)
			if err != nil {
				return nil, err
			}
			args[i] = val
		}
		return fn(args...)

	case *IndexExpr:
		obj, err := evalNode(n.Object, ctx)
		if err != nil {
			return nil, err
		}
		index, err := evalNode(n.Index, ctx)
		if err != nil {
			return nil, err
		}
		return evalIndex(obj, index)

	default:
		return nil, fmt.Errorf("unknown node type: %T", node)
	}
}

func evalLogical(n *BinaryOp, ctx *evalContext) (any, error) {
	left, err := evalNode(n.Left, ctx)
	if err != nil {
		return nil, err
	}
	leftBool, ok := toBool(left)
	if !ok {
		return nil, fmt.Errorf("left operand of %s must be boolean", n.Op)
	}
	if n.Op == "&&" && !leftBool {
		return false, nil
	}
	if n.Op == "||" && leftBool {
		return true, nil
	}
	right, err := evalNode(n.Right, ctx)
	if err != nil {
		return nil, err
	}
	rightBool, ok := toBool(right)
	if !ok {
		return nil, fmt.Errorf("right operand of %s must be boolean", n.Op)
	}
	return rightBool, nil
}

func evalUnary(op string, operand any) (any, error) {
	switch op {
	case "!":
		b, ok := toBool(operand)
		if !ok {
			return nil, fmt.Errorf("operand of ! must be boolean")
		}
		return !b, nil
	case "-":
		n, ok := toInt64(operand)
		if !ok {
			return nil, fmt.Errorf("operand of unary - must be numeric")
		}
		return -n, nil
	default:
		return nil, fmt.Errorf("unknown unary operator: %s", op)
	}
}

func evalBinary(op string, left, right any) (any, error) {
	switch op {
	case "+", "-", "*", "/", "%":
		return evalArithmetic(op, left, right)
	case ">", "<", ">=", "<=":
		return evalRelational(op, left, right)
	case "==", "!=":
		equal := compareValues(left, right)
		if op == "==" {
			return equal, nil
		}
		return !equal, nil
	default:
		return nil, fmt.Errorf("unknown binary operator: %s", op)
	}
}

func evalArithmetic(op string, left, right any) (any, error) {
	// 256-bit arithmetic when either operand is already a uint256.
	if isU256(left) || isU256(right) {
		l, lok := toU256(left)
		r, rok := toU256(right)
		if !lok || !rok {
			return nil, fmt.Errorf("arithmetic operands must be numeric")
		}
		return evalArithmeticU256(op, l, r)
	}

	l, lok := toInt64(left)
	r, rok := toInt64(right)
	if !lok || !rok {
		return nil, fmt.Errorf("arithmetic operands must be numeric")
	}

	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return l / r, nil
	case "%":
		if r == 0 {
			return nil, fmt.Errorf("modulo by zero")
		}
		return l % r, nil
	default:
		return nil, fmt.Errorf("unknown arithmetic operator: %s", op)
	}
}

func evalArithmeticU256(op string, left, right *uint256.Int) (any, error) {
	result := new(uint256.Int)
	switch op {
	case "+":
		result.Add(left, right)
	case "-":
		result.Sub(left, right)
	case "*":
		result.Mul(left, right)
	case "/":
		if right.IsZero() {
			return nil, fmt.Errorf("division by zero")
		}
		result.Div(left, right)
	case "%":
		if right.IsZero() {
			return nil, fmt.Errorf("modulo by zero")
		}
		result.Mod(left, right)
	default:
		return nil, fmt.Errorf("unknown arithmetic operator: %s", op)
	}
	return result, nil
}

func evalRelational(op string, left, right any) (any, error) {
	if isU256(left) || isU256(right) {
		l, lok := toU256(left)
		r, rok := toU256(right)
		if !lok || !rok {
			return nil, fmt.Errorf("relational operands must be numeric")
		}
		cmp := l.Cmp(r)
		switch op {
		case ">":
			return cmp > 0, nil
		case "<":
			return cmp < 0, nil
		case ">=":
			return cmp >= 0, nil
		default:
			return cmp <= 0, nil
		}
	}

	l, lok := toInt64(left)
	r, rok := toInt64(right)
	if !lok || !rok {
		return nil, fmt.Errorf("relational operands must be numeric")
	}
	switch op {
	case ">":
		return l > r, nil
	case "<":
		return l < r, nil
	case ">=":
		return l >= r, nil
	default:
		return l <= r, nil
	}
}

func compareValues(left, right any) bool {
	if isU256(left) || isU256(right) {
		l, lok := toU256(left)
		r, rok := toU256(right)
		if lok && rok {
			return l.Cmp(r) == 0
		}
	}

	if l, lok := toInt64(left); lok {
		if r, rok := toInt64(right); rok {
			return l == r
		}
	}

	if lb, lok := left.(bool); lok {
		if rb, rok := right.(bool); rok {
			return lb == rb
		}
	}

	ls, lok := left.(string)
	rs, rok := right.(string)
	if lok && rok {
		return ls == rs
	}

	return left == right
}

// evalIndex looks up a key in a map binding. Missing keys resolve to zero,
// so sparse counters read naturally from guard text.
func evalIndex(obj, index any) (any, error) {
	if obj == nil {
		return int64(0), nil
	}
	key, ok := toIndexKey(index)
	if !ok {
		return nil, fmt.Errorf("map index must be a string or number")
	}

	switch o := obj.(type) {
	case map[string]any:
		val, exists := o[key]
		if !exists {
			return int64(0), nil
		}
		return val, nil
	case map[string]int64:
		return o[key], nil
	case map[string]*uint256.Int:
		val, exists := o[key]
		if !exists {
			return uint256.NewInt(0), nil
		}
		return val, nil
	case Env:
		val, exists := o[key]
		if !exists {
			return int64(0), nil
		}
		return val, nil
	default:
		return nil, fmt.Errorf("cannot index type %T", obj)
	}
}

func toIndexKey(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case int64:
		return strconv.FormatInt(val, 10), true
	case int:
		return strconv.Itoa(val), true
	default:
		return "", false
	}
}

func toBool(v any) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case int64:
		// Zero is false, non-zero is true.
		return val != 0, true
	case int:
		return val != 0, true
	case *uint256.Int:
		return !val.IsZero(), true
	default:
		return false, false
	}
}

func toInt64(v any) (int64, bool) {
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	case int32:
		return int64(val), true
	case uint64:
		return int64(val), true
	case float64:
		return int64(val), true
	case *uint256.Int:
		if val.IsUint64() {
			return int64(val.Uint64()), true
		}
		return 0, false
	case string:
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// toU256 converts a value to *uint256.Int if possible.
func toU256(v any) (*uint256.Int, bool) {
	switch val := v.(type) {
	case *uint256.Int:
		return val, true
	case int64:
		return uint256.NewInt(uint64(val)), true
	case int:
		return uint256.NewInt(uint64(val)), true
	case uint64:
		return uint256.NewInt(val), true
	case float64:
		return uint256.NewInt(uint64(val)), true
	case string:
		result := new(uint256.Int)
		if err := result.SetFromDecimal(val); err != nil {
			return nil, false
		}
		return result, true
	default:
		return nil, false
	}
}

func isU256(v any) bool {
	_, ok := v.(*uint256.Int)
	return ok
}
