package guard

import (
	"fmt"
	"sync"
)

// Evaluator decides guard outcomes for the execution engine and the
// scenario runner. Implementations are keyed by raw guard text: the same
// expression string always denotes the same predicate. The engine treats
// every returned error as guard=false, so a broken guard can never stall a
// simulation.
type Evaluator interface {
	Eval(expr string, env Env) (bool, error)
}

// EvaluatorFunc adapts a plain function to the Evaluator interface, letting
// an embedding application route guard text to its own code.
type EvaluatorFunc func(expr string, env Env) (bool, error)

// Eval implements Evaluator.
func (f EvaluatorFunc) Eval(expr string, env Env) (bool, error) {
	return f(expr, env)
}

// Compiled represents a pre-compiled guard expression.
type Compiled struct {
	expr string
	ast  Node
}

// Compile parses a guard expression into a compiled form for repeated
// evaluation.
func Compile(expr string) (*Compiled, error) {
	if expr == "" {
		return nil, fmt.Errorf("empty expression")
	}
	ast, err := NewParser(expr).Parse()
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return &Compiled{expr: expr, ast: ast}, nil
}

// String returns the original expression.
func (c *Compiled) String() string {
	return c.expr
}

// Eval evaluates the compiled expression against an environment.
func (c *Compiled) Eval(env Env, funcs map[string]Func) (bool, error) {
	if c == nil || c.ast == nil {
		return true, nil
	}
	ctx := &evalContext{env: env, funcs: funcs}
	if ctx.env == nil {
		ctx.env = Env{}
	}
	if ctx.funcs == nil {
		ctx.funcs = map[string]Func{}
	}
	result, err := evalNode(c.ast, ctx)
	if err != nil {
		return false, err
	}
	b, ok := toBool(result)
	if !ok {
		return false, fmt.Errorf("guard must evaluate to a boolean, got %T", result)
	}
	return b, nil
}

// Evaluate parses and evaluates a guard expression in one call. An empty
// expression always passes.
func Evaluate(expr string, env Env) (bool, error) {
	if expr == "" {
		return true, nil
	}
	compiled, err := Compile(expr)
	if err != nil {
		return false, err
	}
	return compiled.Eval(env, nil)
}

// ExprEvaluator is the default Evaluator: the expression language of this
// package plus registered host functions. Compiled expressions are cached
// by text, since guards re-evaluate on every dispatch.
type ExprEvaluator struct {
	mu    sync.Mutex
	cache map[string]*Compiled
	funcs map[string]Func
}

// NewEvaluator creates an empty expression evaluator.
func NewEvaluator() *ExprEvaluator {
	return &ExprEvaluator{
		cache: make(map[string]*Compiled),
		funcs: make(map[string]Func),
	}
}

// RegisterFunc makes a host function callable from guard expressions.
func (e *ExprEvaluator) RegisterFunc(name string, fn Func) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.funcs[name] = fn
}

// Eval implements Evaluator.
func (e *ExprEvaluator) Eval(expr string, env Env) (bool, error) {
	if expr == "" {
		return true, nil
	}
	compiled, err := e.compiled(expr)
	if err != nil {
		return false, err
	}
	e.mu.Lock()
	funcs := e.funcs
	e.mu.Unlock()
	return compiled.Eval(env, funcs)
}

func (e *ExprEvaluator) compiled(expr string) (*Compiled, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.cache[expr]; ok {
		return c, nil
	}
	c, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	e.cache[expr] = c
	return c, nil
}
