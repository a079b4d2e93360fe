package dsl

import (
	"strconv"
	"strings"
)

// Parser parses DSL source into a MachineNode AST.
type Parser struct {
	lexer *Lexer
	cur   Token
	peek  Token
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input)}
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses the input and returns a MachineNode, or the SyntaxError for
// the first unmatched token.
func Parse(input string) (*MachineNode, error) {
	return NewParser(input).parseMachine()
}

func (p *Parser) nextToken() {
	p.cur = p.peek
	p.peek = p.lexer.NextToken()
}

// errExpect builds a SyntaxError at the current token listing the grammar
// alternatives that would have been accepted.
func (p *Parser) errExpect(expected ...string) *SyntaxError {
	if p.cur.Type == TokenIllegal {
		return &SyntaxError{Pos: p.cur.Pos, Msg: p.cur.Literal}
	}
	return &SyntaxError{Pos: p.cur.Pos, Got: describeToken(p.cur), Expected: expected}
}

func (p *Parser) expect(t TokenType) error {
	if p.cur.Type != t {
		return p.errExpect(t.String())
	}
	p.nextToken()
	return nil
}

// expectIdent consumes and returns an identifier token.
func (p *Parser) expectIdent(what string) (string, error) {
	if p.cur.Type != TokenIdent {
		return "", p.errExpect(what)
	}
	lit := p.cur.Literal
	p.nextToken()
	return lit, nil
}

// curKeyword reports whether the current token is the given bare keyword.
func (p *Parser) curKeyword(kw string) bool {
	return p.cur.Type == TokenIdent && p.cur.Literal == kw
}

func (p *Parser) parseMachine() (*MachineNode, error) {
	if !p.curKeyword("fsm") {
		return nil, p.errExpect("'fsm'")
	}
	p.nextToken()

	name, err := p.expectIdent("machine name")
	if err != nil {
		return nil, err
	}
	node := &MachineNode{Name: name}

	if err := p.expect(TokenLBrace); err != nil {
		return nil, err
	}

	for p.cur.Type != TokenRBrace && p.cur.Type != TokenEOF {
		if err := p.parseItem(node); err != nil {
			return nil, err
		}
	}

	if err := p.expect(TokenRBrace); err != nil {
		return nil, err
	}
	if p.cur.Type != TokenEOF {
		return nil, p.errExpect("end of input")
	}
	return node, nil
}

// parseItem parses one declaration inside the fsm block. The keywords state,
// timer, and choice double as ordinary identifiers when followed by '-->',
// so dispatch looks at the token after them.
func (p *Parser) parseItem(node *MachineNode) error {
	switch {
	case p.cur.Type == TokenInitial:
		return p.parseInitial(node)
	case p.curKeyword("state") && p.peek.Type == TokenIdent:
		return p.parseState(node)
	case p.curKeyword("timer") && p.peek.Type == TokenIdent:
		return p.parseTimer(node)
	case p.curKeyword("choice") && p.peek.Type == TokenIdent:
		return p.parseChoice(node)
	case p.cur.Type == TokenIdent:
		return p.parseTransition(node)
	default:
		return p.errExpect("'[*]'", "'state'", "'timer'", "'choice'", "transition source")
	}
}

func (p *Parser) parseInitial(node *MachineNode) error {
	pos := p.cur.Pos
	if node.Initial != nil {
		return &SyntaxError{Pos: pos, Msg: "duplicate initial state marker"}
	}
	p.nextToken() // consume [*]

	if err := p.expect(TokenLongArrow); err != nil {
		return err
	}
	target, err := p.expectIdent("initial state name")
	if err != nil {
		return err
	}
	init := &InitialNode{Target: target, Pos: pos}
	node.Initial = init
	node.Decls = append(node.Decls, init)
	return nil
}

func (p *Parser) parseState(node *MachineNode) error {
	pos := p.cur.Pos
	p.nextToken() // consume 'state'

	id, err := p.expectIdent("state name")
	if err != nil {
		return err
	}
	state := &StateNode{ID: id, Pos: pos}

	if p.cur.Type == TokenColon {
		p.nextToken()
		if p.cur.Type != TokenString {
			return p.errExpect("state description string")
		}
		state.Description = p.cur.Literal
		p.nextToken()
	}

	if p.cur.Type == TokenLBrace {
		p.nextToken()
		for p.cur.Type != TokenRBrace {
			isEntry := p.curKeyword("entry")
			if !isEntry && !p.curKeyword("exit") {
				return p.errExpect("'entry'", "'exit'", "'}'")
			}
			p.nextToken()
			if err := p.expect(TokenSlash); err != nil {
				return err
			}
			actions, err := p.parseActionList()
			if err != nil {
				return err
			}
			if isEntry {
				state.Entry = append(state.Entry, actions...)
			} else {
				state.Exit = append(state.Exit, actions...)
			}
		}
		p.nextToken() // consume '}'
	}

	node.States = append(node.States, state)
	node.Decls = append(node.Decls, state)
	return nil
}

func (p *Parser) parseTransition(node *MachineNode) error {
	pos := p.cur.Pos
	source := p.cur.Literal
	p.nextToken()

	if err := p.expect(TokenLongArrow); err != nil {
		return err
	}
	target, err := p.expectIdent("transition target")
	if err != nil {
		return err
	}
	trans := &TransNode{Source: source, Target: target, Pos: pos}

	if p.cur.Type == TokenColon {
		p.nextToken()
		got := false
		if p.cur.Type == TokenIdent {
			trans.Event = p.cur.Literal
			p.nextToken()
			got = true
		}
		if p.cur.Type == TokenBracket {
			trans.Guard = strings.TrimSpace(p.cur.Literal)
			p.nextToken()
			got = true
		}
		if p.cur.Type == TokenSlash {
			p.nextToken()
			actions, err := p.parseActionList()
			if err != nil {
				return err
			}
			trans.Actions = actions
			got = true
		}
		if !got {
			return p.errExpect("event name", "'[guard]'", "'/'")
		}
	}

	node.Trans = append(node.Trans, trans)
	node.Decls = append(node.Decls, trans)
	return nil
}

func (p *Parser) parseTimer(node *MachineNode) error {
	pos := p.cur.Pos
	p.nextToken() // consume 'timer'

	id, err := p.expectIdent("timer name")
	if err != nil {
		return err
	}
	timer := &TimerNode{ID: id, Pos: pos}

	if err := p.expect(TokenEquals); err != nil {
		return err
	}
	if p.cur.Type != TokenInt {
		return p.errExpect("timer duration")
	}
	dur, err := strconv.Atoi(p.cur.Literal)
	if err != nil {
		return &SyntaxError{Pos: p.cur.Pos, Msg: "timer duration out of range"}
	}
	timer.Duration = dur
	p.nextToken()

	if err := p.expect(TokenArrow); err != nil {
		return err
	}
	event, err := p.expectIdent("timer event name")
	if err != nil {
		return err
	}
	timer.Event = event

	if p.curKeyword("periodic") {
		timer.Periodic = true
		p.nextToken()
	}

	node.Timers = append(node.Timers, timer)
	node.Decls = append(node.Decls, timer)
	return nil
}

func (p *Parser) parseChoice(node *MachineNode) error {
	pos := p.cur.Pos
	p.nextToken() // consume 'choice'

	id, err := p.expectIdent("choice name")
	if err != nil {
		return err
	}
	choice := &ChoiceNode{ID: id, Pos: pos}

	if err := p.expect(TokenLBrace); err != nil {
		return err
	}

	for p.cur.Type == TokenBracket {
		branch := &BranchNode{Pos: p.cur.Pos}
		cond := strings.TrimSpace(p.cur.Literal)
		if cond == "else" {
			branch.Else = true
		} else {
			branch.Cond = cond
		}
		p.nextToken()

		if err := p.expect(TokenArrow); err != nil {
			return err
		}
		target, err := p.expectIdent("branch target")
		if err != nil {
			return err
		}
		branch.Target = target

		if p.cur.Type == TokenSlash {
			p.nextToken()
			actions, err := p.parseActionList()
			if err != nil {
				return err
			}
			branch.Actions = actions
		}

		choice.Branches = append(choice.Branches, branch)
	}

	if p.cur.Type != TokenRBrace {
		return p.errExpect("'[condition]' branch", "'}'")
	}
	p.nextToken()

	node.Choices = append(node.Choices, choice)
	node.Decls = append(node.Decls, choice)
	return nil
}

// parseActionList parses one or more comma-separated actions: a(), b(x, y), c.
func (p *Parser) parseActionList() ([]*ActionNode, error) {
	var actions []*ActionNode
	for {
		if p.cur.Type != TokenIdent {
			return nil, p.errExpect("action name")
		}
		action := &ActionNode{Name: p.cur.Literal, Pos: p.cur.Pos}
		p.nextToken()

		if p.cur.Type == TokenArgs {
			action.Args = splitArgs(p.cur.Literal)
			p.nextToken()
		}
		actions = append(actions, action)

		if p.cur.Type != TokenComma {
			return actions, nil
		}
		p.nextToken()
	}
}

// splitArgs splits raw argument text on top-level commas, leaving nested
// call or index expressions intact.
func splitArgs(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var args []string
	depth := 0
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(text[start:i]))
				start = i + 1
			}
		}
	}
	args = append(args, strings.TrimSpace(text[start:]))
	return args
}
