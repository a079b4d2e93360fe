package guard

import (
	"fmt"
	"strconv"
)

type exprTokenType int

const (
	tokEOF exprTokenType = iota
	tokNumber
	tokString
	tokIdent
	tokOp     // + - * / % ! == != < <= > >= && ||
	tokLParen // (
	tokRParen // )
	tokLBrack // [
	tokRBrack // ]
	tokComma  // ,
	tokErr
)

type exprToken struct {
	typ exprTokenType
	lit string
	pos int
}

// exprLexer tokenizes one guard expression.
type exprLexer struct {
	input   string
	pos     int
	readPos int
	ch      byte
}

func newExprLexer(input string) *exprLexer {
	l := &exprLexer{input: input}
	l.readChar()
	return l
}

func (l *exprLexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

func (l *exprLexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *exprLexer) next() exprToken {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
	pos := l.pos

	switch l.ch {
	case 0:
		return exprToken{typ: tokEOF, pos: pos}
	case '(':
		l.readChar()
		return exprToken{typ: tokLParen, lit: "(", pos: pos}
	case ')':
		l.readChar()
		return exprToken{typ: tokRParen, lit: ")", pos: pos}
	case '[':
		l.readChar()
		return exprToken{typ: tokLBrack, lit: "[", pos: pos}
	case ']':
		l.readChar()
		return exprToken{typ: tokRBrack, lit: "]", pos: pos}
	case ',':
		l.readChar()
		return exprToken{typ: tokComma, lit: ",", pos: pos}
	case '+', '-', '*', '/', '%':
		op := string(l.ch)
		l.readChar()
		return exprToken{typ: tokOp, lit: op, pos: pos}
	case '!', '=', '<', '>':
		op := string(l.ch)
		if l.peekChar() == '=' {
			l.readChar()
			op += "="
		}
		l.readChar()
		if op == "=" {
			return exprToken{typ: tokErr, lit: "unexpected '=', use '=='", pos: pos}
		}
		return exprToken{typ: tokOp, lit: op, pos: pos}
	case '&', '|':
		op := string(l.ch)
		if l.peekChar() != l.ch {
			l.readChar()
			return exprToken{typ: tokErr, lit: fmt.Sprintf("unexpected %q", op), pos: pos}
		}
		l.readChar()
		l.readChar()
		return exprToken{typ: tokOp, lit: op + op, pos: pos}
	case '\'', '"':
		quote := l.ch
		l.readChar()
		start := l.pos
		for l.ch != 0 && l.ch != quote {
			l.readChar()
		}
		if l.ch != quote {
			return exprToken{typ: tokErr, lit: "unterminated string", pos: pos}
		}
		lit := l.input[start:l.pos]
		l.readChar()
		return exprToken{typ: tokString, lit: lit, pos: pos}
	default:
		if isExprDigit(l.ch) {
			start := l.pos
			for isExprDigit(l.ch) {
				l.readChar()
			}
			return exprToken{typ: tokNumber, lit: l.input[start:l.pos], pos: pos}
		}
		if isExprIdentStart(l.ch) {
			start := l.pos
			for isExprIdentChar(l.ch) {
				l.readChar()
			}
			return exprToken{typ: tokIdent, lit: l.input[start:l.pos], pos: pos}
		}
		ch := l.ch
		l.readChar()
		return exprToken{typ: tokErr, lit: fmt.Sprintf("unexpected character %q", string(ch)), pos: pos}
	}
}

func isExprDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isExprIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isExprIdentChar(ch byte) bool { return isExprIdentStart(ch) || isExprDigit(ch) }

// Parser parses one guard expression into an AST.
type Parser struct {
	lexer *exprLexer
	cur   exprToken
	peek  exprToken
}

// NewParser creates a parser for the given expression text.
func NewParser(input string) *Parser {
	p := &Parser{lexer: newExprLexer(input)}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.cur = p.peek
	p.peek = p.lexer.next()
}

// Parse parses the full expression; trailing tokens are an error.
func (p *Parser) Parse() (Node, error) {
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur.typ == tokErr {
		return nil, fmt.Errorf("%s at position %d", p.cur.lit, p.cur.pos)
	}
	if p.cur.typ != tokEOF {
		return nil, fmt.Errorf("unexpected %q at position %d", p.cur.lit, p.cur.pos)
	}
	return node, nil
}

func (p *Parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.typ == tokOp && p.cur.lit == "||" {
		p.nextToken()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: "||", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Node, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.cur.typ == tokOp && p.cur.lit == "&&" {
		p.nextToken()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: "&&", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseEquality() (Node, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.cur.typ == tokOp && (p.cur.lit == "==" || p.cur.lit == "!=") {
		op := p.cur.lit
		p.nextToken()
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseRelational() (Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.cur.typ == tokOp && (p.cur.lit == "<" || p.cur.lit == "<=" || p.cur.lit == ">" || p.cur.lit == ">=") {
		op := p.cur.lit
		p.nextToken()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAdditive() (Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur.typ == tokOp && (p.cur.lit == "+" || p.cur.lit == "-") {
		op := p.cur.lit
		p.nextToken()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.typ == tokOp && (p.cur.lit == "*" || p.cur.lit == "/" || p.cur.lit == "%") {
		op := p.cur.lit
		p.nextToken()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Node, error) {
	if p.cur.typ == tokOp && (p.cur.lit == "!" || p.cur.lit == "-") {
		op := p.cur.lit
		p.nextToken()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: op, Operand: operand}, nil
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary expression followed by any chain of
// index operations: m[k], m[k][j].
func (p *Parser) parsePostfix() (Node, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.cur.typ == tokLBrack {
		p.nextToken()
		index, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur.typ != tokRBrack {
			return nil, fmt.Errorf("expected ']' at position %d", p.cur.pos)
		}
		p.nextToken()
		node = &IndexExpr{Object: node, Index: index}
	}
	return node, nil
}

func (p *Parser) parsePrimary() (Node, error) {
	switch p.cur.typ {
	case tokNumber:
		n, err := strconv.ParseInt(p.cur.lit, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("number %q out of range", p.cur.lit)
		}
		p.nextToken()
		return &NumberLit{Value: n}, nil

	case tokString:
		s := p.cur.lit
		p.nextToken()
		return &StringLit{Value: s}, nil

	case tokIdent:
		name := p.cur.lit
		switch name {
		case "true":
			p.nextToken()
			return &BoolLit{Value: true}, nil
		case "false":
			p.nextToken()
			return &BoolLit{Value: false}, nil
		}
		p.nextToken()
		if p.cur.typ == tokLParen {
			return p.parseCall(name)
		}
		return &Identifier{Name: name}, nil

	case tokLParen:
		p.nextToken()
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur.typ != tokRParen {
			return nil, fmt.Errorf("expected ')' at position %d", p.cur.pos)
		}
		p.nextToken()
		return node, nil

	case tokErr:
		return nil, fmt.Errorf("%s at position %d", p.cur.lit, p.cur.pos)

	default:
		return nil, fmt.Errorf("unexpected %q at position %d", p.cur.lit, p.cur.pos)
	}
}

func (p *Parser) parseCall(name string) (Node, error) {
	call := &CallExpr{Func: name}
	p.nextToken() // consume '('
	if p.cur.typ == tokRParen {
		p.nextToken()
		return call, nil
	}
	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		if p.cur.typ == tokComma {
			p.nextToken()
			continue
		}
		break
	}
	if p.cur.typ != tokRParen {
		return nil, fmt.Errorf("expected ')' at position %d", p.cur.pos)
	}
	p.nextToken()
	return call, nil
}
