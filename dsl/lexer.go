// Package dsl implements the textual language for defining state machines
// and its compiler front end: a lexer, a recursive-descent parser producing
// an AST, and a builder that lowers the AST into a model.Definition.
//
// Reference syntax:
//
//	fsm Player {
//	  [*] --> Stopped
//	  state Stopped: "not playing" { entry / led(off) }
//	  state Running
//	  Stopped --> Running : play [ready] / spin_up()
//	  timer poll = 250 -> Tick periodic
//	  choice Check { [buffered > 0] -> Running [else] -> Stopped }
//	}
package dsl

import (
	"fmt"
)

// TokenType represents the type of a lexer token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIllegal
	TokenIdent     // fsm, state, Idle, ...
	TokenString    // "..."
	TokenInt       // 123
	TokenLongArrow // -->
	TokenArrow     // ->
	TokenInitial   // [*]
	TokenBracket   // [...] guard or branch condition text
	TokenArgs      // (...) action argument text
	TokenLBrace    // {
	TokenRBrace    // }
	TokenColon     // :
	TokenSlash     // /
	TokenEquals    // =
	TokenComma     // ,
)

var tokenNames = map[TokenType]string{
	TokenEOF:       "end of input",
	TokenIllegal:   "illegal token",
	TokenIdent:     "identifier",
	TokenString:    "string",
	TokenInt:       "integer",
	TokenLongArrow: "'-->'",
	TokenArrow:     "'->'",
	TokenInitial:   "'[*]'",
	TokenBracket:   "'[...]'",
	TokenArgs:      "'(...)'",
	TokenLBrace:    "'{'",
	TokenRBrace:    "'}'",
	TokenColon:     "':'",
	TokenSlash:     "'/'",
	TokenEquals:    "'='",
	TokenComma:     "','",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Pos locates a token in the source text.
type Pos struct {
	Offset int
	Line   int
	Col    int
}

func (p Pos) String() string {
	return fmt.Sprintf("line %d, col %d", p.Line, p.Col)
}

// Token represents a single token from the lexer. For TokenBracket and
// TokenArgs the literal is the raw enclosed text without the delimiters.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Pos
}

func (t Token) String() string {
	return fmt.Sprintf("Token{%v, %q, %v}", t.Type, t.Literal, t.Pos)
}

// Lexer tokenizes DSL input. Whitespace, line comments (//) and block
// comments (/* */) are consumed silently; the grammar never sees them.
type Lexer struct {
	input   string
	pos     int
	readPos int
	ch      byte
	line    int
	col     int
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.col++
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) here() Pos {
	return Pos{Offset: l.pos, Line: l.line, Col: l.col}
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *Lexer) skipLineComment() {
	for l.ch != 0 && l.ch != '\n' {
		l.readChar()
	}
}

// skipBlockComment consumes a /* ... */ comment. Reports false when the
// comment is never closed.
func (l *Lexer) skipBlockComment() bool {
	l.readChar() // consume '*'
	for l.ch != 0 {
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			return true
		}
		l.readChar()
	}
	return false
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	for {
		l.skipWhitespace()
		if l.ch == '/' && l.peekChar() == '/' {
			l.skipLineComment()
			continue
		}
		if l.ch == '/' && l.peekChar() == '*' {
			pos := l.here()
			l.readChar()
			if !l.skipBlockComment() {
				return Token{Type: TokenIllegal, Literal: "unterminated block comment", Pos: pos}
			}
			continue
		}
		break
	}

	pos := l.here()

	switch l.ch {
	case 0:
		return Token{Type: TokenEOF, Pos: pos}
	case '{':
		l.readChar()
		return Token{Type: TokenLBrace, Literal: "{", Pos: pos}
	case '}':
		l.readChar()
		return Token{Type: TokenRBrace, Literal: "}", Pos: pos}
	case ':':
		l.readChar()
		return Token{Type: TokenColon, Literal: ":", Pos: pos}
	case '/':
		l.readChar()
		return Token{Type: TokenSlash, Literal: "/", Pos: pos}
	case '=':
		l.readChar()
		return Token{Type: TokenEquals, Literal: "=", Pos: pos}
	case ',':
		l.readChar()
		return Token{Type: TokenComma, Literal: ",", Pos: pos}
	case '-':
		return l.readArrow(pos)
	case '[':
		return l.readBracket(pos)
	case '(':
		l.readChar() // consume opening paren
		text, ok := l.readBalanced('(', ')')
		if !ok {
			return Token{Type: TokenIllegal, Literal: "unterminated '('", Pos: pos}
		}
		return Token{Type: TokenArgs, Literal: text, Pos: pos}
	case '"':
		l.readChar() // consume opening quote
		text, ok := l.readString('"')
		if !ok {
			return Token{Type: TokenIllegal, Literal: "unterminated string", Pos: pos}
		}
		return Token{Type: TokenString, Literal: text, Pos: pos}
	default:
		if isDigit(l.ch) {
			return Token{Type: TokenInt, Literal: l.readNumber(), Pos: pos}
		}
		if isIdentStart(l.ch) {
			return Token{Type: TokenIdent, Literal: l.readIdent(), Pos: pos}
		}
		ch := l.ch
		l.readChar()
		return Token{Type: TokenIllegal, Literal: fmt.Sprintf("unexpected character %q", string(ch)), Pos: pos}
	}
}

// readArrow distinguishes '-->' from '->'.
func (l *Lexer) readArrow(pos Pos) Token {
	l.readChar() // consume '-'
	switch l.ch {
	case '-':
		l.readChar()
		if l.ch != '>' {
			return Token{Type: TokenIllegal, Literal: "expected '>' after '--'", Pos: pos}
		}
		l.readChar()
		return Token{Type: TokenLongArrow, Literal: "-->", Pos: pos}
	case '>':
		l.readChar()
		return Token{Type: TokenArrow, Literal: "->", Pos: pos}
	default:
		return Token{Type: TokenIllegal, Literal: "unexpected character \"-\"", Pos: pos}
	}
}

// readBracket handles the initial marker [*] and raw bracket text [ ... ].
// Nested brackets inside guard text are balanced.
func (l *Lexer) readBracket(pos Pos) Token {
	l.readChar() // consume '['
	if l.ch == '*' && l.peekChar() == ']' {
		l.readChar()
		l.readChar()
		return Token{Type: TokenInitial, Literal: "[*]", Pos: pos}
	}
	text, ok := l.readBalanced('[', ']')
	if !ok {
		return Token{Type: TokenIllegal, Literal: "unterminated '['", Pos: pos}
	}
	return Token{Type: TokenBracket, Literal: text, Pos: pos}
}

// readBalanced reads raw text up to the matching close delimiter, which is
// consumed but not included. Assumes the opening delimiter is already gone.
func (l *Lexer) readBalanced(open, close byte) (string, bool) {
	var result []byte
	depth := 1
	for l.ch != 0 {
		if l.ch == open {
			depth++
		} else if l.ch == close {
			depth--
			if depth == 0 {
				l.readChar() // consume closing delimiter
				return string(result), true
			}
		}
		result = append(result, l.ch)
		l.readChar()
	}
	return string(result), false
}

func (l *Lexer) readString(quote byte) (string, bool) {
	var result []byte
	for l.ch != 0 && l.ch != quote {
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				result = append(result, '\n')
			case 't':
				result = append(result, '\t')
			case 'r':
				result = append(result, '\r')
			case '\\':
				result = append(result, '\\')
			case '"':
				result = append(result, '"')
			default:
				result = append(result, l.ch)
			}
		} else {
			result = append(result, l.ch)
		}
		l.readChar()
	}
	if l.ch != quote {
		return "", false
	}
	l.readChar() // consume closing quote
	return string(result), true
}

func (l *Lexer) readIdent() string {
	start := l.pos
	for isIdentChar(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Tokenize returns all tokens from the input, ending with EOF.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenIllegal {
			break
		}
	}
	return tokens
}
