package dsl

import (
	"fmt"
	"strings"
)

// SyntaxError reports the first unmatched token during parsing. Parsing is
// recovery-free: the first error stops the parse and no partial AST escapes.
type SyntaxError struct {
	Pos      Pos
	Got      string   // description of the offending token
	Expected []string // grammar alternatives viable at this point
	Msg      string   // freeform message when Expected does not apply
}

func (e *SyntaxError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("syntax error at %v: %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("syntax error at %v: expected %s, got %s",
		e.Pos, strings.Join(e.Expected, " or "), e.Got)
}

// describeToken renders a token for an error message.
func describeToken(tok Token) string {
	switch tok.Type {
	case TokenIdent:
		return fmt.Sprintf("identifier %q", tok.Literal)
	case TokenString:
		return fmt.Sprintf("string %q", tok.Literal)
	case TokenInt:
		return fmt.Sprintf("integer %s", tok.Literal)
	case TokenEOF:
		return "end of input"
	default:
		return tok.Type.String()
	}
}
