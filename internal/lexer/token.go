package lexer

import (
	"fmt"

	"github.com/conneroisu/nxml/internal/types"
)

// TokenType is the enumeration of all token kinds the lexer can emit.
type TokenType int

const (
	// XML structure
	TokenTagOpen      TokenType = iota // "<"
	TokenTagClose                      // ">"
	TokenTagEndOpen                    // "</"
	TokenTagSelfClose                  // "/>"
	TokenTagName                       // element name
	TokenAttrName                      // attribute name
	TokenAttrValue                     // quoted attribute value, without quotes
	TokenEquals                        // "="

	// Content
	TokenText       // text content between tags, trimmed
	TokenExpression // "{$...}" binding expression, braces included
	TokenCodeBlock  // verbatim handler body, trimmed

	// Special
	TokenEOF
)

// String returns the token type name used in error messages.
func (t TokenType) String() string {
	switch t {
	case TokenTagOpen:
		return "TAG_OPEN"
	case TokenTagClose:
		return "TAG_CLOSE"
	case TokenTagEndOpen:
		return "TAG_END_OPEN"
	case TokenTagSelfClose:
		return "TAG_SELF_CLOSE"
	case TokenTagName:
		return "TAG_NAME"
	case TokenAttrName:
		return "ATTR_NAME"
	case TokenAttrValue:
		return "ATTR_VALUE"
	case TokenEquals:
		return "EQUALS"
	case TokenText:
		return "TEXT"
	case TokenExpression:
		return "EXPRESSION"
	case TokenCodeBlock:
		return "CODE_BLOCK"
	case TokenEOF:
		return "EOF"
	default:
		return fmt.Sprintf("TokenType(%d)", int(t))
	}
}

// Token is a single lexical unit with its source position.
type Token struct {
	Type  TokenType
	Value string
	Loc   types.SourceLocation
}

// String renders the token for debugging.
func (t Token) String() string {
	if t.Value == "" {
		return fmt.Sprintf("%s@%s", t.Type, t.Loc)
	}
	return fmt.Sprintf("%s(%q)@%s", t.Type, t.Value, t.Loc)
}
