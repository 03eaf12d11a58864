package script

import "fmt"

// TokenType enumerates the lexical token kinds of the handler language.
type TokenType int

const (
	// Special
	EOF TokenType = iota

	// Literals and identifiers
	IDENT   // count, $state, $emit
	STRING  // "hello", 'hello'
	INTEGER // 42
	NUMBER  // 3.14, 1e-5
	TRUE
	FALSE
	NULL

	// Punctuation
	LPAREN   // "("
	RPAREN   // ")"
	LBRACKET // "["
	RBRACKET // "]"
	LBRACE   // "{"
	RBRACE   // "}"
	COMMA    // ","
	DOT      // "."
	COLON    // ":"
	SEMICOLON
	QUESTION // "?"

	// Operators
	PLUS    // "+"
	MINUS   // "-"
	STAR    // "*"
	SLASH   // "/"
	PERCENT // "%"
	ASSIGN  // "="
	PLUS_ASSIGN
	MINUS_ASSIGN
	EQ  // "==" and "==="
	NEQ // "!=" and "!=="
	LT
	LT_EQ
	GT
	GT_EQ
	NOT // "!"
	AND // "&&"
	OR  // "||"

	// Keywords
	LET
	CONST
	VAR
	IF
	ELSE
	WHILE
	FOR
	RETURN
	BREAK
	CONTINUE
)

var tokenNames = map[TokenType]string{
	EOF:          "EOF",
	IDENT:        "IDENT",
	STRING:       "STRING",
	INTEGER:      "INTEGER",
	NUMBER:       "NUMBER",
	TRUE:         "true",
	FALSE:        "false",
	NULL:         "null",
	LPAREN:       "(",
	RPAREN:       ")",
	LBRACKET:     "[",
	RBRACKET:     "]",
	LBRACE:       "{",
	RBRACE:       "}",
	COMMA:        ",",
	DOT:          ".",
	COLON:        ":",
	SEMICOLON:    ";",
	QUESTION:     "?",
	PLUS:         "+",
	MINUS:        "-",
	STAR:         "*",
	SLASH:        "/",
	PERCENT:      "%",
	ASSIGN:       "=",
	PLUS_ASSIGN:  "+=",
	MINUS_ASSIGN: "-=",
	EQ:           "==",
	NEQ:          "!=",
	LT:           "<",
	LT_EQ:        "<=",
	GT:           ">",
	GT_EQ:        ">=",
	NOT:          "!",
	AND:          "&&",
	OR:           "||",
	LET:          "let",
	CONST:        "const",
	VAR:          "var",
	IF:           "if",
	ELSE:         "else",
	WHILE:        "while",
	FOR:          "for",
	RETURN:       "return",
	BREAK:        "break",
	CONTINUE:     "continue",
}

// String returns a printable name for the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

var keywords = map[string]TokenType{
	"true":     TRUE,
	"false":    FALSE,
	"null":     NULL,
	"let":      LET,
	"const":    CONST,
	"var":      VAR,
	"if":       IF,
	"else":     ELSE,
	"while":    WHILE,
	"for":      FOR,
	"return":   RETURN,
	"break":    BREAK,
	"continue": CONTINUE,
}

// Token is a single lexical unit of handler code.
//
// Lexeme is the exact source slice. Literal carries the decoded value for
// STRING (string with escapes resolved), INTEGER (int64) and NUMBER
// (float64) tokens; it is nil for everything else.
type Token struct {
	Type    TokenType
	Lexeme  string
	Literal any
	Line    int
	Col     int
}

// SyntaxError reports a lexical or grammatical fault in handler code.
// Line and Col are 1-based and anchored to the start of the offending
// token.
type SyntaxError struct {
	Line int
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d:%d: %s", e.Line, e.Col, e.Msg)
}
