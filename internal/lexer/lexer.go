// Package lexer tokenizes NXML source text.
//
// Scanning is context sensitive. Inside a tag the lexer emits attribute
// tokens until ">" or "/>". Between tags it emits text, expression and
// tag tokens. Between a Handler element's closing ">" and the literal
// sequence "</Handler>" it captures the body verbatim as one CODE_BLOCK
// token, so handler source is never re-tokenized.
package lexer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/conneroisu/nxml/internal/errors"
	"github.com/conneroisu/nxml/internal/types"
)

const handlerCloseTag = "</Handler>"

// Lexer scans one NXML document. Instances are single use; create one per
// Tokenize call.
type Lexer struct {
	source []rune
	pos    int
	line   int
	column int
	tokens []Token

	inTag          bool // between "<Name" and ">" or "/>"
	inHandler      bool // capturing a handler body
	pendingHandler bool // saw "<Handler"; capture starts after ">"
}

// New creates a lexer over source.
func New(source string) *Lexer {
	return &Lexer{
		source: []rune(source),
		line:   1,
		column: 1,
	}
}

// Tokenize scans the whole source. The returned stream always ends with an
// EOF token. The first malformed construct aborts scanning with a located
// lex error; an unterminated tag, string, expression or handler body never
// loops.
func (l *Lexer) Tokenize() ([]Token, error) {
	for !l.isAtEnd() {
		if err := l.scanToken(); err != nil {
			return nil, err
		}
	}
	l.add(TokenEOF, "", l.location())

	return l.tokens, nil
}

func (l *Lexer) scanToken() error {
	if l.inTag {
		return l.scanInTag()
	}
	if l.inHandler {
		return l.scanCodeBlock()
	}

	c := l.peek()
	if c == '<' {
		if l.peekNext() == '/' {
			return l.scanClosingTag()
		}
		return l.scanOpeningTag()
	}
	if c == '{' && l.peekNext() == '$' {
		return l.scanExpression()
	}

	return l.scanText()
}

func (l *Lexer) scanInTag() error {
	l.skipWhitespace()
	if l.isAtEnd() {
		return l.lexErr(errors.ErrCodeUnterminatedTag, "unterminated tag", l.location())
	}

	loc := l.location()
	c := l.peek()

	if c == '/' && l.peekNext() == '>' {
		l.advance()
		l.advance()
		l.inTag = false
		l.pendingHandler = false
		l.add(TokenTagSelfClose, "/>", loc)
		return nil
	}

	if c == '>' {
		l.advance()
		l.inTag = false
		if l.pendingHandler {
			l.inHandler = true
			l.pendingHandler = false
		}
		l.add(TokenTagClose, ">", loc)
		return nil
	}

	if isNameStart(c) {
		l.add(TokenAttrName, l.scanName(), loc)
		return nil
	}

	if c == '=' {
		l.advance()
		l.add(TokenEquals, "=", loc)
		return nil
	}

	if c == '"' || c == '\'' {
		return l.scanAttrValue(loc)
	}

	return l.lexErr(errors.ErrCodeUnexpectedChar,
		fmt.Sprintf("unexpected character %q in tag", c), loc)
}

func (l *Lexer) scanOpeningTag() error {
	loc := l.location()
	l.advance() // "<"
	l.add(TokenTagOpen, "<", loc)

	nameLoc := l.location()
	name := l.scanName()
	if name == "" {
		return l.lexErr(errors.ErrCodeUnexpectedChar, "expected tag name after '<'", nameLoc)
	}
	l.add(TokenTagName, name, nameLoc)

	if name == "Handler" {
		l.pendingHandler = true
	}
	l.inTag = true

	return nil
}

func (l *Lexer) scanClosingTag() error {
	loc := l.location()
	l.advance() // "<"
	l.advance() // "/"
	l.add(TokenTagEndOpen, "</", loc)

	nameLoc := l.location()
	name := l.scanName()
	if name == "" {
		return l.lexErr(errors.ErrCodeUnexpectedChar, "expected tag name after '</'", nameLoc)
	}
	l.add(TokenTagName, name, nameLoc)

	if name == "Handler" {
		l.inHandler = false
	}

	l.skipWhitespace()
	closeLoc := l.location()
	if l.isAtEnd() {
		return l.lexErr(errors.ErrCodeUnterminatedTag,
			fmt.Sprintf("unterminated closing tag </%s", name), loc)
	}
	if l.peek() != '>' {
		return l.lexErr(errors.ErrCodeUnexpectedChar,
			fmt.Sprintf("unexpected character %q in closing tag", l.peek()), closeLoc)
	}
	l.advance()
	l.add(TokenTagClose, ">", closeLoc)

	return nil
}

func (l *Lexer) scanAttrValue(loc types.SourceLocation) error {
	quote := l.advance()

	start := l.pos
	for !l.isAtEnd() && l.peek() != quote {
		l.advance()
	}
	if l.isAtEnd() {
		return l.lexErr(errors.ErrCodeUnterminatedString, "unterminated attribute value", loc)
	}

	value := string(l.source[start:l.pos])
	l.advance() // closing quote
	l.add(TokenAttrValue, value, loc)

	return nil
}

// scanExpression captures "{$...}" with brace-depth counting so nested
// object literals inside a binding stay in one token.
func (l *Lexer) scanExpression() error {
	loc := l.location()
	start := l.pos
	l.advance() // "{"

	depth := 1
	for !l.isAtEnd() && depth > 0 {
		switch l.peek() {
		case '{':
			depth++
		case '}':
			depth--
		}
		l.advance()
	}
	if depth > 0 {
		return l.lexErr(errors.ErrCodeUnterminatedExpr, "unterminated expression", loc)
	}

	l.add(TokenExpression, string(l.source[start:l.pos]), loc)

	return nil
}

// scanCodeBlock captures everything up to the literal "</Handler>". The
// closing tag itself is left for the next scan step.
func (l *Lexer) scanCodeBlock() error {
	loc := l.location()
	start := l.pos

	for !l.isAtEnd() {
		if l.peek() == '<' && l.hasPrefix(handlerCloseTag) {
			break
		}
		l.advance()
	}
	if l.isAtEnd() {
		return l.lexErr(errors.ErrCodeUnterminatedCode,
			"unterminated handler body, missing </Handler>", loc)
	}

	l.inHandler = false

	code := strings.TrimSpace(string(l.source[start:l.pos]))
	if code != "" {
		l.add(TokenCodeBlock, code, loc)
	}

	return nil
}

func (l *Lexer) scanText() error {
	loc := l.location()
	start := l.pos

	for !l.isAtEnd() {
		c := l.peek()
		if c == '<' || (c == '{' && l.peekNext() == '$') {
			break
		}
		l.advance()
	}

	text := strings.TrimSpace(string(l.source[start:l.pos]))
	if text != "" {
		l.add(TokenText, text, loc)
	}

	return nil
}

func (l *Lexer) scanName() string {
	start := l.pos
	for !l.isAtEnd() && isNameChar(l.peek()) {
		l.advance()
	}
	return string(l.source[start:l.pos])
}

func (l *Lexer) skipWhitespace() {
	for !l.isAtEnd() {
		switch l.peek() {
		case ' ', '\t', '\n', '\r':
			l.advance()
		default:
			return
		}
	}
}

func (l *Lexer) advance() rune {
	c := l.source[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return c
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func (l *Lexer) hasPrefix(s string) bool {
	if l.pos+len(s) > len(l.source) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if l.source[l.pos+i] != rune(s[i]) {
			return false
		}
	}
	return true
}

func (l *Lexer) isAtEnd() bool {
	return l.pos >= len(l.source)
}

func (l *Lexer) location() types.SourceLocation {
	return types.SourceLocation{Line: l.line, Column: l.column}
}

func (l *Lexer) add(t TokenType, value string, loc types.SourceLocation) {
	l.tokens = append(l.tokens, Token{Type: t, Value: value, Loc: loc})
}

func (l *Lexer) lexErr(code, message string, loc types.SourceLocation) error {
	return errors.NewLexError(code, message, loc.Line, loc.Column)
}

func isNameStart(c rune) bool {
	return unicode.IsLetter(c) || c == '_'
}

func isNameChar(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '-' || c == ':'
}
