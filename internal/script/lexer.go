package script

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// Lexer converts handler source into a token stream. Handlers are plain
// ASCII operators around UTF-8 string literals, so the scanner works on
// bytes and only decodes runes inside strings.
type Lexer struct {
	src    string
	start  int
	cur    int
	line   int
	col    int
	tokens []Token

	tokLine int
	tokCol  int
}

// NewLexer returns a lexer for the given handler source.
func NewLexer(src string) *Lexer {
	return &Lexer{
		src:    src,
		tokens: make([]Token, 0, len(src)/4),
		line:   1,
		col:    1,
	}
}

// Scan tokenizes the whole source. The returned slice always ends with an
// EOF token. Malformed input yields a *SyntaxError anchored to the start
// of the offending token.
func (l *Lexer) Scan() ([]Token, error) {
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		if tok.Type == EOF {
			return l.tokens, nil
		}
	}
}

func (l *Lexer) next() (Token, error) {
	if err := l.skipBlanks(); err != nil {
		return Token{}, err
	}
	l.start = l.cur
	l.tokLine, l.tokCol = l.line, l.col

	if l.isAtEnd() {
		return l.add(EOF, nil), nil
	}

	ch := l.advance()
	switch ch {
	case '(':
		return l.add(LPAREN, nil), nil
	case ')':
		return l.add(RPAREN, nil), nil
	case '[':
		return l.add(LBRACKET, nil), nil
	case ']':
		return l.add(RBRACKET, nil), nil
	case '{':
		return l.add(LBRACE, nil), nil
	case '}':
		return l.add(RBRACE, nil), nil
	case ',':
		return l.add(COMMA, nil), nil
	case ':':
		return l.add(COLON, nil), nil
	case ';':
		return l.add(SEMICOLON, nil), nil
	case '?':
		return l.add(QUESTION, nil), nil
	case '%':
		return l.add(PERCENT, nil), nil
	case '*':
		return l.add(STAR, nil), nil
	case '/':
		return l.add(SLASH, nil), nil
	case '+':
		if l.match('=') {
			return l.add(PLUS_ASSIGN, nil), nil
		}
		return l.add(PLUS, nil), nil
	case '-':
		if l.match('=') {
			return l.add(MINUS_ASSIGN, nil), nil
		}
		return l.add(MINUS, nil), nil
	case '=':
		if l.match('=') {
			l.match('=') // "===" lexes the same as "=="
			return l.add(EQ, nil), nil
		}
		return l.add(ASSIGN, nil), nil
	case '!':
		if l.match('=') {
			l.match('=') // "!==" lexes the same as "!="
			return l.add(NEQ, nil), nil
		}
		return l.add(NOT, nil), nil
	case '<':
		if l.match('=') {
			return l.add(LT_EQ, nil), nil
		}
		return l.add(LT, nil), nil
	case '>':
		if l.match('=') {
			return l.add(GT_EQ, nil), nil
		}
		return l.add(GT, nil), nil
	case '&':
		if l.match('&') {
			return l.add(AND, nil), nil
		}
		return Token{}, l.errf("unexpected character '&'")
	case '|':
		if l.match('|') {
			return l.add(OR, nil), nil
		}
		return Token{}, l.errf("unexpected character '|'")
	case '"', '\'':
		return l.scanString(ch)
	case '.':
		if isDigit(l.peek()) {
			return l.scanNumber()
		}
		return l.add(DOT, nil), nil
	}

	if isDigit(ch) {
		return l.scanNumber()
	}
	if isIdentStart(ch) {
		return l.scanIdentifier(), nil
	}
	if ch >= utf8.RuneSelf {
		return Token{}, l.errf("unexpected non-ASCII character outside string literal")
	}
	return Token{}, l.errf("unexpected character %q", ch)
}

// skipBlanks consumes whitespace and both comment forms.
func (l *Lexer) skipBlanks() error {
	for !l.isAtEnd() {
		switch l.peek() {
		case ' ', '\t', '\r', '\n':
			l.advance()
		case '/':
			switch l.peekAt(1) {
			case '/':
				for !l.isAtEnd() && l.peek() != '\n' {
					l.advance()
				}
			case '*':
				l.tokLine, l.tokCol = l.line, l.col
				l.advance()
				l.advance()
				closed := false
				for !l.isAtEnd() {
					if l.peek() == '*' && l.peekAt(1) == '/' {
						l.advance()
						l.advance()
						closed = true
						break
					}
					l.advance()
				}
				if !closed {
					return l.errf("block comment was not terminated")
				}
			default:
				return nil
			}
		default:
			return nil
		}
	}
	return nil
}

func (l *Lexer) scanString(quote byte) (Token, error) {
	var out []rune
	for !l.isAtEnd() {
		ch := l.advance()
		if ch == quote {
			return l.add(STRING, string(out)), nil
		}
		if ch == '\n' {
			return Token{}, l.errf("string literal spans a newline")
		}
		if ch == '\\' {
			if l.isAtEnd() {
				break
			}
			esc := l.advance()
			switch esc {
			case '"', '\'', '\\', '/':
				out = append(out, rune(esc))
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case 'r':
				out = append(out, '\r')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case 'u':
				r, err := l.scanUnicodeEscape()
				if err != nil {
					return Token{}, err
				}
				out = append(out, r)
			default:
				return Token{}, l.errf("invalid escape sequence: \\%c", esc)
			}
			continue
		}
		if ch < utf8.RuneSelf {
			out = append(out, rune(ch))
			continue
		}
		// Step back one byte and decode the full rune.
		l.cur--
		r, size := utf8.DecodeRuneInString(l.src[l.cur:])
		if r == utf8.RuneError && size == 1 {
			return Token{}, l.errf("invalid UTF-8 in string literal")
		}
		l.cur += size
		l.col += size - 1
		out = append(out, r)
	}
	return Token{}, l.errf("string literal was not terminated")
}

func (l *Lexer) scanUnicodeEscape() (rune, error) {
	val := 0
	for i := 0; i < 4; i++ {
		d := hexDigit(l.peek())
		if d < 0 {
			return 0, l.errf("unicode escape expects 4 hex digits")
		}
		val = val<<4 | d
		l.advance()
	}
	return rune(val), nil
}

func (l *Lexer) scanNumber() (Token, error) {
	sawDot := l.src[l.start] == '.' // ".5" arrives here with the dot consumed
	sawExp := false
	for isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		sawDot = true
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	if b := l.peek(); b == 'e' || b == 'E' {
		save, saveCol := l.cur, l.col
		l.advance()
		if b := l.peek(); b == '+' || b == '-' {
			l.advance()
		}
		if isDigit(l.peek()) {
			sawExp = true
			for isDigit(l.peek()) {
				l.advance()
			}
		} else {
			// "5e" is the integer 5 followed by the identifier e.
			l.cur, l.col = save, saveCol
		}
	}

	lex := l.src[l.start:l.cur]
	if !sawDot && !sawExp {
		v, err := strconv.ParseInt(lex, 10, 64)
		if err != nil {
			return Token{}, l.errf("invalid integer literal %q", lex)
		}
		return l.add(INTEGER, v), nil
	}
	v, err := strconv.ParseFloat(lex, 64)
	if err != nil {
		return Token{}, l.errf("invalid number literal %q", lex)
	}
	return l.add(NUMBER, v), nil
}

func (l *Lexer) scanIdentifier() Token {
	for isIdentPart(l.peek()) {
		l.advance()
	}
	name := l.src[l.start:l.cur]
	if tt, ok := keywords[name]; ok {
		return l.add(tt, nil)
	}
	return l.add(IDENT, nil)
}

func (l *Lexer) add(tt TokenType, literal any) Token {
	tok := Token{
		Type:    tt,
		Lexeme:  l.src[l.start:l.cur],
		Literal: literal,
		Line:    l.tokLine,
		Col:     l.tokCol,
	}
	l.tokens = append(l.tokens, tok)
	return tok
}

func (l *Lexer) isAtEnd() bool { return l.cur >= len(l.src) }

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.src[l.cur]
}

func (l *Lexer) peekAt(n int) byte {
	if l.cur+n >= len(l.src) {
		return 0
	}
	return l.src[l.cur+n]
}

func (l *Lexer) advance() byte {
	ch := l.src[l.cur]
	l.cur++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

func (l *Lexer) match(want byte) bool {
	if l.isAtEnd() || l.src[l.cur] != want {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) errf(format string, args ...any) error {
	return &SyntaxError{Line: l.tokLine, Col: l.tokCol, Msg: fmt.Sprintf(format, args...)}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isIdentStart(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b == '_' || b == '$'
}

func isIdentPart(b byte) bool { return isIdentStart(b) || isDigit(b) }

func hexDigit(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return 10 + int(b-'a')
	case b >= 'A' && b <= 'F':
		return 10 + int(b-'A')
	default:
		return -1
	}
}
