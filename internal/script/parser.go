package script

import "fmt"

// Compile lexes and parses a handler body. The resulting Program is
// immutable and safe to cache and share across interpreter instances.
func Compile(src string) (*Program, error) {
	tokens, err := NewLexer(src).Scan()
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	return p.parseProgram()
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) parseProgram() (*Program, error) {
	prog := &Program{}
	for !p.check(EOF) {
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		prog.Stmts = append(prog.Stmts, stmt)
	}
	return prog, nil
}

// Statement terminators are lenient: a semicolon is consumed when
// present but never required, so handlers pasted from either style
// parse the same way.
func (p *parser) terminate() {
	p.match(SEMICOLON)
}

func (p *parser) parseStmt() (Stmt, error) {
	switch p.peek().Type {
	case LET, CONST, VAR:
		return p.parseLetStmt()
	case IF:
		return p.parseIfStmt()
	case WHILE:
		return p.parseWhileStmt()
	case FOR:
		return p.parseForStmt()
	case RETURN:
		return p.parseReturnStmt()
	case BREAK:
		tok := p.advance()
		p.terminate()
		return &BreakStmt{Line: tok.Line}, nil
	case CONTINUE:
		tok := p.advance()
		p.terminate()
		return &ContinueStmt{Line: tok.Line}, nil
	case LBRACE:
		return p.parseBlock()
	case SEMICOLON:
		p.advance()
		return &ExprStmt{X: &NullLit{}}, nil
	default:
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.terminate()
		return &ExprStmt{X: x}, nil
	}
}

func (p *parser) parseLetStmt() (Stmt, error) {
	kw := p.advance() // let, const or var; var behaves as let
	name, err := p.expect(IDENT, "expected a variable name after %q", kw.Lexeme)
	if err != nil {
		return nil, err
	}
	stmt := &LetStmt{Name: name.Lexeme, Const: kw.Type == CONST, Line: kw.Line}
	if p.match(ASSIGN) {
		stmt.Init, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	p.terminate()
	return stmt, nil
}

func (p *parser) parseIfStmt() (Stmt, error) {
	p.advance()
	if _, err := p.expect(LPAREN, "expected '(' after 'if'"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN, "expected ')' after if condition"); err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &IfStmt{Cond: cond, Then: then}
	if p.match(ELSE) {
		if p.check(IF) {
			stmt.Else, err = p.parseIfStmt()
		} else {
			stmt.Else, err = p.parseBlock()
		}
		if err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *parser) parseWhileStmt() (Stmt, error) {
	p.advance()
	if _, err := p.expect(LPAREN, "expected '(' after 'while'"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN, "expected ')' after while condition"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{Cond: cond, Body: body}, nil
}

func (p *parser) parseForStmt() (Stmt, error) {
	kw := p.advance()
	if _, err := p.expect(LPAREN, "expected '(' after 'for'"); err != nil {
		return nil, err
	}

	// for (let x of expr) iterates an array; everything else is the
	// classic three-clause form.
	if p.peek().Type == LET || p.peek().Type == CONST || p.peek().Type == VAR {
		if p.peekAt(1).Type == IDENT && p.peekAt(2).Type == IDENT && p.peekAt(2).Lexeme == "of" {
			decl := p.advance()
			name := p.advance()
			p.advance() // of
			iterable, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(RPAREN, "expected ')' after for-of iterable"); err != nil {
				return nil, err
			}
			body, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			return &ForOfStmt{
				Name:     name.Lexeme,
				Const:    decl.Type == CONST,
				Iterable: iterable,
				Body:     body,
				Line:     kw.Line,
			}, nil
		}
	}

	stmt := &ForStmt{}
	var err error
	if !p.check(SEMICOLON) {
		stmt.Init, err = p.parseForInit()
		if err != nil {
			return nil, err
		}
	} else {
		p.advance()
	}
	if !p.check(SEMICOLON) {
		stmt.Cond, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(SEMICOLON, "expected ';' after for condition"); err != nil {
		return nil, err
	}
	if !p.check(RPAREN) {
		stmt.Post, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(RPAREN, "expected ')' after for clauses"); err != nil {
		return nil, err
	}
	stmt.Body, err = p.parseBlock()
	if err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseForInit parses the first clause of a classic for loop and its
// trailing semicolon.
func (p *parser) parseForInit() (Stmt, error) {
	if p.peek().Type == LET || p.peek().Type == CONST || p.peek().Type == VAR {
		return p.parseLetStmt()
	}
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON, "expected ';' after for initializer"); err != nil {
		return nil, err
	}
	return &ExprStmt{X: x}, nil
}

func (p *parser) parseReturnStmt() (Stmt, error) {
	p.advance()
	stmt := &ReturnStmt{}
	if !p.check(SEMICOLON) && !p.check(RBRACE) && !p.check(EOF) {
		var err error
		stmt.Value, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	p.terminate()
	return stmt, nil
}

func (p *parser) parseBlock() (*BlockStmt, error) {
	if _, err := p.expect(LBRACE, "expected '{'"); err != nil {
		return nil, err
	}
	block := &BlockStmt{}
	for !p.check(RBRACE) {
		if p.check(EOF) {
			return nil, p.errAt(p.peek(), "unterminated block, expected '}'")
		}
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)
	}
	p.advance()
	return block, nil
}

// ---- expressions, lowest to highest precedence ----

func (p *parser) parseExpr() (Expr, error) { return p.parseAssign() }

func (p *parser) parseAssign() (Expr, error) {
	left, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if p.check(ASSIGN) || p.check(PLUS_ASSIGN) || p.check(MINUS_ASSIGN) {
		op := p.advance()
		switch left.(type) {
		case *Ident, *MemberExpr, *IndexExpr:
		default:
			return nil, p.errAt(op, "invalid assignment target")
		}
		value, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		return &AssignExpr{Target: left, Op: op.Type, Value: value, Line: op.Line}, nil
	}
	return left, nil
}

func (p *parser) parseTernary() (Expr, error) {
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.match(QUESTION) {
		return cond, nil
	}
	then, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(COLON, "expected ':' in ternary expression"); err != nil {
		return nil, err
	}
	alt, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	return &CondExpr{Cond: cond, Then: then, Else: alt}, nil
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.match(OR) {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &LogicalExpr{Op: OR, L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.match(AND) {
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &LogicalExpr{Op: AND, L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseEquality() (Expr, error) {
	return p.parseBinaryLevel(p.parseComparison, EQ, NEQ)
}

func (p *parser) parseComparison() (Expr, error) {
	return p.parseBinaryLevel(p.parseAdditive, LT, LT_EQ, GT, GT_EQ)
}

func (p *parser) parseAdditive() (Expr, error) {
	return p.parseBinaryLevel(p.parseMultiplicative, PLUS, MINUS)
}

func (p *parser) parseMultiplicative() (Expr, error) {
	return p.parseBinaryLevel(p.parseUnary, STAR, SLASH, PERCENT)
}

func (p *parser) parseBinaryLevel(next func() (Expr, error), ops ...TokenType) (Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		matched := false
		for _, op := range ops {
			if p.check(op) {
				tok := p.advance()
				right, err := next()
				if err != nil {
					return nil, err
				}
				left = &BinaryExpr{Op: tok.Type, L: left, R: right, Line: tok.Line}
				matched = true
				break
			}
		}
		if !matched {
			return left, nil
		}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	if p.check(NOT) || p.check(MINUS) {
		op := p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: op.Type, X: x}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Type {
		case LPAREN:
			tok := p.advance()
			var args []Expr
			for !p.check(RPAREN) {
				if len(args) > 0 {
					if _, err := p.expect(COMMA, "expected ',' between call arguments"); err != nil {
						return nil, err
					}
				}
				arg, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
			}
			p.advance()
			x = &CallExpr{Callee: x, Args: args, Line: tok.Line}
		case DOT:
			tok := p.advance()
			name, err := p.propertyName()
			if err != nil {
				return nil, err
			}
			x = &MemberExpr{Object: x, Property: name, Line: tok.Line}
		case LBRACKET:
			tok := p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(RBRACKET, "expected ']' after index"); err != nil {
				return nil, err
			}
			x = &IndexExpr{Object: x, Index: idx, Line: tok.Line}
		default:
			return x, nil
		}
	}
}

// propertyName accepts identifiers and keywords after a dot, so
// obj.length and obj.return both work.
func (p *parser) propertyName() (string, error) {
	tok := p.peek()
	if isNameLike(tok) {
		p.advance()
		return tok.Lexeme, nil
	}
	return "", p.errAt(tok, "expected a property name after '.'")
}

// isNameLike reports whether a token can serve as a property or object
// key: a plain identifier or any reserved word.
func isNameLike(tok Token) bool {
	if tok.Type == IDENT {
		return true
	}
	_, ok := keywords[tok.Lexeme]
	return ok
}

func (p *parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case IDENT:
		p.advance()
		return &Ident{Name: tok.Lexeme, Line: tok.Line}, nil
	case STRING:
		p.advance()
		return &StringLit{Value: tok.Literal.(string)}, nil
	case INTEGER:
		p.advance()
		return &IntLit{Value: tok.Literal.(int64)}, nil
	case NUMBER:
		p.advance()
		return &NumLit{Value: tok.Literal.(float64)}, nil
	case TRUE:
		p.advance()
		return &BoolLit{Value: true}, nil
	case FALSE:
		p.advance()
		return &BoolLit{Value: false}, nil
	case NULL:
		p.advance()
		return &NullLit{}, nil
	case LPAREN:
		p.advance()
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN, "expected ')' after expression"); err != nil {
			return nil, err
		}
		return x, nil
	case LBRACKET:
		return p.parseArrayLit()
	case LBRACE:
		return p.parseObjectLit()
	case EOF:
		return nil, p.errAt(tok, "unexpected end of handler code")
	default:
		return nil, p.errAt(tok, "unexpected token %q", tok.Lexeme)
	}
}

func (p *parser) parseArrayLit() (Expr, error) {
	p.advance()
	lit := &ArrayLit{}
	for !p.check(RBRACKET) {
		if len(lit.Elems) > 0 {
			if _, err := p.expect(COMMA, "expected ',' between array elements"); err != nil {
				return nil, err
			}
			// trailing comma
			if p.check(RBRACKET) {
				break
			}
		}
		elem, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		lit.Elems = append(lit.Elems, elem)
	}
	if _, err := p.expect(RBRACKET, "expected ']' after array literal"); err != nil {
		return nil, err
	}
	return lit, nil
}

func (p *parser) parseObjectLit() (Expr, error) {
	p.advance()
	lit := &ObjectLit{}
	for !p.check(RBRACE) {
		if len(lit.Keys) > 0 {
			if _, err := p.expect(COMMA, "expected ',' between object entries"); err != nil {
				return nil, err
			}
			if p.check(RBRACE) {
				break
			}
		}
		key, err := p.objectKey()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(COLON, "expected ':' after object key %q", key); err != nil {
			return nil, err
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		lit.Keys = append(lit.Keys, key)
		lit.Values = append(lit.Values, value)
	}
	if _, err := p.expect(RBRACE, "expected '}' after object literal"); err != nil {
		return nil, err
	}
	return lit, nil
}

func (p *parser) objectKey() (string, error) {
	tok := p.peek()
	switch {
	case isNameLike(tok):
		p.advance()
		return tok.Lexeme, nil
	case tok.Type == STRING:
		p.advance()
		return tok.Literal.(string), nil
	default:
		return "", p.errAt(tok, "expected an object key, got %q", tok.Lexeme)
	}
}

// ---- token plumbing ----

func (p *parser) peek() Token { return p.tokens[p.pos] }

func (p *parser) peekAt(n int) Token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

func (p *parser) advance() Token {
	tok := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) check(tt TokenType) bool { return p.peek().Type == tt }

func (p *parser) match(tt TokenType) bool {
	if p.check(tt) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expect(tt TokenType, format string, args ...any) (Token, error) {
	if p.check(tt) {
		return p.advance(), nil
	}
	return Token{}, p.errAt(p.peek(), format, args...)
}

func (p *parser) errAt(tok Token, format string, args ...any) error {
	return &SyntaxError{Line: tok.Line, Col: tok.Col, Msg: fmt.Sprintf(format, args...)}
}
