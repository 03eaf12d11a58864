package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileOne(t *testing.T, src string) Stmt {
	t.Helper()
	prog, err := Compile(src)
	require.NoError(t, err)
	require.Len(t, prog.Stmts, 1)
	return prog.Stmts[0]
}

func compileExpr(t *testing.T, src string) Expr {
	t.Helper()
	stmt := compileOne(t, src)
	exprStmt, ok := stmt.(*ExprStmt)
	require.True(t, ok, "want *ExprStmt, got %T", stmt)
	return exprStmt.X
}

func TestCompileLet(t *testing.T) {
	stmt, ok := compileOne(t, "let x = 1;").(*LetStmt)
	require.True(t, ok)
	assert.Equal(t, "x", stmt.Name)
	assert.False(t, stmt.Const)
	assert.Equal(t, &IntLit{Value: 1}, stmt.Init)
}

func TestCompileConst(t *testing.T) {
	stmt, ok := compileOne(t, `const greeting = "hi"`).(*LetStmt)
	require.True(t, ok)
	assert.True(t, stmt.Const)
	assert.Equal(t, &StringLit{Value: "hi"}, stmt.Init)
}

func TestCompileVarBehavesAsLet(t *testing.T) {
	stmt, ok := compileOne(t, "var n = 3;").(*LetStmt)
	require.True(t, ok)
	assert.False(t, stmt.Const)
	assert.Equal(t, "n", stmt.Name)
}

func TestCompileLetWithoutInitializer(t *testing.T) {
	stmt, ok := compileOne(t, "let pending;").(*LetStmt)
	require.True(t, ok)
	assert.Nil(t, stmt.Init)
}

func TestCompilePrecedence(t *testing.T) {
	expr, ok := compileExpr(t, "1 + 2 * 3").(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, PLUS, expr.Op)
	right, ok := expr.R.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, STAR, right.Op)

	expr, ok = compileExpr(t, "(1 + 2) * 3").(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, STAR, expr.Op)
	left, ok := expr.L.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, PLUS, left.Op)
}

func TestCompileComparisonBindsTighterThanEquality(t *testing.T) {
	expr, ok := compileExpr(t, "a < b == c").(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, EQ, expr.Op)
	left, ok := expr.L.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, LT, left.Op)
}

func TestCompileLogicalShape(t *testing.T) {
	expr, ok := compileExpr(t, "a || b && c").(*LogicalExpr)
	require.True(t, ok)
	assert.Equal(t, OR, expr.Op)
	right, ok := expr.R.(*LogicalExpr)
	require.True(t, ok)
	assert.Equal(t, AND, right.Op)
}

func TestCompileTernary(t *testing.T) {
	expr, ok := compileExpr(t, `ready ? "go" : "wait"`).(*CondExpr)
	require.True(t, ok)
	assert.Equal(t, &Ident{Name: "ready", Line: 1}, expr.Cond)
	assert.Equal(t, &StringLit{Value: "go"}, expr.Then)
	assert.Equal(t, &StringLit{Value: "wait"}, expr.Else)
}

func TestCompileAssignRightAssociative(t *testing.T) {
	expr, ok := compileExpr(t, "a = b = 1").(*AssignExpr)
	require.True(t, ok)
	assert.Equal(t, ASSIGN, expr.Op)
	inner, ok := expr.Value.(*AssignExpr)
	require.True(t, ok)
	assert.Equal(t, &Ident{Name: "b", Line: 1}, inner.Target)
}

func TestCompileCompoundAssign(t *testing.T) {
	expr, ok := compileExpr(t, "x += 1").(*AssignExpr)
	require.True(t, ok)
	assert.Equal(t, PLUS_ASSIGN, expr.Op)

	expr, ok = compileExpr(t, "x -= 1").(*AssignExpr)
	require.True(t, ok)
	assert.Equal(t, MINUS_ASSIGN, expr.Op)
}

func TestCompileInvalidAssignTarget(t *testing.T) {
	for _, src := range []string{"1 = 2", "a + b = c", `"s" = 1`} {
		t.Run(src, func(t *testing.T) {
			_, err := Compile(src)
			assert.ErrorContains(t, err, "invalid assignment target")
		})
	}
}

func TestCompileIfElseChain(t *testing.T) {
	src := `
if (a) {
	x = 1;
} else if (b) {
	x = 2;
} else {
	x = 3;
}`
	stmt, ok := compileOne(t, src).(*IfStmt)
	require.True(t, ok)
	require.NotNil(t, stmt.Else)

	elseIf, ok := stmt.Else.(*IfStmt)
	require.True(t, ok)
	_, ok = elseIf.Else.(*BlockStmt)
	assert.True(t, ok)
}

func TestCompileIfRequiresBraces(t *testing.T) {
	_, err := Compile("if (a) return 1;")
	assert.ErrorContains(t, err, "expected '{'")
}

func TestCompileWhile(t *testing.T) {
	stmt, ok := compileOne(t, "while (n > 0) { n -= 1; }").(*WhileStmt)
	require.True(t, ok)
	require.Len(t, stmt.Body.Stmts, 1)
}

func TestCompileForClassic(t *testing.T) {
	stmt, ok := compileOne(t, "for (let i = 0; i < 3; i += 1) { work(); }").(*ForStmt)
	require.True(t, ok)
	assert.NotNil(t, stmt.Init)
	assert.NotNil(t, stmt.Cond)
	assert.NotNil(t, stmt.Post)
}

func TestCompileForWithEmptyClauses(t *testing.T) {
	stmt, ok := compileOne(t, "for (;;) { break; }").(*ForStmt)
	require.True(t, ok)
	assert.Nil(t, stmt.Init)
	assert.Nil(t, stmt.Cond)
	assert.Nil(t, stmt.Post)
}

func TestCompileForOf(t *testing.T) {
	stmt, ok := compileOne(t, "for (const item of items) { use(item); }").(*ForOfStmt)
	require.True(t, ok)
	assert.Equal(t, "item", stmt.Name)
	assert.True(t, stmt.Const)
	assert.Equal(t, &Ident{Name: "items", Line: 1}, stmt.Iterable)
}

func TestCompileTrailingCommas(t *testing.T) {
	expr, ok := compileExpr(t, "[1, 2,]").(*ArrayLit)
	require.True(t, ok)
	assert.Len(t, expr.Elems, 2)

	stmt, ok := compileOne(t, "let o = {a: 1, b: 2,};").(*LetStmt)
	require.True(t, ok)
	obj, ok := stmt.Init.(*ObjectLit)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, obj.Keys)
}

func TestCompileObjectKeys(t *testing.T) {
	stmt, ok := compileOne(t, `let o = {name: 1, "two words": 2, return: 3};`).(*LetStmt)
	require.True(t, ok)
	obj, ok := stmt.Init.(*ObjectLit)
	require.True(t, ok)
	assert.Equal(t, []string{"name", "two words", "return"}, obj.Keys)
}

func TestCompileKeywordProperty(t *testing.T) {
	expr, ok := compileExpr(t, "items.length").(*MemberExpr)
	require.True(t, ok)
	assert.Equal(t, "length", expr.Property)

	expr, ok = compileExpr(t, "o.return").(*MemberExpr)
	require.True(t, ok)
	assert.Equal(t, "return", expr.Property)
}

func TestCompileExtensionCallShape(t *testing.T) {
	expr, ok := compileExpr(t, `$ext.http.get("https://example.com", 2)`).(*CallExpr)
	require.True(t, ok)
	require.Len(t, expr.Args, 2)

	name, method, ok := extCallTarget(expr.Callee)
	require.True(t, ok)
	assert.Equal(t, "http", name)
	assert.Equal(t, "get", method)
}

func TestCompileIndexChain(t *testing.T) {
	expr, ok := compileExpr(t, `rows[0]["name"]`).(*IndexExpr)
	require.True(t, ok)
	inner, ok := expr.Object.(*IndexExpr)
	require.True(t, ok)
	assert.Equal(t, &Ident{Name: "rows", Line: 1}, inner.Object)
}

func TestCompileSemicolonsOptional(t *testing.T) {
	prog, err := Compile("let a = 1\nlet b = 2")
	require.NoError(t, err)
	assert.Len(t, prog.Stmts, 2)

	prog, err = Compile("let a = 1; let b = 2;")
	require.NoError(t, err)
	assert.Len(t, prog.Stmts, 2)
}

func TestCompileReturnForms(t *testing.T) {
	stmt, ok := compileOne(t, "return;").(*ReturnStmt)
	require.True(t, ok)
	assert.Nil(t, stmt.Value)

	stmt, ok = compileOne(t, "return 42;").(*ReturnStmt)
	require.True(t, ok)
	assert.Equal(t, &IntLit{Value: 42}, stmt.Value)

	// A bare return before '}' must not swallow the brace.
	prog, err := Compile("if (done) { return }")
	require.NoError(t, err)
	assert.Len(t, prog.Stmts, 1)
}

func TestCompileErrors(t *testing.T) {
	testCases := []struct {
		name string
		src  string
		want string
	}{
		{"missing variable name", "let = 1", "expected a variable name"},
		{"unterminated block", "{ let a = 1", "unterminated block"},
		{"missing close paren", "(1 + 2", "expected ')'"},
		{"missing ternary colon", "a ? b", "expected ':'"},
		{"missing object colon", "let o = {a 1}", "expected ':' after object key"},
		{"dangling dot", "obj.", "expected a property name"},
		{"empty source expression", "let x = ", "unexpected end of handler code"},
		{"stray brace", "}", "unexpected token"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile(tc.src)
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestCompileErrorCarriesPosition(t *testing.T) {
	_, err := Compile("let a = 1\nlet = 2")

	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Equal(t, 2, syntaxErr.Line)
	assert.Equal(t, 5, syntaxErr.Col)
}
