package script

// Program is a parsed handler body: a flat statement list executed top to
// bottom until a return statement or the end of the list.
type Program struct {
	Stmts []Stmt
}

// Stmt is the marker interface for statement nodes.
type Stmt interface{ stmtNode() }

// Expr is the marker interface for expression nodes.
type Expr interface{ exprNode() }

// LetStmt declares a new variable in the current scope. Const blocks
// later reassignment.
type LetStmt struct {
	Name  string
	Init  Expr // nil means null
	Const bool
	Line  int
}

// BlockStmt is a braced statement list with its own scope.
type BlockStmt struct {
	Stmts []Stmt
}

// IfStmt guards Then on Cond; Else is a *BlockStmt, another *IfStmt
// (else-if chain) or nil.
type IfStmt struct {
	Cond Expr
	Then *BlockStmt
	Else Stmt
}

// WhileStmt loops Body while Cond is truthy.
type WhileStmt struct {
	Cond Expr
	Body *BlockStmt
}

// ForStmt is the classic three-clause loop. Init, Cond and Post may each
// be nil.
type ForStmt struct {
	Init Stmt
	Cond Expr
	Post Expr
	Body *BlockStmt
}

// ForOfStmt iterates over the elements of an array.
type ForOfStmt struct {
	Name     string
	Const    bool
	Iterable Expr
	Body     *BlockStmt
	Line     int
}

// ReturnStmt ends the handler with an optional value.
type ReturnStmt struct {
	Value Expr // nil means null
}

// BreakStmt exits the innermost loop.
type BreakStmt struct{ Line int }

// ContinueStmt skips to the next iteration of the innermost loop.
type ContinueStmt struct{ Line int }

// ExprStmt evaluates an expression for its side effects.
type ExprStmt struct {
	X Expr
}

func (*LetStmt) stmtNode()      {}
func (*BlockStmt) stmtNode()    {}
func (*IfStmt) stmtNode()       {}
func (*WhileStmt) stmtNode()    {}
func (*ForStmt) stmtNode()      {}
func (*ForOfStmt) stmtNode()    {}
func (*ReturnStmt) stmtNode()   {}
func (*BreakStmt) stmtNode()    {}
func (*ContinueStmt) stmtNode() {}
func (*ExprStmt) stmtNode()     {}

// Ident is a variable reference. Names beginning with '$' resolve to the
// host bridge ($state, $args, $emit, $log, $ext, $panel, $workspace,
// $handler).
type Ident struct {
	Name string
	Line int
}

// StringLit is a decoded string literal.
type StringLit struct{ Value string }

// IntLit is a 64-bit integer literal.
type IntLit struct{ Value int64 }

// NumLit is a floating point literal.
type NumLit struct{ Value float64 }

// BoolLit is true or false.
type BoolLit struct{ Value bool }

// NullLit is the null literal.
type NullLit struct{}

// ArrayLit is [e1, e2, ...].
type ArrayLit struct {
	Elems []Expr
}

// ObjectLit is {k1: v1, k2: v2, ...}. Keys keeps source order.
type ObjectLit struct {
	Keys   []string
	Values []Expr
}

// MemberExpr is Object.Property.
type MemberExpr struct {
	Object   Expr
	Property string
	Line     int
}

// IndexExpr is Object[Index].
type IndexExpr struct {
	Object Expr
	Index  Expr
	Line   int
}

// CallExpr invokes a builtin or host function.
type CallExpr struct {
	Callee Expr
	Args   []Expr
	Line   int
}

// UnaryExpr is !X or -X.
type UnaryExpr struct {
	Op TokenType
	X  Expr
}

// BinaryExpr is a non-short-circuit binary operation.
type BinaryExpr struct {
	Op   TokenType
	L, R Expr
	Line int
}

// LogicalExpr is && or ||; evaluation short-circuits and yields the
// deciding operand, not a coerced boolean.
type LogicalExpr struct {
	Op   TokenType
	L, R Expr
}

// CondExpr is the ternary Cond ? Then : Else.
type CondExpr struct {
	Cond, Then, Else Expr
}

// AssignExpr writes Value to Target (an Ident, MemberExpr or IndexExpr).
// Op is ASSIGN, PLUS_ASSIGN or MINUS_ASSIGN.
type AssignExpr struct {
	Target Expr
	Op     TokenType
	Value  Expr
	Line   int
}

func (*Ident) exprNode()       {}
func (*StringLit) exprNode()   {}
func (*IntLit) exprNode()      {}
func (*NumLit) exprNode()      {}
func (*BoolLit) exprNode()     {}
func (*NullLit) exprNode()     {}
func (*ArrayLit) exprNode()    {}
func (*ObjectLit) exprNode()   {}
func (*MemberExpr) exprNode()  {}
func (*IndexExpr) exprNode()   {}
func (*CallExpr) exprNode()    {}
func (*UnaryExpr) exprNode()   {}
func (*BinaryExpr) exprNode()  {}
func (*LogicalExpr) exprNode() {}
func (*CondExpr) exprNode()    {}
func (*AssignExpr) exprNode()  {}
