package ast

import (
	"github.com/sushi-lang/sushi/internal/lexer"
	"github.com/sushi-lang/sushi/internal/types"
)

type stmtBase struct{ Sp lexer.Span }

func (s *stmtBase) Span() lexer.Span { return s.Sp }
func (*stmtBase) stmtNode()          {}

// LetStmt declares a new local: `let <Type> <name> = <init>`.
type LetStmt struct {
	stmtBase
	DeclaredType TypeExpr
	Name         string
	Init         Expr
	// Resolved is the declared type after resolution (C4); set by the
	// checker and read by the emitter/destructor engine.
	Resolved types.Type
}

// RebindStmt is `target := value` — reassigns an existing binding.
type RebindStmt struct {
	stmtBase
	Target Expr // Name or MemberAccess chain
	Value  Expr
}

// ReturnStmt is `return <value>`; the value must be an
// Ok/Err constructor call; a bare `return`/bare value is rejected by the
// checker (CE2030), not by the parser, so the AST still represents it
// uniformly as an expression.
type ReturnStmt struct {
	stmtBase
	Value Expr
	// Moved marks that Value names a local being moved out (destructor
	// suppressed at scope exit), set by the checker.
	Moved bool
}

// IfStmt is `if cond: ... else: ...`.
type IfStmt struct {
	stmtBase
	Cond Expr
	Then []Stmt
	Else []Stmt // nil if no else
}

// WhileStmt is `while cond: ...`.
type WhileStmt struct {
	stmtBase
	Cond Expr
	Body []Stmt
}

// ForeachStmt is `foreach(item in iterable): ...`.
type ForeachStmt struct {
	stmtBase
	Item         string
	DeclaredType TypeExpr // optional explicit item type
	Iterable     Expr
	Body         []Stmt
	// ItemType is the resolved element type.
	ItemType types.Type
}

// MatchStmt is `match scrutinee: arm*`.
type MatchStmt struct {
	stmtBase
	Scrutinee Expr
	Arms      []MatchArm
}

// PrintStmt covers both `print` and `println`.
type PrintStmt struct {
	stmtBase
	Value   Expr
	Newline bool
}

// ExprStmt is a bare expression used for its side effect (a call, a
// method call, a destroy()).
type ExprStmt struct {
	stmtBase
	Expr Expr
}

// BreakStmt / ContinueStmt are loop control statements.
type BreakStmt struct{ stmtBase }
type ContinueStmt struct{ stmtBase }
