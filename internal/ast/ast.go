// Package ast defines the Sushi abstract syntax tree: the structure the
// parser produces and every semantic pass (C3–C9) and the LLVM emitter
// (C10–C14) consume. Node kinds follow exactly; annotation
// fields populated by the type validator (inferred_type and friends) live
// alongside the syntactic fields rather than in a side table, so the
// emitter never re-derives what the checker already established.
package ast

import (
	"github.com/sushi-lang/sushi/internal/lexer"
	"github.com/sushi-lang/sushi/internal/types"
)

// Node is any AST node with a source span.
type Node interface {
	Span() lexer.Span
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
	// Type returns the inferred type the checker (C7) attached, or nil if
	// the node hasn't been validated yet.
	Type() types.Type
	SetType(types.Type)
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Decl is a top-level declaration.
type Decl interface {
	Node
	declNode()
}

// TypeExpr is a parsed type annotation, possibly unresolved.
type TypeExpr interface {
	Node
	typeNode()
}

// exprBase centralizes the inferred-type annotation shared by every
// expression node so each concrete type only embeds this, instead of
// repeating Type()/SetType() boilerplate.
type exprBase struct {
	Sp       lexer.Span
	Inferred types.Type
}

func (e *exprBase) Span() lexer.Span    { return e.Sp }
func (e *exprBase) Type() types.Type    { return e.Inferred }
func (e *exprBase) SetType(t types.Type) { e.Inferred = t }
func (e *exprBase) exprNode()           {}

// File is a parsed compilation unit.
type File struct {
	Name  string
	Uses  []*UseDecl
	Decls []Decl
	Sp    lexer.Span
}

func (f *File) Span() lexer.Span { return f.Sp }

// UseDecl imports a stdlib or library module (e.g. `use io/stdio`).
type UseDecl struct {
	Path []string
	Sp   lexer.Span
}

func (d *UseDecl) Span() lexer.Span { return d.Sp }
func (d *UseDecl) declNode()        {}
