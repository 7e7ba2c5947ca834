package ast

import (
	"github.com/sushi-lang/sushi/internal/lexer"
	"github.com/sushi-lang/sushi/internal/types"
)

// Pattern is a match-arm pattern.
type Pattern interface {
	Node
	patternNode()
}

type patternBase struct{ Sp lexer.Span }

func (p *patternBase) Span() lexer.Span { return p.Sp }
func (*patternBase) patternNode()       {}

// WildcardPattern is `_`; must be the last arm.
type WildcardPattern struct{ patternBase }

// Binding is a sub-pattern within an EnumPattern: a capturing identifier,
// a discard (`_`), a nested EnumPattern, or an OwnPattern.
type Binding struct {
	Name    string // "" if Discard or a nested pattern
	Discard bool
	Nested  Pattern // non-nil for a nested EnumPattern/OwnPattern
	// ResolvedType is filled in by the pattern checker (C8) when the
	// binding enters scope; unwraps Own<U> -> U.
	ResolvedType types.Type
}

// EnumPattern matches `Enum.Variant(bindings...)`.
type EnumPattern struct {
	patternBase
	EnumName string
	Variant  string
	Bindings []Binding
	// Resolved is the enum the pattern checker matched this against.
	Resolved *types.Enum
}

// OwnPattern matches `Own(inner)`, descending into Own<U>'s payload U.
type OwnPattern struct {
	patternBase
	Inner Pattern
}

// CapturePattern is a bare identifier inside `Own(name)`, binding the
// unwrapped payload directly without further destructuring.
type CapturePattern struct {
	patternBase
	Name string
}

// MatchArm is one `pattern -> body` arm.
type MatchArm struct {
	Pattern Pattern
	Body    []Stmt
	Sp      lexer.Span
}
