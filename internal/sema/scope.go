package sema

import "github.com/sushi-lang/sushi/internal/types"

// BorrowState tracks a local's current borrow/ownership status for C9.
type BorrowState int

const (
	Unborrowed BorrowState = iota
	PeekBorrowed
	PokeBorrowed
	Moved
	Destroyed
)

// Symbol is a named local binding within a function scope.
type Symbol struct {
	Name   string
	Type   types.Type
	Borrow BorrowState
	// PeekCount counts concurrent immutable borrows; only meaningful while
	// Borrow == PeekBorrowed.
	PeekCount int
}

// Scope is one lexical block's variable table, chained to its parent.
type Scope struct {
	Parent  *Scope
	Symbols map[string]*Symbol
	// Order preserves declaration order for reverse-order RAII cleanup.
	Order []string
}

// NewScope creates a child scope (parent may be nil for a function's
// top-level scope).
func NewScope(parent *Scope) *Scope {
	return &Scope{Parent: parent, Symbols: make(map[string]*Symbol)}
}

// Declare registers a new local in this scope.
func (s *Scope) Declare(name string, t types.Type) *Symbol {
	sym := &Symbol{Name: name, Type: t}
	s.Symbols[name] = sym
	s.Order = append(s.Order, name)
	return sym
}

// Lookup finds a symbol in this scope or any ancestor.
func (s *Scope) Lookup(name string) *Symbol {
	for cur := s; cur != nil; cur = cur.Parent {
		if sym, ok := cur.Symbols[name]; ok {
			return sym
		}
	}
	return nil
}
