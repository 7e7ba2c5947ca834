package sema

import "github.com/sushi-lang/sushi/internal/diag"

// BorrowChecker is C9: a small per-function state machine tracking, for
// each local, a current status among {unborrowed, peek-borrowed (count),
// poke-borrowed (exclusive), moved, destroyed}. Borrow
// lifetimes are expression-local, so the checker only needs to validate
// transitions at the point of each operation, not track scoping depth.
type BorrowChecker struct {
	rep *diag.Reporter
}

// NewBorrowChecker creates a borrow checker for one function body.
func NewBorrowChecker(rep *diag.Reporter) *BorrowChecker {
	return &BorrowChecker{rep: rep}
}

// Declare resets a newly-declared local to unborrowed.
func (b *BorrowChecker) Declare(sym *Symbol) {
	sym.Borrow = Unborrowed
	sym.PeekCount = 0
}

// Peek registers an immutable borrow of sym; any number may coexist
// unless an exclusive poke-borrow is already active.
func (b *BorrowChecker) Peek(sym *Symbol) string {
	switch sym.Borrow {
	case PokeBorrowed:
		return "cannot take &peek: already mutably borrowed"
	case Moved:
		return "use after move"
	case Destroyed:
		return "use after destroy"
	}
	sym.Borrow = PeekBorrowed
	sym.PeekCount++
	return ""
}

// Poke registers an exclusive mutable borrow of sym.
func (b *BorrowChecker) Poke(sym *Symbol) string {
	switch sym.Borrow {
	case PeekBorrowed:
		return "cannot take &poke: already immutably borrowed"
	case PokeBorrowed:
		return "cannot take &poke: already mutably borrowed"
	case Moved:
		return "use after move"
	case Destroyed:
		return "use after destroy"
	}
	sym.Borrow = PokeBorrowed
	return ""
}

// Release ends one borrow of sym at the end of its enclosing expression.
func (b *BorrowChecker) Release(sym *Symbol) {
	switch sym.Borrow {
	case PeekBorrowed:
		sym.PeekCount--
		if sym.PeekCount <= 0 {
			sym.Borrow = Unborrowed
		}
	case PokeBorrowed:
		sym.Borrow = Unborrowed
	}
}

// CheckMutate validates a rebind/mutation of sym: it must not be
// currently borrowed, moved, or destroyed.
func (b *BorrowChecker) CheckMutate(sym *Symbol) string {
	switch sym.Borrow {
	case PeekBorrowed:
		return "cannot mutate: borrowed as peek"
	case PokeBorrowed:
		return "cannot mutate: borrowed as poke"
	case Moved:
		return "use after move"
	case Destroyed:
		return "use after destroy"
	}
	return ""
}

// Move marks sym moved; the destructor engine (C12) suppresses its
// cleanup and any further use is an error.
func (b *BorrowChecker) Move(sym *Symbol) {
	sym.Borrow = Moved
}

// Destroy validates and records an explicit destroy() of sym.
func (b *BorrowChecker) Destroy(sym *Symbol) string {
	switch sym.Borrow {
	case PeekBorrowed, PokeBorrowed:
		return "cannot destroy: currently borrowed"
	case Moved:
		return "use after move"
	case Destroyed:
		return "double destroy"
	}
	sym.Borrow = Destroyed
	return ""
}

// ExitScope is a hook for symmetry with the scope manager; borrow state
// is per-symbol and doesn't need scope-level bookkeeping beyond what
// Declare/Move/Destroy already maintain.
func (b *BorrowChecker) ExitScope(scope *Scope) {}
