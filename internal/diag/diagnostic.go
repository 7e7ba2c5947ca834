// Package diag provides the shared diagnostic reporter used across every
// compiler stage, from lexing through LLVM emission.
package diag

import "fmt"

// Stage identifies which compiler phase produced the diagnostic.
type Stage string

const (
	StageLexer    Stage = "lexer"
	StageParser   Stage = "parser"
	StageCollect  Stage = "collect"
	StageResolve  Stage = "resolve"
	StageMono     Stage = "monomorphize"
	StageTypeck   Stage = "typecheck"
	StagePattern  Stage = "pattern"
	StageBorrow   Stage = "borrow"
	StageCodegen  Stage = "codegen"
	StageInternal Stage = "internal"
)

// Severity captures how impactful the diagnostic is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityNote    Severity = "note"
)

// Code is a stable identifier for a diagnostic. CE-prefixed codes are
// compile errors, CW-prefixed codes are warnings, RE-prefixed codes are
// runtime errors emitted into generated code, and ICE-prefixed codes mark
// internal compiler errors (bugs in the compiler itself, not the user's
// program).
type Code string

const (
	// Lexer/parser diagnostics. Out of the core's contracted boundary but
	// surfaced through the same reporter since the driver renders both.
	CodeLexerUnterminatedString       Code = "LEXER_UNTERMINATED_STRING"
	CodeLexerUnterminatedBlockComment Code = "LEXER_UNTERMINATED_BLOCK_COMMENT"
	CodeLexerIllegalRune              Code = "LEXER_ILLEGAL_RUNE"
	CodeParserUnexpectedToken         Code = "PARSER_UNEXPECTED_TOKEN"

	// Compile errors.
	CodeDuplicateDecl Code = "CE0010" // name already declared in this file
	CE0020            Code = "CE0020" // unknown type (resolver form)
	CE0045            Code = "CE0045" // unresolved type parameter
	CE2001 Code = "CE2001" // unknown type
	CE2002 Code = "CE2002" // assignment type mismatch
	CE2003 Code = "CE2003" // return type mismatch
	CE2005 Code = "CE2005" // non-bool condition
	CE2006 Code = "CE2006" // arg type mismatch
	CE2007 Code = "CE2007" // missing let-type annotation
	CE2008 Code = "CE2008" // undefined name
	CE2009 Code = "CE2009" // arity mismatch
	CE2010 Code = "CE2010" // empty fixed array T[0]
	CE2011 Code = "CE2011" // array-literal wrong length
	CE2023 Code = "CE2023" // method arg type mismatch
	CE2024 Code = "CE2024" // use of destroyed value
	CE2030 Code = "CE2030" // return without Result.Ok/Err
	CE2032 Code = "CE2032" // ~ used as variable type
	CE2037 Code = "CE2037" // printing Result directly
	CE2040 Code = "CE2040" // non-exhaustive match
	CE2041 Code = "CE2041" // duplicate match arm
	CE2044 Code = "CE2044" // pattern arity mismatch
	CE2045 Code = "CE2045" // unknown variant / unresolved type parameter
	CE2048 Code = "CE2048" // match scrutinee not enum
	CE2050 Code = "CE2050" // constructor arity mismatch
	CE2505 Code = "CE2505" // unhandled Result
	CE2509 Code = "CE2509" // + on strings
	CE2510 Code = "CE2510" // mixed numeric types without cast

	// Borrow checker (C9).
	CE3001 Code = "CE3001" // already mutably borrowed
	CE3002 Code = "CE3002" // poke requested while peek-borrowed
	CE3003 Code = "CE3003" // use after move
	CE3004 Code = "CE3004" // use after destroy
	CE3005 Code = "CE3005" // move/destroy while borrowed

	// Warnings.
	CW2001 Code = "CW2001" // unused Result

	// Internal compiler errors.
	ICE0001 Code = "ICE0001"

	// Runtime errors, rendered by generated code.
	RE2020 Code = "RE2020" // array index out of bounds
	RE2021 Code = "RE2021" // allocation failure
)

// Span represents a location in source code.
type Span struct {
	Filename string
	Line     int
	Column   int
	Start    int
	End      int
}

// IsValid reports whether the span carries real position information.
func (s Span) IsValid() bool {
	return s.Line > 0
}

func (s Span) String() string {
	if s.Filename == "" {
		return fmt.Sprintf("%d:%d", s.Line, s.Column)
	}
	return fmt.Sprintf("%s:%d:%d", s.Filename, s.Line, s.Column)
}

// Diagnostic is a compiler diagnostic surfaced to end-users.
type Diagnostic struct {
	Stage    Stage
	Severity Severity
	Code     Code
	Message  string
	Span     Span

	// Notes are additional free-form explanations rendered after the
	// primary message.
	Notes []string
	// Help is a single actionable suggestion, rendered as `help: ...`.
	Help string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s[%s]: %s", d.Span, d.Severity, d.Code, d.Message)
}

// Reporter accumulates diagnostics for a single compilation unit.
//
// Passes never stop at the first error: each visitor keeps traversing so
// that a single run surfaces as many diagnostics as possible.
// Compilation must not proceed to IR emission while ErrorCount() > 0.
type Reporter struct {
	Filename    string
	Diagnostics []Diagnostic
}

// NewReporter creates a reporter scoped to filename.
func NewReporter(filename string) *Reporter {
	return &Reporter{Filename: filename}
}

// Error records a fatal compile error.
func (r *Reporter) Error(code Code, stage Stage, span Span, format string, args ...any) {
	span.Filename = r.Filename
	r.Diagnostics = append(r.Diagnostics, Diagnostic{
		Stage:    stage,
		Severity: SeverityError,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
	})
}

// Warn records a non-fatal warning.
func (r *Reporter) Warn(code Code, stage Stage, span Span, format string, args ...any) {
	span.Filename = r.Filename
	r.Diagnostics = append(r.Diagnostics, Diagnostic{
		Stage:    stage,
		Severity: SeverityWarning,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
	})
}

// HasErrors reports whether any SeverityError diagnostic was recorded.
func (r *Reporter) HasErrors() bool {
	return r.ErrorCount() > 0
}

// ErrorCount returns the number of SeverityError diagnostics.
func (r *Reporter) ErrorCount() int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			n++
		}
	}
	return n
}

// Sorted returns the diagnostics ordered by line then column, stable for
// diagnostics on the same position.
func (r *Reporter) Sorted() []Diagnostic {
	out := make([]Diagnostic, len(r.Diagnostics))
	copy(out, r.Diagnostics)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0; j-- {
			a, b := out[j-1].Span, out[j].Span
			if a.Line < b.Line || (a.Line == b.Line && a.Column <= b.Column) {
				break
			}
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
