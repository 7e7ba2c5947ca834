package diag_test

import (
	"testing"

	"github.com/sushi-lang/sushi/internal/diag"
)

func TestReporterAccumulatesAndSorts(t *testing.T) {
	r := diag.NewReporter("main.sushi")
	r.Error(diag.CE2008, diag.StageTypeck, diag.Span{Line: 5, Column: 2}, "undefined name %q", "x")
	r.Warn(diag.CW2001, diag.StageTypeck, diag.Span{Line: 1, Column: 1}, "unused Result")

	if !r.HasErrors() {
		t.Fatalf("expected reporter to have errors")
	}
	if r.ErrorCount() != 1 {
		t.Fatalf("expected 1 error, got %d", r.ErrorCount())
	}

	sorted := r.Sorted()
	if len(sorted) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(sorted))
	}
	if sorted[0].Span.Line != 1 {
		t.Fatalf("expected warning (line 1) first, got line %d", sorted[0].Span.Line)
	}
	if sorted[0].Span.Filename != "main.sushi" {
		t.Fatalf("expected filename propagated onto span, got %q", sorted[0].Span.Filename)
	}
}

func TestDiagnosticStringIncludesCode(t *testing.T) {
	d := diag.Diagnostic{
		Stage:    diag.StageBorrow,
		Severity: diag.SeverityError,
		Code:     diag.CE3003,
		Message:  "use of moved value",
		Span:     diag.Span{Line: 3, Column: 4},
	}
	got := d.String()
	want := "3:4: error[CE3003]: use of moved value"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
