package diag

import (
	"fmt"
	"io"
	"os"
)

// Formatter renders diagnostics to a line:col stream, the format the
// top-level driver writes to stderr on compile error.
type Formatter struct {
	Out io.Writer
}

// NewFormatter creates a formatter writing to stderr.
func NewFormatter() *Formatter {
	return &Formatter{Out: os.Stderr}
}

// Format renders a single diagnostic.
func (f *Formatter) Format(d Diagnostic) {
	fmt.Fprintf(f.Out, "%s: %s[%s]: %s\n", d.Span, d.Severity, d.Code, d.Message)
	for _, note := range d.Notes {
		fmt.Fprintf(f.Out, "  = note: %s\n", note)
	}
	if d.Help != "" {
		fmt.Fprintf(f.Out, "  = help: %s\n", d.Help)
	}
}

// FormatAll renders every diagnostic in the reporter, in position order.
func (f *Formatter) FormatAll(r *Reporter) {
	for _, d := range r.Sorted() {
		f.Format(d)
	}
}
