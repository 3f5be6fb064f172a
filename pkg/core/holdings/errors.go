package holdings

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every engine failure wraps exactly one of these.
var (
	// ErrStructuralDrift: the document falls outside the known layout variants.
	ErrStructuralDrift = errors.New("structural drift")
	// ErrIdentity: the header does not belong to the expected fund schedule.
	ErrIdentity = errors.New("identity validation failed")
	// ErrReconciliation: derived totals disagree with reported totals.
	ErrReconciliation = errors.New("reconciliation failed")
	// ErrValueParse: a numeric cell is neither an integer nor a placeholder.
	ErrValueParse = errors.New("value parse failed")
)

// ParseError carries the location of a failure inside the filing.
// Page and Column are -1 when unknown.
type ParseError struct {
	Kind   error
	Page   int
	Column int
	Row    []string
	Msg    string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Page >= 0 {
		fmt.Fprintf(&b, " (page %d", e.Page)
		if e.Column >= 0 {
			fmt.Fprintf(&b, ", column %d", e.Column)
		}
		b.WriteString(")")
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if len(e.Row) > 0 {
		fmt.Fprintf(&b, " row=%q", e.Row)
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...interface{}) *ParseError {
	return &ParseError{Kind: kind, Page: -1, Column: -1, Msg: fmt.Sprintf(format, args...)}
}

func rowError(kind error, row []string, format string, args ...interface{}) *ParseError {
	e := newError(kind, format, args...)
	e.Row = row
	return e
}

// locate fills in the page/column of a ParseError raised deeper in the stack.
func locate(err error, page, column int) error {
	var pe *ParseError
	if !errors.As(err, &pe) {
		return err
	}
	if pe.Page < 0 {
		pe.Page = page
	}
	if pe.Column < 0 {
		pe.Column = column
	}
	return err
}
