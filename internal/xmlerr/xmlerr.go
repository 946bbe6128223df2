// Package xmlerr defines the two error kinds the parser reports
// through the handler contract's error channel (spec.md section 7):
// fatal well-formedness violations and recoverable validity
// violations. Both carry a Locator snapshot of the outermost enclosing
// entity's position, not the position inside a nested expansion,
// per spec.md section 7's propagation policy.
package xmlerr

import "fmt"

// Locator is a position snapshot: the public and system identifiers
// of the entity being parsed, and a line/column pair. It is copied by value at the point an error is raised, so it
// remains valid after the parser has moved on.
type Locator struct {
	PublicID string
	SystemID string
	Line     int
	Column   int
}

func (l Locator) String() string {
	sys := l.SystemID
	if sys == "" {
		sys = "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", sys, l.Line, l.Column)
}

// SyntaxError is a fatal well-formedness violation or tokenizer-level
// lexical error. The parser stops as soon as one is raised.
type SyntaxError struct {
	Msg     string
	Locator Locator
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: syntax error: %s", e.Locator, e.Msg)
}

// ValidityError is a recoverable violation of a Validity Constraint.
// Parsing continues after it is reported.
type ValidityError struct {
	Msg     string
	Locator Locator
}

func (e *ValidityError) Error() string {
	return fmt.Sprintf("%s: validity error: %s", e.Locator, e.Msg)
}

// WarningError is a non-binding notice: parsing is unaffected whether
// or not a handler is registered to see it.
type WarningError struct {
	Msg     string
	Locator Locator
}

func (e *WarningError) Error() string {
	return fmt.Sprintf("%s: warning: %s", e.Locator, e.Msg)
}

// NewSyntax builds a SyntaxError at loc.
func NewSyntax(loc Locator, format string, args ...any) *SyntaxError {
	return &SyntaxError{Msg: fmt.Sprintf(format, args...), Locator: loc}
}

// NewValidity builds a ValidityError at loc.
func NewValidity(loc Locator, format string, args ...any) *ValidityError {
	return &ValidityError{Msg: fmt.Sprintf(format, args...), Locator: loc}
}

// NewWarning builds a WarningError at loc.
func NewWarning(loc Locator, format string, args ...any) *WarningError {
	return &WarningError{Msg: fmt.Sprintf(format, args...), Locator: loc}
}
