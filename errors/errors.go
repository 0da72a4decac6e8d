// Package errors holds the positional diagnostics accumulated across every
// compiler stage (spec.md §7: Lexical, Structural, Type, Internal).
package errors

import (
	"fmt"

	"github.com/vsop-lang/vsopc/token"
)

// Kind classifies a Diagnostic per spec.md §7.
type Kind int

const (
	Lexical Kind = iota
	Structural
	Type
	Internal
)

func (k Kind) String() string {
	switch k {
	case Lexical:
		return "lexical"
	case Structural, Type:
		return "semantic"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Diagnostic is a single positional error report.
type Diagnostic struct {
	Kind     Kind
	Location token.Position
	Message  string
}

// Error implements the error interface in the driver's dump format:
// <file>:<line>:<column>: <lexical|semantic> error: <message>.
func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s error: %s", d.Location, d.Kind, d.Message)
}

// Collector accumulates diagnostics across the whole pipeline. It never
// stops a pass: every component appends to it and continues so that a
// single run surfaces as many errors as possible (spec.md §7, property 9).
type Collector struct {
	diagnostics []Diagnostic
}

// Add records a diagnostic. A blank message is a bug in the caller, not a
// degenerate diagnostic — it is asserted against, not swallowed.
func (c *Collector) Add(kind Kind, pos token.Position, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if msg == "" {
		panic("errors: empty diagnostic message")
	}
	c.diagnostics = append(c.diagnostics, Diagnostic{Kind: kind, Location: pos, Message: msg})
}

// AddLexical, AddStructural, AddType and AddInternal are convenience
// wrappers for Add.
func (c *Collector) AddLexical(pos token.Position, format string, args ...interface{}) {
	c.Add(Lexical, pos, format, args...)
}

func (c *Collector) AddStructural(pos token.Position, format string, args ...interface{}) {
	c.Add(Structural, pos, format, args...)
}

func (c *Collector) AddType(pos token.Position, format string, args ...interface{}) {
	c.Add(Type, pos, format, args...)
}

func (c *Collector) AddInternal(pos token.Position, format string, args ...interface{}) {
	c.Add(Internal, pos, format, args...)
}

// Diagnostics returns every diagnostic recorded so far, in emission order.
func (c *Collector) Diagnostics() []Diagnostic {
	return c.diagnostics
}

// Count returns the number of diagnostics recorded; the driver's exit code
// equals this value (spec.md §6).
func (c *Collector) Count() int {
	return len(c.diagnostics)
}

// HasErrors reports whether any diagnostic was recorded.
func (c *Collector) HasErrors() bool {
	return len(c.diagnostics) > 0
}
