// Package cursor implements the positional read head the lexer's
// combinator engine advances over.
package cursor

import "github.com/vsop-lang/vsopc/token"

// eof is the sentinel rune returned by Peek past the end of input.
const eof = rune(-1)

// Cursor is a pure state carrier: an offset into the source text plus the
// line/column it corresponds to. It holds no diagnostics of its own — the
// lexer reads a Cursor's position at the point a rule fails to build one.
type Cursor struct {
	input    string
	offset   int
	line     int
	column   int
	filename string
}

// New builds a Cursor positioned at the start of input.
func New(input, filename string) Cursor {
	return Cursor{input: input, offset: 0, line: 1, column: 1, filename: filename}
}

// Peek returns the current character without consuming it, or eof past the
// end of input.
func (c Cursor) Peek() rune {
	if c.offset >= len(c.input) {
		return eof
	}
	return rune(c.input[c.offset])
}

// AtEOF reports whether the cursor has consumed the entire input.
func (c Cursor) AtEOF() bool {
	return c.offset >= len(c.input)
}

// Advance consumes the current character, tracking line/column. Advancing
// past EOF is a no-op, matching the original cursor's saturating behaviour.
func (c Cursor) Advance() Cursor {
	if c.AtEOF() {
		return c
	}
	ch := c.input[c.offset]
	c.offset++
	if ch == '\n' {
		c.line++
		c.column = 1
	} else {
		c.column++
	}
	return c
}

// Clone produces an independent copy of the cursor at the same offset —
// since Cursor is a value type, this is simply a copy.
func (c Cursor) Clone() Cursor {
	return c
}

// Position reports the cursor's current line/column as a token.Position.
func (c Cursor) Position() token.Position {
	return token.Position{Line: c.line, Column: c.column, Filename: c.filename}
}

// Offset exposes the byte offset for ordering comparisons.
func (c Cursor) Offset() int {
	return c.offset
}

// Less orders cursors by byte offset; equal offsets compare equal
// regardless of how each cursor got there.
func (c Cursor) Less(other Cursor) bool {
	return c.offset < other.offset
}

// LessEqual is the non-strict counterpart of Less.
func (c Cursor) LessEqual(other Cursor) bool {
	return c.offset <= other.offset
}

// Equal reports whether two cursors sit at the same offset.
func (c Cursor) Equal(other Cursor) bool {
	return c.offset == other.offset
}

// Slice returns the text between two cursors over the same input, from
// `from` (inclusive) to `to` (exclusive).
func Slice(from, to Cursor) string {
	if to.offset > len(from.input) {
		return from.input[from.offset:]
	}
	return from.input[from.offset:to.offset]
}
