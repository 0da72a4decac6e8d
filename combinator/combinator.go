// Package combinator provides the five regex-like primitives the lexer
// rules are built from: Repetition, Option, Alternation, Concatenation and
// Exclusion, plus the Equality and Range leaves. Every primitive is a
// Matcher: a function from a cursor.Cursor to (advanced cursor, matched).
package combinator

import "github.com/vsop-lang/vsopc/cursor"

// Matcher attempts to consume a region of the input starting at x. On
// success it returns the cursor advanced past the matched region and true.
// On failure the returned cursor's contents are unspecified except where a
// specific combinator documents otherwise (Alternation and Exclusion use it
// to report the deepest partial match for tie-breaking).
type Matcher func(x cursor.Cursor) (cursor.Cursor, bool)

// Equality matches a single literal character.
func Equality(c byte) Matcher {
	return func(x cursor.Cursor) (cursor.Cursor, bool) {
		if x.AtEOF() || byte(x.Peek()) != c {
			return x, false
		}
		return x.Advance(), true
	}
}

// EqualityString matches a literal string, character by character.
func EqualityString(s string) Matcher {
	return func(x cursor.Cursor) (cursor.Cursor, bool) {
		y := x
		for i := 0; i < len(s); i++ {
			if y.AtEOF() || byte(y.Peek()) != s[i] {
				return x, false
			}
			y = y.Advance()
		}
		return y, true
	}
}

// Range matches a single character in [lo, hi].
func Range(lo, hi byte) Matcher {
	return func(x cursor.Cursor) (cursor.Cursor, bool) {
		if x.AtEOF() {
			return x, false
		}
		c := byte(x.Peek())
		if c < lo || c > hi {
			return x, false
		}
		return x.Advance(), true
	}
}

// Special wraps an arbitrary predicate as a Matcher; used for recursive
// rules (e.g. nested comments) that can't be expressed as a fixed
// composition of the other primitives.
func Special(f func(cursor.Cursor) (cursor.Cursor, bool)) Matcher {
	return f
}

// Repetition is the greedy e*: consume as many successful matches of e as
// possible. Always succeeds (zero matches is success).
func Repetition(e Matcher) Matcher {
	return func(x cursor.Cursor) (cursor.Cursor, bool) {
		for {
			y, ok := e(x)
			if !ok {
				return x, true
			}
			x = y
		}
	}
}

// Option is e?: try once, restore on failure. Always succeeds.
func Option(e Matcher) Matcher {
	return func(x cursor.Cursor) (cursor.Cursor, bool) {
		if y, ok := e(x); ok {
			return y, true
		}
		return x, true
	}
}

// Alternation tries both a and b on independent clones of x and returns
// whichever advanced further — this is the longest-match semantics the
// lexer's driver relies on for tie-breaking. If both advance equally far,
// a wins (success iff either succeeded).
func Alternation(a, b Matcher) Matcher {
	return func(x cursor.Cursor) (cursor.Cursor, bool) {
		y, aok := a(x)
		z, bok := b(x)

		switch {
		case aok && bok:
			if y.Less(z) {
				return z, true
			}
			return y, true
		case aok:
			return y, true
		case bok:
			return z, true
		default:
			if y.Less(z) {
				return z, false
			}
			return y, false
		}
	}
}

// Concatenation is a then b, both over the same advancing cursor.
func Concatenation(a, b Matcher) Matcher {
	return func(x cursor.Cursor) (cursor.Cursor, bool) {
		y, ok := a(x)
		if !ok {
			return y, false
		}
		return b(y)
	}
}

// Exclusion matches iff a matches and b does not match the identical
// region (same start, same end).
func Exclusion(a, b Matcher) Matcher {
	return func(x cursor.Cursor) (cursor.Cursor, bool) {
		y, aok := a(x)
		if !aok {
			return y, false
		}
		z, bok := b(x)
		if bok && y.Equal(z) {
			return y, false
		}
		return y, true
	}
}
