package combinator

import (
	"testing"

	"github.com/vsop-lang/vsopc/cursor"
)

func match(t *testing.T, m Matcher, input string) (string, bool) {
	t.Helper()
	x := cursor.New(input, "test")
	y, ok := m(x)
	return cursor.Slice(x, y), ok
}

func TestEquality(t *testing.T) {
	m := Equality('a')
	if s, ok := match(t, m, "abc"); !ok || s != "a" {
		t.Fatalf("got (%q, %v), want (\"a\", true)", s, ok)
	}
	if _, ok := match(t, m, "xbc"); ok {
		t.Fatalf("expected failure on mismatched leading char")
	}
}

func TestRepetitionAlwaysSucceeds(t *testing.T) {
	m := Repetition(Range('0', '9'))
	if s, ok := match(t, m, "123abc"); !ok || s != "123" {
		t.Fatalf("got (%q, %v)", s, ok)
	}
	if s, ok := match(t, m, "abc"); !ok || s != "" {
		t.Fatalf("zero-match repetition should still succeed, got (%q, %v)", s, ok)
	}
}

func TestAlternationLongestMatch(t *testing.T) {
	// "ab" vs "a": on input "ab", the longer alternative wins.
	m := Alternation(EqualityString("ab"), Equality('a'))
	if s, ok := match(t, m, "ab"); !ok || s != "ab" {
		t.Fatalf("got (%q, %v), want (\"ab\", true)", s, ok)
	}
}

func TestAlternationTieBreaksToFirst(t *testing.T) {
	// Both match exactly one character; the first argument should win.
	first := Equality('a')
	second := Range('a', 'z')
	m := Alternation(first, second)

	x := cursor.New("abc", "test")
	y, ok := m(x)
	if !ok {
		t.Fatalf("expected match")
	}
	if cursor.Slice(x, y) != "a" {
		t.Fatalf("expected single-character match")
	}
}

func TestConcatenation(t *testing.T) {
	m := Concatenation(Equality('0'), EqualityString("x1"))
	if s, ok := match(t, m, "0x1yz"); !ok || s != "0x1" {
		t.Fatalf("got (%q, %v)", s, ok)
	}
	if _, ok := match(t, m, "0y1"); ok {
		t.Fatalf("expected failure")
	}
}

func TestExclusion(t *testing.T) {
	all := Special(func(x cursor.Cursor) (cursor.Cursor, bool) { return x.Advance(), true })
	m := Exclusion(all, Equality('"'))

	if _, ok := match(t, m, `"`); ok {
		t.Fatalf("excluded character should not match")
	}
	if s, ok := match(t, m, "a"); !ok || s != "a" {
		t.Fatalf("got (%q, %v)", s, ok)
	}
}

func TestOptionRestoresOnFailure(t *testing.T) {
	m := Option(Equality('x'))
	if s, ok := match(t, m, "abc"); !ok || s != "" {
		t.Fatalf("got (%q, %v), want (\"\", true)", s, ok)
	}
}
