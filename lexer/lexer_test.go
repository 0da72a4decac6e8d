package lexer

import (
	"testing"

	"github.com/vsop-lang/vsopc/token"
)

func tokens(t *testing.T, src string, dialect Dialect) []token.Token {
	t.Helper()
	l := New(src, "test", dialect)
	var got []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("unexpected lexical error: %v", err)
		}
		if tok.Kind == token.EOF {
			return got
		}
		got = append(got, tok)
	}
}

func kinds(toks []token.Token) []token.Kind {
	ks := make([]token.Kind, len(toks))
	for i, tok := range toks {
		ks[i] = tok.Kind
	}
	return ks
}

func assertKinds(t *testing.T, got []token.Kind, want ...token.Kind) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d tokens %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %v, want %v (all: %v)", i, got[i], want[i], got)
		}
	}
}

func TestKeywordTakesPriorityOverObjectIdentifier(t *testing.T) {
	toks := tokens(t, "class extends while notaKeyword", Base)
	assertKinds(t, kinds(toks), token.Class, token.Extends, token.While, token.ObjectIdentifier)
}

func TestIntegerLiteralLongestMatchOverHexPrefix(t *testing.T) {
	toks := tokens(t, "0x1A 42", Base)
	assertKinds(t, kinds(toks), token.IntegerLiteral, token.IntegerLiteral)
	if toks[0].Value.Num != 0x1A {
		t.Fatalf("got %d, want 26", toks[0].Value.Num)
	}
	if toks[1].Value.Num != 42 {
		t.Fatalf("got %d, want 42", toks[1].Value.Num)
	}
}

func TestLowerEqualWinsOverLowerFollowedByEqual(t *testing.T) {
	// "<=" must lex as one LowerEqual token, not Lower followed by Equal.
	toks := tokens(t, "<=", Base)
	assertKinds(t, kinds(toks), token.LowerEqual)
}

func TestAssignOperator(t *testing.T) {
	toks := tokens(t, "<-", Base)
	assertKinds(t, kinds(toks), token.Assign)
}

func TestWhitespaceAndCommentsAreSkipped(t *testing.T) {
	toks := tokens(t, "let // a line comment\n  x (* a\nmultiline (* nested *) comment *) : Int32", Base)
	assertKinds(t, kinds(toks), token.Let, token.ObjectIdentifier, token.Colon, token.TypeIdentifier)
}

func TestIntegerImmediatelyFollowedByIdentifierIsRejected(t *testing.T) {
	l := New("123abc", "test", Base)
	_, err := l.Next()
	if err == nil {
		t.Fatalf("expected a lexical error for 123abc")
	}
	if _, ok := err.(*LexicalError); !ok {
		t.Fatalf("got %T, want *LexicalError", err)
	}
}

func TestUnterminatedStringLiteral(t *testing.T) {
	l := New(`"abc`, "test", Base)
	_, err := l.Next()
	if err == nil {
		t.Fatalf("expected a lexical error for an unterminated string")
	}
	le, ok := err.(*LexicalError)
	if !ok {
		t.Fatalf("got %T, want *LexicalError", err)
	}
	if le.Msg != "unterminated string literal" {
		t.Fatalf("got %q", le.Msg)
	}
}

func TestUnterminatedComment(t *testing.T) {
	l := New("(* never closes", "test", Base)
	_, err := l.Next()
	if err == nil {
		t.Fatalf("expected a lexical error for an unterminated comment")
	}
	le, ok := err.(*LexicalError)
	if !ok {
		t.Fatalf("got %T, want *LexicalError", err)
	}
	if le.Msg != "unterminated comment" {
		t.Fatalf("got %q", le.Msg)
	}
}

func TestExtendedDialectKeywords(t *testing.T) {
	toks := tokens(t, "for to break or mod double", Extended)
	assertKinds(t, kinds(toks), token.For, token.To, token.Break, token.Or, token.Mod, token.Double)

	// In the base dialect the same lexemes are plain object identifiers.
	toks = tokens(t, "for to break", Base)
	assertKinds(t, kinds(toks), token.ObjectIdentifier, token.ObjectIdentifier, token.ObjectIdentifier)
}

func TestStringLiteralEscapeResolutionIsCanonical(t *testing.T) {
	toks := tokens(t, `"a\tb\x41\"c"`, Base)
	assertKinds(t, kinds(toks), token.StringLiteral)
	want := `a\x09bA\x22c`
	if toks[0].Value.Str != want {
		t.Fatalf("got %q, want %q", toks[0].Value.Str, want)
	}
}

func TestStringLiteralHexEscapeOfQuoteAndBackslashStaysCanonical(t *testing.T) {
	toks := tokens(t, `"\x22\x5c"`, Base)
	assertKinds(t, kinds(toks), token.StringLiteral)
	want := `\x22\x5c`
	if toks[0].Value.Str != want {
		t.Fatalf("got %q, want %q", toks[0].Value.Str, want)
	}
}

// TestStringReserializationIsIdempotent encodes spec.md §8 property 3: the
// canonical form, fed back through extractString as if it were the body of
// a fresh literal, must resolve to itself.
func TestStringReserializationIsIdempotent(t *testing.T) {
	first := extractString(`"hello\nworld\x00!"`)
	second := extractString(`"` + first.Str + `"`)
	if first.Str != second.Str {
		t.Fatalf("re-serialisation not idempotent: %q != %q", first.Str, second.Str)
	}
}

func TestPositionsTrackLinesAndColumns(t *testing.T) {
	toks := tokens(t, "let\nx", Base)
	assertKinds(t, kinds(toks), token.Let, token.ObjectIdentifier)
	if toks[0].Location.From.Line != 1 || toks[0].Location.From.Column != 1 {
		t.Fatalf("got %v", toks[0].Location.From)
	}
	if toks[1].Location.From.Line != 2 || toks[1].Location.From.Column != 1 {
		t.Fatalf("got %v", toks[1].Location.From)
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	l := New("let x", "test", Base)
	p1, err := l.Peek()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p2, err := l.Peek()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p1.Kind != p2.Kind {
		t.Fatalf("peek is not idempotent: %v != %v", p1.Kind, p2.Kind)
	}
	n, err := l.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Kind != token.Let {
		t.Fatalf("got %v, want Let", n.Kind)
	}
}
