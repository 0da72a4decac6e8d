// Package lexer recognises the VSOP token alphabet over a cursor.Cursor
// using the combinator engine, with longest-match/earliest-rule
// tie-breaking and positional lexical diagnostics (spec.md §4.3).
package lexer

import (
	"github.com/vsop-lang/vsopc/cursor"
	"github.com/vsop-lang/vsopc/token"
)

// Lexer drives the rule table over a single source file. It is not safe
// for concurrent use — like every other stage of this compiler it is
// owned by one thread of execution (spec.md §5).
type Lexer struct {
	x      cursor.Cursor
	peeked *token.Token
	dialect Dialect
}

// Dialect selects the base or extended (-ext) keyword set.
type Dialect int

const (
	Base Dialect = iota
	Extended
)

// New builds a Lexer over source text, tagging positions with filename.
func New(source, filename string, dialect Dialect) *Lexer {
	return &Lexer{x: cursor.New(source, filename), dialect: dialect}
}

// AtEOF reports whether the lexer has consumed all of its input and has no
// buffered lookahead token.
func (l *Lexer) AtEOF() bool {
	return l.peeked == nil && l.x.AtEOF()
}

// Peek returns the next token without consuming it.
func (l *Lexer) Peek() (token.Token, error) {
	if l.peeked != nil {
		return *l.peeked, nil
	}
	t, err := l.next()
	if err != nil {
		return t, err
	}
	l.peeked = &t
	return t, nil
}

// Next consumes and returns the next token.
func (l *Lexer) Next() (token.Token, error) {
	if l.peeked != nil {
		t := *l.peeked
		l.peeked = nil
		return t, nil
	}
	return l.next()
}

// next runs the driver policy of spec.md §4.3 steps 1-6, recursing past
// whitespace and comments.
func (l *Lexer) next() (token.Token, error) {
	if l.x.AtEOF() {
		return token.Token{Kind: token.EOF, Location: token.SingleCharSpan(l.x.Position())}, nil
	}

	start := l.x
	startPos := start.Position()

	bestIdx := -1
	var bestEnd cursor.Cursor

	deepestIdx := -1
	var deepestEnd cursor.Cursor

	for i := range rules {
		r := rules[i]
		y, ok := r.match(start)

		if ok && r.kind == token.IntegerLiteral {
			// spec.md §4.3 step 5: an integer literal immediately
			// followed by another identifier character is invalid,
			// not a short match followed by a separate identifier.
			if _, more := baseIdentifier(y); more {
				ok = false
			}
		}

		if ok {
			if bestIdx == -1 || bestEnd.Less(y) {
				bestIdx = i
				bestEnd = y
			}
			continue
		}

		if deepestIdx == -1 || deepestEnd.Less(y) {
			deepestIdx = i
			deepestEnd = y
		}
	}

	// A rule that failed further in than the longest success (e.g. an
	// unterminated "(*" beyond the one-character "(") decides the diagnostic.
	if bestIdx == -1 || (deepestIdx != -1 && bestEnd.Less(deepestEnd)) {
		return l.fail(start, startPos, deepestIdx, deepestEnd)
	}

	r := rules[bestIdx]
	lexeme := cursor.Slice(start, bestEnd)
	l.x = bestEnd

	switch r.kind {
	case whitespaceTag, commentTag:
		return l.next()
	case token.ObjectIdentifier:
		// spec.md §4.3 step 4: a lexeme that matches an ObjectIdentifier
		// rule but also spells a reserved word is re-tagged as that
		// keyword, with priority over the identifier reading.
		if k, ok := keywordKind(lexeme, l.dialect); ok {
			return token.Token{Kind: k, Location: token.Span{From: startPos, To: l.x.Position()}}, nil
		}
		return token.Token{
			Kind:     token.ObjectIdentifier,
			Value:    strValue(lexeme),
			Location: token.Span{From: startPos, To: l.x.Position()},
		}, nil
	default:
		return token.Token{
			Kind:     r.kind,
			Value:    r.extract(lexeme),
			Location: token.Span{From: startPos, To: l.x.Position()},
		}, nil
	}
}

func keywordKind(lexeme string, d Dialect) (token.Kind, bool) {
	if k, ok := token.Keywords[lexeme]; ok {
		return k, true
	}
	if d == Extended {
		if k, ok := token.ExtendedKeywords[lexeme]; ok {
			return k, true
		}
	}
	return token.Illegal, false
}

// fail reports the specific lexical diagnostic for the deepest
// non-accepting rule (spec.md §4.3 "Error diagnostics"), then advances the
// cursor past the failure point so the caller can keep making progress.
func (l *Lexer) fail(start cursor.Cursor, startPos token.Position, deepestIdx int, deepestEnd cursor.Cursor) (token.Token, error) {
	var msg string

	if deepestIdx == -1 {
		msg = "invalid character " + string(start.Peek())
		l.x = start.Advance()
		return token.Token{Kind: token.Illegal, Location: token.SingleCharSpan(startPos)}, &LexicalError{Pos: startPos, Msg: msg}
	}

	switch rules[deepestIdx].kind {
	case commentTag:
		msg = "unterminated comment"
	case token.StringLiteral:
		switch {
		case deepestEnd.AtEOF():
			msg = "unterminated string literal"
		case deepestEnd.Peek() == 0:
			msg = "null character in string literal"
		case deepestEnd.Peek() == '\n':
			msg = "raw line feed in string literal"
		case deepestEnd.Peek() == '\\':
			msg = "invalid escape sequence in string literal"
		default:
			msg = "unterminated string literal"
		}
	case token.IntegerLiteral:
		msg = "invalid integer literal " + cursor.Slice(start, deepestEnd)
	default:
		msg = "invalid character " + string(start.Peek())
	}

	l.x = deepestEnd
	if !l.x.AtEOF() {
		l.x = l.x.Advance()
	}

	return token.Token{Kind: token.Illegal, Location: token.SingleCharSpan(startPos)}, &LexicalError{Pos: startPos, Msg: msg}
}

// LexicalError is the error returned by Next/Peek for an unrecognised or
// malformed lexeme (spec.md §7, Lexical).
type LexicalError struct {
	Pos token.Position
	Msg string
}

func (e *LexicalError) Error() string {
	return e.Pos.String() + ": lexical error: " + e.Msg
}
