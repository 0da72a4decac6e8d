package lexer

import (
	"github.com/vsop-lang/vsopc/combinator"
	"github.com/vsop-lang/vsopc/cursor"
	"github.com/vsop-lang/vsopc/token"
)

// rule pairs a token kind with the matcher that recognises it and the
// extractor that turns the matched text into a token.Value. Rules are
// tried in table order; ties in longest-match resolve to the earlier rule
// (spec.md §4.3, property 1).
type rule struct {
	kind    token.Kind
	match   combinator.Matcher
	extract func(lexeme string) token.Value
}

func noValue(string) token.Value { return token.Value{} }

func strValue(lexeme string) token.Value { return token.Value{Str: lexeme} }

// Character classes, built the way the teacher's regex.hpp composes them.
var (
	all = combinator.Special(func(x cursor.Cursor) (cursor.Cursor, bool) {
		if x.AtEOF() {
			return x, false
		}
		return x.Advance(), true
	})

	null         = combinator.Equality(0)
	lf           = combinator.Equality('\n')
	ff           = combinator.Equality('\f')
	cr           = combinator.Equality('\r')
	tab          = combinator.Equality('\t')
	space        = combinator.Equality(' ')
	backslash    = combinator.Equality('\\')
	doubleQuote  = combinator.Equality('"')
	underscore   = combinator.Equality('_')
	asterisk     = combinator.Equality('*')
	slash        = combinator.Equality('/')

	lowercaseLetter = combinator.Range('a', 'z')
	uppercaseLetter = combinator.Range('A', 'Z')
	letter          = combinator.Alternation(lowercaseLetter, uppercaseLetter)

	digit    = combinator.Range('0', '9')
	hexDigit = combinator.Alternation(digit, combinator.Alternation(combinator.Range('a', 'f'), combinator.Range('A', 'F')))
	hexPrefix = combinator.EqualityString("0x")

	baseIdentifier = combinator.Alternation(letter, combinator.Alternation(digit, underscore))

	blankspace = combinator.Alternation(space, combinator.Alternation(tab, combinator.Alternation(lf, cr)))
)

var (
	typeIdentifierExpr   = combinator.Concatenation(uppercaseLetter, combinator.Repetition(baseIdentifier))
	objectIdentifierExpr = combinator.Concatenation(lowercaseLetter, combinator.Repetition(baseIdentifier))

	base10Expr  = combinator.Concatenation(digit, combinator.Repetition(digit))
	base16Expr  = combinator.Concatenation(hexPrefix, combinator.Concatenation(hexDigit, combinator.Repetition(hexDigit)))
	integerExpr = combinator.Alternation(base16Expr, base10Expr)

	regularChar = combinator.Exclusion(
		combinator.Exclusion(
			combinator.Exclusion(
				combinator.Exclusion(all, null),
				lf,
			),
			ff,
		),
		combinator.Alternation(doubleQuote, backslash),
	)
	escapeChar = combinator.Alternation(
		combinator.Alternation(
			combinator.Alternation(combinator.Equality('b'), combinator.Equality('t')),
			combinator.Alternation(combinator.Equality('n'), combinator.Equality('r')),
		),
		combinator.Alternation(
			combinator.Alternation(doubleQuote, backslash),
			combinator.Alternation(
				combinator.Concatenation(combinator.Equality('x'), combinator.Concatenation(hexDigit, hexDigit)),
				combinator.Concatenation(lf, combinator.Repetition(combinator.Alternation(space, tab))),
			),
		),
	)
	stringExpr = combinator.Concatenation(
		doubleQuote,
		combinator.Concatenation(
			combinator.Repetition(combinator.Alternation(regularChar, combinator.Concatenation(backslash, escapeChar))),
			doubleQuote,
		),
	)

	whitespaceExpr = combinator.Concatenation(blankspace, combinator.Repetition(blankspace))

	singleLineComment = combinator.Concatenation(
		slash,
		combinator.Concatenation(
			slash,
			combinator.Concatenation(
				combinator.Repetition(combinator.Exclusion(combinator.Exclusion(all, null), combinator.Alternation(lf, ff))),
				combinator.Alternation(lf, ff),
			),
		),
	)

	lparExpr = combinator.Equality('(')
	rparExpr = combinator.Equality(')')

	// multilineTail recurses on nested "(* ... *)" blocks, the one rule
	// that can't be expressed as a fixed composition — mirrors
	// original_source/src/lexer.cpp's multiline_tail exactly.
	multilineTail combinator.Matcher
	commentExpr   combinator.Matcher
)

func init() {
	multilineChar := combinator.Exclusion(
		combinator.Exclusion(combinator.Exclusion(all, null), ff),
		combinator.Alternation(lparExpr, asterisk),
	)

	multilineTail = func(x cursor.Cursor) (cursor.Cursor, bool) {
		for {
			if y, ok := multilineChar(x); ok {
				x = y
				continue
			}
			if y, ok := asterisk(x); ok {
				if z, ok := rparExpr(y); ok {
					return z, true
				}
				x = y
				continue
			}
			if y, ok := lparExpr(x); ok {
				if z, ok := asterisk(y); ok {
					if w, ok := multilineTail(z); ok {
						x = w
						continue
					}
					return z, false
				}
				x = y
				continue
			}
			return x, false
		}
	}

	multilineComment := combinator.Concatenation(lparExpr, combinator.Concatenation(asterisk, multilineTail))
	commentExpr = combinator.Alternation(singleLineComment, multilineComment)

	rules = []rule{
		{token.Kind(-1), whitespaceExpr, noValue}, // tagged as whitespace by the driver, not emitted
		{token.Kind(-2), commentExpr, noValue},    // tagged as comment by the driver, not emitted
		{token.IntegerLiteral, base16Expr, extractBase16},
		{token.IntegerLiteral, base10Expr, extractBase10},
		{token.StringLiteral, stringExpr, extractString},
		{token.TypeIdentifier, typeIdentifierExpr, strValue},
		{token.ObjectIdentifier, objectIdentifierExpr, strValue},
		{token.LowerEqual, combinator.EqualityString("<="), noValue},
		{token.Assign, combinator.EqualityString("<-"), noValue},
		{token.LBrace, combinator.Equality('{'), noValue},
		{token.RBrace, combinator.Equality('}'), noValue},
		{token.LParen, combinator.Equality('('), noValue},
		{token.RParen, combinator.Equality(')'), noValue},
		{token.Colon, combinator.Equality(':'), noValue},
		{token.Semicolon, combinator.Equality(';'), noValue},
		{token.Comma, combinator.Equality(','), noValue},
		{token.Plus, combinator.Equality('+'), noValue},
		{token.Minus, combinator.Equality('-'), noValue},
		{token.Times, combinator.Equality('*'), noValue},
		{token.Div, combinator.Equality('/'), noValue},
		{token.Pow, combinator.Equality('^'), noValue},
		{token.Dot, combinator.Equality('.'), noValue},
		{token.Equal, combinator.Equality('='), noValue},
		{token.Lower, combinator.Equality('<'), noValue},
	}
}

// rules is the table the driver walks in order. Longest match wins; ties
// resolve to the earlier entry (spec.md §4.3, property 1 and 2).
var rules []rule

const (
	whitespaceTag = token.Kind(-1)
	commentTag    = token.Kind(-2)
)
