// Package token defines the VSOP token alphabet and the positional
// bookkeeping shared by every later stage of the compiler.
package token

import "fmt"

// Position is a 1-indexed line/column pair produced by the cursor.
type Position struct {
	Line     int
	Column   int
	Filename string
}

func (p Position) String() string {
	name := p.Filename
	if name == "" {
		name = "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", name, p.Line, p.Column)
}

// Span is the half-open region a token or node occupies, from the position
// of its first character to the position just past its last.
type Span struct {
	From Position
	To   Position
}

// SingleCharSpan builds a Span covering exactly one character at p.
func SingleCharSpan(p Position) Span {
	return Span{From: p, To: Position{Line: p.Line, Column: p.Column + 1, Filename: p.Filename}}
}

func (s Span) String() string {
	return fmt.Sprintf("%s-%d:%d", s.From, s.To.Line, s.To.Column)
}

// Kind identifies the lexical category of a Token.
type Kind int

const (
	EOF Kind = iota
	Illegal

	// Operators
	LBrace
	RBrace
	LParen
	RParen
	Colon
	Semicolon
	Comma
	Plus
	Minus
	Times
	Div
	Pow
	Dot
	Equal
	Lower
	LowerEqual
	Assign

	// Literals and identifiers
	IntegerLiteral
	StringLiteral
	TypeIdentifier
	ObjectIdentifier

	// Keywords (base dialect)
	And
	Bool
	Class
	Do
	Else
	Extends
	False
	If
	In
	Int32
	IsNull
	Let
	New
	Not
	String
	Then
	True
	Unit
	While

	// Keywords (extended dialect, -ext)
	Or
	Mod
	NotEqual
	Greater
	GreaterEqual
	For
	To
	Break
	Double
)

var names = map[Kind]string{
	EOF:     "end-of-file",
	Illegal: "illegal",

	LBrace:     "lbrace",
	RBrace:     "rbrace",
	LParen:     "lpar",
	RParen:     "rpar",
	Colon:      "colon",
	Semicolon:  "semicolon",
	Comma:      "comma",
	Plus:       "plus",
	Minus:      "minus",
	Times:      "times",
	Div:        "div",
	Pow:        "pow",
	Dot:        "dot",
	Equal:      "equal",
	Lower:      "lower",
	LowerEqual: "lower-equal",
	Assign:     "assign",

	IntegerLiteral:   "integer-literal",
	StringLiteral:    "string-literal",
	TypeIdentifier:   "type-identifier",
	ObjectIdentifier: "object-identifier",

	And:     "and",
	Bool:    "bool",
	Class:   "class",
	Do:      "do",
	Else:    "else",
	Extends: "extends",
	False:   "false",
	If:      "if",
	In:      "in",
	Int32:   "int32",
	IsNull:  "isnull",
	Let:     "let",
	New:     "new",
	Not:     "not",
	String:  "string",
	Then:    "then",
	True:    "true",
	Unit:    "unit",
	While:   "while",

	Or:           "or",
	Mod:          "mod",
	NotEqual:     "not-equal",
	Greater:      "greater",
	GreaterEqual: "greater-equal",
	For:          "for",
	To:           "to",
	Break:        "break",
	Double:       "double",
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return "unknown"
}

// Keywords maps reserved lexemes to their Kind. ExtendedKeywords is the set only
// available when the -ext dialect flag is set.
var Keywords = map[string]Kind{
	"and": And, "bool": Bool, "class": Class, "do": Do,
	"else": Else, "extends": Extends, "false": False, "if": If,
	"in": In, "int32": Int32, "isnull": IsNull, "let": Let,
	"new": New, "not": Not, "string": String, "then": Then,
	"true": True, "unit": Unit, "while": While,
}

// ExtendedKeywords holds the -ext dialect's additional reserved words.
var ExtendedKeywords = map[string]Kind{
	"or": Or, "mod": Mod, "for": For, "to": To,
	"break": Break, "double": Double,
}

// Value carries the payload of a literal or identifier token.
type Value struct {
	Str string
	Num int32
}

// Token is a single lexical unit with its source position.
type Token struct {
	Kind     Kind
	Value    Value
	Location Span
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%s)@%s", t.Kind, t.Value.Str, t.Location)
}
