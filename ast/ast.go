// Package ast defines the VSOP abstract syntax tree: the tagged-union
// expression variants, the declaration nodes (Field, Formal, Method,
// Class, Program), and the canonical dump format shared by the -parse and
// -check stages (spec.md §6).
package ast

import (
	"strconv"
	"strings"

	"github.com/vsop-lang/vsopc/token"
)

// BinaryOp enumerates the Binary expression's operator (spec.md §3).
type BinaryOp int

const (
	AND BinaryOp = iota
	OR
	EQ
	NEQ
	LT
	LE
	GT
	GE
	PLUS
	MINUS
	TIMES
	DIV
	POW
	MOD
)

var binaryOpNames = map[BinaryOp]string{
	AND: "and", OR: "or", EQ: "=", NEQ: "!=", LT: "<", LE: "<=",
	GT: ">", GE: ">=", PLUS: "+", MINUS: "-", TIMES: "*", DIV: "/",
	POW: "^", MOD: "mod",
}

func (op BinaryOp) String() string { return binaryOpNames[op] }

// UnaryOp enumerates the Unary expression's operator.
type UnaryOp int

const (
	NOT UnaryOp = iota
	UMINUS
	ISNULL
)

var unaryOpNames = map[UnaryOp]string{NOT: "not", UMINUS: "-", ISNULL: "isnull"}

func (op UnaryOp) String() string { return unaryOpNames[op] }

// Expr is the tagged-union interface every expression variant implements.
// Each carries a Pos (invariant 1), a StaticType assigned by the checker
// (invariant 5), and an IR Value assigned by the emitter — unit carries no
// value, so Value is nil for it even on success.
type Expr interface {
	Position() token.Position
	Dump() string
	SetType(t interface{})
	Type() interface{}
}

// Base is embedded by every expression variant; it carries the bookkeeping
// common to all of them (spec.md §3 invariants 1 and 5).
type Base struct {
	Pos        token.Position
	StaticType interface{} // a *types.Type, left untyped here to avoid an import cycle with resolver/types.
	Value      interface{} // the emitted IR value, or nil for unit / not-yet-lowered.
}

func (b *Base) Position() token.Position   { return b.Pos }
func (b *Base) SetType(t interface{})      { b.StaticType = t }
func (b *Base) Type() interface{}          { return b.StaticType }

func typeSuffix(t interface{}) string {
	if t == nil {
		return ""
	}
	if s, ok := t.(interface{ TypeName() string }); ok {
		return ":" + s.TypeName()
	}
	return ""
}

// dumpList renders the bracketed-list dump rule: [e1,e2,…], or the single
// element unwrapped when the list has exactly one member, or empty
// brackets for a nil/empty list (spec.md §6).
func dumpList(items []string) string {
	if len(items) == 1 {
		return items[0]
	}
	return "[" + strings.Join(items, ",") + "]"
}

// ---- Expression variants ----

type Block struct {
	Base
	Exprs []Expr
}

func (n *Block) Dump() string {
	parts := make([]string, len(n.Exprs))
	for i, e := range n.Exprs {
		parts[i] = e.Dump()
	}
	return "Block(" + dumpList(parts) + ")" + typeSuffix(n.StaticType)
}

type If struct {
	Base
	Cond Expr
	Then Expr
	Else Expr // nil when absent
}

func (n *If) Dump() string {
	parts := []string{n.Cond.Dump(), n.Then.Dump()}
	if n.Else != nil {
		parts = append(parts, n.Else.Dump())
	}
	return "If(" + strings.Join(parts, ",") + ")" + typeSuffix(n.StaticType)
}

type While struct {
	Base
	Cond Expr
	Body Expr
}

func (n *While) Dump() string {
	return "While(" + n.Cond.Dump() + "," + n.Body.Dump() + ")" + typeSuffix(n.StaticType)
}

// For is extended-dialect sugar, desugared into Lets+While by the
// emitter's checking pass (emitFor) while it lowers the node; it is kept as
// an AST node so -parse dumps show the surface form verbatim.
type For struct {
	Base
	Name string
	From Expr
	To   Expr
	Body Expr
}

func (n *For) Dump() string {
	return "For(" + n.Name + "," + n.From.Dump() + "," + n.To.Dump() + "," + n.Body.Dump() + ")" + typeSuffix(n.StaticType)
}

type Break struct {
	Base
}

func (n *Break) Dump() string { return "Break()" + typeSuffix(n.StaticType) }

type Let struct {
	Base
	Name string
	Typ  string
	Init Expr // nil when absent
	Body Expr
}

func (n *Let) Dump() string {
	parts := []string{n.Name, n.Typ}
	if n.Init != nil {
		parts = append(parts, n.Init.Dump())
	}
	parts = append(parts, n.Body.Dump())
	return "Let(" + strings.Join(parts, ",") + ")" + typeSuffix(n.StaticType)
}

// Lets is extended-dialect sugar for a chain of Let bindings sharing one
// body; the emitter's checking pass (emitLets) desugars it into nested Let
// nodes.
type Lets struct {
	Base
	Fields []*Field
	Body   Expr
}

func (n *Lets) Dump() string {
	parts := make([]string, len(n.Fields))
	for i, f := range n.Fields {
		parts[i] = f.Dump()
	}
	return "Lets(" + dumpList(parts) + "," + n.Body.Dump() + ")" + typeSuffix(n.StaticType)
}

type Assign struct {
	Base
	Name  string
	Value Expr
}

func (n *Assign) Dump() string {
	return "Assign(" + n.Name + "," + n.Value.Dump() + ")" + typeSuffix(n.StaticType)
}

type Unary struct {
	Base
	Op    UnaryOp
	Value Expr
}

func (n *Unary) Dump() string {
	return "UnOp(" + n.Op.String() + "," + n.Value.Dump() + ")" + typeSuffix(n.StaticType)
}

type Binary struct {
	Base
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (n *Binary) Dump() string {
	return "BinOp(" + n.Op.String() + "," + n.Left.Dump() + "," + n.Right.Dump() + ")" + typeSuffix(n.StaticType)
}

// Call covers both qualified (scope.name(args)) and bare (name(args)) call
// syntax; Scope is nil for a bare call, resolved later to an implicit self
// or a top-level function (spec.md §4.5).
type Call struct {
	Base
	Scope Expr // nil for a bare call
	Name  string
	Args  []Expr
}

func (n *Call) Dump() string {
	parts := make([]string, len(n.Args))
	for i, a := range n.Args {
		parts[i] = a.Dump()
	}
	scope := "self"
	if n.Scope != nil {
		scope = n.Scope.Dump()
	}
	return "Call(" + scope + "," + n.Name + "," + dumpList(parts) + ")" + typeSuffix(n.StaticType)
}

type New struct {
	Base
	TypeName string
}

func (n *New) Dump() string { return "New(" + n.TypeName + ")" + typeSuffix(n.StaticType) }

// Identifier also represents Self, distinguished only by the name "self"
// (spec.md §3).
type Identifier struct {
	Base
	Name string
}

func (n *Identifier) Dump() string { return n.Name + typeSuffix(n.StaticType) }

func (n *Identifier) IsSelf() bool { return n.Name == "self" }

type Integer struct {
	Base
	Value32 int32
}

func (n *Integer) Dump() string {
	return strconv.FormatInt(int64(n.Value32), 10) + typeSuffix(n.StaticType)
}

// Real is extended-dialect only.
type Real struct {
	Base
	ValueF64 float64
}

func (n *Real) Dump() string {
	return strconv.FormatFloat(n.ValueF64, 'g', -1, 64) + typeSuffix(n.StaticType)
}

type Boolean struct {
	Base
	ValueBool bool
}

func (n *Boolean) Dump() string {
	return strconv.FormatBool(n.ValueBool) + typeSuffix(n.StaticType)
}

type String struct {
	Base
	Text string // canonical form, as produced by lexer.extractString
}

func (n *String) Dump() string { return `"` + n.Text + `"` + typeSuffix(n.StaticType) }

type Unit struct {
	Base
}

func (n *Unit) Dump() string { return "()" + typeSuffix(n.StaticType) }

// ---- Constructors ----
//
// A parser building these nodes lives outside this package and cannot
// write an unkeyed literal naming the embedded Base field directly across
// the package boundary in the way this file's own Dump methods can, so it
// uses these instead.

func NewBlock(pos token.Position, exprs []Expr) *Block { return &Block{Base{Pos: pos}, exprs} }

func NewIf(pos token.Position, cond, then, els Expr) *If {
	return &If{Base{Pos: pos}, cond, then, els}
}

func NewWhile(pos token.Position, cond, body Expr) *While {
	return &While{Base{Pos: pos}, cond, body}
}

func NewFor(pos token.Position, name string, from, to, body Expr) *For {
	return &For{Base{Pos: pos}, name, from, to, body}
}

func NewBreak(pos token.Position) *Break { return &Break{Base{Pos: pos}} }

func NewLet(pos token.Position, name, typ string, init, body Expr) *Let {
	return &Let{Base{Pos: pos}, name, typ, init, body}
}

func NewLets(pos token.Position, fields []*Field, body Expr) *Lets {
	return &Lets{Base{Pos: pos}, fields, body}
}

func NewAssign(pos token.Position, name string, value Expr) *Assign {
	return &Assign{Base{Pos: pos}, name, value}
}

func NewUnary(pos token.Position, op UnaryOp, value Expr) *Unary {
	return &Unary{Base{Pos: pos}, op, value}
}

func NewBinary(pos token.Position, op BinaryOp, left, right Expr) *Binary {
	return &Binary{Base{Pos: pos}, op, left, right}
}

func NewCall(pos token.Position, scope Expr, name string, args []Expr) *Call {
	return &Call{Base{Pos: pos}, scope, name, args}
}

func NewNew(pos token.Position, typeName string) *New { return &New{Base{Pos: pos}, typeName} }

func NewIdentifier(pos token.Position, name string) *Identifier {
	return &Identifier{Base{Pos: pos}, name}
}

func NewInteger(pos token.Position, v int32) *Integer { return &Integer{Base{Pos: pos}, v} }

func NewReal(pos token.Position, v float64) *Real { return &Real{Base{Pos: pos}, v} }

func NewBoolean(pos token.Position, v bool) *Boolean { return &Boolean{Base{Pos: pos}, v} }

func NewString(pos token.Position, text string) *String { return &String{Base{Pos: pos}, text} }

func NewUnit(pos token.Position) *Unit { return &Unit{Base{Pos: pos}} }

// ---- Declaration nodes ----

// Field is a class field: an optional declared initializer and, once the
// resolver has run, a struct slot index (spec.md §3, §4.4).
type Field struct {
	Pos        token.Position
	Name       string
	Typ        string
	Init       Expr // nil when absent
	Index      int  // assigned by the resolver; 0 is the vtable slot, so real fields start at 1
	UnitSlot   bool // true for unit-typed fields sharing the sentinel index
}

func (f *Field) Dump() string {
	parts := []string{f.Name, f.Typ}
	if f.Init != nil {
		parts = append(parts, f.Init.Dump())
	}
	return "Field(" + strings.Join(parts, ",") + ")"
}

// Formal is a method parameter.
type Formal struct {
	Pos  token.Position
	Name string
	Typ  string
}

func (f *Formal) Dump() string { return f.Name + ":" + f.Typ }

// Method is a class method, or (extended dialect) a parentless top-level
// function when Owner is nil. A nil Body marks an external, runtime-
// provided method (spec.md §3, invariant 6).
type Method struct {
	Pos        token.Position
	Name       string
	Formals    []*Formal
	ReturnType string
	Body       Expr // nil for external methods
	Variadic   bool // extended dialect only

	Owner *Class // nil for a top-level function
	Slot  int    // vtable slot index, assigned by the resolver
}

func (m *Method) Dump() string {
	formals := make([]string, len(m.Formals))
	for i, f := range m.Formals {
		formals[i] = f.Dump()
	}
	parts := []string{m.Name, dumpList(formals), m.ReturnType}
	if m.Body != nil {
		parts = append(parts, m.Body.Dump())
	}
	return "Method(" + strings.Join(parts, ",") + ")"
}

// Class is a VSOP class declaration. Parent/FieldsTable/MethodsTable are
// populated by the resolver (spec.md §4.4); they are nil beforehand.
type Class struct {
	Pos        token.Position
	Name       string
	ParentName string
	Fields     []*Field
	Methods    []*Method

	Parent       *Class
	FieldsTable  map[string]*Field  // merged with parent, by name
	MethodsTable map[string]*Method // merged with parent, by name
}

func (c *Class) Dump() string {
	fields := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		fields[i] = f.Dump()
	}
	methods := make([]string, len(c.Methods))
	for i, m := range c.Methods {
		methods[i] = m.Dump()
	}
	return "Class(" + c.Name + "," + c.ParentName + "," + dumpList(fields) + "," + dumpList(methods) + ")"
}

// Program is the outermost AST node: a list of classes plus, in the
// extended dialect, top-level functions (spec.md §3).
type Program struct {
	Classes   []*Class
	Functions []*Method // extended dialect only; empty in the base dialect

	ClassesTable   map[string]*Class  // populated by the resolver
	FunctionsTable map[string]*Method // populated by the resolver
}

func (p *Program) Dump() string {
	classes := make([]string, len(p.Classes))
	for i, c := range p.Classes {
		classes[i] = c.Dump()
	}
	return dumpList(classes)
}
