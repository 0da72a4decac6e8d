// Package emit implements the type checker interleaved with SSA IR
// emission (spec.md §4.5-§4.6): it walks the resolved AST once, assigning a
// static type to every expression and lowering it to an llir/llvm value in
// the same pass.
package emit

import (
	"github.com/llir/llvm/ir"
	lt "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/vsop-lang/vsopc/ast"
	"github.com/vsop-lang/vsopc/errors"
	"github.com/vsop-lang/vsopc/lexer"
	"github.com/vsop-lang/vsopc/resolver"
	vtypes "github.com/vsop-lang/vsopc/types"
)

// binding is one entry in the lexical scope stack (spec.md §4.5, "share a
// lexical scope"). A self binding carries the raw object pointer directly
// (self can never be reassigned); every other binding owns a stack slot,
// absent for unit-typed bindings since unit carries no runtime value.
type binding struct {
	typ    *vtypes.Type
	slot   value.Value
	isSelf bool
}

// classLayout is the per-class bookkeeping built once by BuildLayout before
// any method body is lowered, so that a forward reference to a not-yet-
// emitted method or class still resolves (spec.md §4.4, "resolution is a
// separate pass from checking").
type classLayout struct {
	class        *ast.Class
	structType   *lt.StructType // slot 0 is the vtable pointer; slot f.Index is field f
	vtableType   *lt.StructType // one i8* per vtable slot
	vtableGlobal *ir.Global
	initFunc     *ir.Func // Class_init(ptr) — calls parent's, then assigns own fields
	newFunc      *ir.Func // Class_new() ptr — malloc + Class_init + vtable store
	methodFuncs  map[string]*ir.Func
	slotCount    int
}

func (l *classLayout) ptrType() *lt.PointerType { return lt.NewPointer(l.structType) }

// Context is the single mutable state threaded through every call in this
// package: the module under construction, the resolved program, the class
// layout table, the lexical scope stack, and the accumulated diagnostics
// (spec.md §5, "all state ... is owned by one thread of execution").
type Context struct {
	Module   *ir.Module
	Resolved *resolver.Resolved
	Dialect  lexer.Dialect
	Errs     *errors.Collector

	layouts     map[*ast.Class]*classLayout
	funcByName  map[string]*ir.Func // top-level (extended) functions, forward-declared
	stringConst map[string]*ir.Global
	stringType  map[string]*lt.ArrayType
	mallocFn    *ir.Func
	strcmpFn    *ir.Func
	powFn       *ir.Func

	scopes       []map[string]*binding
	breakTargets []*ir.Block
	curMethod    *ast.Method
	curSelf      *classLayout
}

func newContext(resolved *resolver.Resolved, dialect lexer.Dialect, errs *errors.Collector) *Context {
	return &Context{
		Module:      ir.NewModule(),
		Resolved:    resolved,
		Dialect:     dialect,
		Errs:        errs,
		layouts:     map[*ast.Class]*classLayout{},
		funcByName:  map[string]*ir.Func{},
		stringConst: map[string]*ir.Global{},
		stringType:  map[string]*lt.ArrayType{},
		scopes:      []map[string]*binding{{}},
	}
}

func (c *Context) pushScope() { c.scopes = append(c.scopes, map[string]*binding{}) }

func (c *Context) popScope() { c.scopes = c.scopes[:len(c.scopes)-1] }

func (c *Context) declare(name string, b *binding) { c.scopes[len(c.scopes)-1][name] = b }

func (c *Context) lookup(name string) (*binding, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if b, ok := c.scopes[i][name]; ok {
			return b, true
		}
	}
	return nil, false
}

func (c *Context) pushBreakTarget(b *ir.Block) { c.breakTargets = append(c.breakTargets, b) }

func (c *Context) popBreakTarget() { c.breakTargets = c.breakTargets[:len(c.breakTargets)-1] }

func (c *Context) breakTarget() (*ir.Block, bool) {
	if len(c.breakTargets) == 0 {
		return nil, false
	}
	return c.breakTargets[len(c.breakTargets)-1], true
}

// classTypeOf builds the semantic class type for an ast.Class already
// present in the resolver's parallel type graph.
func classTypeOf(c *Context, class *ast.Class) *vtypes.Type {
	return vtypes.OfClass(c.Resolved.TypeOf[class])
}

// layoutOf returns the classLayout for a resolved class type, panicking only
// if the caller passes a type that was never seeded by BuildLayout — a bug
// in this package, not a VSOP program error.
func (c *Context) layoutOf(class *vtypes.Class) *classLayout {
	astClass := c.Resolved.ClassByName[class.Name]
	l, ok := c.layouts[astClass]
	if !ok {
		panic("emit: no layout for class " + class.Name)
	}
	return l
}
