package emit

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	lt "github.com/llir/llvm/ir/types"

	"github.com/vsop-lang/vsopc/ast"
	vtypes "github.com/vsop-lang/vsopc/types"
)

// vtablePtrType is the uniform, class-independent representation of the
// vtable pointer every object carries at struct slot 0: a pointer to the
// first entry of an array of opaque function pointers. Keeping it the same
// type for every class means a value of a superclass-typed variable can
// always read its slot-0 field with a single, non-bitcast-dependent GEP,
// regardless of the concrete runtime class (spec.md §4.6, "Object
// construction").
var vtablePtrType = lt.NewPointer(lt.I8Ptr)

// classOrder returns every resolved class in parent-before-child order, so
// BuildLayout can assume a class's parent layout already exists when it
// builds that class's own struct/vtable (mirrors resolver.topoOrder).
func classOrder(classByName map[string]*ast.Class) []*ast.Class {
	var depth func(c *ast.Class) int
	depth = func(c *ast.Class) int {
		if c.Parent == nil {
			return 0
		}
		return 1 + depth(c.Parent)
	}

	var classes []*ast.Class
	for _, c := range classByName {
		classes = append(classes, c)
	}
	for i := 1; i < len(classes); i++ {
		for j := i; j > 0 && depth(classes[j]) < depth(classes[j-1]); j-- {
			classes[j], classes[j-1] = classes[j-1], classes[j]
		}
	}
	return classes
}

// BuildLayout constructs every class's struct type, vtable type/global, and
// the Class_init/Class_new function pair, plus the runtime externs and
// top-level function forward declarations, before any method body is
// lowered (spec.md §4.4, "resolution is a separate pass from checking";
// §4.6, "Object construction").
func (c *Context) BuildLayout() {
	c.declareExterns()

	for _, class := range classOrder(c.Resolved.ClassByName) {
		c.buildClassShell(class)
	}
	for _, class := range classOrder(c.Resolved.ClassByName) {
		c.buildVtableGlobal(class)
		c.buildInitFunc(class)
		c.buildNewFunc(class)
	}

	for _, fn := range c.Resolved.Program.Functions {
		c.forwardDeclareFunc(fn)
	}
}

// declareExterns declares the runtime interface (spec.md §6, "Runtime
// interface"): malloc, strcmp, and llvm.pow.f64 (the helper "^" is lowered
// through in both dialects, with int32 operands round-tripped through
// double, spec.md §4.6).
func (c *Context) declareExterns() {
	c.mallocFn = c.Module.NewFunc("malloc", lt.I8Ptr, ir.NewParam("size", lt.I64))
	c.strcmpFn = c.Module.NewFunc("strcmp", lt.I32, ir.NewParam("a", lt.I8Ptr), ir.NewParam("b", lt.I8Ptr))
	c.powFn = c.Module.NewFunc("llvm.pow.f64", lt.Double, ir.NewParam("x", lt.Double), ir.NewParam("y", lt.Double))
}

// buildClassShell declares the struct type and the llvm function for every
// method owned directly by class, without emitting any bodies yet. Methods
// with a nil Body (Object's built-ins) are declared as externs named
// Owner_name, matching spec.md §6's Object_print/... naming.
func (c *Context) buildClassShell(class *ast.Class) {
	fieldSlots := 1 // slot 0 is always the vtable pointer, even for a field-less class
	for _, f := range class.FieldsTable {
		if !f.UnitSlot && f.Index+1 > fieldSlots {
			fieldSlots = f.Index + 1
		}
	}
	fieldTypes := make([]lt.Type, fieldSlots)
	fieldTypes[0] = vtablePtrType
	for _, f := range class.FieldsTable {
		if f.UnitSlot {
			continue
		}
		t, ok := c.resolveTypeName(f.Typ)
		if !ok {
			continue // diagnosed during body emission; layout still needs a placeholder slot
		}
		fieldTypes[f.Index] = c.llvmType(t)
	}
	for i, t := range fieldTypes {
		if t == nil {
			fieldTypes[i] = lt.I8Ptr // unresolved field type; keeps the struct well-formed
		}
	}

	structType := lt.NewStruct(fieldTypes...)
	structType.SetName(class.Name)
	c.Module.TypeDefs = append(c.Module.TypeDefs, structType)

	slotCount := 0
	for _, m := range class.MethodsTable {
		if m.Slot+1 > slotCount {
			slotCount = m.Slot + 1
		}
	}

	layout := &classLayout{class: class, structType: structType, slotCount: slotCount, methodFuncs: map[string]*ir.Func{}}
	c.layouts[class] = layout

	layout.vtableType = lt.NewStruct() // placeholder; entries are all-i8* so a bare array is used instead (see buildVtableGlobal)

	for _, m := range class.Methods {
		c.declareMethodFunc(layout, m)
	}
}

// declareMethodFunc forward-declares a class method's llir/llvm function.
// Self is always passed as an opaque i8* and bitcast to the owner's pointer
// type in the prologue (see emitMethodBody), so that a single uniform
// function-pointer type can live in every class's vtable array regardless
// of which class actually owns the method.
func (c *Context) declareMethodFunc(layout *classLayout, m *ast.Method) {
	retType := lt.Type(lt.Void)
	if rt, ok := c.resolveTypeName(m.ReturnType); ok && rt.Kind != vtypes.Unit {
		retType = c.llvmType(rt)
	}

	params := []*ir.Param{ir.NewParam("self", lt.I8Ptr)}
	for _, f := range m.Formals {
		ft, ok := c.resolveTypeName(f.Typ)
		if !ok {
			params = append(params, ir.NewParam(f.Name, lt.I8Ptr))
			continue
		}
		params = append(params, ir.NewParam(f.Name, c.llvmType(ft)))
	}

	name := layout.class.Name + "_" + m.Name
	fn := c.Module.NewFunc(name, retType, params...)
	layout.methodFuncs[m.Name] = fn
}

// forwardDeclareFunc declares a top-level (extended-dialect) function.
func (c *Context) forwardDeclareFunc(m *ast.Method) {
	retType := lt.Type(lt.Void)
	if rt, ok := c.resolveTypeName(m.ReturnType); ok && rt.Kind != vtypes.Unit {
		retType = c.llvmType(rt)
	}
	var params []*ir.Param
	for _, f := range m.Formals {
		ft, ok := c.resolveTypeName(f.Typ)
		if !ok {
			params = append(params, ir.NewParam(f.Name, lt.I8Ptr))
			continue
		}
		params = append(params, ir.NewParam(f.Name, c.llvmType(ft)))
	}
	c.funcByName[m.Name] = c.Module.NewFunc(m.Name, retType, params...)
}

// buildVtableGlobal emits the per-class array of function pointers
// (slotCount entries, each bitcast to i8*), in slot order. A class inherits
// its parent's entries verbatim except where it overrides (same slot,
// different function) or extends (fresh, higher slot) — MethodsTable
// already reflects this merge (spec.md §4.4, "Method resolution").
func (c *Context) buildVtableGlobal(class *ast.Class) {
	layout := c.layouts[class]
	entries := make([]constant.Constant, layout.slotCount)
	for _, m := range class.MethodsTable {
		owner := c.layouts[m.Owner]
		fn := owner.methodFuncs[m.Name]
		entries[m.Slot] = constant.NewBitCast(fn, lt.I8Ptr)
	}
	arrType := lt.NewArray(uint64(layout.slotCount), lt.I8Ptr)
	init := constant.NewArray(arrType, entries...)
	layout.vtableGlobal = c.Module.NewGlobalDef(class.Name+"_vtable", init)
}

// buildInitFunc emits Class_init: it calls the parent's _init on the same
// memory (bitcast to the parent's pointer type) so that field initialisers
// can observe parent-set state, then assigns each of the class's own fields
// from its initializer (lowered by emitInitBody, once BuildLayout has
// finished) or its type's default (spec.md §4.6, "Object construction").
func (c *Context) buildInitFunc(class *ast.Class) {
	layout := c.layouts[class]
	fn := c.Module.NewFunc(class.Name+"_init", lt.Void, ir.NewParam("self", layout.ptrType()))
	layout.initFunc = fn
	// Body is filled in by emitInitBody once every class's shell exists,
	// since a field initializer may itself construct another class.
}

// buildNewFunc emits Class_new's signature; its two-block null-propagating
// body is filled in by emitNewBody for the same reason as buildInitFunc.
func (c *Context) buildNewFunc(class *ast.Class) {
	layout := c.layouts[class]
	fn := c.Module.NewFunc(class.Name+"_new", layout.ptrType())
	layout.newFunc = fn
}
