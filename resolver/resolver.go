// Package resolver implements the declaration pass: building the class
// graph to quiescence, assigning field struct indices and method vtable
// slots, and checking overrides (spec.md §4.4). It runs once, after
// parsing and before type checking/emission.
package resolver

import (
	"github.com/vsop-lang/vsopc/ast"
	"github.com/vsop-lang/vsopc/errors"
	"github.com/vsop-lang/vsopc/token"
	"github.com/vsop-lang/vsopc/types"
)

// builtinMethod describes one of Object's external operations
// (spec.md §3, invariant 6).
type builtinMethod struct {
	name       string
	formals    []string
	returnType string
}

var objectBuiltins = []builtinMethod{
	{"print", []string{"string"}, "Object"},
	{"printBool", []string{"bool"}, "Object"},
	{"printInt32", []string{"int32"}, "Object"},
	{"inputLine", nil, "string"},
	{"inputBool", nil, "bool"},
	{"inputInt32", nil, "int32"},
}

// Resolved is the output of Run: the class and function tables plus the
// parallel types.Class graph the checker/emitter use for subtype and LUB
// queries.
type Resolved struct {
	Program   *ast.Program
	TypeOf    map[*ast.Class]*types.Class
	ClassByName map[string]*ast.Class
}

// Run resolves a parsed program in place: it seeds Object, builds the
// class graph to quiescence, assigns field/method indices, and checks
// overrides. Diagnostics are collected into errs; Run never stops early
// on error (spec.md §7, "Propagation is accumulative").
func Run(prog *ast.Program, errs *errors.Collector) *Resolved {
	object := seedObject()

	prog.ClassesTable = map[string]*ast.Class{"Object": object}
	prog.FunctionsTable = map[string]*ast.Method{}
	for _, fn := range prog.Functions {
		prog.FunctionsTable[fn.Name] = fn
	}

	typeOf := map[*ast.Class]*types.Class{object: {Name: "Object"}}

	pending := make([]*ast.Class, 0, len(prog.Classes))
	for _, c := range prog.Classes {
		if _, dup := prog.ClassesTable[c.Name]; dup {
			errs.AddStructural(c.Pos, "redefinition of class %s", c.Name)
			continue
		}
		if c.Name == "Object" {
			errs.AddStructural(c.Pos, "class Object is predefined and cannot be redeclared")
			continue
		}
		prog.ClassesTable[c.Name] = c
		pending = append(pending, c)
	}

	// Build the class graph to quiescence: repeatedly install any pending
	// class whose parent has already been installed, until a pass installs
	// nothing (spec.md §4.4, "Class graph").
	for len(pending) > 0 {
		progressed := false
		next := pending[:0:0]

		for _, c := range pending {
			parent, ok := prog.ClassesTable[c.ParentName]
			if !ok || typeOf[parent] == nil {
				next = append(next, c)
				continue
			}
			c.Parent = parent
			typeOf[c] = &types.Class{Name: c.Name, Parent: typeOf[parent]}
			progressed = true
		}

		if !progressed {
			for _, c := range next {
				errs.AddStructural(c.Pos, "class %s cannot extend class %s", c.Name, c.ParentName)
			}
			break
		}
		pending = next
	}

	// Resolve fields/methods for every successfully-linked class, in a
	// parent-before-child order (guaranteed by the quiescence loop above:
	// a class only becomes eligible for field/method resolution once its
	// parent's typeOf entry exists).
	resolveOrder := topoOrder(prog.ClassesTable, typeOf)
	for _, c := range resolveOrder {
		resolveClass(c, errs)
	}

	checkEntryPoint(prog, errs)

	return &Resolved{Program: prog, TypeOf: typeOf, ClassByName: prog.ClassesTable}
}

// seedObject builds the built-in Object class with its external print/
// input methods (spec.md §3, invariant 6).
func seedObject() *ast.Class {
	object := &ast.Class{Name: "Object"}
	object.FieldsTable = map[string]*ast.Field{}
	object.MethodsTable = map[string]*ast.Method{}

	for i, b := range objectBuiltins {
		m := &ast.Method{Name: b.name, ReturnType: b.returnType, Owner: object, Slot: i}
		for _, t := range b.formals {
			m.Formals = append(m.Formals, &ast.Formal{Name: "arg", Typ: t})
		}
		object.Methods = append(object.Methods, m)
		object.MethodsTable[b.name] = m
	}
	return object
}

// topoOrder returns every successfully-linked class (i.e. present in
// typeOf) in parent-before-child order.
func topoOrder(table map[string]*ast.Class, typeOf map[*ast.Class]*types.Class) []*ast.Class {
	var depth func(c *ast.Class) int
	depth = func(c *ast.Class) int {
		if c.Parent == nil {
			return 0
		}
		return 1 + depth(c.Parent)
	}

	var classes []*ast.Class
	for _, c := range table {
		if c.Name == "Object" {
			continue
		}
		if _, ok := typeOf[c]; ok {
			classes = append(classes, c)
		}
	}

	// Stable insertion sort by depth: small N (one source file's worth of
	// classes), so an O(n^2) sort is enough. The input comes from map
	// iteration, so the order among classes of equal depth is not defined.
	for i := 1; i < len(classes); i++ {
		for j := i; j > 0 && depth(classes[j]) < depth(classes[j-1]); j-- {
			classes[j], classes[j-1] = classes[j-1], classes[j]
		}
	}
	return classes
}

// resolveClass assigns field indices and method vtable slots for one
// class, mirroring ast.cpp's Class::declaration field/method loops
// (spec.md §4.4).
func resolveClass(c *ast.Class, errs *errors.Collector) {
	c.FieldsTable = map[string]*ast.Field{}
	c.MethodsTable = map[string]*ast.Method{}

	fIdx, mIdx := 1, 0
	if c.Parent != nil {
		for _, f := range c.Parent.FieldsTable {
			if f.Index+1 > fIdx {
				fIdx = f.Index + 1
			}
		}
		for _, m := range c.Parent.MethodsTable {
			if m.Slot+1 > mIdx {
				mIdx = m.Slot + 1
			}
		}
	}

	var fields []*ast.Field
	for _, f := range c.Fields {
		if _, dup := c.FieldsTable[f.Name]; dup {
			errs.AddStructural(f.Pos, "redefinition of field %s", f.Name)
			continue
		}
		if c.Parent != nil {
			if _, inherited := c.Parent.FieldsTable[f.Name]; inherited {
				errs.AddStructural(f.Pos, "overriding field %s", f.Name)
				continue
			}
		}
		c.FieldsTable[f.Name] = f
		if f.Typ == "unit" {
			f.UnitSlot = true
			f.Index = fIdx
		} else {
			f.Index = fIdx
			fIdx++
		}
		fields = append(fields, f)
	}
	c.Fields = fields

	if c.Parent != nil {
		for name, f := range c.Parent.FieldsTable {
			c.FieldsTable[name] = f
		}
	}

	var methods []*ast.Method
	for _, m := range c.Methods {
		if _, dup := c.MethodsTable[m.Name]; dup {
			errs.AddStructural(m.Pos, "redefinition of method %s", m.Name)
			continue
		}
		m.Owner = c

		if c.Parent != nil {
			if parentMethod, inherited := c.Parent.MethodsTable[m.Name]; inherited {
				if !sameSignature(m, parentMethod) {
					errs.AddStructural(m.Pos, "overriding method %s with different signature", m.Name)
					continue
				}
				c.MethodsTable[m.Name] = m
				m.Slot = parentMethod.Slot
				methods = append(methods, m)
				continue
			}
		}

		c.MethodsTable[m.Name] = m
		m.Slot = mIdx
		mIdx++
		methods = append(methods, m)
	}
	c.Methods = methods

	if c.Parent != nil {
		for name, m := range c.Parent.MethodsTable {
			if _, overridden := c.MethodsTable[name]; !overridden {
				c.MethodsTable[name] = m
			}
		}
	}
}

// sameSignature checks return type and formal-type sequence exactly, per
// spec.md §4.4, "Method resolution".
func sameSignature(a, b *ast.Method) bool {
	if a.ReturnType != b.ReturnType {
		return false
	}
	if len(a.Formals) != len(b.Formals) {
		return false
	}
	for i := range a.Formals {
		if a.Formals[i].Typ != b.Formals[i].Typ {
			return false
		}
	}
	return true
}

// checkEntryPoint validates spec.md §4.4, "Entry point": either a
// top-level main()->int32 (extended) or a Main class with an instance
// main()->int32.
func checkEntryPoint(prog *ast.Program, errs *errors.Collector) {
	if fn, ok := prog.FunctionsTable["main"]; ok {
		if fn.ReturnType == "int32" && len(fn.Formals) == 0 {
			return
		}
	}

	main, ok := prog.ClassesTable["Main"]
	if !ok {
		errs.AddStructural(token.Position{Line: 1, Column: 1}, "program has no Main class or top-level main function")
		return
	}
	m, ok := main.MethodsTable["main"]
	if !ok || m.ReturnType != "int32" || len(m.Formals) != 0 {
		errs.AddStructural(main.Pos, "Main class must declare main() : int32")
	}
}
