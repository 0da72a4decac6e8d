package resolver

import (
	"testing"

	"github.com/vsop-lang/vsopc/ast"
	"github.com/vsop-lang/vsopc/errors"
)

func class(name, parent string, fields []*ast.Field, methods []*ast.Method) *ast.Class {
	return &ast.Class{Name: name, ParentName: parent, Fields: fields, Methods: methods}
}

func field(name, typ string) *ast.Field { return &ast.Field{Name: name, Typ: typ} }

func method(name, ret string, formals ...string) *ast.Method {
	m := &ast.Method{Name: name, ReturnType: ret}
	for _, f := range formals {
		m.Formals = append(m.Formals, &ast.Formal{Name: "p", Typ: f})
	}
	return m
}

func TestFieldPrefixInvariant(t *testing.T) {
	a := class("A", "Object", []*ast.Field{field("x", "int32"), field("y", "bool")}, nil)
	b := class("B", "A", []*ast.Field{field("z", "string")}, nil)
	prog := &ast.Program{Classes: []*ast.Class{a, b}}

	var errs errors.Collector
	Run(prog, &errs)

	if a.FieldsTable["x"].Index != b.FieldsTable["x"].Index {
		t.Fatalf("prefix invariant violated for x: %d != %d", a.FieldsTable["x"].Index, b.FieldsTable["x"].Index)
	}
	if a.FieldsTable["y"].Index != b.FieldsTable["y"].Index {
		t.Fatalf("prefix invariant violated for y: %d != %d", a.FieldsTable["y"].Index, b.FieldsTable["y"].Index)
	}
	if b.FieldsTable["z"].Index <= b.FieldsTable["y"].Index {
		t.Fatalf("new field z must get a fresh, higher index")
	}
}

func TestOverridePreservesVtableSlot(t *testing.T) {
	p := class("P", "Object", nil, []*ast.Method{method("m", "int32")})
	k := class("K", "P", nil, []*ast.Method{method("m", "int32")})
	prog := &ast.Program{Classes: []*ast.Class{p, k}}

	var errs errors.Collector
	Run(prog, &errs)

	if p.MethodsTable["m"].Slot != k.MethodsTable["m"].Slot {
		t.Fatalf("override changed vtable slot: %d != %d", p.MethodsTable["m"].Slot, k.MethodsTable["m"].Slot)
	}
}

func TestOverrideWithDifferentSignatureIsRejected(t *testing.T) {
	p := class("P", "Object", nil, []*ast.Method{method("m", "int32")})
	k := class("K", "P", nil, []*ast.Method{method("m", "bool")})
	prog := &ast.Program{Classes: []*ast.Class{p, k}}

	var errs errors.Collector
	Run(prog, &errs)

	if !errs.HasErrors() {
		t.Fatalf("expected a structural error for a signature-mismatched override")
	}
}

func TestExtendUnknownClassIsRejected(t *testing.T) {
	a := class("A", "Nonexistent", nil, nil)
	prog := &ast.Program{Classes: []*ast.Class{a}}

	var errs errors.Collector
	Run(prog, &errs)

	found := false
	for _, d := range errs.Diagnostics() {
		if d.Kind.String() == "semantic" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a structural error for extending an unknown class")
	}
}

func TestSelfExtendingClassIsACycle(t *testing.T) {
	a := class("Main", "Main", nil, []*ast.Method{method("main", "int32")})
	prog := &ast.Program{Classes: []*ast.Class{a}}

	var errs errors.Collector
	Run(prog, &errs)

	if !errs.HasErrors() {
		t.Fatalf("expected a structural error for Main extends Main")
	}
}

func TestMissingMainIsRejected(t *testing.T) {
	a := class("A", "Object", nil, nil)
	prog := &ast.Program{Classes: []*ast.Class{a}}

	var errs errors.Collector
	Run(prog, &errs)

	if !errs.HasErrors() {
		t.Fatalf("expected a structural error for a missing Main.main")
	}
}

func TestNoRecoveryLeaksEmptyMessages(t *testing.T) {
	a := class("A", "Bad", nil, nil)
	b := class("B", "AlsoBad", []*ast.Field{field("x", "int32"), field("x", "bool")}, nil)
	prog := &ast.Program{Classes: []*ast.Class{a, b}}

	var errs errors.Collector
	Run(prog, &errs)

	if errs.Count() == 0 {
		t.Fatalf("expected at least one diagnostic")
	}
	for _, d := range errs.Diagnostics() {
		if d.Message == "" {
			t.Fatalf("empty diagnostic message leaked through")
		}
	}
}
