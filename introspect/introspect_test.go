package introspect

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"

	"github.com/vsop-lang/vsopc/ast"
	"github.com/vsop-lang/vsopc/resolver"
)

func TestBuildDescribesClassesFieldsAndMethods(t *testing.T) {
	a := &ast.Class{
		Name:        "A",
		FieldsTable: map[string]*ast.Field{"x": {Name: "x", Typ: "int32"}},
		Methods:     []*ast.Method{{Name: "m", ReturnType: "bool", Formals: []*ast.Formal{{Name: "p", Typ: "string"}}}},
	}
	b := &ast.Class{
		Name:        "B",
		Parent:      a,
		FieldsTable: map[string]*ast.Field{},
	}
	resolved := &resolver.Resolved{ClassByName: map[string]*ast.Class{"A": a, "B": b}}

	info := Build(resolved)

	ca, ok := info.Classes["A"]
	if !ok {
		t.Fatalf("expected class A in the built info")
	}
	if ca.Parent != "" {
		t.Fatalf("A has no parent, got %q", ca.Parent)
	}
	if ca.Fields["x"] != "int32" {
		t.Fatalf("got field x typed %q, want int32", ca.Fields["x"])
	}
	if len(ca.Methods) != 1 || ca.Methods[0].Name != "m" || ca.Methods[0].ReturnType != "bool" {
		t.Fatalf("unexpected methods for A: %+v", ca.Methods)
	}
	if len(ca.Methods[0].Formals) != 1 || ca.Methods[0].Formals[0] != "string" {
		t.Fatalf("unexpected formals for A.m: %+v", ca.Methods[0].Formals)
	}

	cb, ok := info.Classes["B"]
	if !ok {
		t.Fatalf("expected class B in the built info")
	}
	if cb.Parent != "A" {
		t.Fatalf("got B's parent %q, want A", cb.Parent)
	}
}

func TestEmbedWritesNULTerminatedJSONGlobal(t *testing.T) {
	info := TypeInfo{Classes: map[string]ClassInfo{
		"Main": {Name: "Main", Fields: map[string]string{}},
	}}
	m := ir.NewModule()

	if err := Embed(info, m); err != nil {
		t.Fatalf("Embed: %v", err)
	}

	var global *ir.Global
	for _, g := range m.Globals {
		if g.Name() == symbolName {
			global = g
		}
	}
	if global == nil {
		t.Fatalf("expected a global named %s", symbolName)
	}
	if !global.Immutable {
		t.Fatalf("expected the type-info global to be immutable")
	}

	arr, ok := global.Init.(*constant.CharArray)
	if !ok {
		t.Fatalf("expected the global's initializer to be a char array, got %T", global.Init)
	}
	raw := arr.X
	if len(raw) == 0 || raw[len(raw)-1] != 0 {
		t.Fatalf("expected a NUL-terminated byte string")
	}

	var decoded TypeInfo
	if err := json.Unmarshal(raw[:len(raw)-1], &decoded); err != nil {
		t.Fatalf("decode embedded JSON: %v", err)
	}
	if _, ok := decoded.Classes["Main"]; !ok {
		t.Fatalf("decoded info missing Main class: %+v", decoded)
	}
}

func TestReadFromFileFailsOnMissingFile(t *testing.T) {
	if _, err := ReadFromFile("/nonexistent/path/does-not-exist.so"); err == nil {
		t.Fatalf("expected an error opening a nonexistent file")
	} else if !strings.Contains(err.Error(), "introspect") {
		t.Fatalf("expected a wrapped introspect error, got %v", err)
	}
}
