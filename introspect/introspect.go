// Package introspect embeds and reads back compiled-module type metadata.
// The driver embeds a `__vsop_types` global into a module before linking
// it (the -llvm output does not carry it): a NUL-terminated JSON blob
// naming every class's fields and method signatures. `vsopc introspect` dlopens a compiled artifact and reads the
// symbol straight out of its data section, the same way the teacher's
// `typeinfo` subcommand reads `__tawa_types` (typeinfo.go, reader/reader.go).
package introspect

import (
	"encoding/json"
	"fmt"

	"github.com/coreos/pkg/dlopen"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"

	"github.com/vsop-lang/vsopc/resolver"
)

import "C"

// symbolName is the global the emitter writes and this package reads back.
const symbolName = "__vsop_types"

// MethodInfo describes one method's externally visible signature.
type MethodInfo struct {
	Name       string   `json:"name"`
	Formals    []string `json:"formals"`
	ReturnType string   `json:"returnType"`
}

// ClassInfo describes one class's fields and methods.
type ClassInfo struct {
	Name    string            `json:"name"`
	Parent  string            `json:"parent,omitempty"`
	Fields  map[string]string `json:"fields"`
	Methods []MethodInfo      `json:"methods"`
}

// TypeInfo is the full metadata blob embedded in a compiled module.
type TypeInfo struct {
	Classes map[string]ClassInfo `json:"classes"`
}

// Build walks a resolved program's class table into the JSON-serialisable
// shape that Embed writes into the module.
func Build(resolved *resolver.Resolved) TypeInfo {
	info := TypeInfo{Classes: map[string]ClassInfo{}}
	for name, class := range resolved.ClassByName {
		ci := ClassInfo{Name: name, Fields: map[string]string{}}
		if class.Parent != nil {
			ci.Parent = class.Parent.Name
		}
		for fname, f := range class.FieldsTable {
			ci.Fields[fname] = f.Typ
		}
		for _, m := range class.Methods {
			mi := MethodInfo{Name: m.Name, ReturnType: m.ReturnType}
			for _, formal := range m.Formals {
				mi.Formals = append(mi.Formals, formal.Typ)
			}
			ci.Methods = append(ci.Methods, mi)
		}
		info.Classes[name] = ci
	}
	return info
}

// Embed serialises info and writes it into m as an immutable, NUL-terminated
// global char array, matching registerTypeInfoWithModule's shape.
func Embed(info TypeInfo, m *ir.Module) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("introspect: marshal type info: %w", err)
	}
	g := m.NewGlobalDef(symbolName, constant.NewCharArrayFromString(string(append(data, 0))))
	g.Immutable = true
	return nil
}

// ReadFromFile dlopens a compiled VSOP binary or shared object and reads its
// embedded __vsop_types symbol back out, mirroring reader.ReadTypeInfo.
func ReadFromFile(path string) (TypeInfo, error) {
	handle, err := dlopen.GetHandle([]string{path})
	if err != nil {
		return TypeInfo{}, fmt.Errorf("introspect: open %s: %w", path, err)
	}
	defer handle.Close()

	sym, err := handle.GetSymbolPointer(symbolName)
	if err != nil {
		return TypeInfo{}, fmt.Errorf("introspect: read %s: %w", symbolName, err)
	}

	raw := C.GoString((*C.char)(sym))

	var info TypeInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return TypeInfo{}, fmt.Errorf("introspect: decode type info: %w", err)
	}
	return info, nil
}
