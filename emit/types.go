package emit

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	lt "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/vsop-lang/vsopc/lexer"
	vtypes "github.com/vsop-lang/vsopc/types"
)

// resolveTypeName turns a surface type name (as it appears in a Field/Formal/
// Method.ReturnType) into a semantic Type. An unknown class name yields
// (nil, false) so the caller can report a single, precisely-located error
// instead of this helper guessing a position.
func (c *Context) resolveTypeName(name string) (*vtypes.Type, bool) {
	switch name {
	case "unit":
		return vtypes.Primitive(vtypes.Unit), true
	case "int32":
		return vtypes.Primitive(vtypes.Int32), true
	case "bool":
		return vtypes.Primitive(vtypes.Bool), true
	case "string":
		return vtypes.Primitive(vtypes.String), true
	case "double":
		if c.Dialect == lexer.Extended {
			return vtypes.Primitive(vtypes.Double), true
		}
		return nil, false
	}
	astClass, ok := c.Resolved.ClassByName[name]
	if !ok {
		return nil, false
	}
	return vtypes.OfClass(c.Resolved.TypeOf[astClass]), true
}

// llvmType lowers a semantic Type to its llir/llvm representation. Class
// types lower to the pointer-to-struct built by BuildLayout; unit has no
// runtime representation and must never reach this function directly (every
// call site special-cases Kind == Unit first).
func (c *Context) llvmType(t *vtypes.Type) lt.Type {
	switch t.Kind {
	case vtypes.Int32:
		return lt.I32
	case vtypes.Bool:
		return lt.I1
	case vtypes.String:
		return lt.I8Ptr
	case vtypes.Double:
		return lt.Double
	case vtypes.ClassType:
		return c.layoutOf(t.Class).ptrType()
	default:
		return lt.Void
	}
}

// defaultValue builds the default runtime value for a type's declared
// default (spec.md §4.5, "Let": "else to the type's default: null for
// classes, empty string, 0, false"). Returns nil for unit. A defaulted
// string is a pointer to an empty, NUL-terminated global, not a null
// pointer, matching String("").codegen_aux in the original.
func (c *Context) defaultValue(b *ir.Block, t *vtypes.Type) value.Value {
	switch t.Kind {
	case vtypes.Int32:
		return constant.NewInt(lt.I32, 0)
	case vtypes.Bool:
		return constant.NewBool(false)
	case vtypes.Double:
		return constant.NewFloat(lt.Double, 0)
	case vtypes.String:
		return c.stringConstant(b, "")
	case vtypes.ClassType:
		return constant.NewNull(c.layoutOf(t.Class).ptrType())
	default:
		return nil
	}
}
