package emit

import (
	"github.com/llir/llvm/ir"
	lt "github.com/llir/llvm/ir/types"

	"github.com/vsop-lang/vsopc/ast"
	"github.com/vsop-lang/vsopc/errors"
	"github.com/vsop-lang/vsopc/lexer"
	"github.com/vsop-lang/vsopc/resolver"
	vtypes "github.com/vsop-lang/vsopc/types"
)

// Emit runs the type checker interleaved with SSA IR emission over a
// resolved program and returns the finished llir/llvm module (spec.md
// §4.5-§4.6). It never stops on the first error: every diagnosable failure
// is recorded in errs and lowering continues with a well-typed placeholder,
// so a single run surfaces as many diagnostics as possible (spec.md §7).
func Emit(resolved *resolver.Resolved, dialect lexer.Dialect, errs *errors.Collector) *ir.Module {
	c := newContext(resolved, dialect, errs)
	c.BuildLayout()

	for _, class := range classOrder(resolved.ClassByName) {
		c.emitInitBody(class)
		c.emitNewBody(class)
		layout := c.layouts[class]
		for _, m := range class.Methods {
			c.emitMethodBody(layout, m)
		}
	}

	for _, fn := range resolved.Program.Functions {
		c.emitFunctionBody(fn)
	}

	c.synthesizeEntryPoint()
	return c.Module
}

// emitMethodBody lowers one class method's body. Self arrives as an opaque
// i8* (see declareMethodFunc) and is bitcast back to the owner's pointer
// type once, in the prologue; built-in methods (Object's print/input
// family) have a nil Body and are left as bare externs.
func (c *Context) emitMethodBody(layout *classLayout, m *ast.Method) {
	if m.Body == nil {
		return
	}
	fn := layout.methodFuncs[m.Name]
	entry := fn.NewBlock("")
	selfTyped := entry.NewBitCast(fn.Params[0], layout.ptrType())

	c.pushScope()
	c.declare("self", &binding{typ: classTypeOf(c, layout.class), slot: selfTyped, isSelf: true})
	c.curSelf = layout

	cur := entry
	for i, f := range m.Formals {
		ft, ok := c.resolveTypeName(f.Typ)
		if !ok {
			ft = vtypes.ErrorType
		}
		if ft.Kind == vtypes.Unit {
			c.declare(f.Name, &binding{typ: ft})
			continue
		}
		slot := cur.NewAlloca(c.llvmType(ft))
		cur.NewStore(fn.Params[i+1], slot)
		c.declare(f.Name, &binding{typ: ft, slot: slot})
	}

	val, bodyEnd := c.checkAndEmit(m.Body, cur)

	c.curSelf = nil
	c.popScope()

	retType, ok := c.resolveTypeName(m.ReturnType)
	if !ok || retType.Kind == vtypes.Unit {
		bodyEnd.NewRet(nil)
		return
	}
	val = c.widen(bodyEnd, val, exprType(m.Body), retType)
	bodyEnd.NewRet(val)
}

// emitFunctionBody lowers a top-level (extended-dialect) function: no self,
// formals installed as fresh stack slots.
func (c *Context) emitFunctionBody(m *ast.Method) {
	if m.Body == nil {
		return
	}
	fn := c.funcByName[m.Name]
	entry := fn.NewBlock("")

	c.pushScope()
	c.curSelf = nil

	cur := entry
	for i, f := range m.Formals {
		ft, ok := c.resolveTypeName(f.Typ)
		if !ok {
			ft = vtypes.ErrorType
		}
		if ft.Kind == vtypes.Unit {
			c.declare(f.Name, &binding{typ: ft})
			continue
		}
		slot := cur.NewAlloca(c.llvmType(ft))
		cur.NewStore(fn.Params[i], slot)
		c.declare(f.Name, &binding{typ: ft, slot: slot})
	}

	val, bodyEnd := c.checkAndEmit(m.Body, cur)
	c.popScope()

	retType, ok := c.resolveTypeName(m.ReturnType)
	if !ok || retType.Kind == vtypes.Unit {
		bodyEnd.NewRet(nil)
		return
	}
	val = c.widen(bodyEnd, val, exprType(m.Body), retType)
	bodyEnd.NewRet(val)
}

// synthesizeEntryPoint builds the process's C main. In the extended
// dialect a top-level main()->int32 already compiles to a function named
// "main" with the right signature, so nothing further is needed; otherwise
// it builds Main.new() + Main.main() (spec.md §4.4, "Entry point").
func (c *Context) synthesizeEntryPoint() {
	if _, ok := c.Resolved.Program.FunctionsTable["main"]; ok && c.Dialect == lexer.Extended {
		return
	}
	mainClass, ok := c.Resolved.ClassByName["Main"]
	if !ok {
		return // already diagnosed by resolver.checkEntryPoint
	}
	layout, ok := c.layouts[mainClass]
	if !ok {
		return
	}
	if _, ok := mainClass.MethodsTable["main"]; !ok {
		return
	}

	fn := c.Module.NewFunc("main", lt.I32)
	entry := fn.NewBlock("")
	selfTyped := entry.NewCall(layout.newFunc)
	selfGeneric := entry.NewBitCast(selfTyped, lt.I8Ptr)
	result := entry.NewCall(layout.methodFuncs["main"], selfGeneric)
	entry.NewRet(result)
}
