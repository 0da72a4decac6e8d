package emit

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	lt "github.com/llir/llvm/ir/types"

	"github.com/vsop-lang/vsopc/ast"
)

// emitInitBody lowers Class_init: call the parent's _init on the same
// memory bitcast to the parent's pointer type, then assign each of this
// class's own fields from its initializer or its type's default
// (spec.md §4.6, "Object construction"). Running parent-first lets a field
// initializer observe state the parent already set up.
func (c *Context) emitInitBody(class *ast.Class) {
	layout := c.layouts[class]
	fn := layout.initFunc
	entry := fn.NewBlock("")
	self := fn.Params[0]

	cur := entry
	if class.Parent != nil {
		parentLayout := c.layouts[class.Parent]
		castSelf := cur.NewBitCast(self, parentLayout.ptrType())
		cur.NewCall(parentLayout.initFunc, castSelf)
	}

	c.pushScope()
	c.declare("self", &binding{typ: classTypeOf(c, class), slot: self, isSelf: true})
	c.curSelf = layout

	for _, f := range class.Fields {
		ft, ok := c.resolveTypeName(f.Typ)
		if !ok {
			ft = nil
		}

		if f.Init != nil {
			v, nb := c.checkAndEmit(f.Init, cur)
			cur = nb
			if ft == nil {
				c.Errs.AddType(f.Pos, "unknown type %s for field %s", f.Typ, f.Name)
				continue
			}
			initType := exprType(f.Init)
			if !c.conforms(initType, ft) {
				c.Errs.AddType(f.Init.Position(), "initializer of field %s has incompatible type", f.Name)
				v = c.defaultValue(cur, ft)
			} else {
				v = c.widen(cur, v, initType, ft)
			}
			if !f.UnitSlot {
				fieldAddr := cur.NewGetElementPtr(layout.structType, self, idx32(0), idx32(f.Index))
				cur.NewStore(v, fieldAddr)
			}
			continue
		}

		if ft == nil {
			c.Errs.AddType(f.Pos, "unknown type %s for field %s", f.Typ, f.Name)
			continue
		}
		if f.UnitSlot {
			continue
		}
		fieldAddr := cur.NewGetElementPtr(layout.structType, self, idx32(0), idx32(f.Index))
		cur.NewStore(c.defaultValue(cur, ft), fieldAddr)
	}

	c.curSelf = nil
	c.popScope()
	cur.NewRet(nil)
}

// emitNewBody lowers Class_new: malloc(sizeof(struct)); on a null return
// propagate null; else call Class_init, write the vtable pointer into slot
// 0, and return the typed pointer (spec.md §4.6, "Object construction").
func (c *Context) emitNewBody(class *ast.Class) {
	layout := c.layouts[class]
	fn := layout.newFunc
	entry := fn.NewBlock("")

	sizePtr := entry.NewGetElementPtr(layout.structType, constant.NewNull(layout.ptrType()), constant.NewInt(lt.I32, 1))
	size := entry.NewPtrToInt(sizePtr, lt.I64)
	raw := entry.NewCall(c.mallocFn, size)

	nullBlock := fn.NewBlock("")
	okBlock := fn.NewBlock("")
	isNull := entry.NewICmp(enum.IPredEQ, raw, constant.NewNull(lt.I8Ptr))
	entry.NewCondBr(isNull, nullBlock, okBlock)

	nullBlock.NewRet(constant.NewNull(layout.ptrType()))

	typedSelf := okBlock.NewBitCast(raw, layout.ptrType())
	okBlock.NewCall(layout.initFunc, typedSelf)
	vtableAddr := okBlock.NewGetElementPtr(layout.structType, typedSelf, idx32(0), idx32(0))
	okBlock.NewStore(constant.NewBitCast(layout.vtableGlobal, vtablePtrType), vtableAddr)
	okBlock.NewRet(typedSelf)
}
