package emit

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	lt "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/vsop-lang/vsopc/ast"
	"github.com/vsop-lang/vsopc/lexer"
	vtypes "github.com/vsop-lang/vsopc/types"
)

func idx32(i int) value.Value { return constant.NewInt(lt.I32, int64(i)) }

func exprType(e ast.Expr) *vtypes.Type {
	t, _ := e.Type().(*vtypes.Type)
	if t == nil {
		return vtypes.ErrorType
	}
	return t
}

// conforms reports whether a value of type from may stand where to is
// expected: subtype for class types, exact match for string/bool/unit, and
// (extended dialect) any numeric-to-numeric widening (spec.md §4.5,
// "Assign", "Let").
func (c *Context) conforms(from, to *vtypes.Type) bool {
	if from.Kind == vtypes.Error || to.Kind == vtypes.Error {
		return true
	}
	if vtypes.IsSubtype(from, to) {
		return true
	}
	if c.Dialect == lexer.Extended && vtypes.NumericKind(from.Kind) && vtypes.NumericKind(to.Kind) {
		return true
	}
	return false
}

// widen lowers a value from one conforming type to another: sitofp/fptosi
// for numeric widening, a bitcast for an upcast between class pointer
// types, and a no-op otherwise (spec.md §4.6, "Numeric widening").
func (c *Context) widen(b *ir.Block, val value.Value, from, to *vtypes.Type) value.Value {
	if val == nil || vtypes.Equal(from, to) {
		return val
	}
	if from.Kind == vtypes.Int32 && to.Kind == vtypes.Double {
		return b.NewSIToFP(val, lt.Double)
	}
	if from.Kind == vtypes.Double && to.Kind == vtypes.Int32 {
		return b.NewFPToSI(val, lt.I32)
	}
	if from.Kind == vtypes.ClassType && to.Kind == vtypes.ClassType {
		return b.NewBitCast(val, c.llvmType(to))
	}
	return val
}

// stringConstant returns a pointer to the (deduplicated) NUL-terminated
// module-level constant for s, in the teacher's manner of interning string
// globals by content (spec.md §4.6, "String literals become module-level
// constant C-style strings referenced by pointer").
func (c *Context) stringConstant(b *ir.Block, s string) value.Value {
	g, ok := c.stringConst[s]
	if !ok {
		data := s + "\x00"
		arrType := lt.NewArray(uint64(len(data)), lt.I8)
		g = c.Module.NewGlobalDef(fmt.Sprintf("str.%d", len(c.stringConst)), constant.NewCharArrayFromString(data))
		g.Immutable = true
		c.stringConst[s] = g
		c.stringType[s] = arrType
	}
	return b.NewGetElementPtr(c.stringType[s], g, idx32(0), idx32(0))
}

// methodFuncType is the function type stored (as an opaque i8*, bitcast at
// the call site) in every vtable entry: a generic i8* self followed by the
// method's declared formal types (spec.md §4.5, "Call").
func (c *Context) methodFuncType(m *ast.Method) *lt.FuncType {
	ret := lt.Type(lt.Void)
	if rt, ok := c.resolveTypeName(m.ReturnType); ok && rt.Kind != vtypes.Unit {
		ret = c.llvmType(rt)
	}
	params := []lt.Type{lt.I8Ptr}
	for _, f := range m.Formals {
		ft, ok := c.resolveTypeName(f.Typ)
		if !ok {
			params = append(params, lt.I8Ptr)
			continue
		}
		params = append(params, c.llvmType(ft))
	}
	return lt.NewFunc(ret, params...)
}

// checkAndEmit assigns expr its static type and lowers it into b, returning
// its SSA value (nil for unit) and the block execution continues in — If,
// While and Break all redirect control flow to a fresh block, so every
// caller must thread the returned block onward (spec.md §4.5-§4.6).
func (c *Context) checkAndEmit(expr ast.Expr, b *ir.Block) (value.Value, *ir.Block) {
	switch n := expr.(type) {

	case *ast.Block:
		return c.emitBlock(n, b)
	case *ast.If:
		return c.emitIf(n, b)
	case *ast.While:
		return c.emitWhile(n, b)
	case *ast.For:
		return c.emitFor(n, b)
	case *ast.Break:
		return c.emitBreak(n, b)
	case *ast.Let:
		return c.emitLet(n, b)
	case *ast.Lets:
		return c.emitLets(n, b)
	case *ast.Assign:
		return c.emitAssign(n, b)
	case *ast.Unary:
		return c.emitUnary(n, b)
	case *ast.Binary:
		return c.emitBinary(n, b)
	case *ast.Call:
		return c.emitCall(n, b)
	case *ast.New:
		return c.emitNew(n, b)
	case *ast.Identifier:
		return c.emitIdentifier(n, b)
	case *ast.Integer:
		n.SetType(vtypes.Primitive(vtypes.Int32))
		return constant.NewInt(lt.I32, int64(n.Value32)), b
	case *ast.Real:
		if c.Dialect != lexer.Extended {
			c.Errs.AddType(n.Pos, "double literals require the extended dialect")
		}
		n.SetType(vtypes.Primitive(vtypes.Double))
		return constant.NewFloat(lt.Double, n.ValueF64), b
	case *ast.Boolean:
		n.SetType(vtypes.Primitive(vtypes.Bool))
		return constant.NewBool(n.ValueBool), b
	case *ast.String:
		n.SetType(vtypes.Primitive(vtypes.String))
		return c.stringConstant(b, n.Text), b
	case *ast.Unit:
		n.SetType(vtypes.Primitive(vtypes.Unit))
		return nil, b
	default:
		panic(fmt.Sprintf("emit: unhandled expression %T", expr))
	}
}

func (c *Context) emitBlock(n *ast.Block, b *ir.Block) (value.Value, *ir.Block) {
	if len(n.Exprs) == 0 {
		n.SetType(vtypes.Primitive(vtypes.Unit))
		return nil, b
	}
	var val value.Value
	var last *vtypes.Type
	cur := b
	for _, e := range n.Exprs {
		val, cur = c.checkAndEmit(e, cur)
		last = exprType(e)
	}
	n.SetType(last)
	return val, cur
}

func (c *Context) emitIf(n *ast.If, b *ir.Block) (value.Value, *ir.Block) {
	condVal, condEnd := c.checkAndEmit(n.Cond, b)
	if exprType(n.Cond).Kind != vtypes.Bool {
		c.Errs.AddType(n.Cond.Position(), "if condition must be bool")
	}

	fn := condEnd.Parent
	thenBlock := fn.NewBlock("")
	thenVal, thenEnd := c.checkAndEmit(n.Then, thenBlock)
	thenType := exprType(n.Then)

	elseBlock := fn.NewBlock("")
	var elseVal value.Value
	elseType := vtypes.Primitive(vtypes.Unit)
	elseEnd := elseBlock
	if n.Else != nil {
		elseVal, elseEnd = c.checkAndEmit(n.Else, elseBlock)
		elseType = exprType(n.Else)
	}

	resultType, ok := vtypes.LUB(thenType, elseType, c.Dialect == lexer.Extended)
	if !ok {
		c.Errs.AddType(n.Pos, "incompatible types in if branches")
		resultType = vtypes.ErrorType
	}
	n.SetType(resultType)

	var thenW, elseW value.Value
	if resultType.Kind != vtypes.Unit {
		thenW = c.widen(thenEnd, thenVal, thenType, resultType)
		elseW = c.widen(elseEnd, elseVal, elseType, resultType)
	}

	merge := fn.NewBlock("")
	condEnd.NewCondBr(condVal, thenBlock, elseBlock)
	thenEnd.NewBr(merge)
	elseEnd.NewBr(merge)

	if resultType.Kind == vtypes.Unit {
		return nil, merge
	}
	phi := merge.NewPhi(ir.NewIncoming(thenW, thenEnd), ir.NewIncoming(elseW, elseEnd))
	return phi, merge
}

func (c *Context) emitWhile(n *ast.While, b *ir.Block) (value.Value, *ir.Block) {
	fn := b.Parent
	header := fn.NewBlock("")
	b.NewBr(header)

	condVal, condEnd := c.checkAndEmit(n.Cond, header)
	if exprType(n.Cond).Kind != vtypes.Bool {
		c.Errs.AddType(n.Cond.Position(), "while condition must be bool")
	}

	body := fn.NewBlock("")
	exit := fn.NewBlock("")
	condEnd.NewCondBr(condVal, body, exit)

	c.pushBreakTarget(exit)
	_, bodyEnd := c.checkAndEmit(n.Body, body)
	c.popBreakTarget()
	bodyEnd.NewBr(header)

	n.SetType(vtypes.Primitive(vtypes.Unit))
	return nil, exit
}

// emitFor desugars for(name, from, to, body) into
// Lets([name:int32=from, _last:int32=to], While(name<=_last, {body; name<-name+1}))
// (spec.md §4.5, "For").
func (c *Context) emitFor(n *ast.For, b *ir.Block) (value.Value, *ir.Block) {
	pos := n.Pos
	step := ast.NewAssign(pos, n.Name, ast.NewBinary(pos, ast.PLUS, ast.NewIdentifier(pos, n.Name), ast.NewInteger(pos, 1)))
	body := ast.NewBlock(pos, []ast.Expr{n.Body, step})
	cond := ast.NewBinary(pos, ast.LE, ast.NewIdentifier(pos, n.Name), ast.NewIdentifier(pos, "_last"))
	loop := ast.NewWhile(pos, cond, body)
	lets := ast.NewLets(pos, []*ast.Field{
		{Pos: pos, Name: n.Name, Typ: "int32", Init: n.From},
		{Pos: pos, Name: "_last", Typ: "int32", Init: n.To},
	}, loop)

	val, end := c.checkAndEmit(lets, b)
	n.SetType(exprType(lets))
	return val, end
}

func (c *Context) emitBreak(n *ast.Break, b *ir.Block) (value.Value, *ir.Block) {
	n.SetType(vtypes.Primitive(vtypes.Unit))
	target, ok := c.breakTarget()
	if !ok {
		c.Errs.AddType(n.Pos, "break outside of an enclosing loop")
		return nil, b
	}
	b.NewBr(target)
	unreachable := b.Parent.NewBlock("")
	return nil, unreachable
}

func (c *Context) emitLet(n *ast.Let, b *ir.Block) (value.Value, *ir.Block) {
	ft, ok := c.resolveTypeName(n.Typ)
	if !ok {
		c.Errs.AddType(n.Pos, "unknown type %s", n.Typ)
		ft = vtypes.ErrorType
	}

	cur := b
	var val value.Value
	if n.Init != nil {
		var v value.Value
		v, cur = c.checkAndEmit(n.Init, cur)
		initType := exprType(n.Init)
		if !c.conforms(initType, ft) {
			c.Errs.AddType(n.Init.Position(), "initializer of %s has incompatible type", n.Name)
			val = c.defaultValue(cur, ft)
		} else {
			val = c.widen(cur, v, initType, ft)
		}
	} else {
		val = c.defaultValue(cur, ft)
	}

	c.pushScope()
	if ft.Kind == vtypes.Unit {
		c.declare(n.Name, &binding{typ: ft})
	} else {
		slot := cur.NewAlloca(c.llvmType(ft))
		cur.NewStore(val, slot)
		c.declare(n.Name, &binding{typ: ft, slot: slot})
	}
	bodyVal, bodyEnd := c.checkAndEmit(n.Body, cur)
	c.popScope()

	n.SetType(exprType(n.Body))
	return bodyVal, bodyEnd
}

// emitLets desugars a chain of field bindings into nested Let nodes sharing
// the tail as their body (ast.go, "Lets is extended-dialect sugar").
func (c *Context) emitLets(n *ast.Lets, b *ir.Block) (value.Value, *ir.Block) {
	body := n.Body
	for i := len(n.Fields) - 1; i >= 0; i-- {
		f := n.Fields[i]
		body = ast.NewLet(f.Pos, f.Name, f.Typ, f.Init, body)
	}
	val, end := c.checkAndEmit(body, b)
	n.SetType(exprType(body))
	return val, end
}

func (c *Context) emitAssign(n *ast.Assign, b *ir.Block) (value.Value, *ir.Block) {
	cur := b
	var targetType *vtypes.Type
	var localSlot value.Value
	var fieldAddr value.Value

	if bnd, ok := c.lookup(n.Name); ok {
		if bnd.isSelf {
			c.Errs.AddType(n.Pos, "cannot assign to self")
			targetType = vtypes.ErrorType
		} else {
			targetType = bnd.typ
			localSlot = bnd.slot
		}
	} else if c.curSelf != nil {
		if f, found := c.curSelf.class.FieldsTable[n.Name]; found {
			ft, _ := c.resolveTypeName(f.Typ)
			targetType = ft
			if !f.UnitSlot {
				selfBnd, _ := c.lookup("self")
				fieldAddr = cur.NewGetElementPtr(c.curSelf.structType, selfBnd.slot, idx32(0), idx32(f.Index))
			}
		}
	}
	if targetType == nil {
		c.Errs.AddType(n.Pos, "undeclared identifier %s", n.Name)
		targetType = vtypes.ErrorType
	}

	var val value.Value
	val, cur = c.checkAndEmit(n.Value, cur)
	valType := exprType(n.Value)
	if targetType.Kind != vtypes.Error {
		if !c.conforms(valType, targetType) {
			c.Errs.AddType(n.Value.Position(), "value assigned to %s has incompatible type", n.Name)
		} else {
			val = c.widen(cur, val, valType, targetType)
		}
	}

	if localSlot != nil && targetType.Kind != vtypes.Unit {
		cur.NewStore(val, localSlot)
	} else if fieldAddr != nil {
		cur.NewStore(val, fieldAddr)
	}

	n.SetType(targetType)
	return val, cur
}

func (c *Context) emitUnary(n *ast.Unary, b *ir.Block) (value.Value, *ir.Block) {
	val, cur := c.checkAndEmit(n.Value, b)
	vt := exprType(n.Value)

	switch n.Op {
	case ast.NOT:
		if vt.Kind != vtypes.Bool {
			c.Errs.AddType(n.Pos, "not expects a bool operand")
		}
		n.SetType(vtypes.Primitive(vtypes.Bool))
		return cur.NewXor(val, constant.NewBool(true)), cur
	case ast.UMINUS:
		if !vtypes.NumericKind(vt.Kind) {
			c.Errs.AddType(n.Pos, "unary minus expects a numeric operand")
			n.SetType(vtypes.ErrorType)
			return constant.NewInt(lt.I32, 0), cur
		}
		n.SetType(vt)
		if vt.Kind == vtypes.Double {
			return cur.NewFSub(constant.NewFloat(lt.Double, 0), val), cur
		}
		return cur.NewSub(constant.NewInt(lt.I32, 0), val), cur
	case ast.ISNULL:
		if vt.Kind != vtypes.ClassType {
			c.Errs.AddType(n.Pos, "isnull expects a class-typed operand")
		}
		n.SetType(vtypes.Primitive(vtypes.Bool))
		nullC := constant.NewNull(val.Type().(*lt.PointerType))
		return cur.NewICmp(enum.IPredEQ, val, nullC), cur
	}
	panic("emit: unhandled unary operator")
}

func (c *Context) emitBinary(n *ast.Binary, b *ir.Block) (value.Value, *ir.Block) {
	switch n.Op {
	case ast.AND:
		return c.emitAnd(n, b)
	case ast.OR:
		return c.emitOr(n, b)
	case ast.NEQ:
		return c.emitNeq(n, b)
	case ast.EQ:
		lval, lb := c.checkAndEmit(n.Left, b)
		rval, rb := c.checkAndEmit(n.Right, lb)
		return c.emitEquality(n, lval, rval, exprType(n.Left), exprType(n.Right), rb)
	default:
		return c.emitArithmetic(n, b)
	}
}

// emitAnd desugars AND to if l then r else false (spec.md §4.5, "Binary").
func (c *Context) emitAnd(n *ast.Binary, b *ir.Block) (value.Value, *ir.Block) {
	lval, lb := c.checkAndEmit(n.Left, b)
	if exprType(n.Left).Kind != vtypes.Bool {
		c.Errs.AddType(n.Left.Position(), "and expects bool operands")
	}
	fn := lb.Parent
	rhsBlock := fn.NewBlock("")
	rval, rEnd := c.checkAndEmit(n.Right, rhsBlock)
	if exprType(n.Right).Kind != vtypes.Bool {
		c.Errs.AddType(n.Right.Position(), "and expects bool operands")
	}
	falseBlock := fn.NewBlock("")
	merge := fn.NewBlock("")
	lb.NewCondBr(lval, rhsBlock, falseBlock)
	rEnd.NewBr(merge)
	falseBlock.NewBr(merge)
	n.SetType(vtypes.Primitive(vtypes.Bool))
	phi := merge.NewPhi(ir.NewIncoming(rval, rEnd), ir.NewIncoming(constant.NewBool(false), falseBlock))
	return phi, merge
}

// emitOr desugars OR to if l then true else r.
func (c *Context) emitOr(n *ast.Binary, b *ir.Block) (value.Value, *ir.Block) {
	lval, lb := c.checkAndEmit(n.Left, b)
	if exprType(n.Left).Kind != vtypes.Bool {
		c.Errs.AddType(n.Left.Position(), "or expects bool operands")
	}
	fn := lb.Parent
	trueBlock := fn.NewBlock("")
	rhsBlock := fn.NewBlock("")
	rval, rEnd := c.checkAndEmit(n.Right, rhsBlock)
	if exprType(n.Right).Kind != vtypes.Bool {
		c.Errs.AddType(n.Right.Position(), "or expects bool operands")
	}
	merge := fn.NewBlock("")
	lb.NewCondBr(lval, trueBlock, rhsBlock)
	trueBlock.NewBr(merge)
	rEnd.NewBr(merge)
	n.SetType(vtypes.Primitive(vtypes.Bool))
	phi := merge.NewPhi(ir.NewIncoming(constant.NewBool(true), trueBlock), ir.NewIncoming(rval, rEnd))
	return phi, merge
}

// emitNeq desugars NEQ to NOT(EQ l r).
func (c *Context) emitNeq(n *ast.Binary, b *ir.Block) (value.Value, *ir.Block) {
	eq := ast.NewBinary(n.Pos, ast.EQ, n.Left, n.Right)
	eqVal, eqEnd := c.checkAndEmit(eq, b)
	n.SetType(vtypes.Primitive(vtypes.Bool))
	return eqEnd.NewXor(eqVal, constant.NewBool(true)), eqEnd
}

// emitEquality implements spec.md §4.5's EQ admissibility table: primitives
// by identity/strcmp, numeric pairs via widening, class pairs by bitcasting
// both sides to their LUB and comparing pointers (including null==null —
// see DESIGN.md's Open Question decision on this), unit/unit always true.
func (c *Context) emitEquality(n *ast.Binary, lval, rval value.Value, lt_, rt_ *vtypes.Type, b *ir.Block) (value.Value, *ir.Block) {
	n.SetType(vtypes.Primitive(vtypes.Bool))

	if lt_.Kind == vtypes.Unit && rt_.Kind == vtypes.Unit {
		return constant.NewBool(true), b
	}
	if lt_.Kind == vtypes.String && rt_.Kind == vtypes.String {
		cmp := b.NewCall(c.strcmpFn, lval, rval)
		return b.NewICmp(enum.IPredEQ, cmp, constant.NewInt(lt.I32, 0)), b
	}
	if lt_.Kind == vtypes.Bool && rt_.Kind == vtypes.Bool {
		return b.NewICmp(enum.IPredEQ, lval, rval), b
	}
	if vtypes.NumericKind(lt_.Kind) && vtypes.NumericKind(rt_.Kind) {
		wide := vtypes.Primitive(vtypes.Int32)
		if lt_.Kind == vtypes.Double || rt_.Kind == vtypes.Double {
			wide = vtypes.Primitive(vtypes.Double)
		}
		lv := c.widen(b, lval, lt_, wide)
		rv := c.widen(b, rval, rt_, wide)
		if wide.Kind == vtypes.Double {
			return b.NewFCmp(enum.FPredOEQ, lv, rv), b
		}
		return b.NewICmp(enum.IPredEQ, lv, rv), b
	}
	if lt_.Kind == vtypes.ClassType && rt_.Kind == vtypes.ClassType {
		lub, ok := vtypes.LUB(lt_, rt_, c.Dialect == lexer.Extended)
		if !ok {
			c.Errs.AddType(n.Pos, "uncomparable class types")
			n.SetType(vtypes.ErrorType)
			return constant.NewBool(false), b
		}
		lubPtr := c.llvmType(lub)
		lv := b.NewBitCast(lval, lubPtr)
		rv := b.NewBitCast(rval, lubPtr)
		return b.NewICmp(enum.IPredEQ, lv, rv), b
	}

	c.Errs.AddType(n.Pos, "= is not defined between these types")
	n.SetType(vtypes.ErrorType)
	return constant.NewBool(false), b
}

// emitArithmetic handles <, <=, >, >=, +, -, *, /, ^, mod over int32/int32
// or (extended) a numeric pair widened to double (spec.md §4.5, "Binary";
// §4.6, "Numeric widening").
func (c *Context) emitArithmetic(n *ast.Binary, b *ir.Block) (value.Value, *ir.Block) {
	lval, lb := c.checkAndEmit(n.Left, b)
	rval, rb := c.checkAndEmit(n.Right, lb)
	lt_, rt_ := exprType(n.Left), exprType(n.Right)

	if !vtypes.NumericKind(lt_.Kind) || !vtypes.NumericKind(rt_.Kind) {
		c.Errs.AddType(n.Pos, "operator %s requires numeric operands", n.Op)
		n.SetType(vtypes.ErrorType)
		return constant.NewInt(lt.I32, 0), rb
	}

	wide := vtypes.Primitive(vtypes.Int32)
	if lt_.Kind == vtypes.Double || rt_.Kind == vtypes.Double {
		if c.Dialect != lexer.Extended {
			c.Errs.AddType(n.Pos, "double operands require the extended dialect")
		}
		wide = vtypes.Primitive(vtypes.Double)
	}
	lv := c.widen(rb, lval, lt_, wide)
	rv := c.widen(rb, rval, rt_, wide)
	isDouble := wide.Kind == vtypes.Double

	switch n.Op {
	case ast.LT:
		n.SetType(vtypes.Primitive(vtypes.Bool))
		if isDouble {
			return rb.NewFCmp(enum.FPredOLT, lv, rv), rb
		}
		return rb.NewICmp(enum.IPredSLT, lv, rv), rb
	case ast.LE:
		n.SetType(vtypes.Primitive(vtypes.Bool))
		if isDouble {
			return rb.NewFCmp(enum.FPredOLE, lv, rv), rb
		}
		return rb.NewICmp(enum.IPredSLE, lv, rv), rb
	case ast.GT:
		n.SetType(vtypes.Primitive(vtypes.Bool))
		if isDouble {
			return rb.NewFCmp(enum.FPredOGT, lv, rv), rb
		}
		return rb.NewICmp(enum.IPredSGT, lv, rv), rb
	case ast.GE:
		n.SetType(vtypes.Primitive(vtypes.Bool))
		if isDouble {
			return rb.NewFCmp(enum.FPredOGE, lv, rv), rb
		}
		return rb.NewICmp(enum.IPredSGE, lv, rv), rb
	case ast.PLUS:
		n.SetType(wide)
		if isDouble {
			return rb.NewFAdd(lv, rv), rb
		}
		return rb.NewAdd(lv, rv), rb
	case ast.MINUS:
		n.SetType(wide)
		if isDouble {
			return rb.NewFSub(lv, rv), rb
		}
		return rb.NewSub(lv, rv), rb
	case ast.TIMES:
		n.SetType(wide)
		if isDouble {
			return rb.NewFMul(lv, rv), rb
		}
		return rb.NewMul(lv, rv), rb
	case ast.DIV:
		n.SetType(wide)
		if isDouble {
			return rb.NewFDiv(lv, rv), rb
		}
		return rb.NewSDiv(lv, rv), rb
	case ast.MOD:
		n.SetType(wide)
		if isDouble {
			return rb.NewFRem(lv, rv), rb
		}
		return rb.NewSRem(lv, rv), rb
	case ast.POW:
		n.SetType(wide)
		dl, dr := lv, rv
		if !isDouble {
			dl = rb.NewSIToFP(lv, lt.Double)
			dr = rb.NewSIToFP(rv, lt.Double)
		}
		result := rb.NewCall(c.powFn, dl, dr)
		if !isDouble {
			return rb.NewFPToSI(result, lt.I32), rb
		}
		return result, rb
	}
	panic("emit: unhandled binary operator")
}

func (c *Context) emitIdentifier(n *ast.Identifier, b *ir.Block) (value.Value, *ir.Block) {
	if n.Name == "self" {
		bnd, ok := c.lookup("self")
		if !ok {
			c.Errs.AddType(n.Pos, "self is not in scope here")
			n.SetType(vtypes.ErrorType)
			return constant.NewNull(lt.I8Ptr), b
		}
		n.SetType(bnd.typ)
		return bnd.slot, b
	}

	if bnd, ok := c.lookup(n.Name); ok {
		n.SetType(bnd.typ)
		if bnd.typ.Kind == vtypes.Unit {
			return nil, b
		}
		return b.NewLoad(c.llvmType(bnd.typ), bnd.slot), b
	}

	if c.curSelf != nil {
		if f, ok := c.curSelf.class.FieldsTable[n.Name]; ok {
			ft, _ := c.resolveTypeName(f.Typ)
			n.SetType(ft)
			if f.UnitSlot {
				return nil, b
			}
			selfBnd, _ := c.lookup("self")
			addr := b.NewGetElementPtr(c.curSelf.structType, selfBnd.slot, idx32(0), idx32(f.Index))
			return b.NewLoad(c.llvmType(ft), addr), b
		}
	}

	c.Errs.AddType(n.Pos, "undeclared identifier %s", n.Name)
	n.SetType(vtypes.ErrorType)
	return constant.NewInt(lt.I32, 0), b
}

func (c *Context) emitNew(n *ast.New, b *ir.Block) (value.Value, *ir.Block) {
	astClass, ok := c.Resolved.ClassByName[n.TypeName]
	if !ok {
		c.Errs.AddType(n.Pos, "unknown class %s", n.TypeName)
		n.SetType(vtypes.ErrorType)
		return constant.NewNull(lt.I8Ptr), b
	}
	ct := vtypes.OfClass(c.Resolved.TypeOf[astClass])
	n.SetType(ct)
	layout := c.layoutOf(ct.Class)
	return b.NewCall(layout.newFunc), b
}

// emitCall dispatches a method through the vtable (scope of class type, or
// an implicit self when scope is bare and self is in scope), or — extended
// dialect — calls a top-level function directly when a bare name has no
// enclosing self or is not a method of self's class (spec.md §4.5, "Call").
func (c *Context) emitCall(n *ast.Call, b *ir.Block) (value.Value, *ir.Block) {
	cur := b
	var selfType *vtypes.Type
	var selfVal value.Value
	var method *ast.Method
	var directFunc *ir.Func

	switch {
	case n.Scope != nil:
		var sv value.Value
		sv, cur = c.checkAndEmit(n.Scope, cur)
		st := exprType(n.Scope)
		if st.Kind != vtypes.ClassType {
			c.Errs.AddType(n.Pos, "cannot call a method on a non-object")
			return c.bailCall(n, cur)
		}
		selfType, selfVal = st, sv
		astClass := c.Resolved.ClassByName[st.Class.Name]
		m, ok := astClass.MethodsTable[n.Name]
		if !ok {
			c.Errs.AddType(n.Pos, "class %s has no method %s", st.Class.Name, n.Name)
			return c.bailCall(n, cur)
		}
		method = m

	case c.curSelf != nil:
		if m, ok := c.curSelf.class.MethodsTable[n.Name]; ok {
			method = m
			selfType = vtypes.OfClass(c.Resolved.TypeOf[c.curSelf.class])
			selfBnd, _ := c.lookup("self")
			selfVal = selfBnd.slot
			break
		}
		fallthrough

	default:
		if c.Dialect == lexer.Extended {
			if fn, ok := c.funcByName[n.Name]; ok {
				directFunc = fn
				method = c.Resolved.Program.FunctionsTable[n.Name]
			}
		}
	}

	if method == nil {
		c.Errs.AddType(n.Pos, "undeclared method or function %s", n.Name)
		return c.bailCall(n, cur)
	}

	argVals := make([]value.Value, 0, len(n.Args))
	for i, a := range n.Args {
		var av value.Value
		av, cur = c.checkAndEmit(a, cur)
		at := exprType(a)
		switch {
		case i < len(method.Formals):
			ft, _ := c.resolveTypeName(method.Formals[i].Typ)
			if !c.conforms(at, ft) {
				c.Errs.AddType(a.Position(), "argument %d to %s has incompatible type", i+1, n.Name)
			} else {
				av = c.widen(cur, av, at, ft)
			}
		case !method.Variadic:
			c.Errs.AddType(a.Position(), "too many arguments to %s", n.Name)
		}
		argVals = append(argVals, av)
	}
	if len(n.Args) < len(method.Formals) {
		c.Errs.AddType(n.Pos, "too few arguments to %s", n.Name)
	}

	retType, ok := c.resolveTypeName(method.ReturnType)
	if !ok {
		retType = vtypes.ErrorType
	}
	n.SetType(retType)

	if directFunc != nil {
		result := cur.NewCall(directFunc, argVals...)
		if retType.Kind == vtypes.Unit {
			return nil, cur
		}
		return result, cur
	}

	layout := c.layoutOf(selfType.Class)
	slot0 := cur.NewGetElementPtr(layout.structType, selfVal, idx32(0), idx32(0))
	vtablePtr := cur.NewLoad(vtablePtrType, slot0)
	entryAddr := cur.NewGetElementPtr(lt.I8Ptr, vtablePtr, constant.NewInt(lt.I64, int64(method.Slot)))
	fnGeneric := cur.NewLoad(lt.I8Ptr, entryAddr)
	fnTyped := cur.NewBitCast(fnGeneric, lt.NewPointer(c.methodFuncType(method)))
	selfGeneric := cur.NewBitCast(selfVal, lt.I8Ptr)
	callArgs := append([]value.Value{selfGeneric}, argVals...)
	result := cur.NewCall(fnTyped, callArgs...)
	if retType.Kind == vtypes.Unit {
		return nil, cur
	}
	return result, cur
}

// bailCall still emits every argument (for its side effects and further
// diagnostics) after a call has already been diagnosed as unresolvable, so
// a single pass surfaces as many errors as possible (spec.md §7).
func (c *Context) bailCall(n *ast.Call, b *ir.Block) (value.Value, *ir.Block) {
	cur := b
	for _, a := range n.Args {
		_, cur = c.checkAndEmit(a, cur)
	}
	n.SetType(vtypes.ErrorType)
	return constant.NewInt(lt.I32, 0), cur
}
