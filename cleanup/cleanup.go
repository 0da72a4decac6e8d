// Package cleanup runs the IR clean-up pass driver (spec.md §4.7): once the
// emitter has lowered a whole module, four passes run once each, in order,
// over every function — instruction combining, reassociation, global value
// numbering, CFG simplification — followed by a structural verification
// pass. llir/llvm ships no optimizer of its own, so every pass here is
// hand-rolled against the small set of instruction kinds the emitter
// actually produces (see emit/expr.go, emit/construct.go).
package cleanup

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/value"

	"github.com/vsop-lang/vsopc/errors"
	"github.com/vsop-lang/vsopc/token"
)

// Run executes the clean-up driver over every defined function in m (a
// function with no blocks is an extern declaration and is left alone),
// then verifies each one. Verification failures are reported through errs
// as internal-consistency diagnostics (spec.md §7, kind 4) rather than
// panicking, so one malformed function never hides diagnostics from the
// rest of the module.
func Run(m *ir.Module, errs *errors.Collector) {
	for _, fn := range m.Funcs {
		if len(fn.Blocks) == 0 {
			continue
		}
		combineInstructions(fn)
		reassociate(fn)
		globalValueNumbering(fn)
		simplifyCFG(fn)
		verify(fn, errs)
	}
}

// asBinOp recognizes the binary integer instructions combineInstructions
// knows how to fold, returning its operands and a short opcode tag.
func asBinOp(inst ir.Instruction) (x, y value.Value, kind string, ok bool) {
	switch v := inst.(type) {
	case *ir.InstAdd:
		return v.X, v.Y, "add", true
	case *ir.InstSub:
		return v.X, v.Y, "sub", true
	case *ir.InstMul:
		return v.X, v.Y, "mul", true
	case *ir.InstXor:
		return v.X, v.Y, "xor", true
	case *ir.InstSDiv:
		return v.X, v.Y, "sdiv", true
	case *ir.InstSRem:
		return v.X, v.Y, "srem", true
	}
	return nil, nil, "", false
}

func intConst(v value.Value) (int64, bool) {
	c, ok := v.(*constant.Int)
	if !ok {
		return 0, false
	}
	return c.X.Int64(), true
}

// combineInstructions folds constant-constant arithmetic and simplifies
// operations against the identity element (x+0, x-0, x*1, x*0, x^0), so
// that later passes see fewer, simpler instructions.
func combineInstructions(fn *ir.Func) {
	for _, block := range fn.Blocks {
		kept := block.Insts[:0]
		for _, inst := range block.Insts {
			if repl, ok := foldBinOp(fn, inst); ok {
				replaceAllUses(fn, inst.(value.Value), repl)
				continue
			}
			kept = append(kept, inst)
		}
		block.Insts = kept
	}
}

func foldBinOp(fn *ir.Func, inst ir.Instruction) (value.Value, bool) {
	x, y, kind, ok := asBinOp(inst)
	if !ok {
		return nil, false
	}

	xi, xIsConst := intConst(x)
	yi, yIsConst := intConst(y)

	if xIsConst && yIsConst {
		switch kind {
		case "add":
			return constant.NewInt(x.(*constant.Int).Typ, xi+yi), true
		case "sub":
			return constant.NewInt(x.(*constant.Int).Typ, xi-yi), true
		case "mul":
			return constant.NewInt(x.(*constant.Int).Typ, xi*yi), true
		case "xor":
			return constant.NewInt(x.(*constant.Int).Typ, xi^yi), true
		}
		return nil, false
	}

	switch kind {
	case "add":
		if xIsConst && xi == 0 {
			return y, true
		}
		if yIsConst && yi == 0 {
			return x, true
		}
	case "sub":
		if yIsConst && yi == 0 {
			return x, true
		}
	case "mul":
		if xIsConst && xi == 1 {
			return y, true
		}
		if yIsConst && yi == 1 {
			return x, true
		}
		if (xIsConst && xi == 0) || (yIsConst && yi == 0) {
			zero := x
			if !xIsConst {
				zero = y
			}
			return zero, true
		}
	case "xor":
		if xIsConst && xi == 0 {
			return y, true
		}
		if yIsConst && yi == 0 {
			return x, true
		}
	}
	return nil, false
}

// reassociate canonicalizes commutative binary instructions so a constant
// operand always ends up on the right. It runs after combineInstructions,
// which checks both operand positions itself.
func reassociate(fn *ir.Func) {
	for _, block := range fn.Blocks {
		for _, inst := range block.Insts {
			switch v := inst.(type) {
			case *ir.InstAdd:
				if _, ok := v.X.(*constant.Int); ok {
					if _, ok := v.Y.(*constant.Int); !ok {
						v.X, v.Y = v.Y, v.X
					}
				}
			case *ir.InstMul:
				if _, ok := v.X.(*constant.Int); ok {
					if _, ok := v.Y.(*constant.Int); !ok {
						v.X, v.Y = v.Y, v.X
					}
				}
			case *ir.InstXor:
				if _, ok := v.X.(*constant.Int); ok {
					if _, ok := v.Y.(*constant.Int); !ok {
						v.X, v.Y = v.Y, v.X
					}
				}
			}
		}
	}
}

// globalValueNumbering performs local (per-block) common-subexpression
// elimination over the pure instruction kinds the emitter produces: two
// instructions of the same kind over identical operands, within the same
// block, compute the same value, so the later one is replaced by the
// earlier. Loads, stores, calls, and allocas are never deduplicated since
// they carry side effects or identity the emitter depends on.
func globalValueNumbering(fn *ir.Func) {
	for _, block := range fn.Blocks {
		seen := map[string]value.Value{}
		kept := block.Insts[:0]
		for _, inst := range block.Insts {
			key, ok := pureKey(inst)
			if !ok {
				kept = append(kept, inst)
				continue
			}
			if prior, dup := seen[key]; dup {
				replaceAllUses(fn, inst.(value.Value), prior)
				continue
			}
			seen[key] = inst.(value.Value)
			kept = append(kept, inst)
		}
		block.Insts = kept
	}
}

// pureKey builds a canonical string for an instruction's operation and
// operand identities, so structurally identical instructions hash equal.
func pureKey(inst ir.Instruction) (string, bool) {
	switch v := inst.(type) {
	case *ir.InstAdd:
		return fmt.Sprintf("add:%p:%p", v.X, v.Y), true
	case *ir.InstSub:
		return fmt.Sprintf("sub:%p:%p", v.X, v.Y), true
	case *ir.InstMul:
		return fmt.Sprintf("mul:%p:%p", v.X, v.Y), true
	case *ir.InstSDiv:
		return fmt.Sprintf("sdiv:%p:%p", v.X, v.Y), true
	case *ir.InstSRem:
		return fmt.Sprintf("srem:%p:%p", v.X, v.Y), true
	case *ir.InstFAdd:
		return fmt.Sprintf("fadd:%p:%p", v.X, v.Y), true
	case *ir.InstFSub:
		return fmt.Sprintf("fsub:%p:%p", v.X, v.Y), true
	case *ir.InstFMul:
		return fmt.Sprintf("fmul:%p:%p", v.X, v.Y), true
	case *ir.InstFDiv:
		return fmt.Sprintf("fdiv:%p:%p", v.X, v.Y), true
	case *ir.InstFRem:
		return fmt.Sprintf("frem:%p:%p", v.X, v.Y), true
	case *ir.InstXor:
		return fmt.Sprintf("xor:%p:%p", v.X, v.Y), true
	case *ir.InstICmp:
		return fmt.Sprintf("icmp:%v:%p:%p", v.Pred, v.X, v.Y), true
	case *ir.InstFCmp:
		return fmt.Sprintf("fcmp:%v:%p:%p", v.Pred, v.X, v.Y), true
	case *ir.InstSIToFP:
		return fmt.Sprintf("sitofp:%p", v.From), true
	case *ir.InstFPToSI:
		return fmt.Sprintf("fptosi:%p", v.From), true
	case *ir.InstBitCast:
		return fmt.Sprintf("bitcast:%p:%v", v.From, v.To), true
	case *ir.InstPtrToInt:
		return fmt.Sprintf("ptrtoint:%p", v.From), true
	}
	return "", false
}

// replaceAllUses rewrites every operand in fn that points at old to point
// at repl instead, mirroring what a use-list based optimizer would do with
// replaceAllUsesWith. Only the operand shapes the emitter actually produces
// need to be covered.
func replaceAllUses(fn *ir.Func, old, repl value.Value) {
	swap := func(v value.Value) value.Value {
		if v == old {
			return repl
		}
		return v
	}
	for _, block := range fn.Blocks {
		for _, inst := range block.Insts {
			switch v := inst.(type) {
			case *ir.InstAdd:
				v.X, v.Y = swap(v.X), swap(v.Y)
			case *ir.InstSub:
				v.X, v.Y = swap(v.X), swap(v.Y)
			case *ir.InstMul:
				v.X, v.Y = swap(v.X), swap(v.Y)
			case *ir.InstSDiv:
				v.X, v.Y = swap(v.X), swap(v.Y)
			case *ir.InstSRem:
				v.X, v.Y = swap(v.X), swap(v.Y)
			case *ir.InstFAdd:
				v.X, v.Y = swap(v.X), swap(v.Y)
			case *ir.InstFSub:
				v.X, v.Y = swap(v.X), swap(v.Y)
			case *ir.InstFMul:
				v.X, v.Y = swap(v.X), swap(v.Y)
			case *ir.InstFDiv:
				v.X, v.Y = swap(v.X), swap(v.Y)
			case *ir.InstFRem:
				v.X, v.Y = swap(v.X), swap(v.Y)
			case *ir.InstXor:
				v.X, v.Y = swap(v.X), swap(v.Y)
			case *ir.InstICmp:
				v.X, v.Y = swap(v.X), swap(v.Y)
			case *ir.InstFCmp:
				v.X, v.Y = swap(v.X), swap(v.Y)
			case *ir.InstSIToFP:
				v.From = swap(v.From)
			case *ir.InstFPToSI:
				v.From = swap(v.From)
			case *ir.InstBitCast:
				v.From = swap(v.From)
			case *ir.InstPtrToInt:
				v.From = swap(v.From)
			case *ir.InstGetElementPtr:
				v.Src = swap(v.Src)
				for i, idx := range v.Indices {
					v.Indices[i] = swap(idx)
				}
			case *ir.InstLoad:
				v.Src = swap(v.Src)
			case *ir.InstStore:
				v.Src = swap(v.Src)
				v.Dst = swap(v.Dst)
			case *ir.InstCall:
				for i, arg := range v.Args {
					v.Args[i] = swap(arg)
				}
			case *ir.InstPhi:
				for i, inc := range v.Incs {
					v.Incs[i].X = swap(inc.X)
				}
			}
		}
		switch t := block.Term.(type) {
		case *ir.TermRet:
			if t.X != nil {
				t.X = swap(t.X)
			}
		case *ir.TermCondBr:
			t.Cond = swap(t.Cond)
		}
	}
}

// simplifyCFG merges a block into its sole predecessor when that
// predecessor ends in an unconditional branch to it and nothing else
// targets it — a block reachable through exactly one unconditional edge
// carries no control-flow-merge information a phi could depend on, so it
// is always safe to splice its instructions into the predecessor directly.
func simplifyCFG(fn *ir.Func) {
	for {
		preds := predecessorCounts(fn)
		merged := false
		for i := 0; i < len(fn.Blocks); i++ {
			block := fn.Blocks[i]
			if block == fn.Blocks[0] {
				continue // never fold away the entry block
			}
			if preds[block] != 1 {
				continue
			}
			pred := soleUnconditionalPredecessor(fn, block)
			if pred == nil || hasPhi(block) {
				continue
			}
			pred.Insts = append(pred.Insts, block.Insts...)
			pred.Term = block.Term
			fn.Blocks = append(fn.Blocks[:i], fn.Blocks[i+1:]...)
			merged = true
			break
		}
		if !merged {
			return
		}
	}
}

func hasPhi(block *ir.Block) bool {
	for _, inst := range block.Insts {
		if _, ok := inst.(*ir.InstPhi); ok {
			return true
		}
	}
	return false
}

func predecessorCounts(fn *ir.Func) map[*ir.Block]int {
	counts := map[*ir.Block]int{}
	for _, block := range fn.Blocks {
		for _, succ := range successors(block) {
			counts[succ]++
		}
	}
	return counts
}

func successors(block *ir.Block) []*ir.Block {
	switch t := block.Term.(type) {
	case *ir.TermBr:
		return []*ir.Block{t.Target.(*ir.Block)}
	case *ir.TermCondBr:
		return []*ir.Block{t.TargetTrue.(*ir.Block), t.TargetFalse.(*ir.Block)}
	}
	return nil
}

func soleUnconditionalPredecessor(fn *ir.Func, block *ir.Block) *ir.Block {
	for _, candidate := range fn.Blocks {
		if t, ok := candidate.Term.(*ir.TermBr); ok && t.Target == block {
			return candidate
		}
	}
	return nil
}

// verify checks structural well-formedness: every block must end in a
// terminator, and every phi's incoming edge count must match the block's
// actual predecessor count (spec.md §4.7, §7 kind 4).
func verify(fn *ir.Func, errs *errors.Collector) {
	pos := token.Position{Filename: "<llvm>"}
	preds := predecessorCounts(fn)

	for i, block := range fn.Blocks {
		if block.Term == nil {
			errs.AddInternal(pos, "function %s: block %d has no terminator", fn.Name(), i)
			continue
		}
		for _, inst := range block.Insts {
			phi, ok := inst.(*ir.InstPhi)
			if !ok {
				continue
			}
			if len(phi.Incs) != preds[block] && block != fn.Blocks[0] {
				errs.AddInternal(pos, "function %s: phi in block %d has %d incoming values for %d predecessors",
					fn.Name(), i, len(phi.Incs), preds[block])
			}
		}
	}
}
