package emit

import (
	"strings"
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	lt "github.com/llir/llvm/ir/types"

	"github.com/vsop-lang/vsopc/ast"
	"github.com/vsop-lang/vsopc/errors"
	"github.com/vsop-lang/vsopc/lexer"
	"github.com/vsop-lang/vsopc/parser"
	"github.com/vsop-lang/vsopc/resolver"
	vtypes "github.com/vsop-lang/vsopc/types"
)

func compile(t *testing.T, source string) (*ir.Module, *errors.Collector) {
	t.Helper()
	p := parser.New(source, "test", lexer.Base)
	prog, err := p.Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	errs := &errors.Collector{}
	resolved := resolver.Run(prog, errs)
	if errs.HasErrors() {
		t.Fatalf("unexpected resolution errors: %v", errs.Diagnostics())
	}

	module := Emit(resolved, lexer.Base, errs)
	return module, errs
}

const trivialMain = `
class Main {
    main() : int32 { 0 }
}
`

func TestEmitBuildsNewAndInitFunctionsForEveryClass(t *testing.T) {
	module, errs := compile(t, trivialMain)
	if errs.HasErrors() {
		t.Fatalf("unexpected emission errors: %v", errs.Diagnostics())
	}

	names := map[string]bool{}
	for _, fn := range module.Funcs {
		names[fn.Name()] = true
	}
	for _, want := range []string{"Main_init", "Main_new", "Main_main"} {
		if !names[want] {
			t.Fatalf("expected a function named %s, got %v", want, names)
		}
	}
}

func TestEmitSynthesizesEntryPoint(t *testing.T) {
	module, errs := compile(t, trivialMain)
	if errs.HasErrors() {
		t.Fatalf("unexpected emission errors: %v", errs.Diagnostics())
	}

	var mainFn *ir.Func
	for _, fn := range module.Funcs {
		if fn.Name() == "main" {
			mainFn = fn
		}
	}
	if mainFn == nil {
		t.Fatalf("expected a synthesized C main entry point")
	}
	if len(mainFn.Blocks) == 0 {
		t.Fatalf("expected the synthesized main to have a body")
	}
}

func TestDefaultValueOfStringIsEmptyStringNotNull(t *testing.T) {
	errs := &errors.Collector{}
	c := newContext(&resolver.Resolved{ClassByName: map[string]*ast.Class{}}, lexer.Base, errs)
	fn := c.Module.NewFunc("f", lt.Void)
	entry := fn.NewBlock("")

	val := c.defaultValue(entry, vtypes.Primitive(vtypes.String))

	gep, ok := val.(*ir.InstGetElementPtr)
	if !ok {
		t.Fatalf("expected a getelementptr into an empty string global, got %T (%v)", val, val)
	}
	g, ok := gep.Src.(*ir.Global)
	if !ok {
		t.Fatalf("expected the GEP source to be a global, got %T", gep.Src)
	}
	arr, ok := g.Init.(*constant.CharArray)
	if !ok {
		t.Fatalf("expected the global initializer to be a char array, got %T", g.Init)
	}
	if string(arr.X) != "\x00" {
		t.Fatalf("expected an empty NUL-terminated string, got %q", arr.X)
	}
}

func TestEmitWithFieldAndOverride(t *testing.T) {
	source := `
class Counter {
    count : int32 <- 0;
    bump() : int32 { count <- count + 1 }
}
class LoudCounter extends Counter {
    bump() : int32 { count <- count + 2 }
}
class Main {
    main() : int32 {
        let c : Counter <- new LoudCounter in
            c.bump()
    }
}
`
	module, errs := compile(t, source)
	if errs.HasErrors() {
		t.Fatalf("unexpected emission errors: %v", errs.Diagnostics())
	}

	text := module.String()
	for _, want := range []string{"Counter_new", "LoudCounter_new", "LoudCounter_bump", "Counter_bump"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected generated IR to mention %s", want)
		}
	}
}
