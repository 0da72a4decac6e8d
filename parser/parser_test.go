package parser

import (
	"strings"
	"testing"

	"github.com/vsop-lang/vsopc/lexer"
)

func parse(t *testing.T, src string, dialect lexer.Dialect) string {
	t.Helper()
	p := New(src, "test", dialect)
	prog, err := p.Parse()
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return prog.Dump()
}

func TestParseMinimalMain(t *testing.T) {
	dump := parse(t, `class Main { main() : int32 { 0 } }`, lexer.Base)
	want := "Class(Main,Object,[],Method(main,[],int32,0))"
	if dump != want {
		t.Fatalf("got %q, want %q", dump, want)
	}
}

func TestParseFieldWithInitializer(t *testing.T) {
	dump := parse(t, `class A { x : int32 <- 5 } class Main { main() : int32 { (new A).x } }`, lexer.Base)
	if !strings.Contains(dump, "Field(x,int32,5)") {
		t.Fatalf("expected a Field dump, got %q", dump)
	}
	if !strings.Contains(dump, "Call(New(A),x,[])") {
		t.Fatalf("expected a field-access call, got %q", dump)
	}
}

func TestParseIfElse(t *testing.T) {
	dump := parse(t, `class Main { main() : int32 { if true then 1 else 2 } }`, lexer.Base)
	if !strings.Contains(dump, "If(true,1,2)") {
		t.Fatalf("got %q", dump)
	}
}

func TestParseExtendedFor(t *testing.T) {
	dump := parse(t, `class Main { main() : int32 { for i <- 0 to 10 do i } }`, lexer.Extended)
	if !strings.Contains(dump, "For(i,0,10,i") {
		t.Fatalf("got %q", dump)
	}
}

func TestParseExtendsAndMultipleClasses(t *testing.T) {
	dump := parse(t, `class Main extends Main { main() : int32 { 0 } }`, lexer.Base)
	if !strings.Contains(dump, "Class(Main,Main,") {
		t.Fatalf("got %q", dump)
	}
}

func TestSyntaxErrorOnMismatchedToken(t *testing.T) {
	p := New(`class Main { main( : int32 { 0 } }`, "test", lexer.Base)
	_, err := p.Parse()
	if err == nil {
		t.Fatalf("expected a syntax error")
	}
}
