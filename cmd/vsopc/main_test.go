package main

import (
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/vsop-lang/vsopc/token"
)

func TestTokenDumpLineForPlainToken(t *testing.T) {
	tok := token.Token{Kind: token.Class, Location: token.Span{From: token.Position{Line: 3, Column: 7}}}
	got := tokenDumpLine(tok)
	want := "3,7,class"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestTokenDumpLineForIntegerLiteral(t *testing.T) {
	tok := token.Token{
		Kind:     token.IntegerLiteral,
		Location: token.Span{From: token.Position{Line: 1, Column: 1}},
		Value:    token.Value{Num: 42},
	}
	got := tokenDumpLine(tok)
	want := "1,1,integer-literal,42"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestTokenDumpLineForStringLiteral(t *testing.T) {
	tok := token.Token{
		Kind:     token.StringLiteral,
		Location: token.Span{From: token.Position{Line: 2, Column: 5}},
		Value:    token.Value{Str: "hello"},
	}
	got := tokenDumpLine(tok)
	want := "2,5,string-literal,hello"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestTokenDumpLineForObjectIdentifier(t *testing.T) {
	tok := token.Token{
		Kind:     token.ObjectIdentifier,
		Location: token.Span{From: token.Position{Line: 4, Column: 2}},
		Value:    token.Value{Str: "x"},
	}
	got := tokenDumpLine(tok)
	want := "4,2,object-identifier,x"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func stageCountFlags(names ...string) *cli.App {
	var flags []cli.Flag
	for _, name := range []string{"lex", "parse", "check", "llvm"} {
		flags = append(flags, &cli.BoolFlag{Name: name})
	}
	return &cli.App{Flags: flags}
}

func TestStageCountAllowsAtMostOneStageFlag(t *testing.T) {
	cases := []struct {
		args []string
		want int
	}{
		{[]string{"vsopc"}, 0},
		{[]string{"vsopc", "-lex"}, 1},
		{[]string{"vsopc", "-parse"}, 1},
		{[]string{"vsopc", "-lex", "-check"}, 2},
		{[]string{"vsopc", "-lex", "-parse", "-check", "-llvm"}, 4},
	}
	for _, tc := range cases {
		app := stageCountFlags()
		var got int
		app.Action = func(c *cli.Context) error {
			got = stageCount(c)
			return nil
		}
		if err := app.Run(tc.args); err != nil {
			t.Fatalf("app.Run(%v): %v", tc.args, err)
		}
		if got != tc.want {
			t.Fatalf("stageCount(%v) = %d, want %d", tc.args, got, tc.want)
		}
	}
}
