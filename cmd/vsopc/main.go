// Command vsopc is the VSOP compiler driver (spec.md §6): it runs the
// lexer, parser, resolver, type-checker/emitter, and clean-up pass driver
// in sequence, with mutually exclusive stage flags that cut the pipeline
// short for tooling (token dumps, AST dumps, IR text).
package main

import (
	"fmt"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/alecthomas/repr"
	"github.com/urfave/cli/v2"
	"github.com/ztrue/tracerr"

	"github.com/vsop-lang/vsopc/cleanup"
	"github.com/vsop-lang/vsopc/config"
	"github.com/vsop-lang/vsopc/emit"
	"github.com/vsop-lang/vsopc/errors"
	"github.com/vsop-lang/vsopc/introspect"
	"github.com/vsop-lang/vsopc/lexer"
	"github.com/vsop-lang/vsopc/parser"
	"github.com/vsop-lang/vsopc/resolver"
	"github.com/vsop-lang/vsopc/token"
)

func main() {
	app := &cli.App{
		Name:  "vsopc",
		Usage: "VSOP compiler",
		ExitErrHandler: func(c *cli.Context, err error) {
			tracerr.PrintSourceColor(tracerr.Wrap(err))
			os.Exit(1)
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "lex", Usage: "emit tokens and stop"},
			&cli.BoolFlag{Name: "parse", Usage: "emit the untyped AST dump and stop"},
			&cli.BoolFlag{Name: "check", Usage: "emit the typed AST dump and stop"},
			&cli.BoolFlag{Name: "llvm", Usage: "emit IR text and stop"},
			&cli.BoolFlag{Name: "ext", Usage: "enable the extended dialect"},
			&cli.BoolFlag{Name: "nopt", Usage: "skip the clean-up pass driver"},
			&cli.BoolFlag{Name: "repr", Usage: "pretty-print resolver tables for debugging"},
			&cli.StringFlag{Name: "o", Usage: "output path (defaults to the input path with its extension stripped)"},
		},
		Action: runCompile,
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "write a fresh vsop.yaml in the current directory",
				Action: func(c *cli.Context) error {
					name := c.Args().First()
					if name == "" {
						return fmt.Errorf("vsopc init: no package name provided")
					}
					return config.Init(".", name)
				},
			},
			{
				Name:  "introspect",
				Usage: "read the __vsop_types metadata out of a compiled artifact",
				Action: func(c *cli.Context) error {
					path := c.Args().First()
					if path == "" {
						return fmt.Errorf("vsopc introspect: no file provided")
					}
					info, err := introspect.ReadFromFile(path)
					if err != nil {
						return err
					}
					repr.Println(info)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		tracerr.PrintSourceColor(tracerr.Wrap(err))
		os.Exit(1)
	}
}

func stageCount(c *cli.Context) int {
	n := 0
	for _, name := range []string{"lex", "parse", "check", "llvm"} {
		if c.Bool(name) {
			n++
		}
	}
	return n
}

func runCompile(c *cli.Context) error {
	if stageCount(c) > 1 {
		return fmt.Errorf("vsopc: -lex, -parse, -check, -llvm are mutually exclusive")
	}

	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("vsopc: no input file provided")
	}

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return tracerr.Wrap(err)
	}

	proj, err := config.Load(filepath.Dir(path))
	if err != nil {
		return tracerr.Wrap(err)
	}

	dialect := lexer.Base
	if c.Bool("ext") || (proj != nil && proj.Extended) {
		dialect = lexer.Extended
	}

	errs := &errors.Collector{}
	source := string(data)

	if c.Bool("lex") {
		dumpTokens(source, path, dialect)
		os.Exit(0)
	}

	p := parser.New(source, path, dialect)
	prog, err := p.Parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	if c.Bool("parse") {
		fmt.Println(prog.Dump())
		os.Exit(0)
	}

	resolved := resolver.Run(prog, errs)
	if c.Bool("repr") {
		repr.Println(resolved)
	}

	module := emit.Emit(resolved, dialect, errs)

	if !c.Bool("nopt") {
		cleanup.Run(module, errs)
	}

	if c.Bool("check") {
		fmt.Println(prog.Dump())
		printDiagnostics(errs)
		os.Exit(errs.Count())
	}

	if c.Bool("llvm") {
		fmt.Println(module.String())
		printDiagnostics(errs)
		os.Exit(errs.Count())
	}

	printDiagnostics(errs)
	if errs.HasErrors() {
		os.Exit(errs.Count())
	}

	info := introspect.Build(resolved)
	if err := introspect.Embed(info, module); err != nil {
		return tracerr.Wrap(err)
	}

	out := c.String("o")
	if out == "" && proj != nil {
		out = proj.Output
	}
	if out == "" {
		out = strings.TrimSuffix(path, filepath.Ext(path))
	}

	if err := link(module.String(), out, proj); err != nil {
		return tracerr.Wrap(err)
	}
	os.Exit(0)
	return nil
}

// link shells out to clang, matching the teacher's own build stage: the
// generated IR text is written to a temp file and linked with whatever
// runtime object and extra libraries the project configures.
func link(ir, out string, proj *config.Project) error {
	fi, err := ioutil.TempFile("", "*.ll")
	if err != nil {
		return err
	}
	defer os.Remove(fi.Name())
	defer fi.Close()
	if _, err := fi.WriteString(ir); err != nil {
		return err
	}

	args := []string{"-o", out, fi.Name()}
	runtimeObj := "runtime.o"
	if proj != nil && proj.RuntimeOf != "" {
		runtimeObj = proj.RuntimeOf
	}
	args = append(args, runtimeObj)
	if proj != nil {
		args = append(args, proj.LinkLibs...)
	}

	cmd := exec.Command("clang", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func dumpTokens(source, path string, dialect lexer.Dialect) {
	l := lexer.New(source, path, dialect)
	for {
		tok, err := l.Next()
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		fmt.Println(tokenDumpLine(tok))
		if tok.Kind == token.EOF {
			return
		}
	}
}

func tokenDumpLine(tok token.Token) string {
	line := fmt.Sprintf("%d,%d,%s", tok.Location.From.Line, tok.Location.From.Column, tok.Kind)
	switch tok.Kind {
	case token.IntegerLiteral:
		return fmt.Sprintf("%s,%d", line, tok.Value.Num)
	case token.StringLiteral, token.TypeIdentifier, token.ObjectIdentifier:
		return fmt.Sprintf("%s,%s", line, tok.Value.Str)
	default:
		return line
	}
}

func printDiagnostics(errs *errors.Collector) {
	for _, d := range errs.Diagnostics() {
		fmt.Fprintln(os.Stderr, d.Error())
	}
}
