// Package parser is a hand-written recursive-descent bridge from the
// lexer's token stream to ast.Program. A generated grammar is explicitly
// out of scope (spec.md); original_source itself has no generated-grammar
// artifact either — its own bnf.cpp/ast.cpp glue is hand-written dispatch
// code, so this package follows that same idiom in Go.
package parser

import (
	"fmt"

	"github.com/vsop-lang/vsopc/ast"
	"github.com/vsop-lang/vsopc/lexer"
	"github.com/vsop-lang/vsopc/token"
)

// SyntaxError is panicked on an unexpected token and recovered at the top
// of Parse, where it becomes the sole structural diagnostic for the run —
// a recursive-descent parser cannot generally keep making sense of the
// token stream once one expectation fails.
type SyntaxError struct {
	Pos token.Position
	Msg string
}

func (e *SyntaxError) Error() string { return e.Pos.String() + ": " + e.Msg }

type Parser struct {
	lex      *lexer.Lexer
	dialect  lexer.Dialect
}

func New(source, filename string, dialect lexer.Dialect) *Parser {
	return &Parser{lex: lexer.New(source, filename, dialect), dialect: dialect}
}

// Parse runs the whole grammar and recovers a SyntaxError (or a lexical
// error surfaced by the lexer) into the returned error.
func (p *Parser) Parse() (prog *ast.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			panic(r)
		}
	}()
	return p.parseProgram(), nil
}

func (p *Parser) extended() bool { return p.dialect == lexer.Extended }

func (p *Parser) next() token.Token {
	t, err := p.lex.Next()
	if err != nil {
		panic(err)
	}
	return t
}

func (p *Parser) peek() token.Token {
	t, err := p.lex.Peek()
	if err != nil {
		panic(err)
	}
	return t
}

func (p *Parser) peekIs(kinds ...token.Kind) bool {
	t := p.peek()
	for _, k := range kinds {
		if t.Kind == k {
			return true
		}
	}
	return false
}

func (p *Parser) expect(kind token.Kind) token.Token {
	t := p.next()
	if t.Kind != kind {
		panic(&SyntaxError{Pos: t.Location.From, Msg: fmt.Sprintf("expected %s, got %s", kind, t.Kind)})
	}
	return t
}

// ---- Program / Class / Method / Field ----

func (p *Parser) parseProgram() *ast.Program {
	prog := &ast.Program{}
	for !p.peekIs(token.EOF) {
		switch {
		case p.peekIs(token.Class):
			prog.Classes = append(prog.Classes, p.parseClass())
		case p.extended() && p.peekIs(token.ObjectIdentifier):
			prog.Functions = append(prog.Functions, p.parseMethod(nil))
		default:
			t := p.peek()
			panic(&SyntaxError{Pos: t.Location.From, Msg: "expected a class or function declaration"})
		}
	}
	return prog
}

func (p *Parser) parseClass() *ast.Class {
	kw := p.expect(token.Class)
	name := p.expect(token.TypeIdentifier)
	c := &ast.Class{Pos: kw.Location.From, Name: name.Value.Str, ParentName: "Object"}

	if p.peekIs(token.Extends) {
		p.next()
		parent := p.expect(token.TypeIdentifier)
		c.ParentName = parent.Value.Str
	}

	p.expect(token.LBrace)
	for !p.peekIs(token.RBrace) {
		name := p.expect(token.ObjectIdentifier)
		if p.peekIs(token.LParen) {
			c.Methods = append(c.Methods, p.parseMethodBody(name, c))
		} else {
			c.Fields = append(c.Fields, p.parseFieldBody(name))
		}
	}
	p.expect(token.RBrace)
	return c
}

func (p *Parser) parseFieldBody(name token.Token) *ast.Field {
	p.expect(token.Colon)
	typ := p.parseTypeName()
	f := &ast.Field{Pos: name.Location.From, Name: name.Value.Str, Typ: typ}
	if p.peekIs(token.Assign) {
		p.next()
		f.Init = p.parseExpr()
	}
	if !p.peekIs(token.RBrace) {
		p.expect(token.Semicolon)
	}
	return f
}

func (p *Parser) parseMethod(owner *ast.Class) *ast.Method {
	name := p.expect(token.ObjectIdentifier)
	return p.parseMethodBody(name, owner)
}

func (p *Parser) parseMethodBody(name token.Token, owner *ast.Class) *ast.Method {
	m := &ast.Method{Pos: name.Location.From, Name: name.Value.Str}
	p.expect(token.LParen)
	for !p.peekIs(token.RParen) {
		if p.extended() && p.peekIs(token.Dot) {
			// "..." variadic tail, extended dialect only.
			p.next()
			p.next()
			p.next()
			m.Variadic = true
			break
		}
		fname := p.expect(token.ObjectIdentifier)
		p.expect(token.Colon)
		ftyp := p.parseTypeName()
		m.Formals = append(m.Formals, &ast.Formal{Pos: fname.Location.From, Name: fname.Value.Str, Typ: ftyp})
		if p.peekIs(token.Comma) {
			p.next()
			continue
		}
		break
	}
	p.expect(token.RParen)
	p.expect(token.Colon)
	m.ReturnType = p.parseTypeName()

	if p.peekIs(token.LBrace) {
		m.Body = p.parseBlock()
	}
	return m
}

// parseTypeName accepts either a TypeIdentifier (class) or one of the
// lowercase primitive-type keywords (spec.md §3, "VSOP type").
func (p *Parser) parseTypeName() string {
	t := p.next()
	switch t.Kind {
	case token.TypeIdentifier:
		return t.Value.Str
	case token.Int32:
		return "int32"
	case token.Bool:
		return "bool"
	case token.String:
		return "string"
	case token.Unit:
		return "unit"
	case token.Double:
		return "double"
	default:
		panic(&SyntaxError{Pos: t.Location.From, Msg: "expected a type name, got " + t.Kind.String()})
	}
}

// ---- Expressions ----

func (p *Parser) parseBlock() ast.Expr {
	open := p.expect(token.LBrace)
	var exprs []ast.Expr
	exprs = append(exprs, p.parseExpr())
	for p.peekIs(token.Semicolon) {
		p.next()
		exprs = append(exprs, p.parseExpr())
	}
	p.expect(token.RBrace)
	if len(exprs) == 1 {
		return exprs[0]
	}
	return ast.NewBlock(open.Location.From, exprs)
}

func (p *Parser) parseExpr() ast.Expr {
	return p.parseAssign()
}

func (p *Parser) parseAssign() ast.Expr {
	if p.peekIs(token.ObjectIdentifier) {
		saved := *p.lex
		// Only object-identifier<-expr is an assignment; anything else
		// falls through to the precedence chain starting at the same
		// token, so re-parse from "or" once we know it isn't one.
		t := p.next()
		if p.peekIs(token.Assign) {
			p.next()
			value := p.parseExpr()
			return ast.NewAssign(t.Location.From, t.Value.Str, value)
		}
		*p.lex = saved
	}
	return p.parseOr()
}

func (p *Parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for p.extended() && p.peekIs(token.Or) {
		pos := p.next().Location.From
		right := p.parseAnd()
		left = ast.NewBinary(pos, ast.OR, left, right)
	}
	return left
}

// parseOrTail continues the "or"/"and" precedence chain from an
// already-parsed left operand.
func (p *Parser) parseOrTail(left ast.Expr) ast.Expr {
	left = p.parseAndTail(left)
	for p.extended() && p.peekIs(token.Or) {
		pos := p.next().Location.From
		right := p.parseAnd()
		left = ast.NewBinary(pos, ast.OR, left, right)
	}
	return left
}

func (p *Parser) parseAnd() ast.Expr {
	return p.parseAndTail(p.parseCompare())
}

func (p *Parser) parseAndTail(left ast.Expr) ast.Expr {
	for p.peekIs(token.And) {
		pos := p.next().Location.From
		right := p.parseCompare()
		left = ast.NewBinary(pos, ast.AND, left, right)
	}
	return left
}

var compareOps = map[token.Kind]ast.BinaryOp{
	token.Equal:        ast.EQ,
	token.Lower:        ast.LT,
	token.LowerEqual:   ast.LE,
	token.Greater:      ast.GT,
	token.GreaterEqual: ast.GE,
	token.NotEqual:     ast.NEQ,
}

func (p *Parser) parseCompare() ast.Expr {
	left := p.parseAdditive()
	for {
		t := p.peek()
		op, ok := compareOps[t.Kind]
		if !ok || (!p.extended() && (t.Kind == token.Greater || t.Kind == token.GreaterEqual || t.Kind == token.NotEqual)) {
			return left
		}
		pos := p.next().Location.From
		right := p.parseAdditive()
		left = ast.NewBinary(pos, op, left, right)
	}
}

func (p *Parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for p.peekIs(token.Plus, token.Minus) {
		t := p.next()
		op := ast.PLUS
		if t.Kind == token.Minus {
			op = ast.MINUS
		}
		right := p.parseMultiplicative()
		left = ast.NewBinary(t.Location.From, op, left, right)
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	for {
		t := p.peek()
		var op ast.BinaryOp
		switch {
		case t.Kind == token.Times:
			op = ast.TIMES
		case t.Kind == token.Div:
			op = ast.DIV
		case p.extended() && t.Kind == token.Mod:
			op = ast.MOD
		default:
			return left
		}
		p.next()
		right := p.parseUnary()
		left = ast.NewBinary(t.Location.From, op, left, right)
	}
}

func (p *Parser) parseUnary() ast.Expr {
	t := p.peek()
	switch t.Kind {
	case token.Not:
		p.next()
		return ast.NewUnary(t.Location.From, ast.NOT, p.parseUnary())
	case token.Minus:
		p.next()
		return ast.NewUnary(t.Location.From, ast.UMINUS, p.parseUnary())
	case token.IsNull:
		p.next()
		return ast.NewUnary(t.Location.From, ast.ISNULL, p.parseUnary())
	default:
		return p.parsePow()
	}
}

func (p *Parser) parsePow() ast.Expr {
	left := p.parsePostfix()
	if p.peekIs(token.Pow) {
		pos := p.next().Location.From
		right := p.parseUnary() // right-associative
		return ast.NewBinary(pos, ast.POW, left, right)
	}
	return left
}

// parsePostfix handles method-call chaining: primary ("." name ["(" args ")"])*;
// a name with no argument list is a call with no arguments.
func (p *Parser) parsePostfix() ast.Expr {
	left := p.parsePrimary()
	for p.peekIs(token.Dot) {
		p.next()
		name := p.expect(token.ObjectIdentifier)
		var args []ast.Expr
		if p.peekIs(token.LParen) {
			args = p.parseCallArgs()
		}
		left = ast.NewCall(name.Location.From, left, name.Value.Str, args)
	}
	return left
}

func (p *Parser) parseCallArgs() []ast.Expr {
	p.expect(token.LParen)
	var args []ast.Expr
	for !p.peekIs(token.RParen) {
		args = append(args, p.parseExpr())
		if p.peekIs(token.Comma) {
			p.next()
			continue
		}
		break
	}
	p.expect(token.RParen)
	return args
}

func (p *Parser) parsePrimary() ast.Expr {
	t := p.peek()
	switch t.Kind {
	case token.IntegerLiteral:
		p.next()
		return ast.NewInteger(t.Location.From, t.Value.Num)
	case token.StringLiteral:
		p.next()
		return ast.NewString(t.Location.From, t.Value.Str)
	case token.True, token.False:
		p.next()
		return ast.NewBoolean(t.Location.From, t.Kind == token.True)
	case token.LParen:
		p.next()
		if p.peekIs(token.RParen) {
			p.next()
			return ast.NewUnit(t.Location.From)
		}
		e := p.parseExpr()
		p.expect(token.RParen)
		return e
	case token.LBrace:
		return p.parseBlock()
	case token.If:
		return p.parseIf()
	case token.While:
		return p.parseWhile()
	case token.Let:
		return p.parseLet()
	case token.New:
		p.next()
		typ := p.expect(token.TypeIdentifier)
		return ast.NewNew(t.Location.From, typ.Value.Str)
	case token.ObjectIdentifier:
		p.next()
		return p.identifierOrCallTail(t)
	case token.Break:
		if p.extended() {
			p.next()
			return ast.NewBreak(t.Location.From)
		}
	case token.For:
		if p.extended() {
			return p.parseFor()
		}
	}
	panic(&SyntaxError{Pos: t.Location.From, Msg: "unexpected token " + t.Kind.String()})
}

// identifierOrCallTail finishes parsing after an ObjectIdentifier has
// already been consumed (by parseAssign's lookahead or parsePrimary): it
// is either a bare identifier/self reference or the start of a bare call
// name(args) (spec.md §4.5, "Call").
func (p *Parser) identifierOrCallTail(t token.Token) ast.Expr {
	if p.peekIs(token.LParen) {
		args := p.parseCallArgs()
		return ast.NewCall(t.Location.From, nil, t.Value.Str, args)
	}
	return ast.NewIdentifier(t.Location.From, t.Value.Str)
}

func (p *Parser) parseIf() ast.Expr {
	kw := p.expect(token.If)
	cond := p.parseExpr()
	p.expect(token.Then)
	then := p.parseExpr()
	var els ast.Expr
	if p.peekIs(token.Else) {
		p.next()
		els = p.parseExpr()
	}
	return ast.NewIf(kw.Location.From, cond, then, els)
}

func (p *Parser) parseWhile() ast.Expr {
	kw := p.expect(token.While)
	cond := p.parseExpr()
	p.expect(token.Do)
	body := p.parseExpr()
	return ast.NewWhile(kw.Location.From, cond, body)
}

func (p *Parser) parseFor() ast.Expr {
	kw := p.expect(token.For)
	name := p.expect(token.ObjectIdentifier)
	p.expect(token.Assign)
	from := p.parseExpr()
	p.expect(token.To)
	to := p.parseExpr()
	p.expect(token.Do)
	body := p.parseExpr()
	return ast.NewFor(kw.Location.From, name.Value.Str, from, to, body)
}

func (p *Parser) parseLet() ast.Expr {
	kw := p.expect(token.Let)

	if p.extended() && p.peekIs(token.LBrace) {
		return p.parseLets(kw)
	}

	name := p.expect(token.ObjectIdentifier)
	p.expect(token.Colon)
	typ := p.parseTypeName()
	var init ast.Expr
	if p.peekIs(token.Assign) {
		p.next()
		init = p.parseExpr()
	}
	p.expect(token.In)
	body := p.parseExpr()
	return ast.NewLet(kw.Location.From, name.Value.Str, typ, init, body)
}

// parseLets is the extended-dialect `let { x: T <- e; ... } in body` sugar
// for a chain of Let bindings (spec.md §3, "Lets").
func (p *Parser) parseLets(kw token.Token) ast.Expr {
	p.expect(token.LBrace)
	var fields []*ast.Field
	for !p.peekIs(token.RBrace) {
		name := p.expect(token.ObjectIdentifier)
		fields = append(fields, p.parseFieldBody(name))
	}
	p.expect(token.RBrace)
	p.expect(token.In)
	body := p.parseExpr()
	return ast.NewLets(kw.Location.From, fields, body)
}
