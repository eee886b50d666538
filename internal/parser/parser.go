// Package parser implements Ziget's recursive-descent parser: tokens
// in, an *ast.Program plus diagnostics out, per spec.md §4.3.
package parser

import (
	"strconv"

	"github.com/Zeph16/ziget/internal/ast"
	"github.com/Zeph16/ziget/internal/diagnostics"
	"github.com/Zeph16/ziget/internal/token"
)

// Parser holds parsing state: a flat token slice and a cursor, the
// same shape as lang/parser/parser.go's {tokens, position}.
type Parser struct {
	tokens []token.Token
	pos    int
	bag    *diagnostics.Bag
}

func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens, bag: &diagnostics.Bag{}}
}

// Parse parses the token stream into a Program. It never panics past
// the caller: every failure is recorded as a diagnostic and parsing
// resynchronizes at the next statement boundary (spec.md §8 invariant
// 2).
func Parse(tokens []token.Token) (*ast.Program, *diagnostics.Bag) {
	p := New(tokens)
	return p.parseProgram(), p.bag
}

func (p *Parser) parseProgram() *ast.Program {
	prog := &ast.Program{}
	sawMain := false

	for !p.check(token.EOF) {
		if !p.check(token.Procedure) {
			pos := p.peek().Pos
			p.bag.Errorf(diagnostics.UnexpectedToken, pos,
				"expected 'procedure', got %q", p.peek().Lexeme)
			p.synchronizeTopLevel()
			continue
		}
		proc, isMain := p.parseProcedureDecl()
		if isMain {
			if sawMain {
				p.bag.Errorf(diagnostics.DuplicateDeclaration, proc.Pos(),
					"duplicate 'main' procedure")
			}
			sawMain = true
			prog.Main = &ast.MainProcedure{Body: proc.Body, At: proc.At}
		} else if proc != nil {
			prog.Procedures = append(prog.Procedures, proc)
		}
	}

	if !sawMain {
		p.bag.Errorf(diagnostics.MissingMain, token.Position{Line: 1, Column: 1},
			"program has no 'main' procedure")
	}

	return prog
}

// parseProcedureDecl parses "procedure" IDENT [params] [-> Type] Block.
// Parentheses may be omitted only when there are no parameters
// (spec.md §4.3).
func (p *Parser) parseProcedureDecl() (*ast.Procedure, bool) {
	start := p.advance() // "procedure"
	nameTok, ok := p.expect(token.Identifier, "a procedure name")
	name := nameTok.Lexeme
	if !ok {
		name = "<error>"
	}

	proc := &ast.Procedure{Name: name, At: start.Pos}

	if p.check(token.LParen) {
		p.advance()
		if !p.check(token.RParen) {
			proc.Params = p.parseParamList()
		}
		p.expect(token.RParen, "')'")
	}

	if name == "main" && len(proc.Params) > 0 {
		p.bag.Errorf(diagnostics.UnexpectedToken, proc.Params[0].At,
			"'main' procedure takes no parameters")
		proc.Params = nil
	}

	if p.check(token.Arrow) {
		p.advance()
		ty, ok := p.parseType()
		if ok {
			proc.ReturnType = ty
		}
	}

	proc.Body = p.parseBlock()
	return proc, name == "main"
}

func (p *Parser) parseParamList() []*ast.Parameter {
	var params []*ast.Parameter
	for {
		nameTok, ok := p.expect(token.Identifier, "a parameter name")
		param := &ast.Parameter{At: nameTok.Pos}
		if ok {
			param.Name = nameTok.Lexeme
		}
		p.expect(token.Arrow, "'->'")
		if ty, ok := p.parseType(); ok {
			param.Type = ty
		}
		params = append(params, param)
		if !p.check(token.Comma) {
			break
		}
		p.advance()
	}
	return params
}

func (p *Parser) parseType() (string, bool) {
	switch p.peek().Kind {
	case token.TypeNumber, token.TypeBoolean, token.TypeString:
		return string(p.advance().Kind), true
	default:
		p.bag.Errorf(diagnostics.ExpectedToken, p.peek().Pos,
			"expected a type ('number', 'boolean', or 'string'), got %q", p.peek().Lexeme)
		return "", false
	}
}

func (p *Parser) parseBlock() *ast.Block {
	lbrace, _ := p.expect(token.LBrace, "'{'")
	block := &ast.Block{At: lbrace.Pos}

	for !p.check(token.RBrace) && !p.check(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
	}
	p.expect(token.RBrace, "'}'")
	return block
}

func (p *Parser) parseStatement() ast.Statement {
	startPos := p.peek().Pos
	startErrCount := len(p.bag.All())

	var stmt ast.Statement
	switch p.peek().Kind {
	case token.Define:
		stmt = p.parseVarDecl()
	case token.When:
		stmt = p.parseConditional()
	case token.Loop:
		stmt = p.parseLoop()
	case token.Leave:
		p.advance()
		p.expect(token.Semi, "';'")
		stmt = &ast.Break{At: startPos}
	case token.Repeat:
		p.advance()
		p.expect(token.Semi, "';'")
		stmt = &ast.Continue{At: startPos}
	case token.Yield:
		stmt = p.parseReturn()
	case token.Identifier:
		if p.peekAt(1).Kind == token.Assign {
			stmt = p.parseAssignment()
		} else {
			stmt = p.parseExpressionStmt()
		}
	default:
		stmt = p.parseExpressionStmt()
	}

	if len(p.bag.All()) > startErrCount {
		p.synchronizeStatement()
	}
	return stmt
}

func (p *Parser) parseVarDecl() ast.Statement {
	start := p.advance() // "define"
	nameTok, _ := p.expect(token.Identifier, "a variable name")
	decl := &ast.VariableDeclaration{Name: nameTok.Lexeme, At: start.Pos}

	if p.check(token.Arrow) {
		p.advance()
		if ty, ok := p.parseType(); ok {
			decl.DeclaredType = ty
		}
	}

	p.expect(token.Assign, "':='")
	decl.Initializer = p.parseExpression()
	p.expect(token.Semi, "';'")
	return decl
}

func (p *Parser) parseAssignment() ast.Statement {
	nameTok := p.advance()
	p.advance() // ":="
	assign := &ast.Assignment{Name: nameTok.Lexeme, At: nameTok.Pos}
	assign.Value = p.parseExpression()
	p.expect(token.Semi, "';'")
	return assign
}

func (p *Parser) parseConditional() ast.Statement {
	start := p.advance() // "when"
	cond := &ast.Conditional{At: start.Pos}
	cond.Condition = p.parseExpression()
	cond.Consequence = p.parseBlock()
	if p.check(token.Otherwise) {
		p.advance()
		cond.Alternative = p.parseBlock()
	}
	return cond
}

func (p *Parser) parseLoop() ast.Statement {
	start := p.advance() // "loop"
	return &ast.Loop{Body: p.parseBlock(), At: start.Pos}
}

func (p *Parser) parseReturn() ast.Statement {
	start := p.advance() // "yield"
	ret := &ast.Return{At: start.Pos}
	if !p.check(token.Semi) {
		ret.Value = p.parseExpression()
	}
	p.expect(token.Semi, "';'")
	return ret
}

func (p *Parser) parseExpressionStmt() ast.Statement {
	pos := p.peek().Pos
	expr := p.parseExpression()
	p.expect(token.Semi, "';'")
	return &ast.ExpressionStmt{Expr: expr, At: pos}
}

// --- Expressions: one function per precedence tier, lowest first. --

func (p *Parser) parseExpression() ast.Expression { return p.parseOr() }

func (p *Parser) parseOr() ast.Expression {
	left := p.parseAnd()
	for p.check(token.Or) {
		op := p.advance()
		right := p.parseAnd()
		left = &ast.BinaryOperation{Left: left, Op: ast.OpOr, Right: right, At: op.Pos}
	}
	return left
}

func (p *Parser) parseAnd() ast.Expression {
	left := p.parseEquality()
	for p.check(token.And) {
		op := p.advance()
		right := p.parseEquality()
		left = &ast.BinaryOperation{Left: left, Op: ast.OpAnd, Right: right, At: op.Pos}
	}
	return left
}

func (p *Parser) parseEquality() ast.Expression {
	left := p.parseRelational()
	for p.check(token.Is) || p.check(token.Isnt) {
		op := p.advance()
		right := p.parseRelational()
		kind := ast.OpIs
		if op.Kind == token.Isnt {
			kind = ast.OpIsnt
		}
		left = &ast.BinaryOperation{Left: left, Op: kind, Right: right, At: op.Pos}
	}
	return left
}

func (p *Parser) parseRelational() ast.Expression {
	left := p.parseAdditive()
	for p.check(token.Lt) || p.check(token.Gt) || p.check(token.Le) || p.check(token.Ge) {
		op := p.advance()
		right := p.parseAdditive()
		left = &ast.BinaryOperation{Left: left, Op: ast.BinaryOp(op.Kind), Right: right, At: op.Pos}
	}
	return left
}

func (p *Parser) parseAdditive() ast.Expression {
	left := p.parseMultiplicative()
	for p.check(token.Plus) || p.check(token.Minus) {
		op := p.advance()
		right := p.parseMultiplicative()
		left = &ast.BinaryOperation{Left: left, Op: ast.BinaryOp(op.Kind), Right: right, At: op.Pos}
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expression {
	left := p.parseUnary()
	for p.check(token.Star) || p.check(token.Slash) || p.check(token.Pct) {
		op := p.advance()
		right := p.parseUnary()
		left = &ast.BinaryOperation{Left: left, Op: ast.BinaryOp(op.Kind), Right: right, At: op.Pos}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expression {
	if p.check(token.Minus) {
		op := p.advance()
		operand := p.parseUnary()
		return &ast.Unary{Op: ast.UnaryNeg, Operand: operand, At: op.Pos}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() ast.Expression {
	tok := p.peek()
	switch tok.Kind {
	case token.Number:
		p.advance()
		return &ast.Literal{Kind: ast.NumberLiteral, Number: parseNumberLiteral(tok.Lexeme), At: tok.Pos}
	case token.String:
		p.advance()
		return &ast.Literal{Kind: ast.StringLiteral, Str: tok.Lexeme, At: tok.Pos}
	case token.Yes:
		p.advance()
		return &ast.Literal{Kind: ast.BooleanLiteral, Bool: true, At: tok.Pos}
	case token.No:
		p.advance()
		return &ast.Literal{Kind: ast.BooleanLiteral, Bool: false, At: tok.Pos}
	case token.Identifier:
		if p.peekAt(1).Kind == token.LParen {
			return p.parseCall()
		}
		p.advance()
		return &ast.Variable{Name: tok.Lexeme, At: tok.Pos}
	case token.Print:
		// "print" is a keyword token, but shares Call's IDENT "(" ... ")"
		// shape (spec.md §4.3 note) — it is recognized here, not folded
		// into classify()/token.LookupIdentifier.
		if p.peekAt(1).Kind == token.LParen {
			return p.parseCall()
		}
		p.bag.Errorf(diagnostics.UnexpectedToken, tok.Pos, "'print' must be called, e.g. print(...)")
		p.advance()
		return &ast.Literal{Kind: ast.NumberLiteral, At: tok.Pos}
	case token.LParen:
		p.advance()
		expr := p.parseExpression()
		p.expect(token.RParen, "')'")
		return expr
	default:
		p.bag.Errorf(diagnostics.UnexpectedToken, tok.Pos,
			"unexpected token %q in expression", tok.Lexeme)
		p.advance()
		return &ast.Literal{Kind: ast.NumberLiteral, At: tok.Pos}
	}
}

// parseCall parses IDENT "(" [Expr ("," Expr)*] ")" — call parentheses
// are always required (spec.md §4.3), unlike a procedure declaration.
func (p *Parser) parseCall() ast.Expression {
	nameTok := p.advance()
	p.advance() // "("
	call := &ast.ProcedureCall{Name: nameTok.Lexeme, At: nameTok.Pos}
	if !p.check(token.RParen) {
		call.Args = append(call.Args, p.parseExpression())
		for p.check(token.Comma) {
			p.advance()
			call.Args = append(call.Args, p.parseExpression())
		}
	}
	p.expect(token.RParen, "')'")
	return call
}

// --- Token-stream helpers: the peek/previous/advance/isAtEnd shape of
// lang/parser/parser.go, extended with one extra lookahead slot for
// the ":=" vs call/expression disambiguation above. -----------------

func (p *Parser) peek() token.Token { return p.tokens[p.pos] }

func (p *Parser) peekAt(offset int) token.Token {
	i := p.pos + offset
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[i]
}

func (p *Parser) check(k token.Kind) bool { return p.peek().Kind == k }

func (p *Parser) advance() token.Token {
	tok := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

// expect consumes the current token if it matches k, else records an
// ExpectedToken diagnostic and leaves the cursor where it is so the
// caller's enclosing synchronize() can recover.
func (p *Parser) expect(k token.Kind, what string) (token.Token, bool) {
	if p.check(k) {
		return p.advance(), true
	}
	p.bag.Errorf(diagnostics.ExpectedToken, p.peek().Pos,
		"expected %s, got %q", what, p.peek().Lexeme)
	return token.Token{}, false
}

// synchronizeStatement implements spec.md §4.3's recovery rule: skip
// tokens until the next ';' or '}' at the current brace depth, then
// resume. A ';' is consumed (it ends the bad statement); a '}' is
// left for the enclosing parseBlock to consume.
func (p *Parser) synchronizeStatement() {
	depth := 0
	for !p.check(token.EOF) {
		switch p.peek().Kind {
		case token.LBrace:
			depth++
		case token.RBrace:
			if depth == 0 {
				return
			}
			depth--
		case token.Semi:
			if depth == 0 {
				p.advance()
				return
			}
		}
		p.advance()
	}
}

// synchronizeTopLevel recovers from a malformed top-level declaration
// by skipping to the next "procedure" keyword or EOF.
func (p *Parser) synchronizeTopLevel() {
	for !p.check(token.EOF) && !p.check(token.Procedure) {
		p.advance()
	}
}

// parseNumberLiteral converts a lexeme the lexer already validated as
// digit+ ("." digit+)? — ParseFloat cannot fail here.
func parseNumberLiteral(lexeme string) float64 {
	v, _ := strconv.ParseFloat(lexeme, 64)
	return v
}
