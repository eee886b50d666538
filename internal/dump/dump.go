// Package dump writes the `--lexer-output`, `--parser-output`, and
// `--symbol-output` stage artifacts named in spec.md §6: a token
// listing, an indented AST tree, and a per-procedure symbol-table
// dump. The indent-tracking writer shape is grounded on
// go-mix/main/print_visitor.go's PrintingVisitor; the plain per-line
// record format for tokens and symbols is grounded on
// cow-lang-go/tooling/ll1/debug.go's flat table dump.
package dump

import (
	"fmt"
	"io"

	"github.com/Zeph16/ziget/internal/analyzer"
	"github.com/Zeph16/ziget/internal/ast"
	"github.com/Zeph16/ziget/internal/token"
)

const indentSize = 2

// Tokens writes one line per token as `<kind> "<lexeme>" (line:col)`,
// matching spec.md §6's `<stem>-tokens.txt` format.
func Tokens(w io.Writer, toks []token.Token) {
	for _, tok := range toks {
		fmt.Fprintln(w, tok.String())
	}
}

// Tree writes an indented dump of prog mirroring its node structure,
// for `<stem>-tree.txt`.
func Tree(w io.Writer, prog *ast.Program) {
	d := &treeDumper{w: w}
	d.program(prog)
}

type treeDumper struct {
	w      io.Writer
	indent int
}

func (d *treeDumper) line(format string, args ...interface{}) {
	for i := 0; i < d.indent; i++ {
		fmt.Fprint(d.w, " ")
	}
	fmt.Fprintf(d.w, format, args...)
	fmt.Fprintln(d.w)
}

func (d *treeDumper) nested(f func()) {
	d.indent += indentSize
	f()
	d.indent -= indentSize
}

func (d *treeDumper) program(prog *ast.Program) {
	d.line("Program")
	d.nested(func() {
		for _, proc := range prog.Procedures {
			d.procedure(proc)
		}
		if prog.Main != nil {
			d.line("MainProcedure")
			d.nested(func() { d.block(prog.Main.Body) })
		}
	})
}

func (d *treeDumper) procedure(proc *ast.Procedure) {
	ret := proc.ReturnType
	if ret == "" {
		ret = "void"
	}
	d.line("Procedure %s -> %s", proc.Name, ret)
	d.nested(func() {
		for _, p := range proc.Params {
			d.line("Parameter %s -> %s", p.Name, p.Type)
		}
		d.block(proc.Body)
	})
}

func (d *treeDumper) block(block *ast.Block) {
	d.line("Block")
	d.nested(func() {
		for _, stmt := range block.Statements {
			d.statement(stmt)
		}
	})
}

func (d *treeDumper) statement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.VariableDeclaration:
		ty := s.DeclaredType
		if ty == "" {
			ty = "inferred"
		}
		d.line("VariableDeclaration %s (%s)", s.Name, ty)
		d.nested(func() { d.expr(s.Initializer) })
	case *ast.Assignment:
		d.line("Assignment %s", s.Name)
		d.nested(func() { d.expr(s.Value) })
	case *ast.Conditional:
		d.line("Conditional")
		d.nested(func() {
			d.line("Condition")
			d.nested(func() { d.expr(s.Condition) })
			d.line("Consequence")
			d.nested(func() { d.block(s.Consequence) })
			if s.Alternative != nil {
				d.line("Alternative")
				d.nested(func() { d.block(s.Alternative) })
			}
		})
	case *ast.Loop:
		d.line("Loop")
		d.nested(func() { d.block(s.Body) })
	case *ast.Break:
		d.line("Break")
	case *ast.Continue:
		d.line("Continue")
	case *ast.Return:
		d.line("Return")
		if s.Value != nil {
			d.nested(func() { d.expr(s.Value) })
		}
	case *ast.ExpressionStmt:
		d.line("ExpressionStmt")
		d.nested(func() { d.expr(s.Expr) })
	}
}

func (d *treeDumper) expr(expr ast.Expression) {
	switch e := expr.(type) {
	case *ast.Literal:
		switch e.Kind {
		case ast.NumberLiteral:
			d.line("Literal(Number) %v", e.Number)
		case ast.StringLiteral:
			d.line("Literal(String) %q", e.Str)
		default:
			d.line("Literal(Boolean) %v", e.Bool)
		}
	case *ast.Variable:
		d.line("Variable %s", e.Name)
	case *ast.Unary:
		d.line("Unary %s", e.Op)
		d.nested(func() { d.expr(e.Operand) })
	case *ast.BinaryOperation:
		d.line("BinaryOperation %s", e.Op)
		d.nested(func() {
			d.expr(e.Left)
			d.expr(e.Right)
		})
	case *ast.ProcedureCall:
		d.line("ProcedureCall %s", e.Name)
		d.nested(func() {
			for _, arg := range e.Args {
				d.expr(arg)
			}
		})
	}
}

// SymbolTables writes, per procedure, every symbol in its scope chain
// (parameters and locals, then nested when/loop scopes), with each
// symbol's type and used/unused flag, for `<stem>-symbol_tables.txt`.
func SymbolTables(w io.Writer, prog *ast.Program, result *analyzer.Result) {
	for _, proc := range prog.Procedures {
		fmt.Fprintf(w, "procedure %s:\n", proc.Name)
		dumpScopeTree(w, proc.Body, result, 1)
	}
	if prog.Main != nil {
		fmt.Fprintf(w, "procedure main:\n")
		dumpScopeTree(w, prog.Main.Body, result, 1)
	}
}

func dumpScopeTree(w io.Writer, block *ast.Block, result *analyzer.Result, depth int) {
	scope, ok := result.LocalScopes[block]
	if !ok {
		return
	}
	prefix := ""
	for i := 0; i < depth; i++ {
		prefix += "  "
	}
	for _, sym := range scope.Symbols() {
		status := "unused"
		if sym.Used {
			status = "used"
		}
		fmt.Fprintf(w, "%s%s : %s (%s) [%s]\n", prefix, sym.Name, sym.Type, sym.At, status)
	}
	for _, stmt := range block.Statements {
		switch s := stmt.(type) {
		case *ast.Conditional:
			dumpScopeTree(w, s.Consequence, result, depth+1)
			if s.Alternative != nil {
				dumpScopeTree(w, s.Alternative, result, depth+1)
			}
		case *ast.Loop:
			dumpScopeTree(w, s.Body, result, depth+1)
		}
	}
}
