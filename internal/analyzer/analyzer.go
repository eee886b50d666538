// Package analyzer implements Ziget's two-pass semantic analysis:
// global signature collection, then a per-procedure post-order walk
// that type-checks and annotates the AST (spec.md §4.5). The walk
// shape — a switch over the dynamic statement/expression type,
// threading diagnostics instead of a Go error — follows
// lang/eval/evaluator.go's evalStatement/evalExpression pair.
package analyzer

import (
	"github.com/Zeph16/ziget/internal/ast"
	"github.com/Zeph16/ziget/internal/diagnostics"
	"github.com/Zeph16/ziget/internal/symbols"
)

// Type is the closed set of Ziget value types, plus the two sentinels
// Void (a procedure with no return type) and Error (a subtree that
// already failed to type-check, so no further diagnostic is raised
// about it — spec.md §4.5's last paragraph).
type Type string

const (
	Number  Type = "number"
	Boolean Type = "boolean"
	String  Type = "string"
	Void    Type = ""
	ErrType Type = "<error>"
)

// ProcSig is a procedure's externally-visible signature, collected in
// pass 1 so forward references and mutual recursion resolve.
type ProcSig struct {
	Name       string
	ParamTypes []Type
	ReturnType Type
	Node       *ast.Procedure // main has no ProcSig
}

// Result is the analyzer's output: a fully annotated view of the
// program that internal/ir consumes to drive code generation, plus
// every diagnostic raised along the way.
type Result struct {
	Procedures  map[string]*ProcSig
	ExprTypes   map[ast.Expression]Type
	LocalScopes map[*ast.Block]*symbols.Scope
	Bag         *diagnostics.Bag
}

type analyzer struct {
	procs     map[string]*ProcSig
	exprTypes map[ast.Expression]Type
	scopes    map[*ast.Block]*symbols.Scope
	bag       *diagnostics.Bag

	currentReturn Type
	loopDepth     int
}

// Analyze runs both passes over prog and returns the annotated Result.
// It never stops at the first error: every diagnostic spec.md §4.5
// names is collected, and HasErrors on the returned Bag tells the
// driver whether to proceed to code generation.
func Analyze(prog *ast.Program) *Result {
	a := &analyzer{
		procs:     map[string]*ProcSig{},
		exprTypes: map[ast.Expression]Type{},
		scopes:    map[*ast.Block]*symbols.Scope{},
		bag:       &diagnostics.Bag{},
	}

	a.collectSignatures(prog)

	// Declare in source order, not map order, so reportUnusedProcedures
	// below walks global.Symbols() deterministically (spec.md §4.4).
	// A duplicate-named procedure's second occurrence is a no-op here:
	// Scope.Declare refuses to overwrite an already-declared name, and
	// a.procs still holds only the first occurrence's signature.
	global := symbols.NewGlobalScope()
	for _, proc := range prog.Procedures {
		sig := a.procs[proc.Name]
		global.Declare(&symbols.Symbol{
			Name: proc.Name,
			Kind: symbols.ProcedureSymbol,
			Type: string(sig.ReturnType),
			At:   sig.Node.At,
		})
	}

	for _, proc := range prog.Procedures {
		a.analyzeProcedure(proc, global)
	}
	if prog.Main != nil {
		a.analyzeMain(prog.Main, global)
	}

	a.reportUnusedProcedures(global)

	return &Result{
		Procedures:  a.procs,
		ExprTypes:   a.exprTypes,
		LocalScopes: a.scopes,
		Bag:         a.bag,
	}
}

func toType(s string) Type {
	switch s {
	case "number":
		return Number
	case "boolean":
		return Boolean
	case "string":
		return String
	default:
		return Void
	}
}

// collectSignatures is pass 1 (spec.md §4.5): populate every
// procedure's signature before any body is type-checked.
func (a *analyzer) collectSignatures(prog *ast.Program) {
	for _, proc := range prog.Procedures {
		if _, dup := a.procs[proc.Name]; dup {
			a.bag.Errorf(diagnostics.DuplicateDeclaration, proc.At,
				"procedure %q already declared", proc.Name)
			continue
		}
		sig := &ProcSig{Name: proc.Name, ReturnType: toType(proc.ReturnType), Node: proc}
		for _, param := range proc.Params {
			sig.ParamTypes = append(sig.ParamTypes, toType(param.Type))
		}
		a.procs[proc.Name] = sig
	}
}

func (a *analyzer) analyzeProcedure(proc *ast.Procedure, global *symbols.Scope) {
	scope := global.Push()
	for _, param := range proc.Params {
		scope.Declare(&symbols.Symbol{
			Name: param.Name,
			Kind: symbols.ParameterSymbol,
			Type: param.Type,
			At:   param.At,
		})
	}

	prevReturn := a.currentReturn
	a.currentReturn = toType(proc.ReturnType)
	a.walkBlockIn(proc.Body, scope)
	a.currentReturn = prevReturn

	a.reportUnusedInScope(scope, proc.Params)
}

func (a *analyzer) analyzeMain(main *ast.MainProcedure, global *symbols.Scope) {
	scope := global.Push()
	prevReturn := a.currentReturn
	a.currentReturn = Void
	a.walkBlockIn(main.Body, scope)
	a.currentReturn = prevReturn
	a.reportUnusedInScope(scope, nil)
}

// walkBlockIn type-checks block's statements directly in scope — used
// for a procedure's own body, which shares the parameter scope rather
// than nesting a fresh one.
func (a *analyzer) walkBlockIn(block *ast.Block, scope *symbols.Scope) {
	a.scopes[block] = scope
	a.walkStatements(block.Statements, scope)
}

// walkBlock pushes a new nested scope — used for when/loop bodies,
// which introduce their own lexical scope (spec.md §4.5 pass 2).
func (a *analyzer) walkBlock(block *ast.Block, outer *symbols.Scope) {
	scope := outer.Push()
	a.scopes[block] = scope
	a.walkStatements(block.Statements, scope)
	a.reportUnusedInScope(scope, nil)
}

func (a *analyzer) walkStatements(stmts []ast.Statement, scope *symbols.Scope) {
	terminated := false
	for _, stmt := range stmts {
		if terminated {
			a.bag.Warnf(diagnostics.Unreachable, stmt.Pos(), "unreachable statement")
		}
		a.walkStatement(stmt, scope)
		switch stmt.(type) {
		case *ast.Return, *ast.Break, *ast.Continue:
			terminated = true
		}
	}
}

func (a *analyzer) walkStatement(stmt ast.Statement, scope *symbols.Scope) {
	switch s := stmt.(type) {
	case *ast.VariableDeclaration:
		a.walkVarDecl(s, scope)
	case *ast.Assignment:
		a.walkAssignment(s, scope)
	case *ast.Conditional:
		a.walkConditional(s, scope)
	case *ast.Loop:
		a.loopDepth++
		a.walkBlock(s.Body, scope)
		a.loopDepth--
	case *ast.Break:
		if a.loopDepth == 0 {
			a.bag.Errorf(diagnostics.OutOfLoopControl, s.At, "'leave' outside any loop")
		}
	case *ast.Continue:
		if a.loopDepth == 0 {
			a.bag.Errorf(diagnostics.OutOfLoopControl, s.At, "'repeat' outside any loop")
		}
	case *ast.Return:
		a.walkReturn(s, scope)
	case *ast.ExpressionStmt:
		a.typeOf(s.Expr, scope)
	}
}

func (a *analyzer) walkVarDecl(decl *ast.VariableDeclaration, scope *symbols.Scope) {
	// The initializer is checked before the name enters scope: a
	// self-reference in the initializer is UnknownIdentifier, per
	// spec.md §4.5's lexical-sequential scoping rule.
	initType := a.typeOf(decl.Initializer, scope)

	declared := toType(decl.DeclaredType)
	if decl.DeclaredType == "" {
		declared = initType
	} else if initType != ErrType && declared != initType {
		a.bag.Errorf(diagnostics.TypeMismatch, decl.At,
			"variable %q declared as %s but initialized with %s", decl.Name, declared, initType)
	}

	sym := &symbols.Symbol{Name: decl.Name, Kind: symbols.VariableSymbol, Type: string(declared), At: decl.At}
	if !scope.Declare(sym) {
		a.bag.Errorf(diagnostics.DuplicateDeclaration, decl.At,
			"%q already declared in this scope", decl.Name)
	}
}

func (a *analyzer) walkAssignment(assign *ast.Assignment, scope *symbols.Scope) {
	sym, ok := scope.Resolve(assign.Name)
	if !ok {
		a.bag.Errorf(diagnostics.UnknownIdentifier, assign.At, "undeclared identifier %q", assign.Name)
		a.typeOf(assign.Value, scope)
		return
	}
	scope.MarkUsed(assign.Name)
	valType := a.typeOf(assign.Value, scope)
	target := toType(sym.Type)
	if valType != ErrType && valType != target {
		a.bag.Errorf(diagnostics.TypeMismatch, assign.At,
			"cannot assign %s to %q (%s)", valType, assign.Name, target)
	}
}

func (a *analyzer) walkConditional(cond *ast.Conditional, scope *symbols.Scope) {
	condType := a.typeOf(cond.Condition, scope)
	if condType != ErrType && condType != Boolean {
		a.bag.Errorf(diagnostics.TypeMismatch, cond.Condition.Pos(),
			"'when' condition must be boolean, got %s", condType)
	}
	a.walkBlock(cond.Consequence, scope)
	if cond.Alternative != nil {
		a.walkBlock(cond.Alternative, scope)
	}
}

func (a *analyzer) walkReturn(ret *ast.Return, scope *symbols.Scope) {
	if ret.Value == nil {
		if a.currentReturn != Void {
			a.bag.Errorf(diagnostics.ReturnTypeMismatch, ret.At,
				"missing return value, expected %s", a.currentReturn)
		}
		return
	}
	valType := a.typeOf(ret.Value, scope)
	if a.currentReturn == Void {
		a.bag.Errorf(diagnostics.ReturnTypeMismatch, ret.At, "void procedure cannot yield a value")
		return
	}
	if valType != ErrType && valType != a.currentReturn {
		a.bag.Errorf(diagnostics.ReturnTypeMismatch, ret.At,
			"yield type %s does not match declared return type %s", valType, a.currentReturn)
	}
}

// typeOf type-checks expr and returns its type, caching the result so
// internal/ir can look up every expression's type without re-walking.
func (a *analyzer) typeOf(expr ast.Expression, scope *symbols.Scope) Type {
	t := a.computeType(expr, scope)
	a.exprTypes[expr] = t
	return t
}

func (a *analyzer) computeType(expr ast.Expression, scope *symbols.Scope) Type {
	switch e := expr.(type) {
	case *ast.Literal:
		switch e.Kind {
		case ast.NumberLiteral:
			return Number
		case ast.StringLiteral:
			return String
		default:
			return Boolean
		}
	case *ast.Variable:
		sym, ok := scope.Resolve(e.Name)
		if !ok {
			a.bag.Errorf(diagnostics.UnknownIdentifier, e.At, "undeclared identifier %q", e.Name)
			return ErrType
		}
		scope.MarkUsed(e.Name)
		return toType(sym.Type)
	case *ast.Unary:
		operand := a.typeOf(e.Operand, scope)
		if operand != ErrType && operand != Number {
			a.bag.Errorf(diagnostics.TypeMismatch, e.At, "unary '-' requires number, got %s", operand)
			return ErrType
		}
		return Number
	case *ast.BinaryOperation:
		return a.typeOfBinary(e, scope)
	case *ast.ProcedureCall:
		return a.typeOfCall(e, scope)
	default:
		return ErrType
	}
}

func (a *analyzer) typeOfBinary(bin *ast.BinaryOperation, scope *symbols.Scope) Type {
	left := a.typeOf(bin.Left, scope)
	right := a.typeOf(bin.Right, scope)
	if left == ErrType || right == ErrType {
		return ErrType
	}

	switch bin.Op {
	case ast.OpAdd:
		// "+" concatenates whenever either operand is a string — the
		// resolution of spec.md §9's open question, recorded in the
		// design ledger. The non-string operand is rendered the way
		// print renders it (internal/ir's format-string synthesis).
		if left == String || right == String {
			return String
		}
		fallthrough
	case ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		if left != Number || right != Number {
			a.bag.Errorf(diagnostics.TypeMismatch, bin.At,
				"%q requires number operands, got %s and %s", bin.Op, left, right)
			return ErrType
		}
		return Number

	case ast.OpLt, ast.OpGt, ast.OpLe, ast.OpGe:
		if left != Number || right != Number {
			a.bag.Errorf(diagnostics.TypeMismatch, bin.At,
				"%q requires number operands, got %s and %s", bin.Op, left, right)
			return ErrType
		}
		return Boolean

	case ast.OpIs, ast.OpIsnt:
		if left != right {
			a.bag.Errorf(diagnostics.TypeMismatch, bin.At,
				"%q requires operands of the same type, got %s and %s", bin.Op, left, right)
			return ErrType
		}
		return Boolean

	case ast.OpAnd, ast.OpOr:
		if left != Boolean || right != Boolean {
			a.bag.Errorf(diagnostics.TypeMismatch, bin.At,
				"%q requires boolean operands, got %s and %s", bin.Op, left, right)
			return ErrType
		}
		return Boolean
	}
	return ErrType
}

func (a *analyzer) typeOfCall(call *ast.ProcedureCall, scope *symbols.Scope) Type {
	if call.Name == "print" {
		return a.typeOfPrint(call, scope)
	}

	sig, ok := a.procs[call.Name]
	if !ok {
		if call.Name == "main" {
			a.bag.Errorf(diagnostics.UnknownIdentifier, call.At, "'main' cannot be called by user code")
		} else {
			a.bag.Errorf(diagnostics.UnknownIdentifier, call.At, "undeclared procedure %q", call.Name)
		}
		for _, arg := range call.Args {
			a.typeOf(arg, scope)
		}
		return ErrType
	}
	scope.MarkUsed(call.Name)

	if len(call.Args) != len(sig.ParamTypes) {
		a.bag.Errorf(diagnostics.ArgumentCountMismatch, call.At,
			"%q expects %d argument(s), got %d", call.Name, len(sig.ParamTypes), len(call.Args))
	}
	for i, arg := range call.Args {
		argType := a.typeOf(arg, scope)
		if i >= len(sig.ParamTypes) {
			continue
		}
		if argType != ErrType && argType != sig.ParamTypes[i] {
			a.bag.Errorf(diagnostics.ArgumentTypeMismatch, arg.Pos(),
				"argument %d of %q: expected %s, got %s", i+1, call.Name, sig.ParamTypes[i], argType)
		}
	}
	return sig.ReturnType
}

// typeOfPrint implements the print intrinsic's two call shapes
// (spec.md §4.5): a format-string first argument with "{}"
// placeholders, or a bare space-separated argument list.
func (a *analyzer) typeOfPrint(call *ast.ProcedureCall, scope *symbols.Scope) Type {
	if len(call.Args) == 0 {
		a.bag.Errorf(diagnostics.InvalidPrintFormat, call.At, "print requires at least one argument")
		return Void
	}

	if lit, ok := call.Args[0].(*ast.Literal); ok && lit.Kind == ast.StringLiteral {
		placeholders := countPlaceholders(lit.Str)
		rest := call.Args[1:]
		if placeholders > 0 {
			if placeholders != len(rest) {
				a.bag.Errorf(diagnostics.InvalidPrintFormat, call.At,
					"print format string has %d placeholder(s) but %d argument(s) were given",
					placeholders, len(rest))
			}
			for _, arg := range rest {
				a.typeOf(arg, scope)
			}
			return Void
		}
	}

	for _, arg := range call.Args {
		a.typeOf(arg, scope)
	}
	return Void
}

func countPlaceholders(format string) int {
	count := 0
	for i := 0; i+1 < len(format); i++ {
		if format[i] == '{' && format[i+1] == '}' {
			count++
			i++
		}
	}
	return count
}

// reportUnusedInScope emits Warning(UnusedVariable) for every
// directly-declared symbol scope never saw a use of. Parameters and
// locals share one scope and are treated alike.
func (a *analyzer) reportUnusedInScope(scope *symbols.Scope, _ []*ast.Parameter) {
	for _, sym := range scope.Symbols() {
		if !sym.Used {
			a.bag.Warnf(diagnostics.UnusedVariable, sym.At, "%q is declared but never used", sym.Name)
		}
	}
}

func (a *analyzer) reportUnusedProcedures(global *symbols.Scope) {
	for _, sym := range global.Symbols() {
		if sym.Kind == symbols.ProcedureSymbol && !sym.Used {
			a.bag.Warnf(diagnostics.UnusedProcedure, sym.At, "procedure %q is declared but never called", sym.Name)
		}
	}
}
