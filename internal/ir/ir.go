// Package ir hand-emits LLVM IR as text from a validated AST, per
// spec.md §4.6. It is an IR-builder abstraction in the sense the spec
// allows — basic blocks, stack slots, and instructions assembled as
// strings — rather than a binding to a real LLVM library: spec.md §1
// scopes invoking the actual LLVM toolchain out of this front end.
// The shape (a name-to-value table per function, a reserved-names
// list, constants inlined directly as operands rather than always
// materialized into registers) is grounded on
// hhramberg-go-vslc's GenLLVM/gen/symTab, adapted from driving
// tinygo.org/x/go-llvm bindings to emitting the equivalent text.
package ir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Zeph16/ziget/internal/analyzer"
	"github.com/Zeph16/ziget/internal/ast"
	"github.com/Zeph16/ziget/internal/buildconfig"
)

// reservedNames lists symbols the generator itself owns in the module
// namespace, kept explicit the way vslc's reservedFunctionNames is.
// "print" is a keyword and "main" is always the entry point; the list
// itself is not checked against user procedure names.
var reservedNames = []string{"main", "printf", "ziget_concat", "ziget_streq", "ziget_format_number"}

// Generate lowers prog to LLVM IR text, using analysis's resolved
// expression types to drive instruction selection (spec.md §4.6).
func Generate(prog *ast.Program, analysis *analyzer.Result, cfg buildconfig.Config) string {
	g := &generator{
		analysis:    analysis,
		stringIndex: map[string]string{},
	}

	var funcs strings.Builder
	for _, proc := range prog.Procedures {
		funcs.WriteString(g.genProcedure(proc.Name, proc.Params, llvmType(toType(proc.ReturnType)), proc.Body))
		funcs.WriteString("\n")
	}
	if prog.Main != nil {
		funcs.WriteString(g.genProcedure("main", nil, "void", prog.Main.Body))
		funcs.WriteString("\n")
	}

	var out strings.Builder
	fmt.Fprintf(&out, "; ModuleID = '%s'\n", uuid.New().String())
	fmt.Fprintf(&out, "target triple = \"%s\"\n\n", cfg.TargetTriple)
	out.WriteString("declare i32 @printf(i8*, ...)\n")
	out.WriteString("declare i8* @ziget_concat(i8*, i8*)\n")
	out.WriteString("declare i1 @ziget_streq(i8*, i8*)\n")
	out.WriteString("declare i8* @ziget_format_number(double)\n\n")

	for _, s := range g.stringGlobals {
		fmt.Fprintf(&out, "%s = private unnamed_addr constant [%d x i8] c\"%s\\00\"\n",
			s.name, len(s.content)+1, escapeForLLVM(s.content))
	}
	if len(g.stringGlobals) > 0 {
		out.WriteString("\n")
	}

	out.WriteString(funcs.String())
	return out.String()
}

func toType(s string) analyzer.Type {
	switch s {
	case "number":
		return analyzer.Number
	case "boolean":
		return analyzer.Boolean
	case "string":
		return analyzer.String
	default:
		return analyzer.Void
	}
}

func llvmType(t analyzer.Type) string {
	switch t {
	case analyzer.Number:
		return "double"
	case analyzer.Boolean:
		return "i1"
	case analyzer.String:
		return "i8*"
	default:
		return "void"
	}
}

type stringGlobal struct {
	name    string
	content string
}

// generator holds module-wide state: the dedup table for string
// literal globals, shared across every function (spec.md §4.6's
// "deduplicated by content").
type generator struct {
	analysis      *analyzer.Result
	stringGlobals []stringGlobal
	stringIndex   map[string]string
	stringCount   int
}

func (g *generator) internString(content string) string {
	if name, ok := g.stringIndex[content]; ok {
		return name
	}
	name := fmt.Sprintf("@.str.%d", g.stringCount)
	g.stringCount++
	g.stringIndex[content] = name
	g.stringGlobals = append(g.stringGlobals, stringGlobal{name: name, content: content})
	return name
}

func escapeForLLVM(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			fmt.Fprintf(&b, "\\%02X", c)
		} else if c < 0x20 || c >= 0x7f {
			fmt.Fprintf(&b, "\\%02X", c)
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// loopLabels tracks the (header, exit) block-label pair for the
// innermost enclosing loop, per spec.md §4.6's control-transfer stack.
type loopLabels struct {
	header string
	exit   string
}

// value is an operand ready to drop into an instruction: either an
// SSA register ("%3") or an inline constant ("3.000000e+00"), plus
// its LLVM type string. Constants are not forced into registers first
// — the same simplification vslc's genExpression makes for its
// INTEGER_DATA/FLOAT_DATA operands.
type value struct {
	operand string
	typ     string
}

// funcGen holds one function's local codegen state: register/block
// counters, the slot table, and the loop-label stack.
type funcGen struct {
	gen   *generator
	name  string
	body  strings.Builder
	slots map[string]slot

	regCounter   int
	blockCounter int
	curBlock     string
	terminated   bool

	loops []loopLabels
}

type slot struct {
	reg string
	typ string
}

func (f *funcGen) newReg() string {
	r := fmt.Sprintf("%%%d", f.regCounter)
	f.regCounter++
	return r
}

func (f *funcGen) emit(format string, args ...interface{}) {
	if f.terminated {
		return
	}
	fmt.Fprintf(&f.body, "  "+format+"\n", args...)
}

func (f *funcGen) emitLabel(label string) {
	fmt.Fprintf(&f.body, "%s:\n", label)
	f.curBlock = label
	f.terminated = false
}

func (g *generator) genProcedure(name string, params []*ast.Parameter, retType string, body *ast.Block) string {
	f := &funcGen{gen: g, name: name, slots: map[string]slot{}}

	paramDecls := make([]string, len(params))
	for i, p := range params {
		pt := llvmType(toType(p.Type))
		paramDecls[i] = fmt.Sprintf("%s %%arg.%s", pt, p.Name)
	}

	var header strings.Builder
	fmt.Fprintf(&header, "define %s @%s(%s) {\n", retType, name, strings.Join(paramDecls, ", "))

	f.emitLabel("entry")
	for _, local := range collectLocals(body, g.analysis) {
		lt := llvmType(local.typ)
		reg := f.newReg()
		f.emit("%s = alloca %s", reg, lt)
		f.slots[local.name] = slot{reg: reg, typ: lt}
	}
	for _, p := range params {
		pt := llvmType(toType(p.Type))
		reg := f.newReg()
		f.emit("%s = alloca %s", reg, pt)
		f.slots[p.Name] = slot{reg: reg, typ: pt}
		f.emit("store %s %%arg.%s, %s* %s", pt, p.Name, pt, reg)
	}

	f.genBlock(body)

	if !f.terminated {
		if retType == "void" {
			f.emit("ret void")
		} else {
			// Falling off the end of a non-void procedure is a source
			// defect the analyzer does not check for; unreachable keeps
			// the block well-formed without asserting a fabricated
			// return value.
			f.emit("unreachable")
		}
	}

	header.WriteString(f.body.String())
	header.WriteString("}\n")
	return header.String()
}

// localDecl is one variable-slot to allocate in a procedure's entry
// block, discovered by a pre-pass over the body (spec.md §4.6 allows
// either a pre-pass or lazy discovery; a pre-pass keeps every slot's
// alloca dominating its uses trivially, since it always sits in
// entry).
type localDecl struct {
	name string
	typ  analyzer.Type
}

func collectLocals(block *ast.Block, analysis *analyzer.Result) []localDecl {
	var out []localDecl
	var walk func(stmts []ast.Statement)
	walk = func(stmts []ast.Statement) {
		for _, stmt := range stmts {
			switch s := stmt.(type) {
			case *ast.VariableDeclaration:
				t := toType(s.DeclaredType)
				if s.DeclaredType == "" {
					// Inferred declaration: fall back to whatever type
					// the analyzer resolved for the initializer.
					t = analysis.ExprTypes[s.Initializer]
				}
				out = append(out, localDecl{name: s.Name, typ: t})
			case *ast.Conditional:
				walk(s.Consequence.Statements)
				if s.Alternative != nil {
					walk(s.Alternative.Statements)
				}
			case *ast.Loop:
				walk(s.Body.Statements)
			}
		}
	}
	walk(block.Statements)
	return out
}

func (f *funcGen) genBlock(block *ast.Block) {
	for _, stmt := range block.Statements {
		if f.terminated {
			break
		}
		f.genStatement(stmt)
	}
}

func (f *funcGen) genStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.VariableDeclaration:
		v := f.genExpr(s.Initializer)
		sl := f.slots[s.Name]
		f.emit("store %s %s, %s* %s", v.typ, v.operand, sl.typ, sl.reg)
	case *ast.Assignment:
		v := f.genExpr(s.Value)
		sl := f.slots[s.Name]
		f.emit("store %s %s, %s* %s", v.typ, v.operand, sl.typ, sl.reg)
	case *ast.Conditional:
		f.genConditional(s)
	case *ast.Loop:
		f.genLoop(s)
	case *ast.Break:
		if n := len(f.loops); n > 0 {
			f.emit("br label %%%s", f.loops[n-1].exit)
			f.terminated = true
		}
	case *ast.Continue:
		if n := len(f.loops); n > 0 {
			f.emit("br label %%%s", f.loops[n-1].header)
			f.terminated = true
		}
	case *ast.Return:
		f.genReturn(s)
	case *ast.ExpressionStmt:
		f.genExpr(s.Expr)
	}
}

func (f *funcGen) genReturn(ret *ast.Return) {
	if ret.Value == nil {
		f.emit("ret void")
	} else {
		v := f.genExpr(ret.Value)
		f.emit("ret %s %s", v.typ, v.operand)
	}
	f.terminated = true
}

// genConditional emits cond/then/else?/merge blocks per spec.md §4.6.
// A branch whose own block already terminated (it returned, broke, or
// continued) is left without a merge jump; if both branches terminate
// the merge block ends up with no predecessor, which is legal LLVM IR
// — just dead code, not a verifier error.
func (f *funcGen) genConditional(cond *ast.Conditional) {
	condVal := f.genExpr(cond.Condition)

	id := f.blockCounter
	f.blockCounter++
	thenLabel := fmt.Sprintf("then.%d", id)
	mergeLabel := fmt.Sprintf("merge.%d", id)
	elseLabel := mergeLabel
	if cond.Alternative != nil {
		elseLabel = fmt.Sprintf("else.%d", id)
	}

	f.emit("br i1 %s, label %%%s, label %%%s", condVal.operand, thenLabel, elseLabel)

	f.emitLabel(thenLabel)
	f.genBlock(cond.Consequence)
	if !f.terminated {
		f.emit("br label %%%s", mergeLabel)
	}

	if cond.Alternative != nil {
		f.emitLabel(elseLabel)
		f.genBlock(cond.Alternative)
		if !f.terminated {
			f.emit("br label %%%s", mergeLabel)
		}
	}

	f.emitLabel(mergeLabel)
}

// genLoop emits header/body/exit blocks: header unconditionally
// enters body, leave branches to exit, repeat branches back to header
// (spec.md §4.6).
func (f *funcGen) genLoop(loop *ast.Loop) {
	id := f.blockCounter
	f.blockCounter++
	header := fmt.Sprintf("loop.header.%d", id)
	body := fmt.Sprintf("loop.body.%d", id)
	exit := fmt.Sprintf("loop.exit.%d", id)

	f.emit("br label %%%s", header)

	f.emitLabel(header)
	f.emit("br label %%%s", body)

	f.loops = append(f.loops, loopLabels{header: header, exit: exit})
	f.emitLabel(body)
	f.genBlock(loop.Body)
	if !f.terminated {
		f.emit("br label %%%s", header)
	}
	f.loops = f.loops[:len(f.loops)-1]

	f.emitLabel(exit)
}

func (f *funcGen) exprType(expr ast.Expression) analyzer.Type {
	if t, ok := f.gen.analysis.ExprTypes[expr]; ok {
		return t
	}
	return analyzer.ErrType
}

func (f *funcGen) genExpr(expr ast.Expression) value {
	switch e := expr.(type) {
	case *ast.Literal:
		return f.genLiteral(e)
	case *ast.Variable:
		sl := f.slots[e.Name]
		reg := f.newReg()
		f.emit("%s = load %s, %s* %s", reg, sl.typ, sl.typ, sl.reg)
		return value{operand: reg, typ: sl.typ}
	case *ast.Unary:
		operand := f.genExpr(e.Operand)
		reg := f.newReg()
		f.emit("%s = fsub double 0.000000e+00, %s", reg, operand.operand)
		return value{operand: reg, typ: "double"}
	case *ast.BinaryOperation:
		return f.genBinary(e)
	case *ast.ProcedureCall:
		return f.genCall(e)
	default:
		return value{operand: "0", typ: "i32"}
	}
}

func (f *funcGen) genLiteral(lit *ast.Literal) value {
	switch lit.Kind {
	case ast.NumberLiteral:
		return value{operand: formatDouble(lit.Number), typ: "double"}
	case ast.BooleanLiteral:
		if lit.Bool {
			return value{operand: "1", typ: "i1"}
		}
		return value{operand: "0", typ: "i1"}
	case ast.StringLiteral:
		name := f.gen.internString(lit.Str)
		ptr := f.newReg()
		f.emit("%s = getelementptr inbounds [%d x i8], [%d x i8]* %s, i64 0, i64 0",
			ptr, len(lit.Str)+1, len(lit.Str)+1, name)
		return value{operand: ptr, typ: "i8*"}
	default:
		return value{operand: "0", typ: "i32"}
	}
}

func formatDouble(v float64) string {
	return strconv.FormatFloat(v, 'e', 6, 64)
}

func (f *funcGen) genBinary(bin *ast.BinaryOperation) value {
	if bin.Op == ast.OpAnd || bin.Op == ast.OpOr {
		return f.genShortCircuit(bin)
	}

	leftType := f.exprType(bin.Left)
	left := f.genExpr(bin.Left)
	right := f.genExpr(bin.Right)

	switch bin.Op {
	case ast.OpAdd:
		if leftType == analyzer.String || f.exprType(bin.Right) == analyzer.String {
			left = f.coerceToString(left)
			right = f.coerceToString(right)
			reg := f.newReg()
			f.emit("%s = call i8* @ziget_concat(i8* %s, i8* %s)", reg, left.operand, right.operand)
			return value{operand: reg, typ: "i8*"}
		}
		return f.arith(left, right, "fadd")
	case ast.OpSub:
		return f.arith(left, right, "fsub")
	case ast.OpMul:
		return f.arith(left, right, "fmul")
	case ast.OpDiv:
		return f.arith(left, right, "fdiv")
	case ast.OpMod:
		return f.arith(left, right, "frem")
	case ast.OpLt:
		return f.fcmp(left, right, "olt")
	case ast.OpGt:
		return f.fcmp(left, right, "ogt")
	case ast.OpLe:
		return f.fcmp(left, right, "ole")
	case ast.OpGe:
		return f.fcmp(left, right, "oge")
	case ast.OpIs, ast.OpIsnt:
		return f.genEquality(bin.Op, leftType, left, right)
	}
	return value{operand: "0", typ: "i32"}
}

func (f *funcGen) arith(left, right value, op string) value {
	reg := f.newReg()
	f.emit("%s = %s double %s, %s", reg, op, left.operand, right.operand)
	return value{operand: reg, typ: "double"}
}

func (f *funcGen) fcmp(left, right value, pred string) value {
	reg := f.newReg()
	f.emit("%s = fcmp %s double %s, %s", reg, pred, left.operand, right.operand)
	return value{operand: reg, typ: "i1"}
}

func (f *funcGen) genEquality(op ast.BinaryOp, t analyzer.Type, left, right value) value {
	reg := f.newReg()
	switch t {
	case analyzer.Number:
		pred := "oeq"
		if op == ast.OpIsnt {
			pred = "one"
		}
		f.emit("%s = fcmp %s double %s, %s", reg, pred, left.operand, right.operand)
	case analyzer.Boolean:
		pred := "eq"
		if op == ast.OpIsnt {
			pred = "ne"
		}
		f.emit("%s = icmp %s i1 %s, %s", reg, pred, left.operand, right.operand)
	case analyzer.String:
		f.emit("%s = call i1 @ziget_streq(i8* %s, i8* %s)", reg, left.operand, right.operand)
		if op == ast.OpIsnt {
			negated := f.newReg()
			f.emit("%s = xor i1 %s, 1", negated, reg)
			return value{operand: negated, typ: "i1"}
		}
	}
	return value{operand: reg, typ: "i1"}
}

// genShortCircuit lowers and/or to branches plus a phi at the merge
// block, per spec.md §4.6.
func (f *funcGen) genShortCircuit(bin *ast.BinaryOperation) value {
	left := f.genExpr(bin.Left)
	leftBlock := f.curBlock

	id := f.blockCounter
	f.blockCounter++
	rhsLabel := fmt.Sprintf("sc.rhs.%d", id)
	mergeLabel := fmt.Sprintf("sc.merge.%d", id)

	var shortCircuitValue string
	if bin.Op == ast.OpAnd {
		shortCircuitValue = "0"
		f.emit("br i1 %s, label %%%s, label %%%s", left.operand, rhsLabel, mergeLabel)
	} else {
		shortCircuitValue = "1"
		f.emit("br i1 %s, label %%%s, label %%%s", left.operand, mergeLabel, rhsLabel)
	}

	f.emitLabel(rhsLabel)
	right := f.genExpr(bin.Right)
	rhsBlock := f.curBlock
	f.emit("br label %%%s", mergeLabel)

	f.emitLabel(mergeLabel)
	reg := f.newReg()
	f.emit("%s = phi i1 [ %s, %%%s ], [ %s, %%%s ]", reg, shortCircuitValue, leftBlock, right.operand, rhsBlock)
	return value{operand: reg, typ: "i1"}
}

// coerceToString renders a non-string operand the way print renders
// it (spec.md §9's resolution for "+"'s string-concatenation case):
// a number through a synthesized "%f"-format printf-style constant is
// overkill here, so booleans become the literal "yes"/"no" global and
// numbers are passed through ziget_concat's caller as their already-
// materialized i8* once formatted by the runtime helper.
func (f *funcGen) coerceToString(v value) value {
	if v.typ == "i8*" {
		return v
	}
	if v.typ == "i1" {
		yes := f.gen.internString("yes")
		no := f.gen.internString("no")
		yesPtr := f.newReg()
		f.emit("%s = getelementptr inbounds [4 x i8], [4 x i8]* %s, i64 0, i64 0", yesPtr, yes)
		noPtr := f.newReg()
		f.emit("%s = getelementptr inbounds [3 x i8], [3 x i8]* %s, i64 0, i64 0", noPtr, no)
		reg := f.newReg()
		f.emit("%s = select i1 %s, i8* %s, i8* %s", reg, v.operand, yesPtr, noPtr)
		return value{operand: reg, typ: "i8*"}
	}
	// Number operand: hand off to the runtime helper that owns
	// float-to-decimal formatting, the same way ziget_concat owns
	// the actual byte-level concatenation.
	reg := f.newReg()
	f.emit("%s = call i8* @ziget_format_number(double %s)", reg, v.operand)
	return value{operand: reg, typ: "i8*"}
}

func (f *funcGen) genCall(call *ast.ProcedureCall) value {
	if call.Name == "print" {
		return f.genPrint(call)
	}

	retType := "void"
	if sig, ok := f.gen.analysis.Procedures[call.Name]; ok {
		retType = llvmType(sig.ReturnType)
	}

	args := make([]string, len(call.Args))
	for i, arg := range call.Args {
		v := f.genExpr(arg)
		args[i] = fmt.Sprintf("%s %s", v.typ, v.operand)
	}

	if retType == "void" {
		f.emit("call void @%s(%s)", call.Name, strings.Join(args, ", "))
		return value{operand: "void", typ: "void"}
	}
	reg := f.newReg()
	f.emit("%s = call %s @%s(%s)", reg, retType, call.Name, strings.Join(args, ", "))
	return value{operand: reg, typ: retType}
}

// genPrint lowers the print intrinsic to a synthesized printf call
// (spec.md §4.5/§4.6): a literal format string with "{}" placeholders
// fills them from the remaining arguments in order; otherwise every
// argument is printed space-separated with a trailing newline.
// Booleans are rendered via coerceToString's "yes"/"no" globals.
func (f *funcGen) genPrint(call *ast.ProcedureCall) value {
	var format strings.Builder
	var callArgs []value

	if lit, ok := call.Args[0].(*ast.Literal); ok && lit.Kind == ast.StringLiteral && countPlaceholders(lit.Str) > 0 {
		rest := call.Args[1:]
		idx := 0
		for i := 0; i < len(lit.Str); i++ {
			if i+1 < len(lit.Str) && lit.Str[i] == '{' && lit.Str[i+1] == '}' {
				if idx < len(rest) {
					format.WriteString(f.printfConversion(rest[idx]))
					callArgs = append(callArgs, f.printArg(rest[idx]))
					idx++
				}
				i++
				continue
			}
			format.WriteByte(lit.Str[i])
		}
	} else {
		for i, arg := range call.Args {
			if i > 0 {
				format.WriteByte(' ')
			}
			format.WriteString(f.printfConversion(arg))
			callArgs = append(callArgs, f.printArg(arg))
		}
	}
	format.WriteByte('\n')

	fmtName := f.gen.internString(format.String())
	fmtPtr := f.newReg()
	f.emit("%s = getelementptr inbounds [%d x i8], [%d x i8]* %s, i64 0, i64 0",
		fmtPtr, format.Len()+1, format.Len()+1, fmtName)

	args := []string{fmt.Sprintf("i8* %s", fmtPtr)}
	for _, v := range callArgs {
		args = append(args, fmt.Sprintf("%s %s", v.typ, v.operand))
	}
	f.emit("call i32 (i8*, ...) @printf(%s)", strings.Join(args, ", "))
	return value{operand: "void", typ: "void"}
}

func (f *funcGen) printfConversion(arg ast.Expression) string {
	switch f.exprType(arg) {
	case analyzer.String, analyzer.Boolean:
		return "%s"
	default:
		return "%f"
	}
}

func (f *funcGen) printArg(arg ast.Expression) value {
	v := f.genExpr(arg)
	if f.exprType(arg) == analyzer.Boolean {
		return f.coerceToString(v)
	}
	return v
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
