package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zeph16/ziget/internal/diagnostics"
	"github.com/Zeph16/ziget/internal/lexer"
	"github.com/Zeph16/ziget/internal/parser"
)

func mustAnalyze(t *testing.T, src string) *Result {
	t.Helper()
	toks, lexBag := lexer.New(src).Tokenize()
	require.False(t, lexBag.HasErrors())
	prog, parseBag := parser.Parse(toks)
	require.False(t, parseBag.HasErrors(), "unexpected parse errors: %v", parseBag.All())
	return Analyze(prog)
}

func kinds(ds []diagnostics.Diagnostic) []diagnostics.Kind {
	out := make([]diagnostics.Kind, len(ds))
	for i, d := range ds {
		out[i] = d.Kind
	}
	return out
}

func TestAnalyze_CleanProgramHasNoDiagnostics(t *testing.T) {
	res := mustAnalyze(t, `
procedure add(a -> number, b -> number) -> number {
	yield a + b;
}
procedure main() {
	define total := add(1, 2);
	print("total is {}", total);
}
`)
	assert.Empty(t, res.Bag.All())
}

func TestAnalyze_UnknownIdentifier(t *testing.T) {
	res := mustAnalyze(t, `procedure main() { define x := y; }`)
	assert.Contains(t, kinds(res.Bag.All()), diagnostics.UnknownIdentifier)
}

func TestAnalyze_UsedBeforeDeclaredInSameScope(t *testing.T) {
	res := mustAnalyze(t, `procedure main() { define x := x; }`)
	assert.Contains(t, kinds(res.Bag.All()), diagnostics.UnknownIdentifier)
}

func TestAnalyze_DuplicateDeclarationSameScope(t *testing.T) {
	res := mustAnalyze(t, `procedure main() {
	define x := 1;
	define x := 2;
}`)
	assert.Contains(t, kinds(res.Bag.All()), diagnostics.DuplicateDeclaration)
}

func TestAnalyze_TypeMismatchOnDeclaredType(t *testing.T) {
	res := mustAnalyze(t, `procedure main() { define x -> boolean := 1; }`)
	assert.Contains(t, kinds(res.Bag.All()), diagnostics.TypeMismatch)
}

func TestAnalyze_StringConcatenationWithPlus(t *testing.T) {
	res := mustAnalyze(t, `procedure main() { define greeting := "hi " + "there"; }`)
	assert.NotContains(t, kinds(res.Bag.All()), diagnostics.TypeMismatch)
}

func TestAnalyze_ArithmeticRequiresNumbers(t *testing.T) {
	res := mustAnalyze(t, `procedure main() { define x := yes + 1; }`)
	assert.Contains(t, kinds(res.Bag.All()), diagnostics.TypeMismatch)
}

func TestAnalyze_WhenConditionMustBeBoolean(t *testing.T) {
	res := mustAnalyze(t, `procedure main() { when 1 { print("never"); } }`)
	assert.Contains(t, kinds(res.Bag.All()), diagnostics.TypeMismatch)
}

func TestAnalyze_LeaveOutsideLoop(t *testing.T) {
	res := mustAnalyze(t, `procedure main() { leave; }`)
	assert.Contains(t, kinds(res.Bag.All()), diagnostics.OutOfLoopControl)
}

func TestAnalyze_RepeatInsideLoopIsFine(t *testing.T) {
	res := mustAnalyze(t, `procedure main() { loop { repeat; } }`)
	assert.NotContains(t, kinds(res.Bag.All()), diagnostics.OutOfLoopControl)
}

func TestAnalyze_ArgumentCountMismatch(t *testing.T) {
	res := mustAnalyze(t, `
procedure add(a -> number, b -> number) -> number { yield a + b; }
procedure main() { define x := add(1); }
`)
	assert.Contains(t, kinds(res.Bag.All()), diagnostics.ArgumentCountMismatch)
}

func TestAnalyze_ArgumentTypeMismatch(t *testing.T) {
	res := mustAnalyze(t, `
procedure add(a -> number, b -> number) -> number { yield a + b; }
procedure main() { define x := add(1, yes); }
`)
	assert.Contains(t, kinds(res.Bag.All()), diagnostics.ArgumentTypeMismatch)
}

func TestAnalyze_CallToUnknownProcedure(t *testing.T) {
	res := mustAnalyze(t, `procedure main() { define x := ghost(); }`)
	assert.Contains(t, kinds(res.Bag.All()), diagnostics.UnknownIdentifier)
}

func TestAnalyze_MainIsNeverFlaggedUnused(t *testing.T) {
	res := mustAnalyze(t, `procedure main() { }`)
	assert.NotContains(t, kinds(res.Bag.All()), diagnostics.UnusedProcedure)
}

func TestAnalyze_UnusedProcedureWarned(t *testing.T) {
	res := mustAnalyze(t, `
procedure helper() { yield; }
procedure main() { }
`)
	assert.Contains(t, kinds(res.Bag.All()), diagnostics.UnusedProcedure)
}

func TestAnalyze_UnusedProcedureWarningsFollowDeclarationOrder(t *testing.T) {
	res := mustAnalyze(t, `
procedure zeta() { yield; }
procedure alpha() { yield; }
procedure mu() { yield; }
procedure beta() { yield; }
procedure main() { }
`)
	var names []string
	for _, d := range res.Bag.All() {
		if d.Kind == diagnostics.UnusedProcedure {
			names = append(names, d.Message)
		}
	}
	require.Len(t, names, 4)
	assert.Contains(t, names[0], "zeta")
	assert.Contains(t, names[1], "alpha")
	assert.Contains(t, names[2], "mu")
	assert.Contains(t, names[3], "beta")
}

func TestAnalyze_UnusedVariableWarned(t *testing.T) {
	res := mustAnalyze(t, `procedure main() { define x := 1; }`)
	assert.Contains(t, kinds(res.Bag.All()), diagnostics.UnusedVariable)
}

func TestAnalyze_UnreachableAfterYield(t *testing.T) {
	res := mustAnalyze(t, `
procedure f() -> number {
	yield 1;
	print("dead");
}
procedure main() {
	define x := f();
}
`)
	assert.Contains(t, kinds(res.Bag.All()), diagnostics.Unreachable)
}

func TestAnalyze_PrintPlaceholderCountMismatch(t *testing.T) {
	res := mustAnalyze(t, `procedure main() { print("{} and {}", 1); }`)
	assert.Contains(t, kinds(res.Bag.All()), diagnostics.InvalidPrintFormat)
}

func TestAnalyze_CallingMainIsRejected(t *testing.T) {
	res := mustAnalyze(t, `
procedure main() { }
procedure other() { main(); }
`)
	assert.Contains(t, kinds(res.Bag.All()), diagnostics.UnknownIdentifier)
}
