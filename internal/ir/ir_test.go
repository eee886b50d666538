package ir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zeph16/ziget/internal/analyzer"
	"github.com/Zeph16/ziget/internal/buildconfig"
	"github.com/Zeph16/ziget/internal/lexer"
	"github.com/Zeph16/ziget/internal/parser"
)

func compile(t *testing.T, src string) (string, *analyzer.Result) {
	t.Helper()
	toks, lexBag := lexer.New(src).Tokenize()
	require.False(t, lexBag.HasErrors(), "lex errors: %v", lexBag)

	prog, parseBag := parser.Parse(toks)
	require.False(t, parseBag.HasErrors(), "parse errors: %v", parseBag)

	result := analyzer.Analyze(prog)
	require.False(t, result.Bag.HasErrors(), "analysis errors: %v", result.Bag)

	return Generate(prog, result, buildconfig.Default()), result
}

func TestGenerate_MinimalMainHasVoidReturn(t *testing.T) {
	out, _ := compile(t, `procedure main { }`)
	assert.Contains(t, out, "define void @main()")
	assert.Contains(t, out, "ret void")
}

func TestGenerate_ModulePreambleDeclaresPrintf(t *testing.T) {
	out, _ := compile(t, `procedure main { }`)
	assert.Contains(t, out, "declare i32 @printf(i8*, ...)")
	assert.Contains(t, out, "target triple")
}

func TestGenerate_FactorialProcedure(t *testing.T) {
	src := `
procedure factorial(n -> number) -> number {
	when n <= 1 {
		yield 1;
	}
	yield n * factorial(n - 1);
}
procedure main {
	print("The factorial of 5 is {}", factorial(5));
}
`
	out, _ := compile(t, src)
	assert.Contains(t, out, "define double @factorial(double %arg.n)")
	assert.Contains(t, out, "call double @factorial(")
	assert.Contains(t, out, "fcmp ole double")
	assert.Contains(t, out, "fmul double")
	assert.Contains(t, out, "call i32 (i8*, ...) @printf(")
}

func TestGenerate_LoopEmitsHeaderBodyExitBlocks(t *testing.T) {
	src := `
procedure greet_times(name -> string, times -> number) {
	define i := 0;
	loop {
		when i >= times {
			leave;
		}
		print("Hello, {}", name);
		i := i + 1;
	}
}
procedure main {
	greet_times("Ziget", 3);
}
`
	out, _ := compile(t, src)
	assert.Contains(t, out, "loop.header.0:")
	assert.Contains(t, out, "loop.body.0:")
	assert.Contains(t, out, "loop.exit.0:")
	assert.Contains(t, out, "br label %loop.exit.0")
}

func TestGenerate_ConditionalEmitsThenElseMerge(t *testing.T) {
	src := `
procedure main {
	define ok -> boolean := yes;
	when ok {
		print("yes");
	} otherwise {
		print("no");
	}
}
`
	out, _ := compile(t, src)
	assert.Contains(t, out, "then.0:")
	assert.Contains(t, out, "else.0:")
	assert.Contains(t, out, "merge.0:")
}

func TestGenerate_AndUsesShortCircuitPhi(t *testing.T) {
	src := `
procedure check(a -> boolean, b -> boolean) -> boolean {
	yield a and b;
}
procedure main {
	print(check(yes, no));
}
`
	out, _ := compile(t, src)
	assert.Contains(t, out, "sc.rhs.0:")
	assert.Contains(t, out, "sc.merge.0:")
	assert.Contains(t, out, "phi i1")
}

func TestGenerate_StringLiteralsAreDeduplicated(t *testing.T) {
	src := `
procedure main {
	print("hi");
	print("hi");
}
`
	out, _ := compile(t, src)
	assert.Equal(t, 1, strings.Count(out, `c"hi\00"`),
		"the literal \"hi\" global should only be emitted once across both calls")
}

func TestGenerate_StringConcatenationCallsRuntimeHelper(t *testing.T) {
	src := `
procedure main {
	define greeting := "hi " + "there";
	print(greeting);
}
`
	out, _ := compile(t, src)
	assert.Contains(t, out, "declare i8* @ziget_concat(i8*, i8*)")
	assert.Contains(t, out, "call i8* @ziget_concat(")
}

func TestGenerate_EveryBlockHasExactlyOneTerminator(t *testing.T) {
	src := `
procedure main {
	define i := 0;
	loop {
		when i >= 3 {
			leave;
		}
		i := i + 1;
	}
}
`
	out, _ := compile(t, src)
	// The first chunk is the module preamble up to the first label, not
	// a basic block.
	for _, block := range splitBlocks(out)[1:] {
		terminators := strings.Count(block, "\n  ret ") + strings.Count(block, "\n  br ") + strings.Count(block, "\n  unreachable")
		assert.Equal(t, 1, terminators, "block does not have exactly one terminator:\n%s", block)
	}
}

// splitBlocks is a small test helper that slices generated IR text
// into per-label chunks so each can be checked for a single terminator.
func splitBlocks(irText string) []string {
	var blocks []string
	var current strings.Builder
	for _, line := range strings.Split(irText, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasSuffix(trimmed, ":") && !strings.Contains(trimmed, " ") {
			if current.Len() > 0 {
				blocks = append(blocks, current.String())
			}
			current.Reset()
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	if current.Len() > 0 {
		blocks = append(blocks, current.String())
	}
	return blocks
}

func TestGenerate_ExprTypesDriveNumberVsStringFormatting(t *testing.T) {
	src := `
procedure main {
	print("n={} s={}", 1, "x");
}
`
	out, _ := compile(t, src)
	assert.Contains(t, out, `n=%f s=%s`)
}
