package driver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zeph16/ziget/internal/report"
)

// testPrinter returns a report.Printer backed by a throwaway temp file,
// so Run's diagnostic/summary output has somewhere to go without
// pulling a real terminal or a pipe's blocking-buffer concerns into
// the test.
func testPrinter(t *testing.T) *report.Printer {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "ziget-report-*.txt")
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return report.NewPrinter(f)
}

func writeSource(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.zg")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun_ValidProgramWritesIRAndExitsZero(t *testing.T) {
	path := writeSource(t, `
procedure main {
	define x -> number := 5;
	print(x);
}
`)
	code := Run(Config{Path: path}, testPrinter(t))
	assert.Equal(t, ExitSuccess, code)

	ll := path[:len(path)-len(filepath.Ext(path))] + ".ll"
	data, err := os.ReadFile(ll)
	require.NoError(t, err)
	assert.Contains(t, string(data), "define void @main")
}

func TestRun_LeaveOutsideLoopIsDiagnosticError(t *testing.T) {
	path := writeSource(t, `
procedure main {
	leave;
}
`)
	code := Run(Config{Path: path}, testPrinter(t))
	assert.Equal(t, ExitDiagnosticError, code)

	ll := path[:len(path)-len(filepath.Ext(path))] + ".ll"
	_, err := os.Stat(ll)
	assert.True(t, os.IsNotExist(err), "no .ll should be written when analysis reports an error")
}

func TestRun_DuplicateDeclarationIsDiagnosticError(t *testing.T) {
	path := writeSource(t, `
procedure main {
	define a -> number := 5;
	define a -> number := 6;
}
`)
	code := Run(Config{Path: path}, testPrinter(t))
	assert.Equal(t, ExitDiagnosticError, code)
}

func TestRun_UnusedVariableWarningStillSucceeds(t *testing.T) {
	path := writeSource(t, `
procedure main {
	define x -> number := 5;
}
`)
	code := Run(Config{Path: path}, testPrinter(t))
	assert.Equal(t, ExitSuccess, code)

	ll := path[:len(path)-len(filepath.Ext(path))] + ".ll"
	_, err := os.Stat(ll)
	require.NoError(t, err)
}

func TestRun_MissingMainIsDiagnosticError(t *testing.T) {
	path := writeSource(t, `
procedure test {
	yield;
}
`)
	code := Run(Config{Path: path}, testPrinter(t))
	assert.Equal(t, ExitDiagnosticError, code)
}

func TestRun_LexerOutputFlagWritesTokensFile(t *testing.T) {
	path := writeSource(t, `
procedure main {
	define x -> number := 5;
	print(x);
}
`)
	code := Run(Config{Path: path, LexerOutput: true}, testPrinter(t))
	require.Equal(t, ExitSuccess, code)

	stem := path[:len(path)-len(filepath.Ext(path))]
	data, err := os.ReadFile(stem + "-tokens.txt")
	require.NoError(t, err)
	assert.Contains(t, string(data), "procedure")
}

func TestRun_ParserOutputFlagWritesTreeFile(t *testing.T) {
	path := writeSource(t, `
procedure main {
	define x -> number := 5;
	print(x);
}
`)
	code := Run(Config{Path: path, ParserOutput: true}, testPrinter(t))
	require.Equal(t, ExitSuccess, code)

	stem := path[:len(path)-len(filepath.Ext(path))]
	data, err := os.ReadFile(stem + "-tree.txt")
	require.NoError(t, err)
	assert.Contains(t, string(data), "MainProcedure")
}

func TestRun_SymbolOutputFlagWritesSymbolTableFile(t *testing.T) {
	path := writeSource(t, `
procedure main {
	define x -> number := 5;
	print(x);
}
`)
	code := Run(Config{Path: path, SymbolOutput: true}, testPrinter(t))
	require.Equal(t, ExitSuccess, code)

	stem := path[:len(path)-len(filepath.Ext(path))]
	data, err := os.ReadFile(stem + "-symbol_tables.txt")
	require.NoError(t, err)
	assert.Contains(t, string(data), "x : number")
}

func TestRun_ArtifactsStillWrittenEvenWhenAnalysisFails(t *testing.T) {
	path := writeSource(t, `
procedure main {
	leave;
}
`)
	code := Run(Config{Path: path, LexerOutput: true, ParserOutput: true}, testPrinter(t))
	assert.Equal(t, ExitDiagnosticError, code)

	stem := path[:len(path)-len(filepath.Ext(path))]
	_, err := os.Stat(stem + "-tokens.txt")
	assert.NoError(t, err, "lexer-output is written before the error is known")
	_, err = os.Stat(stem + "-tree.txt")
	assert.NoError(t, err, "parser-output is written before analysis runs")
}

func TestRun_MissingFileIsInternalFailure(t *testing.T) {
	code := Run(Config{Path: filepath.Join(t.TempDir(), "nope.zg")}, testPrinter(t))
	assert.Equal(t, ExitInternalFailure, code)
}
