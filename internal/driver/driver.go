// Package driver sequences the five pipeline stages — lex, parse,
// analyze, generate, write — the way lang/runner/runner.go sequences
// lex → parse → evaluate: read the file, wrap every stage error with
// fmt.Errorf("...: %w", err), and refuse to advance once a stage has
// reported an error.
package driver

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Zeph16/ziget/internal/analyzer"
	"github.com/Zeph16/ziget/internal/buildconfig"
	"github.com/Zeph16/ziget/internal/diagnostics"
	"github.com/Zeph16/ziget/internal/dump"
	"github.com/Zeph16/ziget/internal/ir"
	"github.com/Zeph16/ziget/internal/lexer"
	"github.com/Zeph16/ziget/internal/parser"
	"github.com/Zeph16/ziget/internal/report"
)

// Exit codes per spec.md §6: 0 success, 1 a reported diagnostic error,
// 2 internal failure (I/O, or codegen hitting an ill-typed tree the
// analyzer should have rejected first).
const (
	ExitSuccess         = 0
	ExitDiagnosticError = 1
	ExitInternalFailure = 2
)

// Config is what cli.ParseArgs builds from os.Args.
type Config struct {
	Path         string
	LexerOutput  bool
	ParserOutput bool
	SymbolOutput bool
}

// Run executes the full pipeline for cfg, printing diagnostics and the
// run summary to printer, and returns the process exit code.
func Run(cfg Config, printer *report.Printer) int {
	source, err := os.ReadFile(cfg.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ziget: %v\n", fmt.Errorf("reading %q: %w", cfg.Path, err))
		return ExitInternalFailure
	}

	stem := strings.TrimSuffix(cfg.Path, filepath.Ext(cfg.Path))

	toks, lexBag := lexer.New(string(source)).Tokenize()
	if cfg.LexerOutput {
		if err := writeArtifact(stem+"-tokens.txt", func(w io.Writer) { dump.Tokens(w, toks) }); err != nil {
			fmt.Fprintf(os.Stderr, "ziget: %v\n", err)
			return ExitInternalFailure
		}
	}
	if lexBag.HasErrors() {
		printer.Diagnostics(lexBag)
		printer.Summary(lexBag, "", 0)
		return ExitDiagnosticError
	}

	prog, parseBag := parser.Parse(toks)
	if cfg.ParserOutput {
		if err := writeArtifact(stem+"-tree.txt", func(w io.Writer) { dump.Tree(w, prog) }); err != nil {
			fmt.Fprintf(os.Stderr, "ziget: %v\n", err)
			return ExitInternalFailure
		}
	}
	allDiags := &diagnostics.Bag{}
	allDiags.Extend(lexBag)
	allDiags.Extend(parseBag)
	if parseBag.HasErrors() {
		printer.Diagnostics(allDiags)
		printer.Summary(allDiags, "", 0)
		return ExitDiagnosticError
	}

	result := analyzer.Analyze(prog)
	if cfg.SymbolOutput {
		if err := writeArtifact(stem+"-symbol_tables.txt", func(w io.Writer) { dump.SymbolTables(w, prog, result) }); err != nil {
			fmt.Fprintf(os.Stderr, "ziget: %v\n", err)
			return ExitInternalFailure
		}
	}
	allDiags.Extend(result.Bag)
	if result.Bag.HasErrors() {
		printer.Diagnostics(allDiags)
		printer.Summary(allDiags, "", 0)
		return ExitDiagnosticError
	}

	buildCfgPath := stem + ".ziget.yaml"
	buildCfg, err := buildconfig.Load(buildCfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ziget: %v\n", fmt.Errorf("loading %q: %w", buildCfgPath, err))
		return ExitInternalFailure
	}

	irText := ir.Generate(prog, result, buildCfg)

	outputPath := stem + ".ll"
	if err := os.WriteFile(outputPath, []byte(irText), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "ziget: %v\n", fmt.Errorf("writing %q: %w", outputPath, err))
		return ExitInternalFailure
	}

	printer.Diagnostics(allDiags)
	printer.Summary(allDiags, outputPath, int64(len(irText)))
	return ExitSuccess
}

func writeArtifact(path string, write func(w io.Writer)) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing %q: %w", path, err)
	}
	defer f.Close()
	write(f)
	return nil
}
