// Package cli turns os.Args into a driver.Config, the same hand-rolled
// flag loop shape as lang/in/cli/cli.go's Config{Args, Output} — three
// boolean switches and one positional path, not worth a flag-parsing
// library.
package cli

import (
	"fmt"

	"github.com/Zeph16/ziget/internal/driver"
)

// ParseArgs parses args (as os.Args, program name included at index 0)
// into a driver.Config. It returns an error for a missing or malformed
// source path; unknown flags are also rejected rather than silently
// ignored, so a typo doesn't silently compile with the wrong flags.
func ParseArgs(args []string) (driver.Config, error) {
	var cfg driver.Config

	rest := args[1:]
	for len(rest) > 0 {
		arg := rest[0]
		rest = rest[1:]

		switch arg {
		case "--lexer-output":
			cfg.LexerOutput = true
		case "--parser-output":
			cfg.ParserOutput = true
		case "--symbol-output":
			cfg.SymbolOutput = true
		default:
			if len(arg) > 2 && arg[:2] == "--" {
				return driver.Config{}, fmt.Errorf("unrecognized flag %q", arg)
			}
			if cfg.Path != "" {
				return driver.Config{}, fmt.Errorf("unexpected argument %q: source path %q already given", arg, cfg.Path)
			}
			cfg.Path = arg
		}
	}

	if cfg.Path == "" {
		return driver.Config{}, fmt.Errorf("usage: ziget <path> [--lexer-output] [--parser-output] [--symbol-output]")
	}

	return cfg, nil
}
