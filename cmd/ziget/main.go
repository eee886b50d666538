// Command ziget compiles a single .zg source file to LLVM IR text.
package main

import (
	"fmt"
	"os"

	"github.com/Zeph16/ziget/internal/cli"
	"github.com/Zeph16/ziget/internal/driver"
	"github.com/Zeph16/ziget/internal/report"
)

func main() {
	cfg, err := cli.ParseArgs(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ziget: %v\n", err)
		os.Exit(driver.ExitInternalFailure)
	}

	printer := report.NewPrinter(os.Stderr)
	os.Exit(driver.Run(cfg, printer))
}
