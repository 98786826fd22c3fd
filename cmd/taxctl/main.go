// Command taxctl is the off-chain operator tool for the confidential tax ledger.
package main

import (
	"fmt"
	"os"

	"github.com/Gere321123/FHETaxSystem/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
