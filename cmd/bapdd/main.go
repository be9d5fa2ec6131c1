// Command bapdd runs the drift-weighted consensus engine from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/bapdd/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
