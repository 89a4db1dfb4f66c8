// Command nbsync keeps live notebooks in step with percent-format scripts.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/nbsync/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
