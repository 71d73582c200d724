// Command daisy inspects workflow cards, stores their scripts and runs
// scripts against a local host.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/daisy/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
