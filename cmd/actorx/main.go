// Command actorx validates, runs, renders and serves YAML statechart machines.
package main

import (
	"fmt"
	"os"

	"github.com/comalice/actorx/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
