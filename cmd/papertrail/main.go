// Command papertrail searches politicians and donors from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/papertrail/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
