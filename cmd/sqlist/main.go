// Command sqlist inspects and edits persistent lists stored in SQLite.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/sqlist/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		// Commands report their own failures; only cobra's argument and
		// flag errors are left to print.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	os.Exit(cli.GetExitCode(err))
}
