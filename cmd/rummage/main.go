// Command rummage runs, traces and verifies checkpoint fixtures.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rummage:", err)
		os.Exit(exitCode(err))
	}
}
