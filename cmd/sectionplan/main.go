// Package main provides a command-line utility that prints the transfer
// plan for reading a section of an array variable, and optionally
// executes it against a file.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
