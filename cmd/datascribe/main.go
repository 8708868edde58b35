// Package main is the entry point for the datascribe CLI.
package main

import (
	"os"

	"github.com/datascribe-labs/datascribe/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
