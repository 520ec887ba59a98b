// Copyright 2026, Kerby Shedden and the CompAIRR contributors.

// Command compairr compares immune repertoires under an approximate
// sequence-match relation (matrix, existence, cluster, deduplicate).
// See internal/cli for subcommand wiring.
package main

import (
	"os"

	"github.com/kshedden/compairr/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
