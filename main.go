package main

import (
	"os"
	// Embedded zone data so timezone settings work on hosts without it.
	_ "time/tzdata"

	"github.com/agrotrace/bfsa-extractor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
