package main

import (
	"os"

	"github.com/hward/premia/cmd/premia/commands"
)

// main is the entry point for the premia CLI: go run ./cmd/premia [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
