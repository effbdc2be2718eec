// Package main is the entry point for the accsync CLI.
package main

import (
	"os"

	"github.com/finadex/accsync/cmd/accsync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
