// Package main is the entry point for the adbautoplayerd shell daemon.
package main

import (
	"os"

	"github.com/AdbAutoPlayer/shell/internal/daemon/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
