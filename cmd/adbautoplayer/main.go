// Package main is the entry point for the adbautoplayer CLI.
package main

import (
	"os"

	"github.com/AdbAutoPlayer/shell/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
