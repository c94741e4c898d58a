// Package main is the entry point for the kiosk CLI.
package main

import (
	"os"

	"github.com/kioskbot/kiosk/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
