// Package cli implements the kiosk command line interface.
package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/kioskbot/kiosk/internal/cli.version=1.2.3"
	version = "1.0.0"
	logo    = "\n" +
		"  _  ___           _\n" +
		" | |/ (_) ___  ___| | __\n" +
		" | ' /| |/ _ \\/ __| |/ /\n" +
		" | . \\| | (_) \\__ \\   <\n" +
		" |_|\\_\\_|\\___/|___/_|\\_\\\n"
)

var rootCmd = &cobra.Command{
	Use:   "kiosk",
	Short: "Kiosk - configuration-driven menu bot",
	Long:  color.CyanString(logo) + "\nA chat bot that serves nested button menus from a JSON document.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(initCmd)
}
