package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kioskbot/kiosk/internal/config"
	"github.com/kioskbot/kiosk/internal/store"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter menu document and settings file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		if err := config.EnsureDir(cfg.Paths.DataDir); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}

		if _, err := os.Stat(cfg.Paths.MenuPath); err == nil && !initForce {
			return fmt.Errorf("%s already exists, use --force to overwrite", cfg.Paths.MenuPath)
		}

		if err := store.WriteDefault(cfg.Paths.MenuPath); err != nil {
			return fmt.Errorf("write menu document: %w", err)
		}
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("write settings: %w", err)
		}

		color.Green("✓ created %s", cfg.Paths.MenuPath)
		fmt.Println("Edit the document and set bot_token and admin_ids, then run `kiosk run`.")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing menu document")
}
