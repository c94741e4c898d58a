package cli

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kioskbot/kiosk/internal/config"
	"github.com/kioskbot/kiosk/internal/store"
)

var validateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate a menu document",
	Long:  "Checks the menu document for structural problems without starting the gateway.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}
			path = cfg.Paths.MenuPath
		}

		st, err := store.Open(path)
		if err != nil {
			var verr *store.ValidationError
			if errors.As(err, &verr) {
				color.Red("✗ %s is not a valid menu document:", path)
				for _, p := range verr.Problems {
					fmt.Printf("  - %s\n", p)
				}
				return fmt.Errorf("%d problem(s) found", len(verr.Problems))
			}
			return fmt.Errorf("read %s: %w", path, err)
		}

		color.Green("✓ %s is valid", path)
		fmt.Printf("  menus:     %d (%v)\n", len(st.MenuNames()), st.MenuNames())
		fmt.Printf("  responses: %d\n", len(st.ResponseLabels()))
		fmt.Printf("  admins:    %d\n", len(st.AdminIDs()))
		return nil
	},
}
