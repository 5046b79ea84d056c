package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ganot/forge-registry/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Rewrite the stored registry at the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		version, res := a.MigrateRegistry(cmd.Context())
		if !res.Committed() {
			if res.Err != nil {
				return fmt.Errorf("registry not saved (%s): %w", res.Outcome, res.Err)
			}
			return fmt.Errorf("registry not saved: %s", res.Outcome)
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s registry at schema version %d (%s after %d attempts)\n", green("✓"), version, res.Outcome, res.Attempts)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
