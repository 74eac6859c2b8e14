package main

import (
	"tierbot/internal/app"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the live trading loops and dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, cleanup, err := loadConfig()
		if err != nil {
			return err
		}
		defer cleanup()

		a, err := app.New(cmd.Context(), cfg, configPath)
		if err != nil {
			return err
		}
		return a.Run(cmd.Context())
	},
}
