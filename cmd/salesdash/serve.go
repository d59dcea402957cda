package main

import (
	"github.com/spf13/cobra"

	"github.com/FACorreiaa/sales-insights/cmd/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		deps, err := api.InitDependencies(cfg, logger)
		if err != nil {
			return err
		}
		return deps.Serve(cmd.Context())
	},
}
