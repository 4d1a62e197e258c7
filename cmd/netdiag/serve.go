package main

import (
	"github.com/spf13/cobra"

	"netdiag/internal/services/webapp"
)

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API and the /api/network endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps := c.deps()
			defer deps.Close()

			return webapp.Run(cmd.Context(), webapp.Options{
				ListenAddr: c.cfg.ListenAddr,
				Deps:       deps,
				MaxBatches: c.v.GetInt("max-batches"),
			})
		},
	}
	cmd.Flags().String("listen", "127.0.0.1:8787", "listen address")
	cmd.Flags().Int("max-batches", 0, "batches kept in memory (0 = default)")
	_ = c.v.BindPFlag("listen", cmd.Flags().Lookup("listen"))
	_ = c.v.BindPFlag("max-batches", cmd.Flags().Lookup("max-batches"))
	return cmd
}
