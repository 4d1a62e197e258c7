package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"netdiag/internal/app"
)

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(c.out, "netdiag %s (commit %s, built %s)\n", app.Version, app.Commit, app.BuildTime)
		},
	}
}
