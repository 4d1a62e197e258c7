package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"netdiag/internal/services/privacy"
)

func (c *cli) ipCmd() *cobra.Command {
	var (
		format string
		raw    bool
		mask   bool
	)
	cmd := &cobra.Command{
		Use:   "ip",
		Short: "Resolve the public IP and location from the local and server paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps := c.deps()
			defer deps.Close()

			rep := deps.Aggregator.Aggregate(cmd.Context())
			if mask {
				rep = privacy.MaskReport(rep)
			}
			switch format {
			case "json":
				return writeJSON(c.out, rep)
			case "table":
				renderReport(c.out, rep, raw)
				return nil
			default:
				return fmt.Errorf("unknown format: %s", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table|json")
	cmd.Flags().BoolVar(&raw, "raw", false, "also list every provider result")
	cmd.Flags().BoolVar(&mask, "mask", false, "hide the trailing part of every IP")
	return cmd
}
