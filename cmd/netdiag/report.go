package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"netdiag/internal/adapters/catalog"
	"netdiag/internal/app"
	"netdiag/internal/domain/model"
	"netdiag/internal/services/privacy"
	"netdiag/internal/services/report"
)

func (c *cli) reportCmd() *cobra.Command {
	var (
		outPath string
		noPing  bool
		mask    bool
	)
	cmd := &cobra.Command{
		Use:   "report [host...]",
		Short: "Run the IP lookup and a site batch, then write a PDF report",
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := catalog.SelectTargets(c.loaded.Catalog.Targets, args)
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = fmt.Sprintf("netdiag_report_%s.pdf", time.Now().Format("20060102_150405"))
			}

			deps := c.deps()
			defer deps.Close()

			rep := deps.Aggregator.Aggregate(cmd.Context())
			var batch *model.BatchSnapshot
			if !noPing {
				snap := c.runBatch(cmd, deps.Runner, targets, true)
				batch = &snap
			}

			if mask {
				rep = privacy.MaskReport(rep)
				if batch != nil {
					m := privacy.MaskBatch(*batch)
					batch = &m
				}
			}

			doc := report.BuildDocument(&rep, batch, app.Version, deps.Warnings)
			res, err := report.WriteFile(outPath, doc)
			if err != nil {
				return err
			}
			for _, w := range res.Warnings {
				fmt.Fprintf(c.errOut, "warning: %s\n", w)
			}
			fmt.Fprintf(c.out, "report: %s\nsha256: %s\nsize:   %d\n", res.Path, res.SHA256, res.Size)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output pdf path (default netdiag_report_<time>.pdf)")
	cmd.Flags().BoolVar(&noPing, "no-ping", false, "skip the site batch")
	cmd.Flags().BoolVar(&mask, "mask", false, "mask IPs for sharing")
	return cmd
}
