package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"netdiag/internal/adapters/catalog"
	"netdiag/internal/domain/model"
	"netdiag/internal/services/batchprobe"
	"netdiag/internal/services/report"
)

func (c *cli) pingCmd() *cobra.Command {
	var (
		format    string
		chartPath string
		quiet     bool
	)
	cmd := &cobra.Command{
		Use:   "ping [host...]",
		Short: "Ping sites from the local and server paths",
		Long: `Ping the catalog sites (or the given hosts) from both paths.
Progress is printed as results land; Ctrl+C cancels sites that have not started.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "json" {
				return fmt.Errorf("unknown format: %s", format)
			}
			targets, err := catalog.SelectTargets(c.loaded.Catalog.Targets, args)
			if err != nil {
				return err
			}

			deps := c.deps()
			defer deps.Close()

			snap := c.runBatch(cmd, deps.Runner, targets, quiet)
			if chartPath != "" {
				if err := writeChart(chartPath, snap); err != nil {
					fmt.Fprintf(c.errOut, "warning: %v\n", err)
				}
			}
			if format == "json" {
				return writeJSON(c.out, snap)
			}
			renderBatch(c.out, snap)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table|json")
	cmd.Flags().StringVar(&chartPath, "chart", "", "write a latency chart (png) to this path")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print progress")
	return cmd
}

// batchStarter 是 batchprobe.Runner 的最小能力。
type batchStarter interface {
	Start(ctx context.Context, targets []model.SiteTarget) *batchprobe.Session
}

// runBatch 启动批次并打印进度；命令 context 取消（Ctrl+C）时取消批次。
func (c *cli) runBatch(cmd *cobra.Command, runner batchStarter, targets []model.SiteTarget, quiet bool) model.BatchSnapshot {
	ctx := cmd.Context()
	sess := runner.Start(context.WithoutCancel(ctx), targets)
	go func() {
		select {
		case <-ctx.Done():
			sess.Cancel()
		case <-sess.Done():
		}
	}()

	for rec := range sess.Updates() {
		if quiet || rec.Local.State == model.StatePending && rec.Server.State == model.StatePending {
			continue
		}
		fmt.Fprintf(c.errOut, "%-24s local=%-18s server=%s\n",
			rec.Target.Name, report.CellText(rec.Local), report.CellText(rec.Server))
	}
	sess.Wait()
	return sess.Snapshot()
}

func writeChart(path string, snap model.BatchSnapshot) error {
	var buf bytes.Buffer
	if err := report.RenderLatencyChart(&buf, snap); err != nil {
		return fmt.Errorf("latency chart: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	return nil
}
