package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"netdiag/internal/platform/hash"
)

// verifyCmd 复核导出报告的 SHA-256（与 report 命令输出或 X-Content-SHA256 头对比）。
func (c *cli) verifyCmd() *cobra.Command {
	var want string
	cmd := &cobra.Command{
		Use:   "verify FILE",
		Short: "Check an exported report against its SHA-256 digest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, size, err := hash.File(args[0])
			if err != nil {
				return fmt.Errorf("hash %s: %w", args[0], err)
			}
			want = strings.ToLower(strings.TrimSpace(want))
			if want != "" && want != sum {
				return fmt.Errorf("sha256 mismatch: expected %s, actual %s", want, sum)
			}
			status := "ok"
			if want == "" {
				status = "computed"
			}
			fmt.Fprintf(c.out, "%s  %s  %d bytes  %s\n", sum, args[0], size, status)
			return nil
		},
	}
	cmd.Flags().StringVar(&want, "sha256", "", "expected digest (hex)")
	return cmd
}
