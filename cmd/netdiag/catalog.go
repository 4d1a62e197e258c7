package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"netdiag/internal/adapters/catalog"
)

// catalogCmd 输出当前生效的目录（YAML），可作为自定义目录文件的起点。
func (c *cli) catalogCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the effective provider/site catalog as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if check {
				src := c.loaded.Path
				if c.loaded.Builtin {
					src = "builtin"
				}
				fmt.Fprintf(c.out, "catalog ok: %s (sha256 %s)\n", src, c.loaded.SHA256)
				return nil
			}
			b, err := catalog.Marshal(c.loaded.Catalog)
			if err != nil {
				return err
			}
			_, err = c.out.Write(b)
			return err
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "only validate and print the digest")
	return cmd
}
