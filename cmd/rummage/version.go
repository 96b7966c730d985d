package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/willibrandon/rummage/pkg/version"
)

func newVersionCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rootOpts.json() {
				return writeJSON(cmd.OutOrStdout(), version.Get())
			}
			fmt.Fprintln(cmd.OutOrStdout(), version.GetVersionInfo())
			return nil
		},
	}
}
