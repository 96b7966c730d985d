package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/willibrandon/rummage/pkg/checkpoint"
)

func newMarkersCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "markers <file>...",
		Short: "List the checkpoint markers annotated in source files",
		Long: `Scan source files for "@tag: name" marker annotations and print where each
one is. The locations can be passed to replay --break.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var all []checkpoint.MarkerLocation
			for _, path := range args {
				locs, err := scanFile(path)
				if err != nil {
					return wrapExitError(exitCommandError, "scanning markers", err)
				}
				all = append(all, locs...)
			}
			if rootOpts.json() {
				if all == nil {
					all = []checkpoint.MarkerLocation{}
				}
				return writeJSON(cmd.OutOrStdout(), all)
			}
			for _, l := range all {
				fmt.Fprintln(cmd.OutOrStdout(), l)
			}
			return nil
		},
	}
}

func scanFile(path string) ([]checkpoint.MarkerLocation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return checkpoint.ScanMarkers(f, path)
}
