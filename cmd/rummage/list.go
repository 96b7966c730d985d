package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/willibrandon/rummage/pkg/fixture"
)

type variantInfo struct {
	Name        string   `json:"name"`
	Tag         string   `json:"tag"`
	Sequence    []string `json:"sequence"`
	Outcome     string   `json:"outcome"`
	AbortReason string   `json:"abort_reason,omitempty"`
}

func newListCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the fixture variants and their checkpoint sequences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var infos []variantInfo
			for _, v := range fixture.Variants() {
				infos = append(infos, variantInfo{
					Name:        v.Name,
					Tag:         string(v.Tag),
					Sequence:    v.Expected(),
					Outcome:     v.Terminal.String(),
					AbortReason: v.AbortReason,
				})
			}
			if rootOpts.json() {
				return writeJSON(cmd.OutOrStdout(), infos)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VARIANT\tTAG\tOUTCOME\tCHECKPOINTS")
			for _, in := range infos {
				fmt.Fprintf(tw, "%s\t@%s\t%s\t%s\n", in.Name, in.Tag, in.Outcome, strings.Join(in.Sequence, " "))
			}
			return tw.Flush()
		},
	}
}
