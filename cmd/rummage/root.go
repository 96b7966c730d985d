package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/willibrandon/rummage/pkg/logging"
)

const (
	formatAuto = "auto"
	formatText = "text"
	formatJSON = "json"
)

// rootOptions holds the flags shared by every command.
type rootOptions struct {
	Verbose bool
	Format  string

	logger *zap.Logger
}

func (o *rootOptions) json() bool { return o.Format == formatJSON }

// resolveFormat picks text for terminals and json for pipes when the format
// is auto.
func resolveFormat(format string, stdout *os.File) (string, error) {
	switch format {
	case formatText, formatJSON:
		return format, nil
	case formatAuto, "":
		if isatty.IsTerminal(stdout.Fd()) || isatty.IsCygwinTerminal(stdout.Fd()) {
			return formatText, nil
		}
		return formatJSON, nil
	}
	return "", fmt.Errorf("invalid format %q: must be one of %s, %s, %s", format, formatAuto, formatText, formatJSON)
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "rummage",
		Short: "Run and verify checkpoint fixtures",
		Long: `rummage drives fixture programs that stop at named checkpoints and
checks that every checkpoint is reached in order, that the variables live at
each checkpoint hold the expected values, and that each run ends the way it
is supposed to.

Environment:
  RUMMAGE_ENABLED  set to 0 to stop delivering checkpoints to observers
  RUMMAGE_ONLY     comma separated checkpoint patterns to deliver
  RUMMAGE_SKIP     comma separated checkpoint patterns not to deliver
  RUMMAGE_TRACE    file a fixture binary appends its trace to`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			format, err := resolveFormat(opts.Format, os.Stdout)
			if err != nil {
				return wrapExitError(exitCommandError, "bad flags", err)
			}
			opts.Format = format
			if opts.logger, err = logging.New(opts.Verbose); err != nil {
				return wrapExitError(exitCommandError, "logging", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output and debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", formatAuto, "output format (auto|text|json)")

	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newExecCommand(opts))
	cmd.AddCommand(newAttachCommand(opts))
	cmd.AddCommand(newReplayCommand(opts))
	cmd.AddCommand(newMarkersCommand(opts))
	cmd.AddCommand(newVerifyCommand(opts))
	cmd.AddCommand(newVersionCommand(opts))

	return cmd
}
