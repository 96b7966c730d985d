package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/willibrandon/rummage/pkg/verify"
)

type scenarioResult struct {
	Scenario string         `json:"scenario"`
	File     string         `json:"file"`
	Passed   bool           `json:"passed"`
	Error    string         `json:"error,omitempty"`
	Report   *verify.Report `json:"report"`
}

func newVerifyCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <scenario.yaml|dir>...",
		Short: "Run scenario files and check their expectations",
		Long: `Run each scenario's variant in process and compare the run with what the
scenario expects: the checkpoint sequence, the outcome and, for negative
scenarios, the violations that must be reported. A directory argument runs
every *.yaml file in it.

Examples:
  rummage verify scenarios/
  rummage verify scenarios/basic_truncated.yaml --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := scenarioFiles(args)
			if err != nil {
				return wrapExitError(exitCommandError, "finding scenarios", err)
			}

			var results []scenarioResult
			failed := 0
			for _, file := range files {
				s, err := verify.LoadScenario(file)
				if err != nil {
					return wrapExitError(exitCommandError, "loading scenario", err)
				}
				ropts := verify.RunOptions{Logger: rootOpts.logger}
				if !rootOpts.json() && rootOpts.Verbose {
					ropts.Output = cmd.OutOrStdout()
				}
				report, err := verify.RunScenario(cmd.Context(), s, ropts)
				if err != nil {
					return wrapExitError(exitCommandError, "running scenario "+s.Name, err)
				}

				res := scenarioResult{Scenario: s.Name, File: file, Passed: true, Report: report}
				if err := s.Evaluate(report); err != nil {
					res.Passed, res.Error = false, err.Error()
					failed++
				}
				rootOpts.logger.Debug("scenario evaluated", zap.String("scenario", s.Name), zap.Bool("passed", res.Passed))
				results = append(results, res)

				if !rootOpts.json() {
					writeScenario(cmd, res)
				}
			}

			if rootOpts.json() {
				if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
					return wrapExitError(exitCommandError, "writing results", err)
				}
			}
			if failed > 0 {
				return &exitError{Code: exitFailure, Message: fmt.Sprintf("%d of %d scenario(s) failed", failed, len(results))}
			}
			return nil
		},
	}
}

func writeScenario(cmd *cobra.Command, res scenarioResult) {
	w := cmd.OutOrStdout()
	status := "ok"
	if !res.Passed {
		status = "FAIL"
	}
	fmt.Fprintf(w, "%-4s %s (%s)\n", status, res.Scenario, res.File)
	if !res.Passed {
		fmt.Fprintf(w, "     %s\n", res.Error)
		_ = res.Report.WriteText(w)
	}
}

func scenarioFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		fi, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			files = append(files, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*.yaml"))
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no scenarios in %s", arg)
		}
		files = append(files, matches...)
	}
	return files, nil
}
