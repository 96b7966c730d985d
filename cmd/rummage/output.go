package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/willibrandon/rummage/pkg/verify"
)

// Exit codes.
const (
	exitSuccess      = 0
	exitFailure      = 1 // violations were reported
	exitCommandError = 2 // bad flags, unreadable files, tool failures
)

type exitError struct {
	Code    int
	Message string
	Err     error
}

func (e *exitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *exitError) Unwrap() error { return e.Err }

func wrapExitError(code int, message string, err error) *exitError {
	return &exitError{Code: code, Message: message, Err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var e *exitError
	if errors.As(err, &e) {
		return e.Code
	}
	return exitCommandError
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeReports prints reports in the chosen format and turns violations
// into exitFailure.
func writeReports(w io.Writer, opts *rootOptions, reports ...*verify.Report) error {
	if opts.json() {
		var err error
		if len(reports) == 1 {
			err = writeJSON(w, reports[0])
		} else {
			err = writeJSON(w, reports)
		}
		if err != nil {
			return wrapExitError(exitCommandError, "writing report", err)
		}
	} else {
		for _, r := range reports {
			if err := r.WriteText(w); err != nil {
				return wrapExitError(exitCommandError, "writing report", err)
			}
		}
	}
	return reportsErr(reports...)
}

func reportsErr(reports ...*verify.Report) error {
	failed := 0
	for _, r := range reports {
		if !r.OK() {
			failed++
		}
	}
	if failed > 0 {
		return &exitError{Code: exitFailure, Message: fmt.Sprintf("%d of %d run(s) reported violations", failed, len(reports))}
	}
	return nil
}
