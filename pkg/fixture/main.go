package fixture

import (
	"fmt"
	"os"

	"github.com/willibrandon/rummage/pkg/checkpoint"
	"github.com/willibrandon/rummage/pkg/recorder"
)

// TraceEnv names a file the fixture appends its checkpoint trace to.
const TraceEnv = "RUMMAGE_TRACE"

// Main is the process entry of a fixture binary. It runs v with os.Args,
// exits 0 on normal completion and raises SIGABRT on a deliberate abort.
func Main(v Variant) {
	var (
		obs checkpoint.Observer
		rec *recorder.FileRecorder
	)
	if path := os.Getenv(TraceEnv); path != "" {
		var err error
		rec, err = recorder.NewFileRecorder(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: trace disabled: %v\n", v.Name, err)
		} else {
			obs = recorder.NewObserver(rec)
		}
	}

	run := checkpoint.NewRun(v.Name, v.Tag, obs)
	outcome := v.Execute(run, os.Args)

	if rec != nil {
		if err := rec.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "%s: closing trace: %v\n", v.Name, err)
		}
	}

	if outcome == checkpoint.AbortedDeliberately {
		fmt.Fprintln(os.Stderr, v.AbortReason)
		abort()
	}
	os.Exit(0)
}
