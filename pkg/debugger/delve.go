package debugger

import (
	"context"
	"net"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-delve/delve/service/api"
	"github.com/go-delve/delve/service/rpc2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/willibrandon/rummage/pkg/checkpoint"
	"github.com/willibrandon/rummage/pkg/fixture"
	"github.com/willibrandon/rummage/pkg/logging"
)

// connectTimeout bounds how long we wait for the headless server to listen.
const connectTimeout = 10 * time.Second

// localsConfig loads the locals of the unit frame at a checkpoint.
var localsConfig = api.LoadConfig{
	FollowPointers:     true,
	MaxVariableRecurse: 1,
	MaxStringLen:       64,
	MaxArrayValues:     64,
	MaxStructFields:    -1,
}

// argsConfig loads the trap's own arguments.
var argsConfig = api.LoadConfig{
	MaxStringLen: 256,
}

// DelveDebugger wraps a Delve RPC client session, managing the underlying dlv process
type DelveDebugger struct {
	client    *rpc2.RPCClient
	target    string    // Target binary path
	dlvCmd    *exec.Cmd // The running 'dlv exec' command
	dlvListen string    // The address dlv is listening on (e.g., "localhost:12345")
	logger    logging.Logger
	trapID    int
}

// RemoteVar is a variable read from the stopped fixture.
type RemoteVar struct {
	Name  string
	Type  string
	Value string
}

// RemoteCheckpoint is one stop on the checkpoint trap.
type RemoteCheckpoint struct {
	checkpoint.Checkpoint
	Function string
	Locals   []RemoteVar
}

// Var finds a local by name.
func (c RemoteCheckpoint) Var(name string) (RemoteVar, bool) {
	for _, v := range c.Locals {
		if v.Name == name {
			return v, true
		}
	}
	return RemoteVar{}, false
}

// TraceResult is what Trace observed.
type TraceResult struct {
	Checkpoints []RemoteCheckpoint
	Stops       int  // every stop, reported or filtered
	Exited      bool // false when the trace was cut short
	ExitStatus  int
}

// Names returns the reported checkpoint names in order.
func (r *TraceResult) Names() []string {
	names := make([]string, len(r.Checkpoints))
	for i, c := range r.Checkpoints {
		names[i] = c.Name
	}
	return names
}

// Outcome maps the exit status. Only death by the abort signal counts as a
// deliberate abort; any other non-zero status is a crash. A trace that did
// not see the exit is Running.
func (r *TraceResult) Outcome() checkpoint.Outcome {
	if !r.Exited {
		return checkpoint.Running
	}
	return fixture.ExitStatusOutcome(r.ExitStatus)
}

// findFreePort finds an available TCP port on localhost
func findFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// NewDelveDebuggerWithArgs launches a Delve headless server for the target with the given command line arguments and connects via RPC
func NewDelveDebuggerWithArgs(ctx context.Context, targetPath string, args []string, logger logging.Logger) (*DelveDebugger, error) {
	logger = logging.OrNop(logger)

	absPath, err := filepath.Abs(targetPath)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving target %s", targetPath)
	}

	port, err := findFreePort()
	if err != nil {
		return nil, errors.Wrap(err, "finding a free port for delve")
	}
	dlvListenAddr := "localhost:" + strconv.Itoa(port)

	cmdArgs := []string{
		"exec", absPath,
		"--headless",
		"--listen=" + dlvListenAddr,
		"--api-version=2",
		"--accept-multiclient",
	}

	// Only add the '--' separator if we have args to pass
	if len(args) > 0 {
		cmdArgs = append(cmdArgs, "--")
		cmdArgs = append(cmdArgs, args...)
	}

	dlvCmd := exec.Command("dlv", cmdArgs...)
	setupProcAttr(dlvCmd)

	if err := dlvCmd.Start(); err != nil {
		return nil, errors.Wrap(err, "starting delve")
	}
	logger.Debug("started delve headless server",
		zap.String("target", absPath),
		zap.String("listen", dlvListenAddr),
		zap.Int("pid", dlvCmd.Process.Pid),
		zap.Strings("args", args))

	conn, err := dial(ctx, dlvListenAddr)
	if err != nil {
		_ = dlvCmd.Process.Kill()
		_, _ = dlvCmd.Process.Wait()
		return nil, err
	}
	client := rpc2.NewClientFromConn(conn)

	if _, err := client.GetState(); err != nil {
		_ = dlvCmd.Process.Kill()
		_, _ = dlvCmd.Process.Wait()
		return nil, errors.Wrapf(err, "talking to delve at %s", dlvListenAddr)
	}

	return &DelveDebugger{
		client:    client,
		target:    absPath,
		dlvCmd:    dlvCmd,
		dlvListen: dlvListenAddr,
		logger:    logger,
	}, nil
}

// dial retries until the headless server accepts connections.
func dial(ctx context.Context, addr string) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn, nil
		}
		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(err, "connecting to delve at %s", addr)
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// SetFunctionBreakpoint sets a breakpoint at a function
func (d *DelveDebugger) SetFunctionBreakpoint(funcName string) (*api.Breakpoint, error) {
	createdBp, err := d.client.CreateBreakpoint(&api.Breakpoint{FunctionName: funcName})
	if err == nil {
		return createdBp, nil
	}

	if strings.Contains(err.Error(), "could not find function") {
		funcs, _ := d.client.ListFunctions(filepath.Base(funcName), 5)
		if len(funcs) > 0 {
			return nil, errors.Errorf("%v\nDid you mean one of these functions?\n%s",
				err, strings.Join(funcs, "\n"))
		}
	}
	return nil, errors.Wrapf(err, "could not set breakpoint at function %s", funcName)
}

// SetCheckpointTrap sets the breakpoint every checkpoint stops on. The
// target must be built with the checkpoint package.
func (d *DelveDebugger) SetCheckpointTrap() (*api.Breakpoint, error) {
	bp, err := d.client.CreateBreakpoint(&api.Breakpoint{
		FunctionName: checkpoint.TrapFunction,
		Name:         "checkpoint",
		Stacktrace:   checkpoint.TrapFrameDepth + 1,
		LoadArgs:     &argsConfig,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "setting checkpoint trap in %s (not built with rummage?)", d.target)
	}
	d.trapID = bp.ID
	return bp, nil
}

// ClearBreakpoint removes a breakpoint by its ID using RPC
func (d *DelveDebugger) ClearBreakpoint(id int) error {
	_, err := d.client.ClearBreakpoint(id)
	return err
}

// Continue resumes execution until the next breakpoint or the exit of the
// target. An exit is reported through the state, not as an error.
func (d *DelveDebugger) Continue() (*api.DebuggerState, error) {
	state := <-d.client.Continue()
	if state.Exited {
		return state, nil
	}
	if state.Err != nil {
		return nil, state.Err
	}
	return state, nil
}

func (d *DelveDebugger) onTrap(state *api.DebuggerState) bool {
	th := state.CurrentThread
	return th != nil && th.Breakpoint != nil && th.Breakpoint.ID == d.trapID
}

func stopReason(state *api.DebuggerState) string {
	if th := state.CurrentThread; th != nil && th.Breakpoint != nil {
		return th.Breakpoint.Name
	}
	return "unknown"
}

// ReadCheckpoint decodes a stop on the checkpoint trap: the trap's arguments
// name the checkpoint and the unit frame holds its locals.
func (d *DelveDebugger) ReadCheckpoint(state *api.DebuggerState) (*RemoteCheckpoint, error) {
	th := state.CurrentThread
	if th == nil || th.Breakpoint == nil || th.Breakpoint.ID != d.trapID || th.BreakpointInfo == nil {
		return nil, errors.New("not stopped on the checkpoint trap")
	}
	info := th.BreakpointInfo

	cp := &RemoteCheckpoint{}
	for _, arg := range info.Arguments {
		switch arg.Name {
		case "name":
			cp.Name = arg.Value
		case "ordinal":
			n, err := strconv.Atoi(arg.Value)
			if err != nil {
				return nil, errors.Wrapf(err, "ordinal %q", arg.Value)
			}
			cp.Ordinal = n
		}
	}
	if cp.Name == "" {
		return nil, errors.New("checkpoint trap stopped without a name")
	}

	if len(info.Stacktrace) > checkpoint.TrapFrameDepth {
		frame := info.Stacktrace[checkpoint.TrapFrameDepth]
		cp.File, cp.Line = frame.File, frame.Line
		if frame.Function != nil {
			cp.Function = frame.Function.Name()
		}
	}

	scope := api.EvalScope{GoroutineID: th.GoroutineID, Frame: checkpoint.TrapFrameDepth}
	locals, err := d.client.ListLocalVariables(scope, localsConfig)
	if err != nil {
		return nil, errors.Wrapf(err, "reading locals at %s", cp.Name)
	}
	for i := range locals {
		cp.Locals = append(cp.Locals, RemoteVar{
			Name:  locals[i].Name,
			Type:  locals[i].Type,
			Value: locals[i].SinglelineString(),
		})
	}
	return cp, nil
}

// GetVariable evaluates an expression in the unit frame of the current stop.
func (d *DelveDebugger) GetVariable(expr string) (*api.Variable, error) {
	state, err := d.client.GetState()
	if err != nil {
		return nil, errors.Wrap(err, "getting state")
	}
	if state.CurrentThread == nil {
		return nil, errors.New("no current thread available")
	}
	scope := api.EvalScope{GoroutineID: state.CurrentThread.GoroutineID, Frame: checkpoint.TrapFrameDepth}
	v, err := d.client.EvalVariable(scope, expr, localsConfig)
	return v, errors.Wrapf(err, "evaluating %s", expr)
}

// Trace walks the target to its exit, stopping on every checkpoint. Stops
// the filter rejects are resumed without being reported. After maxStops
// trap hits the target is killed and the result is marked not exited.
func (d *DelveDebugger) Trace(ctx context.Context, filter *BreakpointManager, maxStops int) (*TraceResult, error) {
	if d.trapID == 0 {
		if _, err := d.SetCheckpointTrap(); err != nil {
			return nil, err
		}
	}

	res := &TraceResult{}
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		state, err := d.Continue()
		if err != nil {
			return res, err
		}
		if state.Exited {
			res.Exited, res.ExitStatus = true, state.ExitStatus
			d.logger.Debug("target exited", zap.Int("status", state.ExitStatus))
			return res, nil
		}

		if !d.onTrap(state) {
			// runtime crash breakpoints fire on the way to an abort; the
			// next Continue reaps the exit status
			res.Stops++
			if maxStops > 0 && res.Stops > maxStops {
				return res, nil
			}
			d.logger.Debug("resuming past non-checkpoint stop", zap.String("reason", stopReason(state)))
			continue
		}
		cp, err := d.ReadCheckpoint(state)
		if err != nil {
			return res, err
		}
		res.Stops++
		if maxStops > 0 && res.Stops > maxStops {
			d.logger.Warn("stop bound reached, killing target", zap.Int("max_stops", maxStops))
			return res, nil
		}
		if filter != nil && !filter.Matches(cp.Checkpoint) {
			continue
		}
		d.logger.Debug("checkpoint",
			zap.String("name", cp.Name),
			zap.Int("ordinal", cp.Ordinal),
			zap.String("function", cp.Function))
		res.Checkpoints = append(res.Checkpoints, *cp)
	}
}

// Close terminates the connection and the Delve process
func (d *DelveDebugger) Close() error {
	var closeErr error
	if d.client != nil {
		if err := d.client.Detach(true); err != nil && !strings.Contains(err.Error(), "exited") {
			closeErr = errors.Wrap(err, "detaching from delve")
		}
		d.client = nil
	}
	if d.dlvCmd != nil && d.dlvCmd.Process != nil {
		pid := d.dlvCmd.Process.Pid
		if err := d.dlvCmd.Process.Kill(); err != nil && err.Error() != "os: process already finished" {
			d.logger.Warn("killing delve", zap.Int("pid", pid), zap.Error(err))
		}
		_, waitErr := d.dlvCmd.Process.Wait()
		if waitErr != nil && waitErr.Error() != "os: process already finished" && !isWaitAlreadyExited(waitErr) {
			d.logger.Warn("waiting for delve", zap.Int("pid", pid), zap.Error(waitErr))
		}
		d.logger.Debug("delve terminated", zap.Int("pid", pid))
		d.dlvCmd = nil
	}
	return closeErr
}

// Helper to check for specific Wait error on Windows
func isWaitAlreadyExited(err error) bool {
	if e, ok := err.(*exec.ExitError); ok {
		if status, ok := e.Sys().(syscall.WaitStatus); ok {
			return status.ExitStatus() == -1
		}
	}
	return false
}
