package exec

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// defaultReapDelay bounds how long Run waits for a killed process to be
// reaped before giving up on its captured output.
const defaultReapDelay = 2 * time.Second

// ExecError wraps an execution error with the command output
type ExecError struct {
	Err    error
	Output string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Output)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// RealCommandExecutor implements CommandExecutor using the actual os/exec package.
// This is the production implementation that executes real system commands.
type RealCommandExecutor struct {
	// ReapDelay overrides how long to wait for a killed process. Zero uses
	// a two second default.
	ReapDelay time.Duration
}

// LookPath searches for an executable named file in the directories
// named by the PATH environment variable.
func (e *RealCommandExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// Run starts inv and waits for it to exit, for its timeout to elapse or
// for ctx to be cancelled, whichever comes first. On timeout the process
// (and on Unix its whole process group) is killed and the Result is
// marked TimedOut.
func (e *RealCommandExecutor) Run(ctx context.Context, inv Invocation, onStdout, onStderr LineFunc) (Result, error) {
	proc, err := Start(inv, onStdout, onStderr)
	if err != nil {
		return Result{ExitCode: -1, State: StateNotStarted}, err
	}

	var timeout <-chan time.Time
	if inv.Timeout > 0 {
		timer := time.NewTimer(inv.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-proc.Done():
		return proc.Result(), proc.Err()
	case <-timeout:
		res := e.abandon(proc)
		res.TimedOut = true
		res.State = StateTimedOut
		return res, nil
	case <-ctx.Done():
		return e.abandon(proc), ctx.Err()
	}
}

// abandon kills proc and returns whatever it captured, provided it is
// reaped within the reap delay.
func (e *RealCommandExecutor) abandon(proc *Process) Result {
	_ = proc.Kill()
	delay := e.ReapDelay
	if delay <= 0 {
		delay = defaultReapDelay
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-proc.Done():
		return proc.Result()
	case <-timer.C:
		return Result{ExitCode: -1, State: StateRunning, Duration: time.Since(proc.started)}
	}
}

// Default is a shared instance of RealCommandExecutor.
var Default CommandExecutor = &RealCommandExecutor{}
