package exec

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"time"

	"github.com/mattsolo1/grove-mongofixture/pkg/logging"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var processLog = logging.NewLogger("mongofixture.exec")

// maxLineLength caps a single output line; capture stops at a longer one.
const maxLineLength = 1024 * 1024

// Process is a started child whose output is being pumped line by line.
type Process struct {
	cmd     *exec.Cmd
	inv     Invocation
	started time.Time
	done    chan struct{}
	result  Result
	err     error
}

// Start launches inv without waiting for it. Output lines are delivered
// to the handlers from background goroutines; Done is closed once both
// streams are drained and the process has been reaped.
func Start(inv Invocation, onStdout, onStderr LineFunc) (*Process, error) {
	cmd := exec.Command(inv.Executable(), inv.Args...)
	cmd.Dir = inv.Dir
	configureProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &ExecError{Err: err, Output: inv.String()}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &ExecError{Err: err, Output: inv.String()}
	}
	if err := cmd.Start(); err != nil {
		return nil, &ExecError{Err: err, Output: inv.String()}
	}

	p := &Process{
		cmd:     cmd,
		inv:     inv,
		started: time.Now(),
		done:    make(chan struct{}),
		result:  Result{ExitCode: -1, State: StateRunning},
	}
	go p.wait(stdout, stderr, onStdout, onStderr)
	return p, nil
}

func (p *Process) wait(stdout, stderr io.Reader, onStdout, onStderr LineFunc) {
	var outLines, errLines []string
	var g errgroup.Group
	g.Go(func() (err error) {
		outLines, err = pumpLines(stdout, onStdout)
		return err
	})
	g.Go(func() (err error) {
		errLines, err = pumpLines(stderr, onStderr)
		return err
	})
	pumpErr := g.Wait()
	waitErr := p.cmd.Wait()

	p.result = Result{
		ExitCode: exitCodeFrom(waitErr, p.cmd.ProcessState),
		Stdout:   outLines,
		Stderr:   errLines,
		State:    StateCompleted,
		Duration: time.Since(p.started),
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		p.err = waitErr
	}
	if pumpErr != nil {
		// The exit code decides the outcome; unreadable output is only reported.
		processLog.WithFields(logrus.Fields{
			"tool":      p.inv.Tool,
			"exit_code": p.result.ExitCode,
		}).WithError(pumpErr).Warn("Output capture incomplete")
	}
	close(p.done)
}

// Pid returns the operating system process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Invocation returns what was started.
func (p *Process) Invocation() Invocation {
	return p.inv
}

// Done is closed once the process has exited and its output is drained.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Result returns the outcome. Before Done is closed it reports a running
// process with no captured output.
func (p *Process) Result() Result {
	select {
	case <-p.done:
		return p.result
	default:
		return Result{ExitCode: -1, State: StateRunning, Duration: time.Since(p.started)}
	}
}

// Err reports a failure reaping the process. It is nil while running and
// for ordinary non-zero exits.
func (p *Process) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Interrupt asks the process to shut down gracefully.
func (p *Process) Interrupt() error {
	return interruptProcess(p.cmd)
}

// Kill terminates the process immediately.
func (p *Process) Kill() error {
	return killProcess(p.cmd)
}

func pumpLines(r io.Reader, handle LineFunc) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	for scanner.Scan() {
		line := scanner.Text()
		lines = append(lines, line)
		if handle != nil {
			handle(line)
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, fs.ErrClosed) && !errors.Is(err, os.ErrClosed) {
		// Keep draining so the child never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, r)
		return lines, err
	}
	return lines, nil
}

func exitCodeFrom(waitErr error, state *os.ProcessState) int {
	if state != nil {
		return state.ExitCode()
	}
	if waitErr == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) && exitErr.ProcessState != nil {
		return exitErr.ProcessState.ExitCode()
	}
	return -1
}
