package exec

import "context"

// LineFunc receives a single line of process output, without the
// trailing newline.
type LineFunc func(line string)

// CommandExecutor defines an interface for running external commands.
// This abstraction allows for easier testing by providing a mockable interface.
type CommandExecutor interface {
	// LookPath searches for an executable named file in the directories
	// named by the PATH environment variable.
	LookPath(file string) (string, error)

	// Run starts the invocation and blocks until it exits or its timeout
	// elapses. Output lines are captured into the Result and forwarded to
	// onStdout/onStderr as they arrive. A non-nil error means the process
	// could not be started or ctx was cancelled; exit codes and timeouts
	// are reported through the Result.
	Run(ctx context.Context, inv Invocation, onStdout, onStderr LineFunc) (Result, error)
}
