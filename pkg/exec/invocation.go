package exec

import (
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// State is the lifecycle position of a single invocation.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateCompleted
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateTimedOut:
		return "timed-out"
	default:
		return "unknown"
	}
}

// Invocation describes one run of an external tool.
type Invocation struct {
	// Tool is the short tool name, e.g. "mongoimport".
	Tool string
	// Path is the executable to run. Empty means Tool is resolved via PATH.
	Path string
	Args []string
	// Dir is the working directory of the child process.
	Dir string
	// Timeout bounds the wait. Zero waits forever.
	Timeout time.Duration
}

// Executable returns the path that will be handed to the OS.
func (inv Invocation) Executable() string {
	if inv.Path != "" {
		return inv.Path
	}
	return inv.Tool
}

// String renders the invocation as a single command line.
func (inv Invocation) String() string {
	if len(inv.Args) == 0 {
		return inv.Executable()
	}
	return inv.Executable() + " " + strings.Join(inv.Args, " ")
}

// Result is what a finished (or abandoned) invocation produced.
type Result struct {
	ExitCode int
	Stdout   []string
	Stderr   []string
	TimedOut bool
	State    State
	Duration time.Duration
}

// BinaryPath joins dir and tool, adding the platform executable suffix.
func BinaryPath(dir, tool string) string {
	name := tool
	if runtime.GOOS == "windows" && !strings.HasSuffix(strings.ToLower(name), ".exe") {
		name += ".exe"
	}
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}
