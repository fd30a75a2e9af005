package exec

import (
	"context"
	"sync"
)

// MockCommandExecutor is a mock implementation of CommandExecutor for testing.
// It records all commands that would be executed without actually running them.
type MockCommandExecutor struct {
	mu sync.Mutex

	// Commands records all commands that were executed
	Commands []string

	// Invocations records the full invocation for each call to Run
	Invocations []Invocation

	// LookPathFunc allows custom behavior for LookPath in tests
	LookPathFunc func(file string) (string, error)

	// RunFunc allows custom behavior for Run in tests
	RunFunc func(ctx context.Context, inv Invocation, onStdout, onStderr LineFunc) (Result, error)
}

// LookPath implements the CommandExecutor interface for testing.
func (m *MockCommandExecutor) LookPath(file string) (string, error) {
	if m.LookPathFunc != nil {
		return m.LookPathFunc(file)
	}
	// By default, assume commands exist
	return "/path/to/" + file, nil
}

// Run implements the CommandExecutor interface for testing.
// It records the command that would be executed.
func (m *MockCommandExecutor) Run(ctx context.Context, inv Invocation, onStdout, onStderr LineFunc) (Result, error) {
	m.mu.Lock()
	m.Commands = append(m.Commands, inv.String())
	m.Invocations = append(m.Invocations, inv)
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx, inv, onStdout, onStderr)
	}
	return Result{ExitCode: 0, State: StateCompleted}, nil
}

// Calls returns how many times Run was invoked.
func (m *MockCommandExecutor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Invocations)
}

// LastInvocation returns the most recent invocation passed to Run.
func (m *MockCommandExecutor) LastInvocation() (Invocation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Invocations) == 0 {
		return Invocation{}, false
	}
	return m.Invocations[len(m.Invocations)-1], true
}
