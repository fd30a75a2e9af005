package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattsolo1/grove-mongofixture/pkg/exec"
	"github.com/mattsolo1/grove-mongofixture/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConn = Connection{IP: "127.0.0.1", Port: 27018}

func writeDataFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "people.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"ada"}`+"\n"), 0644))
	return path
}

func TestRunner_ImportArgs(t *testing.T) {
	tests := []struct {
		name      string
		verbosity Verbosity
		drop      bool
		want      []string
	}{
		{
			name:      "normal with drop",
			verbosity: VerbosityNormal,
			drop:      true,
			want:      []string{"--host", "127.0.0.1:27018", "--db", "shop", "--collection", "orders", "--file", "C:/data/orders.json", "--drop"},
		},
		{
			name:      "quiet without drop",
			verbosity: VerbosityQuiet,
			drop:      false,
			want:      []string{"--host", "127.0.0.1:27018", "--db", "shop", "--collection", "orders", "--file", "C:/data/orders.json", "--quiet"},
		},
		{
			name:      "verbose with drop",
			verbosity: VerbosityVerbose,
			drop:      true,
			want:      []string{"--host", "127.0.0.1:27018", "--db", "shop", "--collection", "orders", "--file", "C:/data/orders.json", "--drop", "--verbose"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRunner("/opt/mongo/bin", testConn, Options{Verbosity: tt.verbosity}, &exec.MockCommandExecutor{})
			assert.Equal(t, tt.want, r.ImportArgs("shop", "orders", `C:\data\orders.json`, tt.drop))
		})
	}
}

func TestRunner_ExportArgs(t *testing.T) {
	r := NewRunner("/opt/mongo/bin", testConn, Options{Verbosity: VerbosityVerbose}, &exec.MockCommandExecutor{})
	assert.Equal(t,
		[]string{"--host", "127.0.0.1:27018", "--db", "shop", "--collection", "orders", "--out", "out/dir/orders.json", "--verbose"},
		r.ExportArgs("shop", "orders", `out\dir/orders.json`))

	r.Options.Verbosity = VerbosityNormal
	assert.NotContains(t, r.ExportArgs("shop", "orders", "o.json"), "--drop")
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "C:/a/b/c.json", NormalizePath(`C:\a\b\c.json`))
	assert.Equal(t, "/a/b/c.json", NormalizePath("/a/b/c.json"))
	assert.Equal(t, "a/b/c.json", NormalizePath(`a\b/c.json`))
}

func TestConnection_HostPort(t *testing.T) {
	assert.Equal(t, "127.0.0.1:27017", Connection{IP: "127.0.0.1", Port: 27017}.HostPort())
	assert.Equal(t, "[::1]:27017", Connection{IP: "::1", Port: 27017}.HostPort())
}

func TestRunner_Import(t *testing.T) {
	file := writeDataFile(t)
	mock := &exec.MockCommandExecutor{}
	r := NewRunner("/opt/mongo/bin", testConn, Options{}, mock)

	require.NoError(t, r.Import(context.Background(), "shop", "orders", file))

	inv, ok := mock.LastInvocation()
	require.True(t, ok)
	assert.Equal(t, ImportTool, inv.Tool)
	assert.Equal(t, exec.BinaryPath("/opt/mongo/bin", ImportTool), inv.Path)
	assert.Equal(t, "/opt/mongo/bin", inv.Dir)
	assert.Equal(t, DefaultTimeout, inv.Timeout)
	assert.Contains(t, inv.Args, "--drop")
	assert.Contains(t, inv.Args, NormalizePath(file))
}

func TestRunner_ImportOptions(t *testing.T) {
	file := writeDataFile(t)
	mock := &exec.MockCommandExecutor{}
	r := NewRunner("/bin", testConn, Options{}, mock)

	require.NoError(t, r.Import(context.Background(), "shop", "orders", file, WithDrop(false), WithTimeout(250*time.Millisecond), WithTimeout(-1)))

	inv, _ := mock.LastInvocation()
	assert.NotContains(t, inv.Args, "--drop")
	assert.Equal(t, 250*time.Millisecond, inv.Timeout)
}

func TestRunner_ImportMissingFileSpawnsNothing(t *testing.T) {
	mock := &exec.MockCommandExecutor{}
	r := NewRunner("/bin", testConn, Options{}, mock)

	err := r.Import(context.Background(), "shop", "orders", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, 0, mock.Calls())
	assert.Empty(t, mock.Commands)
}

func TestRunner_Timeout(t *testing.T) {
	file := writeDataFile(t)
	mock := &exec.MockCommandExecutor{
		RunFunc: func(ctx context.Context, inv exec.Invocation, onStdout, onStderr exec.LineFunc) (exec.Result, error) {
			return exec.Result{ExitCode: -1, TimedOut: true, State: exec.StateTimedOut}, nil
		},
	}
	r := NewRunner("/bin", testConn, Options{}, mock)

	err := r.Import(context.Background(), "shop", "orders", file, WithTimeout(1500*time.Millisecond))
	require.Error(t, err)
	assert.True(t, IsTimeout(err))

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 1500*time.Millisecond, te.Timeout)
	msg := err.Error()
	assert.Contains(t, msg, file)
	assert.Contains(t, msg, "shop")
	assert.Contains(t, msg, "orders")
	assert.Contains(t, msg, "1500")

	err = r.Export(context.Background(), "shop", "orders", "/tmp/out.json")
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ExportTool, te.Tool)
	assert.Contains(t, err.Error(), "5000")
}

func TestRunner_ExitCode(t *testing.T) {
	file := writeDataFile(t)
	mock := &exec.MockCommandExecutor{
		RunFunc: func(ctx context.Context, inv exec.Invocation, onStdout, onStderr exec.LineFunc) (exec.Result, error) {
			onStderr("Failed: cannot decode JSON")
			return exec.Result{ExitCode: 7, Stderr: []string{"Failed: cannot decode JSON"}, State: exec.StateCompleted}, nil
		},
	}
	sink := &logging.RecordingSink{}
	r := NewRunner("/bin", testConn, Options{Verbosity: VerbosityVerbose, Sink: sink}, mock)

	err := r.Import(context.Background(), "shop", "orders", file)
	require.Error(t, err)

	code, ok := ExitCode(err)
	require.True(t, ok)
	assert.Equal(t, 7, code)

	var ee *ExitCodeError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, []string{"Failed: cannot decode JSON"}, ee.Stderr)
	assert.Contains(t, err.Error(), "code 7")
	assert.Contains(t, err.Error(), file)

	// Tool output is forwarded but no success notice follows a failure.
	assert.Equal(t, []string{"Failed: cannot decode JSON"}, sink.Lines())
}

func TestRunner_SuccessNotice(t *testing.T) {
	file := writeDataFile(t)

	tests := []struct {
		name      string
		verbosity Verbosity
		wantLines int
	}{
		{name: "quiet", verbosity: VerbosityQuiet, wantLines: 0},
		{name: "normal", verbosity: VerbosityNormal, wantLines: 0},
		{name: "verbose", verbosity: VerbosityVerbose, wantLines: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &logging.RecordingSink{}
			r := NewRunner("/bin", testConn, Options{Verbosity: tt.verbosity, Sink: sink}, &exec.MockCommandExecutor{})

			require.NoError(t, r.Import(context.Background(), "shop", "orders", file))
			assert.Len(t, sink.Lines(), tt.wantLines)

			sink2 := &logging.RecordingSink{}
			r.Options.Sink = sink2
			require.NoError(t, r.Export(context.Background(), "shop", "orders", "/tmp/out.json"))
			assert.Len(t, sink2.Lines(), tt.wantLines)
		})
	}
}

func TestRunner_StartFailure(t *testing.T) {
	file := writeDataFile(t)
	startErr := &exec.ExecError{Err: errors.New("exec format error"), Output: "mongoimport"}
	mock := &exec.MockCommandExecutor{
		RunFunc: func(ctx context.Context, inv exec.Invocation, onStdout, onStderr exec.LineFunc) (exec.Result, error) {
			return exec.Result{ExitCode: -1}, startErr
		},
	}
	r := NewRunner("/bin", testConn, Options{}, mock)

	err := r.Import(context.Background(), "shop", "orders", file)
	require.Error(t, err)
	var execErr *exec.ExecError
	assert.ErrorAs(t, err, &execErr)
	assert.False(t, IsTimeout(err))
}

func TestRunner_ZeroValueIsUsable(t *testing.T) {
	file := writeDataFile(t)
	mock := &exec.MockCommandExecutor{}
	r := &Runner{Conn: testConn, Executor: mock, Options: Options{Verbosity: VerbosityVerbose}}
	require.NoError(t, r.Import(context.Background(), "db", "c", file))
	assert.Equal(t, 1, mock.Calls())
}

func TestParseVerbosity(t *testing.T) {
	tests := []struct {
		in      string
		want    Verbosity
		wantErr bool
	}{
		{in: "quiet", want: VerbosityQuiet},
		{in: "", want: VerbosityNormal},
		{in: "Normal", want: VerbosityNormal},
		{in: " verbose ", want: VerbosityVerbose},
		{in: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVerbosity(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) Verbosity {
	t.Helper()
	v, err := ParseVerbosity(s)
	require.NoError(t, err)
	return v
}
