package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mattsolo1/grove-mongofixture/pkg/config"
	"github.com/mattsolo1/grove-mongofixture/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// inRepo makes a temporary repository root the working directory.
func inRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0755))
	chdirForTest(t, dir)
	t.Setenv(config.BinDirEnv, "")
	t.Setenv(config.VerbosityEnv, "")
	return dir
}

func TestFindCmd(t *testing.T) {
	root := inRepo(t)
	target := filepath.Join(root, "vendor", "mongodb-linux-7.0")
	require.NoError(t, os.MkdirAll(target, 0755))
	start := filepath.Join(root, "src", "app")
	require.NoError(t, os.MkdirAll(start, 0755))

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{
			name: "descend with --up",
			args: []string{"find", "mongodb*", "--from", root, "--up"},
			want: target,
		},
		{
			name:    "climbing does not look into siblings' children",
			args:    []string{"find", "mongodb*", "--from", start, "--depth", "2"},
			wantErr: true,
		},
		{
			name: "climbing finds an ancestor's child",
			args: []string{"find", "vendor", "--from", start},
			want: filepath.Join(root, "vendor"),
		},
		{
			name:    "depth bound",
			args:    []string{"find", "mongodb*", "--from", root, "--up", "--depth", "0"},
			wantErr: true,
		},
		{
			name:    "bad pattern",
			args:    []string{"find", "[", "--from", root},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCmd(t, tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.TrimSpace(out))
		})
	}
}

func TestVersionCmd_JSON(t *testing.T) {
	out, err := runCmd(t, "version", "--json")
	require.NoError(t, err)

	var info VersionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestConfigCmd(t *testing.T) {
	dir := inRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultFileName), []byte("port: 28000\n"), 0644))

	out, err := runCmd(t, "config", "--quiet")
	require.NoError(t, err)
	assert.Contains(t, out, "port: 28000")
	assert.Contains(t, out, "verbosity: quiet")
	assert.Contains(t, out, "search_pattern:")
	assert.Contains(t, out, "mongodb*")
}

func TestConfigCmd_VerboseAndQuiet(t *testing.T) {
	inRepo(t)
	_, err := runCmd(t, "config", "--quiet", "--verbose")
	assert.Error(t, err)
}

func TestStatusCmd(t *testing.T) {
	inRepo(t)

	out, err := runCmd(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "No fixture running.")

	require.NoError(t, state.Save(&state.State{
		ID:        "abc",
		PID:       os.Getpid(),
		BindIP:    "127.0.0.1",
		Port:      27999,
		DataDir:   "/tmp/db",
		BinDir:    "/opt/mongodb/bin",
		StartedAt: time.Now(),
	}))
	out, err = runCmd(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "mongodb://127.0.0.1:27999/")
	assert.Contains(t, out, "running")
}

func TestRenderStatus_Stale(t *testing.T) {
	now := time.Now()
	st := &state.State{ID: "x", PID: 1, BindIP: "127.0.0.1", Port: 1, StartedAt: now.Add(-90 * time.Second)}
	out := renderStatus(st, false, now)
	assert.Contains(t, out, "stale state")
	assert.Contains(t, out, "1m30s")
}

func TestImportCmd_NoFixture(t *testing.T) {
	inRepo(t)
	_, err := runCmd(t, "import", "--db", "shop", "--collection", "orders", "--file", "orders.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no running fixture")
}

func TestImportCmd_MissingFlags(t *testing.T) {
	inRepo(t)
	_, err := runCmd(t, "import", "--db", "shop")
	assert.Error(t, err)
}
