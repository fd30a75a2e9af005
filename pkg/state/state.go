// Package state records the fixture started by `mongofixture start` so
// that other commands can find it.
package state

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the state file written under .grove/ at the repository root.
const FileName = "mongofixture.yml"

// State describes a running fixture.
type State struct {
	ID        string    `yaml:"id"`
	PID       int       `yaml:"pid"`
	BindIP    string    `yaml:"bind_ip"`
	Port      int       `yaml:"port"`
	DataDir   string    `yaml:"data_dir"`
	BinDir    string    `yaml:"bin_dir"`
	StartedAt time.Time `yaml:"started_at"`
}

// Empty reports whether no fixture is recorded.
func (s *State) Empty() bool {
	return s == nil || s.PID == 0
}

// ConnectionString is the mongodb:// URI of the recorded fixture.
func (s *State) ConnectionString() string {
	return "mongodb://" + net.JoinHostPort(s.BindIP, strconv.Itoa(s.Port)) + "/"
}

// Path returns the path to the state file.
func Path() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current directory: %w", err)
	}

	// Walk up the directory tree looking for .git
	dir := cwd
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return filepath.Join(dir, ".grove", FileName), nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// No repository; keep state next to the caller.
			return filepath.Join(cwd, ".grove", FileName), nil
		}
		dir = parent
	}
}

// Load reads the state file. A missing file yields an empty state.
func Load() (*State, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{}, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}

	return &st, nil
}

// Save writes st to the state file.
func Save(st *State) error {
	path, err := Path()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	return nil
}

// Clear removes the state file. It is not an error if there is none.
func Clear() error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove state file: %w", err)
	}
	return nil
}
