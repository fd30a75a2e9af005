// Package config loads the fixture configuration from mongofixture.yml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"
	"time"

	"github.com/mattsolo1/grove-mongofixture/pkg/tools"
	"gopkg.in/yaml.v3"
)

//go:generate sh -c "cd ../.. && go run ./tools/schema-generator/"

const (
	// DefaultFileName is looked up in the working directory when no path is given.
	DefaultFileName = "mongofixture.yml"

	DefaultSearchPattern  = "mongodb*"
	DefaultMaxSearchDepth = 6
	DefaultBindIP         = "127.0.0.1"
	DefaultToolTimeoutMS  = 5000
	DefaultStartTimeoutMS = 10000
	DefaultStopTimeoutMS  = 5000

	BinDirEnv    = "MONGOFIXTURE_BIN_DIR"
	VerbosityEnv = "MONGOFIXTURE_VERBOSITY"
)

// Config describes how to find and run mongod and its companion tools.
type Config struct {
	BinDir         string   `yaml:"bin_dir,omitempty" jsonschema:"description=Directory holding mongod, mongoimport and mongoexport. Searched for when empty."`
	SearchRoot     string   `yaml:"search_root,omitempty" jsonschema:"description=Where the binary search starts. Defaults to the working directory."`
	SearchPattern  string   `yaml:"search_pattern,omitempty" jsonschema:"description=Glob matched against directory names when searching for binaries."`
	MaxSearchDepth int      `yaml:"max_search_depth" jsonschema:"description=Maximum number of steps a directory search may take. 0 checks only the search root."`
	BindIP         string   `yaml:"bind_ip,omitempty" jsonschema:"description=Address mongod listens on."`
	Port           int      `yaml:"port,omitempty" jsonschema:"description=Port mongod listens on. 0 picks a free port."`
	DataDir        string   `yaml:"data_dir,omitempty" jsonschema:"description=Database directory. A temporary directory is created when empty."`
	KeepData       bool     `yaml:"keep_data,omitempty" jsonschema:"description=Keep a temporary data directory after stop."`
	Verbosity      string   `yaml:"verbosity,omitempty" jsonschema:"enum=quiet,enum=normal,enum=verbose"`
	ToolTimeoutMS  int      `yaml:"tool_timeout_ms,omitempty" jsonschema:"description=Timeout for a single mongoimport or mongoexport run."`
	StartTimeoutMS int      `yaml:"start_timeout_ms,omitempty" jsonschema:"description=How long to wait for mongod to accept connections."`
	StopTimeoutMS  int      `yaml:"stop_timeout_ms,omitempty" jsonschema:"description=Grace period after interrupting mongod before it is killed."`
	ExtraArgs      []string `yaml:"extra_args,omitempty" jsonschema:"description=Additional mongod arguments."`
}

// Default returns a configuration with every default filled in.
func Default() *Config {
	return &Config{
		SearchPattern:  DefaultSearchPattern,
		MaxSearchDepth: DefaultMaxSearchDepth,
		BindIP:         DefaultBindIP,
		Verbosity:      tools.VerbosityNormal.String(),
		ToolTimeoutMS:  DefaultToolTimeoutMS,
		StartTimeoutMS: DefaultStartTimeoutMS,
		StopTimeoutMS:  DefaultStopTimeoutMS,
	}
}

// Load reads path on top of the defaults and applies environment
// overrides. An empty path means DefaultFileName; a missing default file
// is not an error, a missing explicit one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	cfg.ApplyEnv()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from MONGOFIXTURE_* variables.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(BinDirEnv)); v != "" {
		c.BinDir = v
	}
	if v := strings.TrimSpace(os.Getenv(VerbosityEnv)); v != "" {
		c.Verbosity = v
	}
}

// fillDefaults restores defaults for fields a config file zeroed out.
func (c *Config) fillDefaults() {
	d := Default()
	if c.SearchPattern == "" {
		c.SearchPattern = d.SearchPattern
	}
	if c.BindIP == "" {
		c.BindIP = d.BindIP
	}
	if c.Verbosity == "" {
		c.Verbosity = d.Verbosity
	}
	if c.ToolTimeoutMS == 0 {
		c.ToolTimeoutMS = d.ToolTimeoutMS
	}
	if c.StartTimeoutMS == 0 {
		c.StartTimeoutMS = d.StartTimeoutMS
	}
	if c.StopTimeoutMS == 0 {
		c.StopTimeoutMS = d.StopTimeoutMS
	}
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if _, err := tools.ParseVerbosity(c.Verbosity); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid config: port %d out of range", c.Port)
	}
	if net.ParseIP(c.BindIP) == nil {
		return fmt.Errorf("invalid config: bind_ip %q is not an IP address", c.BindIP)
	}
	if c.MaxSearchDepth < 0 {
		return fmt.Errorf("invalid config: max_search_depth must not be negative")
	}
	if c.ToolTimeoutMS < 0 || c.StartTimeoutMS < 0 || c.StopTimeoutMS < 0 {
		return fmt.Errorf("invalid config: timeouts must not be negative")
	}
	return nil
}

// VerbosityLevel parses the Verbosity field.
func (c *Config) VerbosityLevel() tools.Verbosity {
	v, err := tools.ParseVerbosity(c.Verbosity)
	if err != nil {
		return tools.VerbosityNormal
	}
	return v
}

func (c *Config) ToolTimeout() time.Duration {
	return time.Duration(c.ToolTimeoutMS) * time.Millisecond
}

func (c *Config) StartTimeout() time.Duration {
	return time.Duration(c.StartTimeoutMS) * time.Millisecond
}

func (c *Config) StopTimeout() time.Duration {
	return time.Duration(c.StopTimeoutMS) * time.Millisecond
}

// Marshal renders the configuration as yaml.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
