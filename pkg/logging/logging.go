// Package logging configures the logrus logger shared by every component
// and provides line sinks that forward child-process output into it.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// LevelEnv names the environment variable holding the log level.
const LevelEnv = "MONGOFIXTURE_LOG_LEVEL"

var (
	baseOnce sync.Once
	base     *logrus.Logger
)

func baseLogger() *logrus.Logger {
	baseOnce.Do(func() {
		base = logrus.New()
		base.SetOutput(os.Stderr)
		configureFormatter(base, os.Stderr)
		level := logrus.InfoLevel
		if raw := strings.TrimSpace(os.Getenv(LevelEnv)); raw != "" {
			if parsed, err := logrus.ParseLevel(raw); err == nil {
				level = parsed
			}
		}
		base.SetLevel(level)
	})
	return base
}

func configureFormatter(logger *logrus.Logger, out *os.File) {
	if isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()) {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return
	}
	logger.SetFormatter(&logrus.JSONFormatter{})
}

// NewLogger returns an entry tagged with the given component name.
func NewLogger(component string) *logrus.Entry {
	return baseLogger().WithField("component", component)
}

// SetLevel changes the level of the shared logger.
func SetLevel(level logrus.Level) {
	baseLogger().SetLevel(level)
}

// SetOutput redirects the shared logger, mostly for tests.
func SetOutput(w io.Writer) {
	baseLogger().SetOutput(w)
}
