// Package tools drives mongoimport and mongoexport against a running
// instance and turns their exit status into typed errors.
package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattsolo1/grove-mongofixture/pkg/exec"
	"github.com/mattsolo1/grove-mongofixture/pkg/logging"
	"github.com/sirupsen/logrus"
)

const (
	ImportTool = "mongoimport"
	ExportTool = "mongoexport"

	// DefaultTimeout bounds a single import or export.
	DefaultTimeout = 5000 * time.Millisecond
)

// LogSink receives tool output one line at a time.
type LogSink interface {
	WriteLine(line string)
}

// Connection addresses a running instance.
type Connection struct {
	IP   string
	Port int
}

// HostPort renders the --host value.
func (c Connection) HostPort() string {
	return net.JoinHostPort(c.IP, strconv.Itoa(c.Port))
}

// Options carries the caller's verbosity and log sink.
type Options struct {
	Verbosity Verbosity
	Sink      LogSink
}

// Runner invokes the import/export tools found in BinDir.
type Runner struct {
	BinDir   string
	Conn     Connection
	Options  Options
	Executor exec.CommandExecutor

	log *logrus.Entry
}

// NewRunner creates a runner. A nil executor uses the real one.
func NewRunner(binDir string, conn Connection, opts Options, executor exec.CommandExecutor) *Runner {
	if executor == nil {
		executor = exec.Default
	}
	if opts.Sink == nil {
		opts.Sink = logging.Discard
	}
	return &Runner{
		BinDir:   binDir,
		Conn:     conn,
		Options:  opts,
		Executor: executor,
		log:      logging.NewLogger("mongofixture.tools"),
	}
}

// Option adjusts a single import or export call.
type Option func(*callOptions)

type callOptions struct {
	drop    bool
	timeout time.Duration
}

func defaultCallOptions(opts []Option) callOptions {
	o := callOptions{drop: true, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(o *callOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithDrop sets whether an import drops the target collection first.
// Imports drop by default; exports ignore it.
func WithDrop(drop bool) Option {
	return func(o *callOptions) {
		o.drop = drop
	}
}

// NormalizePath rewrites Windows separators to forward slashes, the one
// form the tools accept on every platform.
func NormalizePath(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}

// target names what a call operates on, for error messages.
type target struct {
	file       string
	database   string
	collection string
}

// Import loads file into database.collection with mongoimport.
func (r *Runner) Import(ctx context.Context, database, collection, file string, opts ...Option) error {
	o := defaultCallOptions(opts)
	if _, err := os.Stat(file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("import %s: %w", file, ErrFileNotFound)
		}
		return fmt.Errorf("stat import file %s: %w", file, err)
	}

	args := r.ImportArgs(database, collection, file, o.drop)
	tgt := target{file: file, database: database, collection: collection}
	if err := r.run(ctx, ImportTool, args, o.timeout, tgt); err != nil {
		return err
	}
	r.notify(fmt.Sprintf("%s: imported %s into %s.%s", ImportTool, file, database, collection))
	return nil
}

// Export writes database.collection to out with mongoexport.
func (r *Runner) Export(ctx context.Context, database, collection, out string, opts ...Option) error {
	o := defaultCallOptions(opts)
	args := r.ExportArgs(database, collection, out)
	tgt := target{file: out, database: database, collection: collection}
	if err := r.run(ctx, ExportTool, args, o.timeout, tgt); err != nil {
		return err
	}
	r.notify(fmt.Sprintf("%s: exported %s.%s to %s", ExportTool, database, collection, out))
	return nil
}

// ImportArgs builds the mongoimport command line.
func (r *Runner) ImportArgs(database, collection, file string, drop bool) []string {
	args := []string{
		"--host", r.Conn.HostPort(),
		"--db", database,
		"--collection", collection,
		"--file", NormalizePath(file),
	}
	if drop {
		args = append(args, "--drop")
	}
	if flag := r.Options.Verbosity.Flag(); flag != "" {
		args = append(args, flag)
	}
	return args
}

// ExportArgs builds the mongoexport command line.
func (r *Runner) ExportArgs(database, collection, out string) []string {
	args := []string{
		"--host", r.Conn.HostPort(),
		"--db", database,
		"--collection", collection,
		"--out", NormalizePath(out),
	}
	if flag := r.Options.Verbosity.Flag(); flag != "" {
		args = append(args, flag)
	}
	return args
}

func (r *Runner) run(ctx context.Context, tool string, args []string, timeout time.Duration, tgt target) error {
	inv := exec.Invocation{
		Tool:    tool,
		Path:    exec.BinaryPath(r.BinDir, tool),
		Args:    args,
		Dir:     r.BinDir,
		Timeout: timeout,
	}

	log := r.logger()
	log.WithFields(logrus.Fields{
		"tool":       tool,
		"args":       strings.Join(args, " "),
		"timeout_ms": timeout.Milliseconds(),
	}).Debug("Running tool")

	executor := r.Executor
	if executor == nil {
		executor = exec.Default
	}
	sink := r.sink()
	res, err := executor.Run(ctx, inv, sink.WriteLine, sink.WriteLine)
	if err != nil {
		return fmt.Errorf("run %s: %w", tool, err)
	}

	log.WithFields(logrus.Fields{
		"tool":        tool,
		"exit_code":   res.ExitCode,
		"duration_ms": res.Duration.Milliseconds(),
		"timed_out":   res.TimedOut,
	}).Debug("Tool finished")

	if res.TimedOut {
		return &TimeoutError{
			Tool:       tool,
			File:       tgt.file,
			Database:   tgt.database,
			Collection: tgt.collection,
			Timeout:    timeout,
		}
	}
	if res.ExitCode != 0 {
		return &ExitCodeError{
			Tool:       tool,
			File:       tgt.file,
			Database:   tgt.database,
			Collection: tgt.collection,
			ExitCode:   res.ExitCode,
			Stderr:     res.Stderr,
		}
	}
	return nil
}

func (r *Runner) notify(line string) {
	if r.Options.Verbosity > VerbosityNormal {
		r.sink().WriteLine(line)
	}
}

func (r *Runner) sink() LogSink {
	if r.Options.Sink == nil {
		return logging.Discard
	}
	return r.Options.Sink
}

func (r *Runner) logger() *logrus.Entry {
	if r.log != nil {
		return r.log
	}
	return logging.NewLogger("mongofixture.tools")
}
