// Package fixture starts a throwaway mongod for tests and tears it down
// again, loading and dumping collections through the bundled tools.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattsolo1/grove-mongofixture/pkg/config"
	"github.com/mattsolo1/grove-mongofixture/pkg/exec"
	"github.com/mattsolo1/grove-mongofixture/pkg/logging"
	"github.com/mattsolo1/grove-mongofixture/pkg/state"
	"github.com/mattsolo1/grove-mongofixture/pkg/tools"
	"github.com/sirupsen/logrus"
)

const defaultPollInterval = 100 * time.Millisecond

// Option customises Start.
type Option func(*startOptions)

type startOptions struct {
	sink         tools.LogSink
	executor     exec.CommandExecutor
	probe        Probe
	pollInterval time.Duration
	tempRoot     string
}

// WithSink receives mongod and tool output.
func WithSink(sink tools.LogSink) Option {
	return func(o *startOptions) { o.sink = sink }
}

// WithExecutor replaces the executor used for the import/export tools and
// PATH lookups.
func WithExecutor(executor exec.CommandExecutor) Option {
	return func(o *startOptions) { o.executor = executor }
}

// WithProbe replaces the driver ping used to detect readiness.
func WithProbe(probe Probe) Option {
	return func(o *startOptions) { o.probe = probe }
}

// WithPollInterval sets how often readiness is probed.
func WithPollInterval(d time.Duration) Option {
	return func(o *startOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithTempRoot sets where temporary data directories are created.
func WithTempRoot(dir string) Option {
	return func(o *startOptions) { o.tempRoot = dir }
}

// Instance is a running mongod.
type Instance struct {
	ID        string
	BinDir    string
	DataDir   string
	Conn      tools.Connection
	StartedAt time.Time

	cfg      *config.Config
	proc     *exec.Process
	runner   *tools.Runner
	ownsData bool
	log      *logrus.Entry

	mu      sync.Mutex
	stopped bool
}

// Start launches mongod as described by cfg and waits until it accepts
// connections.
func Start(ctx context.Context, cfg *config.Config, opts ...Option) (*Instance, error) {
	o := startOptions{
		sink:         logging.Discard,
		executor:     exec.Default,
		probe:        PingProbe,
		pollInterval: defaultPollInterval,
		tempRoot:     os.TempDir(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	log := logging.NewLogger("mongofixture.fixture")

	binDir, err := ResolveBinDir(cfg, o.executor)
	if err != nil {
		return nil, err
	}
	if err := makeToolsRunnable(binDir); err != nil {
		return nil, err
	}

	port := cfg.Port
	if port == 0 {
		if port, err = freePort(cfg.BindIP); err != nil {
			return nil, err
		}
	}

	id := uuid.New().String()
	dataDir := cfg.DataDir
	ownsData := dataDir == ""
	if ownsData {
		dataDir = filepath.Join(o.tempRoot, "mongofixture-"+id)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	inst := &Instance{
		ID:       id,
		BinDir:   binDir,
		DataDir:  dataDir,
		Conn:     tools.Connection{IP: cfg.BindIP, Port: port},
		cfg:      cfg,
		ownsData: ownsData,
		log:      log.WithField("id", id),
	}
	inst.runner = tools.NewRunner(binDir, inst.Conn, tools.Options{
		Verbosity: cfg.VerbosityLevel(),
		Sink:      o.sink,
	}, o.executor)

	args := []string{
		"--dbpath", tools.NormalizePath(dataDir),
		"--port", strconv.Itoa(port),
		"--bind_ip", cfg.BindIP,
	}
	args = append(args, cfg.ExtraArgs...)
	inv := exec.Invocation{
		Tool: MongodTool,
		Path: exec.BinaryPath(binDir, MongodTool),
		Args: args,
		Dir:  binDir,
	}

	inst.log.WithFields(logrus.Fields{
		"tool":     MongodTool,
		"bin_dir":  binDir,
		"data_dir": dataDir,
		"port":     port,
	}).Info("Starting mongod")

	proc, err := exec.Start(inv, o.sink.WriteLine, o.sink.WriteLine)
	if err != nil {
		inst.cleanupData()
		return nil, fmt.Errorf("start %s: %w", MongodTool, err)
	}
	inst.proc = proc
	inst.StartedAt = time.Now()

	if err := writePIDFile(dataDir, proc.Pid()); err != nil {
		inst.abort()
		return nil, fmt.Errorf("write pid file: %w", err)
	}

	if err := inst.waitReady(ctx, o.probe, o.pollInterval); err != nil {
		inst.abort()
		return nil, err
	}

	inst.log.WithField("uri", inst.ConnectionString()).Info("mongod ready")
	return inst, nil
}

func (i *Instance) waitReady(ctx context.Context, probe Probe, interval time.Duration) error {
	timeout := i.cfg.StartTimeout()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	uri := i.ConnectionString()
	var lastErr error
	for {
		attemptCtx, cancel := context.WithTimeout(ctx, probeAttemptTimeout)
		lastErr = probe(attemptCtx, uri)
		cancel()
		if lastErr == nil {
			return nil
		}

		select {
		case <-i.proc.Done():
			res := i.proc.Result()
			return fmt.Errorf("%w: %s exited with code %d", ErrNotReady, MongodTool, res.ExitCode)
		case <-deadline.C:
			return fmt.Errorf("%w after %dms: %v", ErrNotReady, timeout.Milliseconds(), lastErr)
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// abort kills a half-started instance and removes what Start created.
func (i *Instance) abort() {
	i.mu.Lock()
	i.stopped = true
	i.mu.Unlock()

	if err := i.proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		i.log.WithError(err).Warn("Failed to kill mongod")
	}
	select {
	case <-i.proc.Done():
	case <-time.After(i.cfg.StopTimeout()):
		i.log.Warn("mongod did not exit after kill")
	}
	_ = removePIDFile(i.DataDir)
	i.cleanupData()
}

// ConnectionString is the mongodb:// URI of the instance.
func (i *Instance) ConnectionString() string {
	return "mongodb://" + i.Conn.HostPort() + "/"
}

// PID returns the mongod process id.
func (i *Instance) PID() int {
	return i.proc.Pid()
}

// Done is closed when mongod exits.
func (i *Instance) Done() <-chan struct{} {
	return i.proc.Done()
}

// ExitCode is mongod's exit code, or -1 while it runs.
func (i *Instance) ExitCode() int {
	return i.proc.Result().ExitCode
}

// Runner returns the tools runner bound to this instance.
func (i *Instance) Runner() *tools.Runner {
	return i.runner
}

// State describes the instance for the state file.
func (i *Instance) State() *state.State {
	return &state.State{
		ID:        i.ID,
		PID:       i.PID(),
		BindIP:    i.Conn.IP,
		Port:      i.Conn.Port,
		DataDir:   i.DataDir,
		BinDir:    i.BinDir,
		StartedAt: i.StartedAt,
	}
}

// Import loads file into database.collection, dropping it first unless
// told otherwise.
func (i *Instance) Import(ctx context.Context, database, collection, file string, opts ...tools.Option) error {
	opts = append([]tools.Option{tools.WithTimeout(i.cfg.ToolTimeout())}, opts...)
	return i.runner.Import(ctx, database, collection, file, opts...)
}

// Export writes database.collection to out.
func (i *Instance) Export(ctx context.Context, database, collection, out string, opts ...tools.Option) error {
	opts = append([]tools.Option{tools.WithTimeout(i.cfg.ToolTimeout())}, opts...)
	return i.runner.Export(ctx, database, collection, out, opts...)
}

// Stop interrupts mongod, kills it if it has not exited within the stop
// timeout, and removes the pid file and any temporary data directory.
func (i *Instance) Stop(ctx context.Context) error {
	i.mu.Lock()
	if i.stopped {
		i.mu.Unlock()
		return ErrAlreadyStopped
	}
	i.stopped = true
	i.mu.Unlock()

	i.log.Info("Stopping mongod")
	if err := i.proc.Interrupt(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		i.log.WithError(err).Debug("Interrupt failed")
	}

	timer := time.NewTimer(i.cfg.StopTimeout())
	defer timer.Stop()

	var stopErr error
	select {
	case <-i.proc.Done():
	case <-timer.C:
		i.log.Warn("mongod ignored interrupt, killing")
		stopErr = i.kill(ctx)
	case <-ctx.Done():
		stopErr = i.kill(context.Background())
		if stopErr == nil {
			stopErr = ctx.Err()
		}
	}

	if err := removePIDFile(i.DataDir); err != nil && stopErr == nil {
		stopErr = fmt.Errorf("remove pid file: %w", err)
	}
	if err := i.cleanupData(); err != nil && stopErr == nil {
		stopErr = err
	}

	i.log.WithField("exit_code", i.ExitCode()).Info("mongod stopped")
	return stopErr
}

func (i *Instance) kill(ctx context.Context) error {
	if err := i.proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill %s: %w", MongodTool, err)
	}
	select {
	case <-i.proc.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (i *Instance) cleanupData() error {
	if !i.ownsData || i.cfg.KeepData {
		return nil
	}
	if err := os.RemoveAll(i.DataDir); err != nil {
		return fmt.Errorf("remove data directory: %w", err)
	}
	return nil
}

// freePort asks the OS for an unused TCP port on ip.
func freePort(ip string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(ip, "0"))
	if err != nil {
		return 0, fmt.Errorf("find free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
