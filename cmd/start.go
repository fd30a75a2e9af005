package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/mattsolo1/grove-mongofixture/pkg/fixture"
	"github.com/mattsolo1/grove-mongofixture/pkg/logging"
	"github.com/mattsolo1/grove-mongofixture/pkg/state"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	startPort     int
	startDataDir  string
	startKeepData bool
	startBinDir   string
)

var startLog = logging.NewLogger("mongofixture.start")

func newStartCmd() *cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start a mongod and keep it running until interrupted",
		Long: `Start a mongod for tests. The instance is recorded in .grove/mongofixture.yml
so that import, export and status can find it. Press Ctrl+C to stop it.

Examples:
  # Start on a free port with a temporary data directory
  mongofixture start

  # Use a specific port and keep the data afterwards
  mongofixture start --port 27999 --data-dir ./testdata/db --keep-data`,
		Args: cobra.NoArgs,
		RunE: runStart,
	}
	startCmd.Flags().IntVarP(&startPort, "port", "p", 0, "Port to listen on (0 picks a free port)")
	startCmd.Flags().StringVar(&startDataDir, "data-dir", "", "Data directory (default: a temporary directory)")
	startCmd.Flags().BoolVar(&startKeepData, "keep-data", false, "Keep the temporary data directory after stopping")
	startCmd.Flags().StringVar(&startBinDir, "bin-dir", "", "Directory containing mongod and the tools")
	return startCmd
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = startPort
	}
	if startDataDir != "" {
		cfg.DataDir = startDataDir
	}
	if startKeepData {
		cfg.KeepData = true
	}
	if startBinDir != "" {
		cfg.BinDir = startBinDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	prev, err := state.Load()
	if err != nil {
		return err
	}
	if !prev.Empty() && processAlive(prev.PID) {
		return fmt.Errorf("a fixture is already running (pid %d, %s)", prev.PID, prev.ConnectionString())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inst, err := fixture.Start(ctx, cfg, fixture.WithSink(outputSink(cfg)))
	if err != nil {
		return fmt.Errorf("start mongod: %w", err)
	}

	if err := state.Save(inst.State()); err != nil {
		startLog.WithError(err).Warn("Failed to record fixture state")
	}

	printSuccess("mongod running at %s", color.CyanString(inst.ConnectionString()))
	if isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Println("Press Ctrl+C to stop.")
	}

	select {
	case <-ctx.Done():
	case <-inst.Done():
		startLog.WithField("exit_code", inst.ExitCode()).Warn("mongod exited unexpectedly")
	}

	stopErr := inst.Stop(context.Background())
	if err := state.Clear(); err != nil {
		startLog.WithError(err).Warn("Failed to clear fixture state")
	}
	if stopErr != nil {
		return fmt.Errorf("stop mongod: %w", stopErr)
	}

	startLog.WithFields(logrus.Fields{
		"id":        inst.ID,
		"exit_code": inst.ExitCode(),
	}).Debug("Fixture stopped")
	printSuccess("mongod stopped")
	return nil
}
