package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattsolo1/grove-mongofixture/pkg/config"
	"github.com/mattsolo1/grove-mongofixture/pkg/logging"
	"github.com/mattsolo1/grove-mongofixture/pkg/tools"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	quiet      bool
)

// NewRootCmd builds the mongofixture command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mongofixture",
		Short: "Throwaway mongod instances for tests",
		Long: `Start a temporary mongod, load fixture data into it with mongoimport,
dump collections with mongoexport, and locate MongoDB binaries on disk.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to mongofixture.yml (default: ./mongofixture.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose tool output and debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Pass --quiet to the tools")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	rootCmd.AddCommand(
		newStartCmd(),
		newImportCmd(),
		newExportCmd(),
		newFindCmd(),
		newFixtureStatusCmd(),
		newConfigCmd(),
		NewVersionCmd(),
	)
	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		printFailure("%v", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the global flags on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	switch {
	case verbose && quiet:
		return nil, errors.New("--verbose and --quiet cannot be combined")
	case verbose:
		cfg.Verbosity = tools.VerbosityVerbose.String()
		logging.SetLevel(logrus.DebugLevel)
	case quiet:
		cfg.Verbosity = tools.VerbosityQuiet.String()
	}
	return cfg, nil
}

// outputSink is where tool and server output goes on the terminal.
func outputSink(cfg *config.Config) tools.LogSink {
	if cfg.VerbosityLevel() == tools.VerbosityQuiet {
		return logging.Discard
	}
	return logging.NewWriterSink(os.Stderr, color.HiBlackString("│ "))
}

func printSuccess(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", color.GreenString("✓"), fmt.Sprintf(format, args...))
}

func printFailure(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("✗"), fmt.Sprintf(format, args...))
}
