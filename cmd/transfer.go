package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/mattsolo1/grove-mongofixture/pkg/config"
	"github.com/mattsolo1/grove-mongofixture/pkg/exec"
	"github.com/mattsolo1/grove-mongofixture/pkg/fixture"
	"github.com/mattsolo1/grove-mongofixture/pkg/state"
	"github.com/mattsolo1/grove-mongofixture/pkg/tools"
	"github.com/spf13/cobra"
)

var (
	transferHost       string
	transferPort       int
	transferBinDir     string
	transferDatabase   string
	transferCollection string
	transferTimeout    time.Duration
	importFile         string
	importNoDrop       bool
	exportOut          string
)

func addTransferFlags(c *cobra.Command) {
	c.Flags().StringVar(&transferHost, "host", "", "Server address (default: the running fixture)")
	c.Flags().IntVar(&transferPort, "port", 0, "Server port (default: the running fixture)")
	c.Flags().StringVar(&transferBinDir, "bin-dir", "", "Directory containing the tools")
	c.Flags().StringVar(&transferDatabase, "db", "", "Database name")
	c.Flags().StringVar(&transferCollection, "collection", "", "Collection name")
	c.Flags().DurationVar(&transferTimeout, "timeout", 0, "Tool timeout (default: tool_timeout_ms from the config)")
	_ = c.MarkFlagRequired("db")
	_ = c.MarkFlagRequired("collection")
}

func newImportCmd() *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Load a JSON file into a collection with mongoimport",
		Long: `Load a JSON file into a collection with mongoimport. The collection is
dropped first unless --no-drop is given.

Examples:
  mongofixture import --db shop --collection orders --file testdata/orders.json
  mongofixture import --db shop --collection orders --file more.json --no-drop --timeout 30s`,
		Args: cobra.NoArgs,
		RunE: runImport,
	}
	addTransferFlags(importCmd)
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "File to import")
	importCmd.Flags().BoolVar(&importNoDrop, "no-drop", false, "Keep existing documents")
	_ = importCmd.MarkFlagRequired("file")
	return importCmd
}

func newExportCmd() *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write a collection to a JSON file with mongoexport",
		Args:  cobra.NoArgs,
		RunE:  runExport,
	}
	addTransferFlags(exportCmd)
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file")
	_ = exportCmd.MarkFlagRequired("out")
	return exportCmd
}

func runImport(cmd *cobra.Command, args []string) error {
	runner, cfg, err := transferRunner(cmd)
	if err != nil {
		return err
	}
	err = runner.Import(cmd.Context(), transferDatabase, transferCollection, importFile,
		tools.WithTimeout(transferTimeoutOr(cfg)),
		tools.WithDrop(!importNoDrop),
	)
	if err != nil {
		return describeToolError(err)
	}
	printSuccess("Imported %s into %s", importFile, color.CyanString(transferDatabase+"."+transferCollection))
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	runner, cfg, err := transferRunner(cmd)
	if err != nil {
		return err
	}
	err = runner.Export(cmd.Context(), transferDatabase, transferCollection, exportOut,
		tools.WithTimeout(transferTimeoutOr(cfg)),
	)
	if err != nil {
		return describeToolError(err)
	}
	printSuccess("Exported %s to %s", color.CyanString(transferDatabase+"."+transferCollection), exportOut)
	return nil
}

// transferRunner binds a tools runner to the server named by the flags,
// falling back to the fixture recorded by `start`.
func transferRunner(cmd *cobra.Command) (*tools.Runner, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if transferBinDir != "" {
		cfg.BinDir = transferBinDir
	}

	st, err := state.Load()
	if err != nil {
		return nil, nil, err
	}

	conn := tools.Connection{IP: cfg.BindIP}
	if !st.Empty() {
		conn = tools.Connection{IP: st.BindIP, Port: st.Port}
	}
	if cmd.Flags().Changed("host") {
		conn.IP = transferHost
	}
	if cmd.Flags().Changed("port") {
		conn.Port = transferPort
	}
	if conn.Port == 0 {
		return nil, nil, errors.New("no running fixture; run `mongofixture start` or pass --port")
	}

	binDir := st.BinDir
	if cfg.BinDir != "" || binDir == "" {
		if binDir, err = fixture.ResolveBinDir(cfg, exec.Default); err != nil {
			return nil, nil, err
		}
	}

	runner := tools.NewRunner(binDir, conn, tools.Options{
		Verbosity: cfg.VerbosityLevel(),
		Sink:      outputSink(cfg),
	}, exec.Default)
	return runner, cfg, nil
}

func transferTimeoutOr(cfg *config.Config) time.Duration {
	if transferTimeout > 0 {
		return transferTimeout
	}
	return cfg.ToolTimeout()
}

func describeToolError(err error) error {
	var exitErr *tools.ExitCodeError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return fmt.Errorf("%w: %s", err, exitErr.Stderr[len(exitErr.Stderr)-1])
	}
	return err
}
