package cmd

import (
	"fmt"
	"os"

	"github.com/mattsolo1/grove-mongofixture/pkg/dirsearch"
	"github.com/spf13/cobra"
)

var (
	findFrom  string
	findUp    bool
	findDepth int
)

// errNoMatch is returned when find has nothing to print.
type errNoMatch struct{ pattern string }

func (e errNoMatch) Error() string {
	return fmt.Sprintf("no directory matching %q", e.pattern)
}

func newFindCmd() *cobra.Command {
	findCmd := &cobra.Command{
		Use:   "find <pattern>",
		Short: "Find a directory whose name matches a glob",
		Long: `Find a directory whose name matches a glob pattern.

By default the search checks the children of the start directory, then
climbs one ancestor at a time. With --up the subtree below the start
directory is searched instead. Either way at most --depth steps are taken.

Examples:
  mongofixture find 'mongodb*'
  mongofixture find 'mongodb-linux-*' --from ./vendor --up --depth 3`,
		Args: cobra.ExactArgs(1),
		RunE: runFind,
	}
	findCmd.Flags().StringVar(&findFrom, "from", "", "Start directory (default: current directory)")
	findCmd.Flags().BoolVar(&findUp, "up", false, "Search below the start directory instead of above it")
	findCmd.Flags().IntVar(&findDepth, "depth", dirsearch.DefaultMaxDepth, "Maximum number of steps")
	return findCmd
}

func runFind(cmd *cobra.Command, args []string) error {
	start := findFrom
	if start == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get current directory: %w", err)
		}
		start = cwd
	}

	find := dirsearch.FindDownwards
	if findUp {
		find = dirsearch.FindUpwards
	}
	match, ok, err := find(start, args[0], findDepth)
	if err != nil {
		return err
	}
	if !ok {
		return errNoMatch{pattern: args[0]}
	}
	fmt.Fprintln(cmd.OutOrStdout(), match)
	return nil
}
