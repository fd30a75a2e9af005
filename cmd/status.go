package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattsolo1/grove-mongofixture/pkg/state"
	"github.com/spf13/cobra"
)

var (
	statusKeyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(12)
	statusValueStyle   = lipgloss.NewStyle().Bold(true)
	statusRunningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	statusStaleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	statusBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func newFixtureStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the fixture recorded by `start`",
		Args:  cobra.NoArgs,
		RunE:  runFixtureStatus,
	}
}

func runFixtureStatus(cmd *cobra.Command, args []string) error {
	st, err := state.Load()
	if err != nil {
		return err
	}
	if st.Empty() {
		fmt.Fprintln(cmd.OutOrStdout(), "No fixture running.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderStatus(st, processAlive(st.PID), time.Now()))
	return nil
}

func renderStatus(st *state.State, alive bool, now time.Time) string {
	status := statusRunningStyle.Render("running")
	if !alive {
		status = statusStaleStyle.Render("not running (stale state)")
	}

	rows := [][2]string{
		{"status", status},
		{"uri", statusValueStyle.Render(st.ConnectionString())},
		{"pid", strconv.Itoa(st.PID)},
		{"data dir", st.DataDir},
		{"bin dir", st.BinDir},
		{"uptime", now.Sub(st.StartedAt).Round(time.Second).String()},
		{"id", st.ID},
	}

	var lines []string
	for _, row := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, statusKeyStyle.Render(row[0]), row[1]))
	}
	return statusBoxStyle.Render(strings.Join(lines, "\n"))
}
