package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/stenoarena/internal/model"
	"github.com/verte-zerg/stenoarena/internal/results"
	"github.com/verte-zerg/stenoarena/internal/resultsui"
	"github.com/verte-zerg/stenoarena/internal/stats"
)

const defaultTrendWindow = 3

var (
	resultsRoll   string
	resultsSearch string
	resultsOut    string
	resultsTrend  int
	resultsChart  bool
)

func newResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Show submitted results",
		Args:  cobra.NoArgs,
		RunE:  runResultsListCmd,
	}
	addAdminFlags(cmd)
	addResultFilterFlags(cmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print results with a summary",
		Args:  cobra.NoArgs,
		RunE:  runResultsListCmd,
	}
	addResultFilterFlags(listCmd)

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export results as CSV",
		Args:  cobra.NoArgs,
		RunE:  runResultsExportCmd,
	}
	exportCmd.Flags().StringVar(&resultsRoll, "roll", results.AllRolls, "export one student's results (all for every student)")
	exportCmd.Flags().StringVar(&resultsOut, "out", ".", "output directory")

	browseCmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse results interactively",
		Args:  cobra.NoArgs,
		RunE:  runResultsBrowseCmd,
	}
	browseCmd.Flags().StringVar(&resultsOut, "out", ".", "export directory")

	cmd.AddCommand(listCmd, exportCmd, browseCmd)
	return cmd
}

func addResultFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&resultsRoll, "roll", results.AllRolls, "roll number filter (all for every student)")
	cmd.Flags().StringVar(&resultsSearch, "search", "", "case-insensitive search over name, roll number and test")
	cmd.Flags().IntVar(&resultsTrend, "trend-window", defaultTrendWindow, "moving average window for the trend line")
	cmd.Flags().BoolVar(&resultsChart, "chart", false, "draw a progress chart when filtering one student")
}

func resultFilter() model.ResultFilter {
	return model.ResultFilter{RollNumber: resultsRoll, Query: resultsSearch}
}

func singleStudent() bool {
	roll := strings.TrimSpace(resultsRoll)
	return roll != "" && roll != results.AllRolls
}

func runResultsListCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := requireAdmin(cmd, a); err != nil {
		return err
	}
	if resultsTrend < 1 {
		return fmt.Errorf("--trend-window must be >= 1")
	}

	report, err := stats.BuildReport(cmd.Context(), a.results, resultFilter())
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if err := stats.RenderSummary(w, report.Summary); err != nil {
		return err
	}
	if report.Summary.Count == 0 {
		return nil
	}
	if err := stats.RenderResultTable(w, report.Results); err != nil {
		return err
	}
	if singleStudent() {
		if err := stats.RenderTrend(w, report.Results, resultsTrend); err != nil {
			return err
		}
		if !resultsChart {
			return nil
		}
		return stats.RenderProgressChart(w, report.Results, stats.ChartOptions{
			Window: resultsTrend,
			Color:  stats.ColorOutput(w),
		})
	}
	return stats.RenderStudentTable(w, report.Students)
}

func runResultsExportCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := requireAdmin(cmd, a); err != nil {
		return err
	}

	// Exports always carry the full set for the roll; search narrows listings only.
	rows, err := a.results.List(cmd.Context(), model.ResultFilter{RollNumber: resultsRoll})
	if err != nil {
		return err
	}
	var student *model.Student
	if singleStudent() && len(rows) > 0 {
		student = &model.Student{RollNumber: rows[0].RollNumber, Name: rows[0].Name}
	}
	path, err := resultsui.ExportFile(resultsOut, rows, student)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d results to %s\n", len(rows), path)
	return err
}

func runResultsBrowseCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := requireAdmin(cmd, a); err != nil {
		return err
	}

	m := resultsui.NewModel(a.results, resultsOut)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run results TUI: %w", err)
	}
	return nil
}
