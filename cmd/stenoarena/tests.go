package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/stenoarena/internal/model"
	"github.com/verte-zerg/stenoarena/internal/schedule"
	"github.com/verte-zerg/stenoarena/internal/stats"
)

var (
	testName          string
	testDate          string
	testStart         string
	testDuration      int
	testParagraph     string
	testParagraphFile string
)

func newTestsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tests",
		Short: "Manage scheduled tests",
	}
	addAdminFlags(cmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tests, newest first",
		Args:  cobra.NoArgs,
		RunE:  runTestsListCmd,
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Schedule a new test",
		Args:  cobra.NoArgs,
		RunE:  runTestsCreateCmd,
	}
	addTestFlags(createCmd)

	editCmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a test",
		Args:  cobra.ExactArgs(1),
		RunE:  runTestsEditCmd,
	}
	addTestFlags(editCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a test",
		Args:  cobra.ExactArgs(1),
		RunE:  runTestsDeleteCmd,
	}

	importCmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Create tests from a YAML file (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE:  runTestsImportCmd,
	}

	cmd.AddCommand(listCmd, createCmd, editCmd, deleteCmd, importCmd)
	return cmd
}

func addTestFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&testName, "name", "", "test name")
	cmd.Flags().StringVar(&testDate, "date", "", "test date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&testStart, "start", "", "start time (HH:MM)")
	cmd.Flags().IntVar(&testDuration, "duration", 0, "duration in minutes (1-180)")
	cmd.Flags().StringVar(&testParagraph, "paragraph", "", "reference paragraph")
	cmd.Flags().StringVar(&testParagraphFile, "paragraph-file", "", "read the reference paragraph from a file")
}

func runTestsListCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	tests, err := a.catalog.List(cmd.Context())
	if err != nil {
		return err
	}
	counts, err := a.catalog.Counts(cmd.Context())
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if len(tests) > 0 {
		if err := renderTestCounts(w, counts); err != nil {
			return err
		}
	}
	return renderTests(w, tests)
}

func renderTestCounts(w io.Writer, counts map[model.Status]int) error {
	total := counts[model.StatusUpcoming] + counts[model.StatusActive] + counts[model.StatusCompleted]
	_, err := fmt.Fprintf(w, "Total: %d  Upcoming: %d  Active: %d  Completed: %d\n\n",
		total, counts[model.StatusUpcoming], counts[model.StatusActive], counts[model.StatusCompleted])
	return err
}

func renderTests(w io.Writer, tests []model.TestDefinition) error {
	if len(tests) == 0 {
		_, err := fmt.Fprintln(w, "No tests scheduled.")
		return err
	}
	headers := []string{"ID", "Name", "Date", "Time", "Duration", "Words", "Status"}
	rows := make([][]string, 0, len(tests))
	for _, t := range tests {
		rows = append(rows, []string{
			t.ID,
			t.Name,
			t.Date,
			t.StartTime + "-" + t.EndTime,
			strconv.Itoa(t.Duration) + " min",
			strconv.Itoa(stats.WordCount(t.Paragraph)),
			string(t.Status),
		})
	}
	return stats.RenderTable(w, headers, rows, map[int]bool{4: true, 5: true})
}

func runTestsCreateCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := requireAdmin(cmd, a); err != nil {
		return err
	}

	paragraph, err := paragraphFromFlags(cmd)
	if err != nil {
		return err
	}
	test, err := a.catalog.Create(cmd.Context(), model.TestDraft{
		Name:      testName,
		Date:      testDate,
		StartTime: testStart,
		Duration:  testDuration,
		Paragraph: paragraph,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created test %s: %s on %s %s-%s\n",
		test.ID, test.Name, test.Date, test.StartTime, test.EndTime)
	return err
}

func runTestsEditCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := requireAdmin(cmd, a); err != nil {
		return err
	}

	var patch model.TestPatch
	if cmd.Flags().Changed("name") {
		patch.Name = &testName
	}
	if cmd.Flags().Changed("date") {
		patch.Date = &testDate
	}
	if cmd.Flags().Changed("start") {
		patch.StartTime = &testStart
	}
	if cmd.Flags().Changed("duration") {
		patch.Duration = &testDuration
	}
	if cmd.Flags().Changed("paragraph") || cmd.Flags().Changed("paragraph-file") {
		paragraph, err := paragraphFromFlags(cmd)
		if err != nil {
			return err
		}
		patch.Paragraph = &paragraph
	}
	test, err := a.catalog.Update(cmd.Context(), args[0], patch)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Updated test %s: %s on %s %s-%s\n",
		test.ID, test.Name, test.Date, test.StartTime, test.EndTime)
	return err
}

func runTestsDeleteCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := requireAdmin(cmd, a); err != nil {
		return err
	}
	if err := a.catalog.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted test %s\n", args[0])
	return err
}

func runTestsImportCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := requireAdmin(cmd, a); err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open import file: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				// Best-effort close after a read.
				_ = cerr
			}
		}()
		in = f
	}
	created, err := a.catalog.Import(cmd.Context(), in)
	if err != nil {
		return err
	}
	schedule.SortNewestFirst(created)
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tests\n", len(created)); err != nil {
		return err
	}
	return renderTests(cmd.OutOrStdout(), created)
}

func paragraphFromFlags(cmd *cobra.Command) (string, error) {
	if cmd.Flags().Changed("paragraph-file") {
		if cmd.Flags().Changed("paragraph") {
			return "", fmt.Errorf("use either --paragraph or --paragraph-file")
		}
		raw, err := os.ReadFile(testParagraphFile)
		if err != nil {
			return "", fmt.Errorf("failed to read paragraph file: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}
	return testParagraph, nil
}
