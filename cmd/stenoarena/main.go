// Package main provides the CLI entrypoint for stenoarena.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/stenoarena/internal/auth"
	"github.com/verte-zerg/stenoarena/internal/catalog"
	"github.com/verte-zerg/stenoarena/internal/config"
	"github.com/verte-zerg/stenoarena/internal/logging"
	"github.com/verte-zerg/stenoarena/internal/model"
	"github.com/verte-zerg/stenoarena/internal/results"
	"github.com/verte-zerg/stenoarena/internal/schedule"
	"github.com/verte-zerg/stenoarena/internal/session"
	"github.com/verte-zerg/stenoarena/internal/stats"
	"github.com/verte-zerg/stenoarena/internal/store"
	"github.com/verte-zerg/stenoarena/internal/tui"
)

var (
	configPath string
	dbPath     string
	verbose    bool

	studentRoll string
	studentName string
	testID      string
	plainMode   bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "stenoarena",
		Short:         "Timed dictation typing tests",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE:          runTakeCmd,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "config file path")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", config.DefaultDBPath(), "SQLite database path")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")

	rootCmd.Flags().StringVar(&studentRoll, "roll", "", "student roll number")
	rootCmd.Flags().StringVar(&studentName, "name", "", "student name")
	rootCmd.Flags().StringVar(&testID, "test", "", "test ID (default: the active or next upcoming test)")
	rootCmd.Flags().BoolVar(&plainMode, "plain", false, "line-based mode without the full-screen interface")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newTestsCmd())
	rootCmd.AddCommand(newResultsCmd())
	rootCmd.AddCommand(newAdminCmd())

	return rootCmd
}

// app holds the services shared by every command.
type app struct {
	cfg     config.FileConfig
	logger  *zap.Logger
	store   *store.Store
	catalog *catalog.Catalog
	results *results.Service
}

func openApp(cmd *cobra.Command) (*app, error) {
	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "db", &dbPath, fileCfg.Storage.DB)
	applyBoolConfig(cmd, "verbose", &verbose, fileCfg.Log.Verbose)

	logger, err := logging.New(config.String(fileCfg.Log.File, config.DefaultLogPath()), verbose)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(dbPath)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	logger.Debug("store opened", zap.String("path", dbPath))
	return &app{
		cfg:     fileCfg,
		logger:  logger,
		store:   st,
		catalog: catalog.New(store.NewCollection[model.TestDefinition](st, store.KeyTests), logger.Named("catalog")),
		results: results.New(store.NewCollection[model.StoredResult](st, store.KeyResults), logger.Named("results")),
	}, nil
}

func (a *app) Close() {
	if cerr := a.store.Close(); cerr != nil {
		a.logger.Warn("failed to close db", zap.Error(cerr))
	}
	// Best-effort flush; file sinks may not support sync.
	_ = a.logger.Sync()
}

func runTakeCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	applyStringConfig(cmd, "roll", &studentRoll, a.cfg.Student.RollNumber)
	applyStringConfig(cmd, "name", &studentName, a.cfg.Student.Name)
	student, err := promptStudent(cmd.InOrStdin(), cmd.ErrOrStderr(), studentRoll, studentName)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	test, err := pickTest(ctx, a.catalog, testID)
	if err != nil {
		return err
	}
	a.logger.Info("student login",
		zap.String("roll_number", student.RollNumber),
		zap.String("test_id", test.ID))

	if plainMode {
		outcome, err := runPlain(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), test, student, a.results, session.SystemClock, a.logger)
		if err != nil {
			var werr *session.WindowError
			if errors.As(err, &werr) {
				return fmt.Errorf("%s", windowMessage(werr, test))
			}
			return err
		}
		return printOutcome(cmd.OutOrStdout(), outcome)
	}

	m := tui.NewModel(test, student, a.results, tui.WithLogger(a.logger.Named("session")))
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return printOutcome(cmd.OutOrStdout(), m.Wait())
}

func promptStudent(in io.Reader, out io.Writer, roll, name string) (model.Student, error) {
	if strings.TrimSpace(roll) != "" && strings.TrimSpace(name) != "" {
		return auth.Student(roll, name)
	}
	reader := bufio.NewReader(in)
	if strings.TrimSpace(roll) == "" {
		roll = promptLine(reader, out, "Roll number: ")
	}
	if strings.TrimSpace(name) == "" {
		name = promptLine(reader, out, "Name: ")
	}
	return auth.Student(roll, name)
}

func promptLine(reader *bufio.Reader, out io.Writer, prompt string) string {
	if _, err := fmt.Fprint(out, prompt); err != nil {
		// Best-effort prompt.
		_ = err
	}
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimSpace(line)
}

func pickTest(ctx context.Context, c *catalog.Catalog, id string) (model.TestDefinition, error) {
	if id != "" {
		return c.Get(ctx, id)
	}
	test, ok, err := c.Current(ctx)
	if err != nil {
		return model.TestDefinition{}, err
	}
	if !ok {
		return model.TestDefinition{}, fmt.Errorf("no active or upcoming tests scheduled")
	}
	return test, nil
}

func windowMessage(werr *session.WindowError, test model.TestDefinition) string {
	if werr.Start.IsZero() {
		return fmt.Sprintf("test %q has no valid schedule", test.Name)
	}
	if werr.At.Before(werr.Start) {
		return fmt.Sprintf("test %q is not active yet; starts in %s", test.Name, schedule.Until(test, werr.At))
	}
	return fmt.Sprintf("test %q ended at %s", test.Name, werr.End.Format("15:04"))
}

func printOutcome(w io.Writer, out tui.Outcome) error {
	var lines []string
	switch out.State {
	case session.StateCompleted:
		r := out.Result
		lines = append(lines,
			fmt.Sprintf("Test complete (%s)", r.Reason),
			fmt.Sprintf("WPM: %d", r.WPM),
			fmt.Sprintf("Accuracy: %d%%", r.Accuracy),
			fmt.Sprintf("Words: %d", r.WordCount),
			fmt.Sprintf("Time taken: %s", stats.FormatDuration(r.TimeTaken)),
			fmt.Sprintf("Level: %s", stats.PerformanceLevel(r.WPM, r.Accuracy)),
		)
		if out.SaveErr != nil {
			lines = append(lines, fmt.Sprintf("Result could not be saved: %v", out.SaveErr))
		}
	case session.StateAbandoned:
		lines = append(lines, "Test exited. No result recorded.")
	default:
		return nil
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	if out.State == session.StateCompleted && out.SaveErr != nil {
		return out.SaveErr
	}
	return nil
}

func logErrf(w io.Writer, format string, args ...any) {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
