package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/verte-zerg/stenoarena/internal/config"
	"github.com/verte-zerg/stenoarena/internal/model"
	"github.com/verte-zerg/stenoarena/internal/results"
	"github.com/verte-zerg/stenoarena/internal/session"
	"github.com/verte-zerg/stenoarena/internal/store"
	"github.com/verte-zerg/stenoarena/internal/tui"
)

type stillTicker struct {
	ch chan time.Time
}

func (t stillTicker) C() <-chan time.Time { return t.ch }

func (t stillTicker) Stop() {}

// stillClock never advances and never ticks.
type stillClock struct {
	now time.Time
}

func (c stillClock) Now() time.Time { return c.now }

func (c stillClock) NewTicker(time.Duration) session.Ticker {
	return stillTicker{ch: make(chan time.Time)}
}

type memRecorder struct {
	records []model.ResultRecord
}

func (r *memRecorder) Record(_ context.Context, test model.TestDefinition, student model.Student, record model.ResultRecord) (model.StoredResult, error) {
	r.records = append(r.records, record)
	return model.StoredResult{ID: "r1", TestID: test.ID, RollNumber: student.RollNumber}, nil
}

func plainTest() model.TestDefinition {
	return model.TestDefinition{
		ID:        "t1",
		Name:      "Speed 1",
		Date:      "2026-10-18",
		StartTime: "09:00",
		EndTime:   "09:10",
		Duration:  10,
		Paragraph: "the quick brown fox",
	}
}

func inWindow() stillClock {
	return stillClock{now: time.Date(2026, 10, 18, 9, 5, 0, 0, time.UTC)}
}

func TestRunPlainSubmit(t *testing.T) {
	var out bytes.Buffer
	rec := &memRecorder{}
	in := strings.NewReader("the quick\nbrown cat\n/submit\nignored\n")

	outcome, err := runPlain(context.Background(), in, &out, plainTest(), model.Student{RollNumber: "R1", Name: "Asha"}, rec, inWindow(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, session.StateCompleted, outcome.State)
	assert.Equal(t, model.ReasonSubmitted, outcome.Result.Reason)
	assert.Equal(t, "the quick\nbrown cat", outcome.Result.TypedText)
	assert.Equal(t, 75, outcome.Result.Accuracy)
	assert.Equal(t, "r1", outcome.Stored.ID)
	require.Len(t, rec.records, 1)
	assert.Contains(t, out.String(), "Speed 1: 10 minutes.")
	assert.Contains(t, out.String(), "[10:00 left] 2 words")
	assert.Contains(t, out.String(), "4 words")
}

func TestRunPlainEndOfInputSubmits(t *testing.T) {
	var out bytes.Buffer
	rec := &memRecorder{}
	outcome, err := runPlain(context.Background(), strings.NewReader("the quick"), &out, plainTest(), model.Student{RollNumber: "R1", Name: "Asha"}, rec, inWindow(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, session.StateCompleted, outcome.State)
	assert.Len(t, rec.records, 1)
}

func TestRunPlainExit(t *testing.T) {
	var out bytes.Buffer
	rec := &memRecorder{}
	outcome, err := runPlain(context.Background(), strings.NewReader("the\n/exit\n"), &out, plainTest(), model.Student{RollNumber: "R1", Name: "Asha"}, rec, inWindow(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, session.StateAbandoned, outcome.State)
	assert.Empty(t, rec.records)

	var printed bytes.Buffer
	require.NoError(t, printOutcome(&printed, outcome))
	assert.Equal(t, "Test exited. No result recorded.\n", printed.String())
}

func TestRunPlainOutsideWindow(t *testing.T) {
	var out bytes.Buffer
	early := stillClock{now: time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)}
	_, err := runPlain(context.Background(), strings.NewReader(""), &out, plainTest(), model.Student{RollNumber: "R1", Name: "Asha"}, &memRecorder{}, early, zap.NewNop())
	require.ErrorIs(t, err, session.ErrWindowViolation)

	var werr *session.WindowError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, `test "Speed 1" is not active yet; starts in 1h 0m 0s`, windowMessage(werr, plainTest()))
}

func TestPromptStudent(t *testing.T) {
	var out bytes.Buffer
	student, err := promptStudent(strings.NewReader("R7\nMeera\n"), &out, "", "")
	require.NoError(t, err)
	assert.Equal(t, model.Student{RollNumber: "R7", Name: "Meera"}, student)
	assert.Contains(t, out.String(), "Roll number: ")

	student, err = promptStudent(strings.NewReader("Meera\n"), &out, "R7", "")
	require.NoError(t, err)
	assert.Equal(t, "Meera", student.Name)

	_, err = promptStudent(strings.NewReader(""), &out, "", "")
	assert.Error(t, err)
}

func TestPrintOutcomeCompleted(t *testing.T) {
	var out bytes.Buffer
	err := printOutcome(&out, tui.Outcome{
		State:  session.StateCompleted,
		Result: model.ResultRecord{WPM: 42, Accuracy: 96, WordCount: 210, TimeTaken: 300, Reason: model.ReasonTimeout},
	})
	require.NoError(t, err)
	for _, want := range []string{"Test complete (timeout)", "WPM: 42", "Accuracy: 96%", "Time taken: 5:00", "Level: Excellent"} {
		assert.Contains(t, out.String(), want)
	}
}

func newTestEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	t.Setenv(passwordEnv, "")
	require.NoError(t, os.Unsetenv(passwordEnv))
	return dir
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTestsCommands(t *testing.T) {
	newTestEnv(t)

	out, err := execute(t, "", "tests", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No tests scheduled.")

	_, err = execute(t, "", "tests", "create", "--password", "wrong",
		"--name", "Speed", "--date", "2026-10-18", "--start", "09:00", "--duration", "10", "--paragraph", "a b c")
	require.Error(t, err)

	out, err = execute(t, "", "tests", "create", "--password", "admin123",
		"--name", "Speed", "--date", "2026-10-18", "--start", "09:00", "--duration", "10", "--paragraph", "a b c")
	require.NoError(t, err)
	assert.Contains(t, out, "09:00-09:10")

	yaml := filepath.Join(t.TempDir(), "tests.yaml")
	require.NoError(t, os.WriteFile(yaml, []byte(`
tests:
  - name: Legal
    date: "2026-10-19"
    start: "10:00"
    duration: 30
    paragraph: one two three four
`), 0o644))
	out, err = execute(t, "admin123\n", "tests", "import", yaml)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 tests")

	out, err = execute(t, "", "tests", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "Total: 2  Upcoming: "), lines[0])
	assert.Empty(t, lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "ID"), lines[2])
	assert.Contains(t, lines[3], "Legal")
	assert.Contains(t, lines[4], "Speed")
}

func TestRenderTestCounts(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, renderTestCounts(&out, map[model.Status]int{
		model.StatusUpcoming:  2,
		model.StatusActive:    1,
		model.StatusCompleted: 4,
	}))
	assert.Equal(t, "Total: 7  Upcoming: 2  Active: 1  Completed: 4\n\n", out.String())
}

func TestResultsCommands(t *testing.T) {
	dir := newTestEnv(t)
	t.Setenv(passwordEnv, "admin123")

	out, err := execute(t, "", "results")
	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")

	_, err = execute(t, "", "results", "export", "--out", dir)
	assert.ErrorIs(t, err, results.ErrNoResults)
}

func seedResults(t *testing.T) {
	t.Helper()
	st, err := store.Open(config.DefaultDBPath())
	require.NoError(t, err)
	defer func() { require.NoError(t, st.Close()) }()

	svc := results.New(store.NewCollection[model.StoredResult](st, store.KeyResults), zap.NewNop())
	test := model.TestDefinition{ID: "t1", Name: "Speed"}
	for _, student := range []model.Student{
		{RollNumber: "R1", Name: "Asha"},
		{RollNumber: "R2", Name: "Vikram"},
		{RollNumber: "R1", Name: "Asha"},
	} {
		_, err := svc.Record(context.Background(), test, student, model.ResultRecord{WPM: 30, Accuracy: 90, TimeTaken: 120})
		require.NoError(t, err)
	}
}

func csvRows(t *testing.T, path string) int {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return len(strings.Split(strings.TrimSpace(string(raw)), "\n")) - 1
}

func TestResultsExportCoversWholeRoll(t *testing.T) {
	dir := newTestEnv(t)
	t.Setenv(passwordEnv, "admin123")
	seedResults(t)

	out, err := execute(t, "", "results", "list", "--search", "Vikram")
	require.NoError(t, err)
	assert.Contains(t, out, "Results: 1")

	out, err = execute(t, "", "results", "export", "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 3 results")
	assert.Equal(t, 3, csvRows(t, filepath.Join(dir, "all_test_results.csv")))

	out, err = execute(t, "", "results", "export", "--roll", "R1", "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 2 results")
	assert.Equal(t, 2, csvRows(t, filepath.Join(dir, "R1_Asha_results.csv")))

	_, err = execute(t, "", "results", "export", "--search", "Vikram", "--out", dir)
	assert.Error(t, err)
}

func TestHashPassword(t *testing.T) {
	newTestEnv(t)
	out, err := execute(t, "", "admin", "hash-password", "--password", "s3cret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "$2a$"), out)
}

func TestEnsureConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stenoarena", "config.toml")
	require.NoError(t, ensureConfigFile(path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[admin]")
	assert.Contains(t, string(raw), "# username = \"admin\"")

	require.NoError(t, os.WriteFile(path, []byte("[student]\n"), 0o600))
	require.NoError(t, ensureConfigFile(path))
	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[student]\n", string(raw))
}
