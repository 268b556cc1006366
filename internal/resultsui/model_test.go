package resultsui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/stenoarena/internal/model"
	"github.com/verte-zerg/stenoarena/internal/results"
	"github.com/verte-zerg/stenoarena/internal/stats"
)

type sliceSource []model.StoredResult

func (s sliceSource) List(_ context.Context, filter model.ResultFilter) ([]model.StoredResult, error) {
	return results.Filter(s, filter), nil
}

func (s sliceSource) Students(_ context.Context) ([]model.StudentSummary, error) {
	return stats.Students(s), nil
}

func sampleResults() sliceSource {
	at := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	return sliceSource{
		{ID: "1", RollNumber: "R1", Name: "Asha", TestName: "Speed", WPM: 42, Accuracy: 96, TimeTaken: 300, SubmittedAt: at},
		{ID: "2", RollNumber: "R2", Name: "Vikram", TestName: "Legal", WPM: 30, Accuracy: 88, TimeTaken: 600, SubmittedAt: at},
		{ID: "3", RollNumber: "R1", Name: "Asha", TestName: "Legal", WPM: 45, Accuracy: 99, TimeTaken: 610, SubmittedAt: at},
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestRollFilterCycles(t *testing.T) {
	m := NewModel(sampleResults(), t.TempDir())
	assert.Len(t, m.table.Rows(), 3)
	assert.Contains(t, m.View(), "Roll: all")

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Len(t, m.table.Rows(), 2)
	assert.Contains(t, m.View(), "Roll: R1 (Asha)")

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Len(t, m.table.Rows(), 1)

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Len(t, m.table.Rows(), 3)

	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Len(t, m.table.Rows(), 1)
	assert.Equal(t, "R2", m.table.Rows()[0][0])
}

func TestSearchFiltersLive(t *testing.T) {
	m := NewModel(sampleResults(), t.TempDir())

	m.Update(key("/"))
	require.True(t, m.searchMode)
	m.Update(key("LEG"))
	assert.Len(t, m.table.Rows(), 2)
	assert.Contains(t, m.View(), "Results 2")

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.searchMode)
	assert.Len(t, m.table.Rows(), 2)

	m.Update(key("/"))
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Len(t, m.table.Rows(), 3)
}

func TestExportWritesStudentFile(t *testing.T) {
	dir := t.TempDir()
	m := NewModel(sampleResults(), dir)
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m.Update(key("e"))

	path := filepath.Join(dir, "R1_Asha_results.csv")
	assert.Contains(t, m.notice, path)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Roll Number,Name,Test Name"))
}

func TestExportAllAndEmpty(t *testing.T) {
	dir := t.TempDir()
	m := NewModel(sampleResults(), dir)
	m.Update(key("e"))
	_, err := os.Stat(filepath.Join(dir, "all_test_results.csv"))
	require.NoError(t, err)

	empty := NewModel(sliceSource{}, dir)
	assert.Contains(t, empty.View(), "No results found.")
	empty.Update(key("e"))
	assert.Equal(t, "No results to export.", empty.errMsg)
}

func TestExportIgnoresSearch(t *testing.T) {
	dir := t.TempDir()
	m := NewModel(sampleResults(), dir)
	m.Update(key("/"))
	m.Update(key("Vikram"))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, m.table.Rows(), 1)

	m.Update(key("e"))
	raw, err := os.ReadFile(filepath.Join(dir, "all_test_results.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.Len(t, lines, 4)
	assert.Contains(t, m.notice, "Exported 3 results")
	assert.Len(t, m.table.Rows(), 1)

	m.Update(key("/"))
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m.Update(key("/"))
	m.Update(key("Speed"))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, m.table.Rows(), 1)
	m.Update(key("e"))
	raw, err = os.ReadFile(filepath.Join(dir, "R1_Asha_results.csv"))
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.Len(t, lines, 3)
}

func TestQuit(t *testing.T) {
	m := NewModel(sampleResults(), t.TempDir())
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}
