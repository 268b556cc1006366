// Package resultsui provides the Bubble Tea results browser.
package resultsui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/stenoarena/internal/model"
	"github.com/verte-zerg/stenoarena/internal/results"
	"github.com/verte-zerg/stenoarena/internal/stats"
)

// Source lists stored results and the students they belong to.
type Source interface {
	List(ctx context.Context, filter model.ResultFilter) ([]model.StoredResult, error)
	Students(ctx context.Context) ([]model.StudentSummary, error)
}

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Model implements the Bubble Tea results UI.
type Model struct {
	src       Source
	exportDir string

	report   stats.Report
	students []model.StudentSummary
	rollIdx  int
	errMsg   string
	notice   string

	table      table.Model
	search     textinput.Model
	searchMode bool

	width  int
	height int
}

// NewModel constructs a results browser. Exports are written to exportDir.
func NewModel(src Source, exportDir string) *Model {
	m := &Model{
		src:       src,
		exportDir: exportDir,
	}
	m.search = textinput.New()
	m.search.Prompt = "Search: "
	m.search.Placeholder = "name, roll number or test"
	m.search.CharLimit = 0
	m.search.Cursor.SetMode(cursor.CursorBlink)
	m.table = table.New(
		table.WithColumns(resultColumns()),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	m.table.SetStyles(tableStyles())
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.searchMode {
			return m.updateSearch(msg)
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "/":
			m.searchMode = true
			m.notice = ""
			return m, m.search.Focus()
		case "tab", "r":
			m.cycleRoll(1)
			return m, nil
		case "shift+tab", "R":
			m.cycleRoll(-1)
			return m, nil
		case "e":
			m.export()
			return m, nil
		case "g", "home":
			m.table.GotoTop()
			return m, nil
		case "G", "end":
			m.table.GotoBottom()
			return m, nil
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searchMode = false
		m.search.SetValue("")
		m.search.Blur()
		m.refresh()
		return m, nil
	case tea.KeyEnter:
		m.searchMode = false
		m.search.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.refresh()
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	lines := []string{
		titleStyle.Render("Results") + "  " + headerStyle.Render(m.filterSummary()),
		m.renderSummary(),
	}
	if m.searchMode {
		lines = append(lines, m.search.View())
	}
	if len(m.report.Results) == 0 {
		lines = append(lines, "", "No results found.")
	} else {
		lines = append(lines, mutedStyle.Render(m.table.View()))
	}
	lines = append(lines, m.renderFooter())
	out := strings.Join(lines, "\n")
	if m.width == 0 || m.height == 0 {
		return out
	}
	return fitLines(out, m.width, m.height)
}

func (m *Model) refresh() {
	ctx := context.Background()
	students, err := m.src.Students(ctx)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.students = students
	if m.rollIdx > len(m.students) {
		m.rollIdx = 0
	}
	report, err := stats.BuildReport(ctx, m.src, m.filter())
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	m.report = report
	m.table.SetRows(resultRows(report.Results))
	m.table.GotoTop()
}

func (m *Model) filter() model.ResultFilter {
	roll := results.AllRolls
	if student, ok := m.selectedStudent(); ok {
		roll = student.RollNumber
	}
	return model.ResultFilter{RollNumber: roll, Query: m.search.Value()}
}

// selectedStudent returns the student the roll filter points at. Index 0 is "all".
func (m *Model) selectedStudent() (model.StudentSummary, bool) {
	if m.rollIdx <= 0 || m.rollIdx > len(m.students) {
		return model.StudentSummary{}, false
	}
	return m.students[m.rollIdx-1], true
}

func (m *Model) cycleRoll(delta int) {
	count := len(m.students) + 1
	m.rollIdx = ((m.rollIdx+delta)%count + count) % count
	m.notice = ""
	m.refresh()
}

// export writes every result for the selected roll. The search box narrows
// the table only; the file name promises all of a student's results.
func (m *Model) export() {
	filter := model.ResultFilter{RollNumber: results.AllRolls}
	var student *model.Student
	if s, ok := m.selectedStudent(); ok {
		student = &model.Student{RollNumber: s.RollNumber, Name: s.Name}
		filter.RollNumber = s.RollNumber
	}
	m.notice = ""
	rows, err := m.src.List(context.Background(), filter)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	path, err := ExportFile(m.exportDir, rows, student)
	if errors.Is(err, results.ErrNoResults) {
		m.errMsg = "No results to export."
		return
	}
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	m.notice = fmt.Sprintf("Exported %d results to %s", len(rows), path)
}

// ExportFile writes rows as CSV into dir, named for student or for all results.
func ExportFile(dir string, rows []model.StoredResult, student *model.Student) (string, error) {
	if len(rows) == 0 {
		return "", results.ErrNoResults
	}
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, results.ExportFileName(student))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export: %w", err)
	}
	if err := results.WriteCSV(f, rows); err != nil {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close on write failure.
			_ = cerr
		}
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close export: %w", err)
	}
	return path, nil
}

func (m *Model) filterSummary() string {
	roll := results.AllRolls
	if s, ok := m.selectedStudent(); ok {
		roll = fmt.Sprintf("%s (%s)", s.RollNumber, s.Name)
	}
	query := strings.TrimSpace(m.search.Value())
	if query == "" {
		query = "-"
	}
	return truncateLine(fmt.Sprintf("Roll: %s  Search: %s", roll, query), max(0, m.width-9))
}

func (m *Model) renderSummary() string {
	s := m.report.Summary
	if s.Count == 0 {
		return headerStyle.Render("Results 0")
	}
	return fmt.Sprintf("Results %d  Avg WPM %.1f  Best WPM %d  Avg Accuracy %.1f%%",
		s.Count, s.AvgWPM, s.BestWPM, s.AvgAccuracy)
}

func (m *Model) renderFooter() string {
	help := headerStyle.Render("Scroll: up/down  Roll: tab/shift+tab  Search: /  Export: e  Quit: q")
	if m.searchMode {
		help = headerStyle.Render("enter: keep search  esc: clear search")
	}
	switch {
	case m.errMsg != "":
		return help + "\n" + errorStyle.Render(m.errMsg)
	case m.notice != "":
		return help + "\n" + noticeStyle.Render(m.notice)
	}
	return help
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	m.table.SetWidth(m.width)
	m.table.SetHeight(max(3, m.height-6))
	m.search.Width = max(10, m.width-lipgloss.Width(m.search.Prompt)-2)
}

func resultColumns() []table.Column {
	return []table.Column{
		{Title: "Roll Number", Width: 11},
		{Title: "Name", Width: 18},
		{Title: "Test", Width: 18},
		{Title: "WPM", Width: 4},
		{Title: "Accuracy", Width: 8},
		{Title: "Time", Width: 6},
		{Title: "Level", Width: 17},
		{Title: "Submitted At", Width: 16},
	}
}

func resultRows(rs []model.StoredResult) []table.Row {
	rows := make([]table.Row, 0, len(rs))
	for _, r := range rs {
		rows = append(rows, table.Row{
			r.RollNumber,
			r.Name,
			r.TestName,
			strconv.Itoa(r.WPM),
			fmt.Sprintf("%d%%", r.Accuracy),
			stats.FormatDuration(r.TimeTaken),
			stats.PerformanceLevel(r.WPM, r.Accuracy),
			r.SubmittedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return rows
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
