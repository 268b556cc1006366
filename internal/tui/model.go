// Package tui provides the Bubble Tea exam interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/verte-zerg/stenoarena/internal/model"
	"github.com/verte-zerg/stenoarena/internal/schedule"
	"github.com/verte-zerg/stenoarena/internal/session"
	"github.com/verte-zerg/stenoarena/internal/stats"
)

// Recorder persists a completed session.
type Recorder interface {
	Record(ctx context.Context, test model.TestDefinition, student model.Student, record model.ResultRecord) (model.StoredResult, error)
}

type phase int

const (
	phaseLobby phase = iota
	phaseRunning
	phaseConfirmSubmit
	phaseConfirmExit
	phaseReview
	phaseExited
)

type tickMsg struct {
	session int
}

type lobbyTickMsg struct{}

type savedMsg struct {
	stored model.StoredResult
	err    error
}

// Outcome reports how the program ended.
type Outcome struct {
	State   session.State
	Result  model.ResultRecord
	Stored  model.StoredResult
	SaveErr error
}

// Model implements the Bubble Tea exam UI.
type Model struct {
	test     model.TestDefinition
	student  model.Student
	recorder Recorder
	clock    session.Clock
	logger   *zap.Logger

	engine    *session.Engine
	sessionID int
	phase     phase
	advisory  string

	input textarea.Model

	pending *model.ResultRecord
	job     *saveJob
	result  model.ResultRecord
	stored  model.StoredResult
	saved   bool
	saveErr error

	width  int
	height int
}

var (
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Underline(true)
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	accentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	timeSafeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	timeWarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAAD14")).Bold(true)
	timeLowStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	modalStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

// Option configures a Model.
type Option func(*Model)

// WithClock sets the clock used for the window check and lobby countdown.
func WithClock(c session.Clock) Option {
	return func(m *Model) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithLogger sets the logger passed to the session engine.
func WithLogger(l *zap.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewModel constructs the exam UI for one attempt at test.
func NewModel(test model.TestDefinition, student model.Student, recorder Recorder, opts ...Option) *Model {
	m := &Model{
		test:     test,
		student:  student,
		recorder: recorder,
		clock:    session.SystemClock,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.engine = session.New(test, session.ListenerFuncs{
		Completed: func(r model.ResultRecord) {
			m.pending = &r
		},
	}, session.WithClock(m.clock), session.WithLogger(m.logger))

	m.input = textarea.New()
	m.input.Placeholder = "Start typing what you hear..."
	m.input.ShowLineNumbers = false
	m.input.CharLimit = 0
	m.input.MaxHeight = 0
	m.input.Prompt = ""
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return lobbyTick()
}

// Wait blocks until a save that the program quit before observing has
// finished, then returns the outcome.
func (m *Model) Wait() Outcome {
	if m.job != nil && !m.saved {
		m.applySaved(m.job.result())
	}
	return m.Outcome()
}

// Outcome returns the final session state and any saved result.
func (m *Model) Outcome() Outcome {
	return Outcome{
		State:   m.engine.State(),
		Result:  m.result,
		Stored:  m.stored,
		SaveErr: m.saveErr,
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case lobbyTickMsg:
		if m.phase != phaseLobby {
			return m, nil
		}
		return m, lobbyTick()
	case tickMsg:
		if msg.session != m.sessionID || m.engine.State() != session.StateRunning {
			return m, nil
		}
		if err := m.engine.Tick(); err != nil {
			m.logger.Debug("tick ignored", zap.Error(err))
			return m, nil
		}
		cmd := m.afterEngine()
		if m.engine.State() != session.StateRunning {
			return m, cmd
		}
		return m, tick(m.sessionID)
	case savedMsg:
		m.applySaved(msg)
		return m, nil
	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	if m.phase == phaseRunning {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		if !m.engine.Terminal() {
			_ = m.engine.Exit()
			m.phase = phaseExited
		}
		return m, tea.Quit
	}
	switch m.phase {
	case phaseLobby:
		switch msg.String() {
		case "enter":
			return m.start()
		case "q", "esc":
			_ = m.engine.Exit()
			m.phase = phaseExited
			return m, tea.Quit
		}
		return m, nil
	case phaseRunning:
		switch msg.String() {
		case "ctrl+s":
			m.phase = phaseConfirmSubmit
			return m, nil
		case "esc":
			m.phase = phaseConfirmExit
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if err := m.engine.UpdateTypedText(m.input.Value()); err != nil {
			m.logger.Debug("typing ignored", zap.Error(err))
		}
		return m, cmd
	case phaseConfirmSubmit, phaseConfirmExit:
		switch msg.String() {
		case "y", "Y", "enter":
			if m.phase == phaseConfirmExit {
				_ = m.engine.Exit()
				m.phase = phaseExited
				return m, tea.Quit
			}
			if _, err := m.engine.Complete(); err != nil {
				m.logger.Debug("submit ignored", zap.Error(err))
			}
			return m, m.afterEngine()
		case "n", "N", "esc":
			m.phase = phaseRunning
			return m, nil
		}
		return m, nil
	case phaseReview:
		if m.saving() {
			return m, nil
		}
		switch msg.String() {
		case "q", "esc", "enter":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *Model) saving() bool {
	return m.job != nil && !m.saved
}

func (m *Model) applySaved(msg savedMsg) {
	if m.saved {
		return
	}
	m.saved = true
	m.stored = msg.stored
	m.saveErr = msg.err
	if msg.err != nil {
		m.logger.Error("failed to save result", zap.Error(msg.err))
	}
}

func (m *Model) start() (tea.Model, tea.Cmd) {
	if err := m.engine.Start(); err != nil {
		var werr *session.WindowError
		if errors.As(err, &werr) {
			m.advisory = windowAdvisory(werr, m.clock.Now())
		} else {
			m.advisory = err.Error()
		}
		return m, nil
	}
	m.advisory = ""
	m.phase = phaseRunning
	m.sessionID++
	return m, tea.Batch(m.input.Focus(), tick(m.sessionID))
}

// afterEngine moves to the review screen once the engine has emitted a
// result and returns the command that stores it.
func (m *Model) afterEngine() tea.Cmd {
	if m.pending == nil {
		return nil
	}
	m.result = *m.pending
	m.pending = nil
	m.phase = phaseReview
	m.input.Blur()
	return m.save(m.result)
}

func (m *Model) save(record model.ResultRecord) tea.Cmd {
	if m.recorder == nil {
		return nil
	}
	recorder, test, student := m.recorder, m.test, m.student
	job := &saveJob{run: func() savedMsg {
		stored, err := recorder.Record(context.Background(), test, student, record)
		return savedMsg{stored: stored, err: err}
	}}
	m.job = job
	return func() tea.Msg {
		return job.result()
	}
}

// saveJob runs a Record call once, whether the program executes the command
// or Wait picks it up after the program has quit.
type saveJob struct {
	once sync.Once
	run  func() savedMsg
	msg  savedMsg
}

func (j *saveJob) result() savedMsg {
	j.once.Do(func() {
		j.msg = j.run()
	})
	return j.msg
}

func tick(id int) tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{session: id}
	})
}

func lobbyTick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return lobbyTickMsg{}
	})
}

func windowAdvisory(werr *session.WindowError, now time.Time) string {
	if werr.Start.IsZero() {
		return "This test has no valid schedule."
	}
	if now.Before(werr.Start) {
		return fmt.Sprintf("Test is not active yet. It opens at %s.", werr.Start.Format("15:04"))
	}
	return fmt.Sprintf("Test window closed at %s.", werr.End.Format("15:04"))
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	m.input.SetWidth(contentWidth(m.width))
	m.input.SetHeight(max(3, m.height-6))
}

func contentWidth(width int) int {
	w := int(float64(width) * 0.80)
	if w < 20 {
		return max(1, width)
	}
	return w
}

// View implements tea.Model.
func (m *Model) View() string {
	var content string
	switch m.phase {
	case phaseLobby:
		content = m.renderLobby()
	case phaseRunning:
		content = m.renderRunning()
	case phaseConfirmSubmit:
		content = m.renderConfirm("Submit test now? Your current text will be scored.")
	case phaseConfirmExit:
		content = m.renderConfirm("Exit test? Your progress will be lost and no result is recorded.")
	case phaseReview:
		content = m.renderReview()
	case phaseExited:
		return "Test exited. No result recorded.\n"
	}
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) renderLobby() string {
	now := m.clock.Now()
	status, err := schedule.StatusAt(m.test, now)
	lines := []string{
		accentStyle.Render(m.test.Name),
		fmt.Sprintf("Student: %s (%s)", m.student.Name, m.student.RollNumber),
		fmt.Sprintf("Date: %s  Time: %s - %s  Duration: %d min", m.test.Date, m.test.StartTime, m.test.EndTime, m.test.Duration),
		"",
	}
	switch {
	case err != nil:
		lines = append(lines, timeLowStyle.Render("This test has no valid schedule."))
	case status == model.StatusUpcoming:
		lines = append(lines, fmt.Sprintf("Starts in: %s", timeWarnStyle.Render(schedule.Until(m.test, now))))
	case status == model.StatusActive:
		lines = append(lines, timeSafeStyle.Render("Test is active. Press Enter to begin."))
	default:
		lines = append(lines, timeLowStyle.Render("This test has ended."))
	}
	if m.advisory != "" {
		lines = append(lines, "", timeLowStyle.Render(m.advisory))
	}
	lines = append(lines, "", footerStyle.Render("enter: start  q: quit"))
	return strings.Join(lines, "\n")
}

func (m *Model) renderRunning() string {
	header := renderHeader(m.test, m.engine.Metrics())
	footer := footerStyle.Render("ctrl+s: submit  esc: exit")
	return strings.Join([]string{header, "", m.input.View(), footer}, "\n")
}

func (m *Model) renderConfirm(question string) string {
	body := strings.Join([]string{
		accentStyle.Render(question),
		"",
		footerStyle.Render("y: yes  n: no"),
	}, "\n")
	width := 60
	if m.width > 0 {
		width = min(60, max(20, m.width-4))
	}
	return strings.Join([]string{renderHeader(m.test, m.engine.Metrics()), "", modalStyle.Width(width).Render(body)}, "\n")
}

func (m *Model) renderReview() string {
	title := "Test submitted"
	if m.result.Reason == model.ReasonTimeout {
		title = "Time's up! Your test has been submitted."
	}
	r := m.result
	lines := []string{
		accentStyle.Render(title),
		"",
		fmt.Sprintf("WPM %d  Accuracy %d%%  Words %d  Time %s  Level %s",
			r.WPM, r.Accuracy, r.WordCount, stats.FormatDuration(r.TimeTaken), stats.PerformanceLevel(r.WPM, r.Accuracy)),
		"",
	}
	typed := stats.Words(r.TypedText)
	if len(typed) == 0 {
		lines = append(lines, pendingStyle.Render("Nothing was typed."))
	} else {
		reference := stats.Words(m.test.Paragraph)
		lines = append(lines,
			fmt.Sprintf("Correct words: %d of %d", stats.CorrectWords(typed, reference), len(typed)),
			wrapSegments(buildReviewSegments(typed, reference), m.reviewWidth()))
	}
	lines = append(lines, "")
	switch {
	case !m.saved && m.recorder != nil:
		lines = append(lines, footerStyle.Render("Saving result..."))
	case m.saveErr != nil:
		lines = append(lines, timeLowStyle.Render("Failed to save result: "+m.saveErr.Error()))
	case m.saved:
		lines = append(lines, footerStyle.Render("Result saved."))
	}
	lines = append(lines, footerStyle.Render("enter/q: close"))
	return strings.Join(lines, "\n")
}

func (m *Model) reviewWidth() int {
	if m.width <= 0 {
		return 72
	}
	return contentWidth(m.width)
}
