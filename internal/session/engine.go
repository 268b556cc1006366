// Package session implements the countdown and scoring engine for a single
// dictation test attempt.
//
// An Engine is not safe for concurrent use. Hosts deliver every event (ticks,
// text changes, submit, exit) from one logical thread: the Bubble Tea update
// loop, or the goroutine owned by a Countdown.
package session

import (
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/verte-zerg/stenoarena/internal/model"
	"github.com/verte-zerg/stenoarena/internal/schedule"
	"github.com/verte-zerg/stenoarena/internal/stats"
)

// State is the lifecycle state of a session.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateCompleted
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not started"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAbandoned:
		return "abandoned"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Listener receives engine output. Callbacks run synchronously on the caller's thread.
type Listener interface {
	OnMetricsChanged(m model.Metrics)
	OnCompleted(r model.ResultRecord)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	MetricsChanged func(model.Metrics)
	Completed      func(model.ResultRecord)
}

// OnMetricsChanged implements Listener.
func (f ListenerFuncs) OnMetricsChanged(m model.Metrics) {
	if f.MetricsChanged != nil {
		f.MetricsChanged(m)
	}
}

// OnCompleted implements Listener.
func (f ListenerFuncs) OnCompleted(r model.ResultRecord) {
	if f.Completed != nil {
		f.Completed(r)
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock used for window checks and timestamps.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLogger attaches a logger for lifecycle events.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine owns the countdown and scoring of one test attempt.
type Engine struct {
	test      model.TestDefinition
	reference []string
	listener  Listener
	clock     Clock
	logger    *zap.Logger

	state     State
	duration  int
	remaining int
	typed     string
	metrics   model.Metrics
	startedAt time.Time
	result    model.ResultRecord
}

// New creates an engine for test. The reference paragraph is split once up front.
func New(test model.TestDefinition, listener Listener, opts ...Option) *Engine {
	if listener == nil {
		listener = ListenerFuncs{}
	}
	e := &Engine{
		test:      test,
		reference: stats.Words(test.Paragraph),
		listener:  listener,
		clock:     SystemClock,
		logger:    zap.NewNop(),
		duration:  test.Duration * 60,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.remaining = e.duration
	e.metrics = model.Metrics{RemainingSeconds: e.remaining, Accuracy: 100}
	return e
}

// Start begins the countdown. It is rejected when the session has already
// started or when the clock is outside the test's scheduled window.
func (e *Engine) Start() error {
	if e.state != StateNotStarted {
		return transitionError("start", e.state)
	}
	now := e.clock.Now()
	start, end, err := schedule.Window(e.test, now.Location())
	if err != nil {
		e.logger.Warn("test window unreadable", zap.String("test_id", e.test.ID), zap.Error(err))
		return &WindowError{TestName: e.test.Name, At: now}
	}
	if now.Before(start) || !now.Before(end) {
		e.logger.Info("start rejected outside window",
			zap.String("test_id", e.test.ID),
			zap.Time("window_start", start),
			zap.Time("window_end", end))
		return &WindowError{TestName: e.test.Name, Start: start, End: end, At: now}
	}
	if e.duration <= 0 {
		return fmt.Errorf("test %q has no duration", e.test.Name)
	}

	e.state = StateRunning
	e.startedAt = now
	e.logger.Info("session started", zap.String("test_id", e.test.ID), zap.Int("duration_s", e.duration))
	e.recompute()
	return nil
}

// UpdateTypedText replaces the full typed text and recomputes metrics.
func (e *Engine) UpdateTypedText(text string) error {
	if e.state != StateRunning || e.remaining <= 0 {
		return transitionError("update text", e.state)
	}
	if text == e.typed {
		return nil
	}
	e.typed = text
	e.recompute()
	return nil
}

// Tick advances the countdown by one second. Reaching zero completes the session.
func (e *Engine) Tick() error {
	if e.state != StateRunning {
		return transitionError("tick", e.state)
	}
	if e.remaining > 0 {
		e.remaining--
	}
	e.recompute()
	if e.remaining == 0 {
		e.finish(model.ReasonTimeout)
	}
	return nil
}

// Complete finalizes a running session and emits its ResultRecord. Only the
// first call succeeds.
func (e *Engine) Complete() (model.ResultRecord, error) {
	if e.state != StateRunning {
		return model.ResultRecord{}, transitionError("complete", e.state)
	}
	return e.finish(model.ReasonSubmitted), nil
}

// Exit abandons the session without producing a result.
func (e *Engine) Exit() error {
	if e.Terminal() {
		return transitionError("exit", e.state)
	}
	prev := e.state
	e.state = StateAbandoned
	e.typed = ""
	e.metrics = model.Metrics{}
	e.logger.Info("session abandoned", zap.String("test_id", e.test.ID), zap.Stringer("from", prev))
	return nil
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return e.state
}

// Terminal reports whether the session has completed or been abandoned.
func (e *Engine) Terminal() bool {
	return e.state == StateCompleted || e.state == StateAbandoned
}

// Metrics returns the latest metrics snapshot.
func (e *Engine) Metrics() model.Metrics {
	return e.metrics
}

// Test returns the test definition the session runs.
func (e *Engine) Test() model.TestDefinition {
	return e.test
}

// Result returns the record of a completed session.
func (e *Engine) Result() (model.ResultRecord, bool) {
	return e.result, e.state == StateCompleted
}

func (e *Engine) recompute() {
	typedWords := stats.Words(e.typed)
	elapsed := e.duration - e.remaining
	e.metrics = model.Metrics{
		RemainingSeconds: e.remaining,
		ElapsedSeconds:   elapsed,
		WPM:              stats.WPM(len(typedWords), elapsed),
		Accuracy:         stats.Accuracy(typedWords, e.reference),
		WordCount:        len(typedWords),
		CharacterCount:   utf8.RuneCountInString(e.typed),
	}
	e.listener.OnMetricsChanged(e.metrics)
}

func (e *Engine) finish(reason model.CompletionReason) model.ResultRecord {
	e.state = StateCompleted
	ended := e.clock.Now()
	taken := int(math.Round(ended.Sub(e.startedAt).Seconds()))
	taken = max(0, min(taken, e.duration))
	e.result = model.ResultRecord{
		TypedText:      e.typed,
		TimeTaken:      taken,
		WPM:            e.metrics.WPM,
		Accuracy:       e.metrics.Accuracy,
		WordCount:      e.metrics.WordCount,
		CharacterCount: e.metrics.CharacterCount,
		StartedAt:      e.startedAt,
		EndedAt:        ended,
		Reason:         reason,
	}
	e.logger.Info("session completed",
		zap.String("test_id", e.test.ID),
		zap.String("reason", string(reason)),
		zap.Int("wpm", e.result.WPM),
		zap.Int("accuracy", e.result.Accuracy))
	e.listener.OnCompleted(e.result)
	return e.result
}
