package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/verte-zerg/stenoarena/internal/model"
	"github.com/verte-zerg/stenoarena/internal/session"
	"github.com/verte-zerg/stenoarena/internal/tui"
)

const (
	plainSubmit = "/submit"
	plainExit   = "/exit"
)

// plainListener keeps the latest metrics published by the countdown goroutine.
type plainListener struct {
	mu      sync.Mutex
	metrics model.Metrics
}

func (l *plainListener) OnMetricsChanged(m model.Metrics) {
	l.mu.Lock()
	l.metrics = m
	l.mu.Unlock()
}

func (l *plainListener) OnCompleted(model.ResultRecord) {}

func (l *plainListener) latest() model.Metrics {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.metrics
}

// runPlain runs a session from line input. Every line is appended to the typed
// text; /submit submits early, /exit abandons, and end of input submits.
func runPlain(ctx context.Context, in io.Reader, out io.Writer, test model.TestDefinition, student model.Student, recorder tui.Recorder, clock session.Clock, logger *zap.Logger) (tui.Outcome, error) {
	listener := &plainListener{}
	engine := session.New(test, listener, session.WithClock(clock), session.WithLogger(logger.Named("session")))
	countdown := session.NewCountdown(engine, clock)

	errc := make(chan error, 1)
	go func() {
		errc <- countdown.Run(ctx)
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-countdown.Done():
				return
			}
		}
	}()

	progressf(out, "%s: %d minutes. Type what is dictated; each line is added to your answer.\n", test.Name, test.Duration)
	progressf(out, "Enter %s to submit early or %s to leave without a result.\n", plainSubmit, plainExit)

	var typed []string
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				lines = nil
				if err := countdown.Submit(); err != nil {
					logger.Debug("submit on end of input ignored", zap.Error(err))
				}
				continue
			}
			switch strings.TrimSpace(line) {
			case plainSubmit:
				if err := countdown.Submit(); err != nil {
					logger.Debug("submit ignored", zap.Error(err))
				}
			case plainExit:
				if err := countdown.Exit(); err != nil {
					logger.Debug("exit ignored", zap.Error(err))
				}
			default:
				typed = append(typed, line)
				if err := countdown.Type(strings.Join(typed, "\n")); err != nil {
					logger.Debug("typing ignored", zap.Error(err))
					continue
				}
				m := listener.latest()
				progressf(out, "[%s left] %d words  %d WPM  %d%% accuracy\n",
					formatRemaining(m.RemainingSeconds), m.WordCount, m.WPM, m.Accuracy)
			}
		case <-countdown.Done():
			if err := <-errc; err != nil {
				return tui.Outcome{State: engine.State()}, err
			}
			return finishPlain(ctx, engine, test, student, recorder), nil
		}
	}
}

func finishPlain(ctx context.Context, engine *session.Engine, test model.TestDefinition, student model.Student, recorder tui.Recorder) tui.Outcome {
	outcome := tui.Outcome{State: engine.State()}
	record, ok := engine.Result()
	if !ok {
		return outcome
	}
	outcome.Result = record
	if recorder != nil {
		outcome.Stored, outcome.SaveErr = recorder.Record(ctx, test, student, record)
	}
	return outcome
}

func formatRemaining(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// progressf writes prompts and live metrics to the student's terminal.
func progressf(out io.Writer, format string, args ...any) {
	if _, err := fmt.Fprintf(out, format, args...); err != nil {
		// A closed terminal only loses the progress line.
		_ = err
	}
}
