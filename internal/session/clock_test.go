package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/verte-zerg/stenoarena/internal/model"
)

type manualTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() { t.stopped.Store(true) }

type manualClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers chan *manualTicker
}

func newManualClock(now time.Time) *manualClock {
	return &manualClock{now: now, tickers: make(chan *manualTicker, 1)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *manualClock) NewTicker(time.Duration) Ticker {
	t := &manualTicker{ch: make(chan time.Time)}
	c.tickers <- t
	return t
}

func (c *manualClock) waitTicker(t *testing.T) *manualTicker {
	t.Helper()
	select {
	case tk := <-c.tickers:
		return tk
	case <-time.After(2 * time.Second):
		t.Fatalf("ticker was never created")
		return nil
	}
}

// fire delivers one tick and advances the clock by a second.
func (c *manualClock) fire(t *testing.T, tk *manualTicker) {
	t.Helper()
	c.Advance(time.Second)
	select {
	case tk.ch <- c.Now():
	case <-time.After(2 * time.Second):
		t.Fatalf("tick was not consumed")
	}
}

type recorder struct {
	metrics []model.Metrics
	results []model.ResultRecord
}

func (r *recorder) OnMetricsChanged(m model.Metrics) { r.metrics = append(r.metrics, m) }

func (r *recorder) OnCompleted(res model.ResultRecord) { r.results = append(r.results, res) }

func windowStart() time.Time {
	return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
}

func testDefinition(minutes int, paragraph string) model.TestDefinition {
	return model.TestDefinition{
		ID:        "t1",
		Name:      "Dictation 1",
		Date:      "2026-10-18",
		StartTime: "09:00",
		EndTime:   "10:00",
		Duration:  minutes,
		Paragraph: paragraph,
	}
}
