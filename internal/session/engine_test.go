package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/stenoarena/internal/model"
)

func startedEngine(t *testing.T, minutes int, paragraph string) (*Engine, *recorder, *manualClock) {
	t.Helper()
	clock := newManualClock(windowStart().Add(5 * time.Minute))
	rec := &recorder{}
	e := New(testDefinition(minutes, paragraph), rec, WithClock(clock))
	require.NoError(t, e.Start())
	return e, rec, clock
}

func TestEngineScoresHalfwayScenario(t *testing.T) {
	e, rec, clock := startedEngine(t, 1, "the quick brown fox")
	for i := 0; i < 30; i++ {
		clock.Advance(time.Second)
		require.NoError(t, e.Tick())
	}
	require.NoError(t, e.UpdateTypedText("the quick brown cat"))

	m := e.Metrics()
	assert.Equal(t, 30, m.ElapsedSeconds)
	assert.Equal(t, 30, m.RemainingSeconds)
	assert.Equal(t, 4, m.WordCount)
	assert.Equal(t, 8, m.WPM)
	assert.Equal(t, 75, m.Accuracy)
	assert.Equal(t, 19, m.CharacterCount)
	assert.Equal(t, m, rec.metrics[len(rec.metrics)-1])
}

func TestEngineZeroElapsedHasZeroWPM(t *testing.T) {
	e, _, _ := startedEngine(t, 1, "one two")
	require.NoError(t, e.UpdateTypedText("one two"))
	assert.Equal(t, 0, e.Metrics().WPM)
	assert.Equal(t, 100, e.Metrics().Accuracy)
}

func TestEngineRecomputesOnEveryChange(t *testing.T) {
	e, rec, _ := startedEngine(t, 1, "alpha beta")
	before := len(rec.metrics)
	require.NoError(t, e.UpdateTypedText("alpha"))
	require.NoError(t, e.UpdateTypedText("alpha bet"))
	require.NoError(t, e.UpdateTypedText("alpha beta"))
	require.NoError(t, e.Tick())
	assert.Len(t, rec.metrics, before+4)
	assert.Equal(t, 100, e.Metrics().Accuracy)

	// Edits in place are rescored from scratch.
	require.NoError(t, e.UpdateTypedText("alpha"))
	assert.Equal(t, 1, e.Metrics().WordCount)
	assert.Equal(t, 100, e.Metrics().Accuracy)
}

func TestEngineStartOutsideWindow(t *testing.T) {
	clock := newManualClock(windowStart().Add(-time.Minute))
	e := New(testDefinition(1, "x"), nil, WithClock(clock))

	err := e.Start()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWindowViolation))
	var werr *WindowError
	require.True(t, errors.As(err, &werr))
	assert.True(t, werr.Start.Equal(windowStart()))
	assert.Equal(t, StateNotStarted, e.State())

	clock.Advance(time.Minute)
	require.NoError(t, e.Start())
	assert.Equal(t, StateRunning, e.State())
}

func TestEngineStartAtWindowEndIsRejected(t *testing.T) {
	clock := newManualClock(windowStart().Add(time.Hour))
	e := New(testDefinition(1, "x"), nil, WithClock(clock))
	assert.ErrorIs(t, e.Start(), ErrWindowViolation)
}

func TestEngineStartTwice(t *testing.T) {
	e, _, _ := startedEngine(t, 1, "x")
	assert.ErrorIs(t, e.Start(), ErrInvalidTransition)
	assert.Equal(t, StateRunning, e.State())
}

func TestEngineRejectsInputBeforeStart(t *testing.T) {
	e := New(testDefinition(1, "x"), nil, WithClock(newManualClock(windowStart())))
	assert.ErrorIs(t, e.UpdateTypedText("x"), ErrInvalidTransition)
	assert.ErrorIs(t, e.Tick(), ErrInvalidTransition)
	_, err := e.Complete()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 0, e.Metrics().WordCount)
	assert.Equal(t, 60, e.Metrics().RemainingSeconds)
}

func TestEngineCompleteTwiceEmitsOnce(t *testing.T) {
	e, rec, clock := startedEngine(t, 1, "a b c")
	require.NoError(t, e.UpdateTypedText("a b"))
	clock.Advance(12 * time.Second)

	res, err := e.Complete()
	require.NoError(t, err)
	_, err = e.Complete()
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.Len(t, rec.results, 1)
	assert.Equal(t, res, rec.results[0])
	assert.Equal(t, model.ReasonSubmitted, res.Reason)
	assert.Equal(t, 12, res.TimeTaken)
	assert.Equal(t, "a b", res.TypedText)
	assert.Equal(t, 2, res.WordCount)
	assert.Equal(t, 3, res.CharacterCount)
	assert.ErrorIs(t, e.UpdateTypedText("a b c"), ErrInvalidTransition)
	assert.ErrorIs(t, e.Exit(), ErrInvalidTransition)
}

func TestEngineTickToZeroCompletesOnce(t *testing.T) {
	e, rec, clock := startedEngine(t, 1, "one two three")
	require.NoError(t, e.UpdateTypedText("one two"))
	for i := 0; i < 60; i++ {
		clock.Advance(time.Second)
		require.NoError(t, e.Tick())
	}
	assert.Equal(t, StateCompleted, e.State())
	require.Len(t, rec.results, 1)
	assert.Equal(t, model.ReasonTimeout, rec.results[0].Reason)
	assert.Equal(t, 60, rec.results[0].TimeTaken)
	assert.Equal(t, 2, rec.results[0].WPM)

	assert.ErrorIs(t, e.Tick(), ErrInvalidTransition)
	_, err := e.Complete()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Len(t, rec.results, 1)
	assert.Equal(t, 0, e.Metrics().RemainingSeconds)
}

func TestEngineTimeTakenIsCappedAtDuration(t *testing.T) {
	e, rec, clock := startedEngine(t, 1, "x")
	clock.Advance(5 * time.Minute)
	_, err := e.Complete()
	require.NoError(t, err)
	assert.Equal(t, 60, rec.results[0].TimeTaken)
}

func TestEngineExitDiscardsSession(t *testing.T) {
	e, rec, _ := startedEngine(t, 1, "the quick fox")
	require.NoError(t, e.UpdateTypedText("the qu"))
	require.NoError(t, e.Exit())

	assert.Equal(t, StateAbandoned, e.State())
	assert.Empty(t, rec.results)
	_, ok := e.Result()
	assert.False(t, ok)
	assert.Equal(t, model.Metrics{}, e.Metrics())
	_, err := e.Complete()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, e.Tick(), ErrInvalidTransition)
}

func TestEngineExitBeforeStart(t *testing.T) {
	e := New(testDefinition(1, "x"), nil, WithClock(newManualClock(windowStart())))
	require.NoError(t, e.Exit())
	assert.ErrorIs(t, e.Start(), ErrInvalidTransition)
}
