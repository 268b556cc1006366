package session

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidTransition is returned when an operation does not apply to the
	// current session state. The session is left unchanged.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrWindowViolation is returned when a session is started outside the
	// scheduled window of its test.
	ErrWindowViolation = errors.New("test not currently active")
)

// WindowError describes a rejected start outside the scheduled window.
type WindowError struct {
	TestName string
	Start    time.Time
	End      time.Time
	At       time.Time
}

func (e *WindowError) Error() string {
	if e.Start.IsZero() {
		return fmt.Sprintf("%s: %q has no valid schedule", ErrWindowViolation, e.TestName)
	}
	return fmt.Sprintf("%s: %q runs %s-%s",
		ErrWindowViolation, e.TestName, e.Start.Format("2006-01-02 15:04"), e.End.Format("15:04"))
}

func (e *WindowError) Unwrap() error {
	return ErrWindowViolation
}

func transitionError(op string, s State) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, op, s)
}
