package session

import (
	"context"
	"fmt"
	"time"
)

type command struct {
	apply func(*Engine) error
	reply chan error
}

// Countdown drives an Engine from a one-second ticker for hosts without their
// own event loop. Ticks and host commands are serialized on the goroutine
// running Run, and the ticker is stopped on every exit path.
type Countdown struct {
	engine   *Engine
	clock    Clock
	interval time.Duration
	cmds     chan command
	done     chan struct{}
}

// NewCountdown wraps engine. The engine must not be used directly afterwards.
func NewCountdown(engine *Engine, clock Clock) *Countdown {
	if clock == nil {
		clock = SystemClock
	}
	return &Countdown{
		engine:   engine,
		clock:    clock,
		interval: time.Second,
		cmds:     make(chan command),
		done:     make(chan struct{}),
	}
}

// Run starts the session and blocks until it completes, is abandoned, or ctx
// is done. A cancelled context abandons a running session.
func (c *Countdown) Run(ctx context.Context) error {
	defer close(c.done)
	if err := c.engine.Start(); err != nil {
		return err
	}
	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()

	for !c.engine.Terminal() {
		select {
		case <-ctx.Done():
			_ = c.engine.Exit()
			return ctx.Err()
		case <-ticker.C():
			if err := c.engine.Tick(); err != nil {
				return err
			}
		case cmd := <-c.cmds:
			cmd.reply <- cmd.apply(c.engine)
		}
	}
	return nil
}

// Type replaces the typed text of the running session.
func (c *Countdown) Type(text string) error {
	return c.do(func(e *Engine) error {
		return e.UpdateTypedText(text)
	})
}

// Submit completes the session early.
func (c *Countdown) Submit() error {
	return c.do(func(e *Engine) error {
		_, err := e.Complete()
		return err
	})
}

// Exit abandons the session.
func (c *Countdown) Exit() error {
	return c.do(func(e *Engine) error {
		return e.Exit()
	})
}

// Done is closed once Run has returned.
func (c *Countdown) Done() <-chan struct{} {
	return c.done
}

func (c *Countdown) do(apply func(*Engine) error) error {
	reply := make(chan error, 1)
	select {
	case c.cmds <- command{apply: apply, reply: reply}:
		return <-reply
	case <-c.done:
		return fmt.Errorf("%w: countdown has stopped", ErrInvalidTransition)
	}
}
