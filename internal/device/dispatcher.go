// Package device turns raw client triggers (buttons, stdin lines) into
// handler invocations.
package device

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultDebounce matches the bounce time used for physical buttons.
const DefaultDebounce = 300 * time.Millisecond

// Kind identifies a trigger source.
type Kind string

const (
	KindCapture Kind = "capture"
	KindVoice   Kind = "voice"
)

// Handler runs the work attached to a trigger.
type Handler func(ctx context.Context, payload string) error

// Dispatcher runs at most one handler per kind at a time. Triggers that
// arrive within the debounce window of the previous accepted trigger, or
// while the handler for that kind is still running, are dropped.
type Dispatcher struct {
	logger   *log.Logger
	debounce time.Duration
	now      func() time.Time

	mu       sync.Mutex
	handlers map[Kind]Handler
	busy     map[Kind]bool
	last     map[Kind]time.Time

	wg sync.WaitGroup
}

func NewDispatcher(debounce time.Duration, logger *log.Logger) *Dispatcher {
	if debounce < 0 {
		debounce = 0
	}
	return &Dispatcher{
		logger:   logger,
		debounce: debounce,
		now:      time.Now,
		handlers: make(map[Kind]Handler),
		busy:     make(map[Kind]bool),
		last:     make(map[Kind]time.Time),
	}
}

// Register attaches h to kind, replacing any previous handler.
func (d *Dispatcher) Register(kind Kind, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = h
}

// Trigger starts the handler for kind in a new goroutine. It reports whether
// the trigger was accepted.
func (d *Dispatcher) Trigger(ctx context.Context, kind Kind, payload string) bool {
	d.mu.Lock()
	h, ok := d.handlers[kind]
	if !ok {
		d.mu.Unlock()
		d.logf("device: no handler for %q", kind)
		return false
	}
	now := d.now()
	if d.busy[kind] {
		d.mu.Unlock()
		d.logf("device: %s busy, trigger dropped", kind)
		return false
	}
	if last, seen := d.last[kind]; seen && now.Sub(last) < d.debounce {
		d.mu.Unlock()
		return false
	}
	d.busy[kind] = true
	d.last[kind] = now
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				d.logf("device: %s handler panic: %v", kind, rec)
			}
			d.mu.Lock()
			d.busy[kind] = false
			d.mu.Unlock()
		}()
		if err := h(ctx, payload); err != nil {
			d.logf("device: %s: %v", kind, err)
		}
	}()
	return true
}

// Busy reports whether the handler for kind is running.
func (d *Dispatcher) Busy(kind Kind) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy[kind]
}

// Wait blocks until every started handler has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) logf(format string, args ...any) {
	if d.logger != nil {
		d.logger.Printf(format, args...)
	}
}
