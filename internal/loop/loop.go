// Package loop runs every component operation on one cooperative,
// OS-thread locked goroutine. Timers and pollers post back onto it.
package loop

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/launchdeck/launchdeck/internal/logging"
)

// ErrStopped is returned when work is handed to a loop that has stopped
var ErrStopped = errors.New("event loop stopped")

// Timer is a cancelable scheduled callback
type Timer interface {
	// Stop prevents the callback from running. It reports whether the
	// call stopped it, false if it already ran or was stopped before.
	Stop() bool
}

// Scheduler schedules callbacks to run later on the loop
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type Loop struct {
	logger *zap.Logger

	mu      sync.Mutex
	queue   []func()
	running bool
	stopped bool

	wake     chan struct{}
	stopChan chan struct{}
	stopOnce sync.Once
}

func New(logger *zap.Logger) *Loop {
	return &Loop{
		logger:   logging.OrNop(logger).Named("loop"),
		wake:     make(chan struct{}, 1),
		stopChan: make(chan struct{}),
	}
}

// Start runs the loop on the calling goroutine, locked to its OS thread,
// until ctx is done or Stop is called. Native hotkey registrations are bound
// to this thread.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return errors.New("event loop is already running")
	}
	if l.stopped {
		l.mu.Unlock()
		return ErrStopped
	}
	l.running = true
	l.mu.Unlock()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	l.logger.Debug("event loop started")
	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			l.Stop()
			l.logger.Debug("event loop stopped by context")
			return ctx.Err()

		case <-l.stopChan:
			l.logger.Debug("event loop stopped")
			return nil

		case <-l.wake:
			l.drain()
		}
	}
}

// Stop ends the loop. Pending work is dropped.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
		close(l.stopChan)
	})
}

func (l *Loop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Post queues fn to run on the loop after everything already queued.
// It never blocks and reports false once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Call runs fn on the loop and waits for it to finish. It must not be
// called from the loop itself.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrStopped
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopChan:
		return ErrStopped
	}
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		for _, fn := range batch {
			select {
			case <-l.stopChan:
				return
			default:
			}
			l.run(fn)
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("recovered panic in loop task", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	fn()
}

type timer struct {
	t       *time.Timer
	stopped atomic.Bool
	fired   atomic.Bool
}

func (t *timer) Stop() bool {
	if t.stopped.Swap(true) {
		return false
	}
	if t.t != nil {
		t.t.Stop()
	}
	return !t.fired.Load()
}

// AfterFunc runs fn on the loop once d has elapsed
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	t := &timer{}
	t.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.stopped.Load() {
				return
			}
			t.fired.Store(true)
			fn()
		})
	})
	return t
}

type poller struct {
	stop    chan struct{}
	once    sync.Once
	pending atomic.Bool
}

func (p *poller) Stop() bool {
	stopped := false
	p.once.Do(func() {
		close(p.stop)
		stopped = true
	})
	return stopped
}

// Every runs fn on the loop at the given interval until the returned Timer
// is stopped. Ticks that arrive while fn is still queued are coalesced.
func (l *Loop) Every(interval time.Duration, fn func()) Timer {
	p := &poller{stop: make(chan struct{})}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-p.stop:
				return
			case <-l.stopChan:
				return
			case <-ticker.C:
				if !p.pending.CompareAndSwap(false, true) {
					continue
				}
				l.Post(func() {
					p.pending.Store(false)
					select {
					case <-p.stop:
						return
					default:
					}
					fn()
				})
			}
		}
	}()

	return p
}
