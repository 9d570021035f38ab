package control

import (
	"time"

	"go.uber.org/zap"

	"github.com/launchdeck/launchdeck/internal/discovery"
	"github.com/launchdeck/launchdeck/internal/logging"
	"github.com/launchdeck/launchdeck/pkg/process"
	"github.com/launchdeck/launchdeck/pkg/window"
)

// TerminateState is where a termination ended up
type TerminateState int

const (
	StateRunning TerminateState = iota
	StateWaitingForExit
	StateExited
	StateKilled
	StateFailed
)

func (s TerminateState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateWaitingForExit:
		return "waiting-for-exit"
	case StateExited:
		return "exited"
	case StateKilled:
		return "killed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminator closes processes through their window or kills them
type Terminator struct {
	procs    process.Table
	windows  window.Manager
	interval time.Duration
	sleep    func(time.Duration)
	logger   *zap.Logger

	last TerminateState
}

func NewTerminator(procs process.Table, windows window.Manager, interval time.Duration, logger *zap.Logger) *Terminator {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Terminator{
		procs:    procs,
		windows:  windows,
		interval: interval,
		sleep:    time.Sleep,
		logger:   logging.OrNop(logger).Named("terminator"),
	}
}

// Terminate ends h. With force it kills the process at once; otherwise it
// posts a close request and waits, without any timeout, until the window
// or the process is gone. A graceful request is never escalated to a kill.
// A process that is already gone counts as success.
func (t *Terminator) Terminate(h discovery.ProcessHandle, force bool) bool {
	t.last = t.terminate(h, force)
	t.logger.Debug("terminate finished",
		zap.Int("pid", h.PID),
		zap.Bool("force", force),
		zap.Stringer("state", t.last))
	return t.last == StateExited || t.last == StateKilled
}

// LastState returns the final state of the previous Terminate call
func (t *Terminator) LastState() TerminateState {
	return t.last
}

func (t *Terminator) terminate(h discovery.ProcessHandle, force bool) TerminateState {
	if !t.alive(h.PID) {
		return StateExited
	}

	if force {
		return t.kill(h)
	}

	if !t.windows.IsWindow(h.Window) {
		// nothing left to close; the process keeps running
		t.logger.Info("window already gone, leaving process alone", zap.Int("pid", h.PID))
		return StateExited
	}

	if err := t.windows.PostClose(h.Window); err != nil {
		if !t.windows.IsWindow(h.Window) {
			return StateExited
		}
		t.logger.Warn("close request failed", zap.Int("pid", h.PID), zap.Error(err))
		return StateFailed
	}

	for t.windows.IsWindow(h.Window) && t.alive(h.PID) {
		t.sleep(t.interval)
	}
	return StateExited
}

func (t *Terminator) kill(h discovery.ProcessHandle) TerminateState {
	err := t.procs.Kill(h.PID)
	switch window.Classify(err) {
	case nil:
		if err != nil {
			t.logger.Warn("kill failed", zap.Int("pid", h.PID), zap.Error(err))
			return StateFailed
		}
		return StateKilled
	case window.ErrNotFound, window.ErrRaceLost:
		return StateExited
	default:
		t.logger.Warn("kill refused", zap.Int("pid", h.PID), zap.Error(err))
		return StateFailed
	}
}

// alive treats an unanswerable liveness check as alive
func (t *Terminator) alive(pid int) bool {
	ok, err := t.procs.Exists(pid)
	return err != nil || ok
}
