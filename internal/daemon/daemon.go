// Package daemon keeps a single launchdeck run per user through a PID
// file. A second instance would fight the first over the global hotkey.
package daemon

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/process"
)

// ErrNotRunning is returned by Stop when no live instance owns the PID file
var ErrNotRunning = errors.New("launchdeck is not running")

type Daemon struct {
	pidFile string
	poll    time.Duration
	exists  func(pid int32) (bool, error)
	signal  func(pid int32) error
}

func New(pidFile string) *Daemon {
	return &Daemon{
		pidFile: pidFile,
		poll:    100 * time.Millisecond,
		exists:  process.PidExists,
		signal: func(pid int32) error {
			p, err := process.NewProcess(pid)
			if err != nil {
				return err
			}
			return p.Terminate()
		},
	}
}

func (d *Daemon) WritePID() error {
	pid := os.Getpid()
	if err := os.WriteFile(d.pidFile, []byte(strconv.Itoa(pid)), 0644); err != nil {
		return errors.Wrap(err, "failed to write PID file")
	}
	return nil
}

// ReadPID returns 0 when there is no PID file
func (d *Daemon) ReadPID() (int, error) {
	data, err := os.ReadFile(d.pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "failed to read PID file")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, errors.Wrap(err, "invalid PID in file")
	}

	return pid, nil
}

func (d *Daemon) RemovePID() error {
	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove PID file")
	}
	return nil
}

// IsRunning reports whether the PID file names a live process. A stale
// file is removed.
func (d *Daemon) IsRunning() (bool, int, error) {
	pid, err := d.ReadPID()
	if err != nil {
		return false, 0, err
	}

	if pid == 0 {
		return false, 0, nil
	}

	alive, err := d.exists(int32(pid))
	if err != nil || !alive {
		_ = d.RemovePID()
		return false, 0, nil
	}

	return true, pid, nil
}

// Stop ends the running instance and removes its PID file. When ask is
// set it first requests a clean exit and waits for the process to go away
// until ctx ends. Termination is the fallback; on Windows it is a hard
// kill that skips the instance's own cleanup.
func (d *Daemon) Stop(ctx context.Context, ask func(context.Context) error) (graceful bool, err error) {
	running, pid, err := d.IsRunning()
	if err != nil {
		return false, errors.Wrap(err, "error checking instance status")
	}

	if !running {
		return false, ErrNotRunning
	}

	if ask != nil && ask(ctx) == nil && d.waitExit(ctx, int32(pid)) {
		return true, d.RemovePID()
	}

	if err := d.signal(int32(pid)); err != nil {
		return false, errors.Wrapf(err, "failed to stop PID %d", pid)
	}

	return false, d.RemovePID()
}

func (d *Daemon) waitExit(ctx context.Context, pid int32) bool {
	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()

	for {
		if alive, err := d.exists(pid); err == nil && !alive {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
