package process

import (
	"os"

	"github.com/pkg/errors"
	gops "github.com/shirou/gopsutil/v3/process"

	proctable "github.com/launchdeck/launchdeck/pkg/process"
	"github.com/launchdeck/launchdeck/pkg/window"
)

// Table implements proctable.Table on top of gopsutil
type Table struct{}

// NewTable creates a process table reader
func NewTable() *Table {
	return &Table{}
}

// Processes lists every process whose name is readable. Per-process
// failures (access denied, exited mid-scan) are skipped.
func (t *Table) Processes() ([]proctable.Entry, error) {
	procs, err := gops.Processes()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list processes")
	}

	entries := make([]proctable.Entry, 0, len(procs))
	for _, p := range procs {
		name, err := p.Name()
		if err != nil || name == "" {
			continue
		}
		entries = append(entries, proctable.Entry{PID: int(p.Pid), Name: name})
	}

	return entries, nil
}

// Exists reports whether pid is alive
func (t *Table) Exists(pid int) (bool, error) {
	if pid <= 0 {
		return false, nil
	}
	ok, err := gops.PidExists(int32(pid))
	if err != nil {
		return false, errors.Wrapf(err, "failed to check pid %d", pid)
	}
	return ok, nil
}

// Kill terminates pid. A process that is already gone yields
// window.ErrNotFound, a refusal yields window.ErrAccessDenied.
func (t *Table) Kill(pid int) error {
	p, err := gops.NewProcess(int32(pid))
	if err != nil {
		if errors.Is(err, gops.ErrorProcessNotRunning) {
			return window.WithClass(window.ErrNotFound, err)
		}
		return classify(err)
	}

	if err := p.Kill(); err != nil {
		if alive, _ := t.Exists(pid); !alive {
			return window.WithClass(window.ErrNotFound, err)
		}
		return classify(err)
	}
	return nil
}

func classify(err error) error {
	if errors.Is(err, os.ErrPermission) {
		return window.WithClass(window.ErrAccessDenied, err)
	}
	return errors.WithStack(err)
}
