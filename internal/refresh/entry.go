package refresh

import (
	"github.com/launchdeck/launchdeck/internal/discovery"
	"github.com/launchdeck/launchdeck/internal/launcher"
)

// Entry is one row of a refreshed view. It is one of LiveProcess,
// LaunchPlaceholder or Other; use Match to handle each.
type Entry interface {
	entry()
	Key() string
}

// LiveProcess is a running instance found by discovery
type LiveProcess struct {
	Group  string
	Handle discovery.ProcessHandle
	Label  string
}

// LaunchPlaceholder stands for a target with no running instance
type LaunchPlaceholder struct {
	Group  string
	Target launcher.LaunchTarget
	Label  string
}

// Other is a row that is neither, e.g. a recently launched target
type Other struct {
	Name  string
	Label string
}

func (LiveProcess) entry()       {}
func (LaunchPlaceholder) entry() {}
func (Other) entry()             {}

func (e LiveProcess) Key() string       { return "pid:" + e.Handle.Key() }
func (e LaunchPlaceholder) Key() string { return "target:" + e.Target.Name }
func (e Other) Key() string             { return "other:" + e.Name }

// Match calls the function for e's variant
func Match[T any](e Entry, live func(LiveProcess) T, placeholder func(LaunchPlaceholder) T, other func(Other) T) T {
	switch v := e.(type) {
	case LiveProcess:
		return live(v)
	case LaunchPlaceholder:
		return placeholder(v)
	case Other:
		return other(v)
	}
	panic("refresh: unknown entry type")
}
