// Package refresh rebuilds the process view after each discovery pass and
// puts the cursor back where the user left it whenever that row survived.
package refresh

import (
	"strings"

	"go.uber.org/zap"

	"github.com/launchdeck/launchdeck/internal/discovery"
	"github.com/launchdeck/launchdeck/internal/launcher"
	"github.com/launchdeck/launchdeck/internal/logging"
)

// Discoverer finds running instances by executable name
type Discoverer interface {
	Discover(names []string) []discovery.ProcessHandle
}

// RecentsSource lists recently launched target names, newest first
type RecentsSource interface {
	RecentNames(limit int) ([]string, error)
}

// Group is one section of the view
type Group struct {
	Name         string
	ProcessNames []string
	Targets      []launcher.LaunchTarget // rendered as placeholders while not running
	Label        LabelFunc
}

func (g Group) names() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(n string) {
		if n != "" && !seen[strings.ToLower(n)] {
			seen[strings.ToLower(n)] = true
			out = append(out, n)
		}
	}
	for _, n := range g.ProcessNames {
		add(n)
	}
	for _, t := range g.Targets {
		add(t.ProcessName)
	}
	return out
}

// GroupView is the rebuilt content of a group
type GroupView struct {
	Name    string
	Entries []Entry
}

// Cursor points at the selected row; a zero Cursor selects nothing
type Cursor struct {
	Group string // empty for the recent list
	Entry Entry
}

// Valid reports whether the cursor selects a row
func (c Cursor) Valid() bool {
	return c.Entry != nil
}

// View is the outcome of a refresh
type View struct {
	Groups []GroupView
	Recent []Entry
	Cursor Cursor
}

// Live returns every live process in the view
func (v View) Live() []LiveProcess {
	var out []LiveProcess
	for _, g := range v.Groups {
		for _, e := range g.Entries {
			if lp, ok := e.(LiveProcess); ok {
				out = append(out, lp)
			}
		}
	}
	return out
}

// FindPID returns the live process with pid
func (v View) FindPID(pid int) (LiveProcess, bool) {
	for _, lp := range v.Live() {
		if lp.Handle.PID == pid {
			return lp, true
		}
	}
	return LiveProcess{}, false
}

// RefreshState is what the user had selected. Values are never mutated
// in place; every change returns a copy.
type RefreshState struct {
	Selected   map[string]discovery.ProcessHandle
	Focus      string
	LastRecent string
}

// Select remembers h as the selection of group and focuses the group
func (s RefreshState) Select(group string, h discovery.ProcessHandle) RefreshState {
	out := s.clone()
	out.Selected[group] = h
	out.Focus = group
	return out
}

// SelectRecent remembers name as the selected recent entry
func (s RefreshState) SelectRecent(name string) RefreshState {
	out := s.clone()
	out.LastRecent = name
	out.Focus = ""
	return out
}

func (s RefreshState) clone() RefreshState {
	out := RefreshState{
		Selected:   make(map[string]discovery.ProcessHandle, len(s.Selected)),
		Focus:      s.Focus,
		LastRecent: s.LastRecent,
	}
	for k, v := range s.Selected {
		out.Selected[k] = v
	}
	return out
}

// Coordinator runs discovery for every group and rebuilds the view
type Coordinator struct {
	discovery   Discoverer
	groups      []Group
	recents     RecentsSource
	recentLimit int
	logger      *zap.Logger
}

func NewCoordinator(d Discoverer, groups []Group, recents RecentsSource, recentLimit int, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		discovery:   d,
		groups:      groups,
		recents:     recents,
		recentLimit: recentLimit,
		logger:      logging.OrNop(logger).Named("refresh"),
	}
}

// Groups returns the configured groups, primary first
func (c *Coordinator) Groups() []Group {
	return c.groups
}

// Refresh rebuilds every group from scratch and restores the cursor. The
// returned state forgets remembered handles whose process is gone.
func (c *Coordinator) Refresh(state RefreshState) (View, RefreshState) {
	next := RefreshState{
		Selected: make(map[string]discovery.ProcessHandle),
		Focus:    state.Focus,
	}

	var view View
	for _, g := range c.groups {
		gv := c.rebuild(g)
		view.Groups = append(view.Groups, gv)

		if remembered, ok := state.Selected[g.Name]; ok {
			if live, found := findLive(gv, remembered); found {
				next.Selected[g.Name] = live.Handle
			}
		}
	}

	view.Recent = c.recent()
	for _, e := range view.Recent {
		if o := e.(Other); o.Name == state.LastRecent {
			next.LastRecent = o.Name
		}
	}

	view.Cursor = c.cursor(view, next)

	c.logger.Debug("refreshed",
		zap.Int("live", len(view.Live())),
		zap.Int("recent", len(view.Recent)),
		zap.String("cursor_group", view.Cursor.Group))
	return view, next
}

func (c *Coordinator) rebuild(g Group) GroupView {
	label := g.Label
	if label == nil {
		label = PlatformLabel
	}

	gv := GroupView{Name: g.Name}
	running := make(map[string]bool)
	for _, h := range c.discovery.Discover(g.names()) {
		running[strings.ToLower(h.Executable)] = true
		gv.Entries = append(gv.Entries, LiveProcess{Group: g.Name, Handle: h, Label: label(h)})
	}

	for _, t := range g.Targets {
		if running[strings.ToLower(t.ProcessName)] {
			continue
		}
		gv.Entries = append(gv.Entries, LaunchPlaceholder{Group: g.Name, Target: t, Label: PlaceholderLabel(t)})
	}
	return gv
}

func (c *Coordinator) recent() []Entry {
	if c.recents == nil || c.recentLimit <= 0 {
		return nil
	}

	names, err := c.recents.RecentNames(c.recentLimit)
	if err != nil {
		c.logger.Warn("recent list unavailable", zap.Error(err))
		return nil
	}

	out := make([]Entry, 0, len(names))
	for _, name := range names {
		out = append(out, Other{Name: name, Label: join(c.iconFor(name), name)})
	}
	return out
}

func (c *Coordinator) iconFor(name string) string {
	for _, g := range c.groups {
		for _, t := range g.Targets {
			if t.Name == name {
				return t.Icon
			}
		}
	}
	return ""
}

// cursor applies the restore priority: the focused group's remembered
// handle, then per group its remembered handle or first live entry, then
// the recent list, then the first placeholder
func (c *Coordinator) cursor(view View, state RefreshState) Cursor {
	if h, ok := state.Selected[state.Focus]; ok {
		if gv, found := groupView(view, state.Focus); found {
			if live, ok := findLive(gv, h); ok {
				return Cursor{Group: gv.Name, Entry: live}
			}
		}
	}

	for _, gv := range view.Groups {
		if h, ok := state.Selected[gv.Name]; ok {
			if live, found := findLive(gv, h); found {
				return Cursor{Group: gv.Name, Entry: live}
			}
		}
		for _, e := range gv.Entries {
			if live, ok := e.(LiveProcess); ok {
				return Cursor{Group: gv.Name, Entry: live}
			}
		}
	}

	if len(view.Recent) > 0 {
		for _, e := range view.Recent {
			if e.(Other).Name == state.LastRecent {
				return Cursor{Entry: e}
			}
		}
		return Cursor{Entry: view.Recent[0]}
	}

	for _, gv := range view.Groups {
		for _, e := range gv.Entries {
			if p, ok := e.(LaunchPlaceholder); ok {
				return Cursor{Group: gv.Name, Entry: p}
			}
		}
	}
	return Cursor{}
}

func groupView(view View, name string) (GroupView, bool) {
	for _, gv := range view.Groups {
		if gv.Name == name {
			return gv, true
		}
	}
	return GroupView{}, false
}

func findLive(gv GroupView, h discovery.ProcessHandle) (LiveProcess, bool) {
	for _, e := range gv.Entries {
		if live, ok := e.(LiveProcess); ok && live.Handle.Equal(h) {
			return live, true
		}
	}
	return LiveProcess{}, false
}
