//go:build !windows

package x11

import (
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"

	"github.com/launchdeck/launchdeck/pkg/window"
)

type grab struct {
	keycode xproto.Keycode
	mods    uint16
}

type binding struct {
	host window.Handle
	grab grab
}

// Manager implements window.Manager for X11 through EWMH properties and
// key grabs on the root window
type Manager struct {
	mu       sync.Mutex
	c        *client
	bindings map[int]binding
}

// NewManager connects to the X server named by $DISPLAY
func NewManager() (*Manager, error) {
	c, err := newClient()
	if err != nil {
		return nil, err
	}
	return &Manager{c: c, bindings: make(map[int]binding)}, nil
}

// TopLevelWindows returns the managed windows of pid, topmost first
func (m *Manager) TopLevelWindows(pid int) ([]window.WindowInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []window.WindowInfo
	for _, w := range m.c.clientWindows() {
		if int(m.c.getWindowPID(w)) != pid {
			continue
		}
		out = append(out, window.WindowInfo{
			Handle:  window.Handle(w),
			PID:     pid,
			Title:   m.c.getWindowName(w),
			Visible: !m.c.hasState(w, "_NET_WM_STATE_SKIP_TASKBAR"),
			Owned:   m.c.isTransient(w),
		})
	}
	return out, nil
}

func (m *Manager) IsWindow(h window.Handle) bool {
	if h.IsZero() {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.c.exists(xproto.Window(h))
}

func (m *Manager) IsMinimized(h window.Handle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.c.hasState(xproto.Window(h), "_NET_WM_STATE_HIDDEN")
}

func (m *Manager) Restore(h window.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := xproto.Window(h)
	if !m.c.exists(w) {
		return errors.Wrapf(window.ErrRaceLost, "restore %s", h)
	}
	if err := xproto.MapWindowChecked(m.c.conn, w).Check(); err != nil {
		return classify(errors.Wrapf(err, "failed to map window %s", h))
	}
	return nil
}

func (m *Manager) SetForeground(h window.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := xproto.Window(h)
	if !m.c.exists(w) {
		return errors.Wrapf(window.ErrRaceLost, "set foreground %s", h)
	}
	// source indication 2: request comes from a pager
	if err := m.c.sendRootMessage(w, "_NET_ACTIVE_WINDOW", 2, xproto.TimeCurrentTime); err != nil {
		return classify(errors.Wrapf(err, "failed to activate window %s", h))
	}
	return nil
}

func (m *Manager) Foreground() (window.Handle, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := m.c.activeWindow()
	if w == 0 {
		return 0, 0, errors.Wrap(window.ErrNotFound, "no active window")
	}
	return window.Handle(w), int(m.c.getWindowPID(w)), nil
}

func (m *Manager) PostClose(h window.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := xproto.Window(h)
	if !m.c.exists(w) {
		return errors.Wrapf(window.ErrRaceLost, "close %s", h)
	}
	if err := m.c.sendRootMessage(w, "_NET_CLOSE_WINDOW", xproto.TimeCurrentTime, 2); err != nil {
		return classify(errors.Wrapf(err, "failed to close window %s", h))
	}
	return nil
}

// RegisterHotkey grabs the key on the root window. The host handle is only
// echoed back in delivered messages.
func (m *Manager) RegisterHotkey(host window.Handle, id int, modifiers, key uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.bindings[id]; taken {
		return errors.Wrapf(window.ErrBusy, "hotkey id %d already registered", id)
	}

	keycode, ok := m.c.keycodeFor(vkToKeysym(key))
	if !ok {
		return errors.Wrapf(window.ErrNotFound, "no keycode for key 0x%x", key)
	}

	g := grab{keycode: keycode, mods: translateModifiers(modifiers)}
	for i, lock := range lockVariants {
		err := xproto.GrabKeyChecked(m.c.conn, true, m.c.root, g.mods|lock, keycode,
			xproto.GrabModeAsync, xproto.GrabModeAsync).Check()
		if err != nil {
			for _, done := range lockVariants[:i] {
				xproto.UngrabKeyChecked(m.c.conn, keycode, m.c.root, g.mods|done).Check()
			}
			return classify(errors.Wrapf(err, "failed to grab key 0x%x", key))
		}
	}

	m.bindings[id] = binding{host: host, grab: g}
	return nil
}

func (m *Manager) UnregisterHotkey(_ window.Handle, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bindings[id]
	if !ok {
		return errors.Wrapf(window.ErrNotFound, "hotkey id %d not registered", id)
	}
	delete(m.bindings, id)

	var firstErr error
	for _, lock := range lockVariants {
		err := xproto.UngrabKeyChecked(m.c.conn, b.grab.keycode, m.c.root, b.grab.mods|lock).Check()
		if err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "failed to ungrab hotkey %d", id)
		}
	}
	return firstErr
}

// PollMessages turns pending key presses on grabbed keys into MsgHotkey
// messages. Other X events are dropped.
func (m *Manager) PollMessages(dispatch func(window.Message) bool) error {
	for {
		m.mu.Lock()
		ev, xerr := m.c.conn.PollForEvent()
		m.mu.Unlock()

		if ev == nil && xerr == nil {
			return nil
		}
		if xerr != nil {
			continue
		}

		kp, ok := ev.(xproto.KeyPressEvent)
		if !ok {
			continue
		}
		if msg, ok := m.hotkeyMessage(kp); ok {
			dispatch(msg)
		}
	}
}

func (m *Manager) hotkeyMessage(kp xproto.KeyPressEvent) (window.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pressed := grab{keycode: kp.Detail, mods: kp.State & significantMods}
	for id, b := range m.bindings {
		if b.grab == pressed {
			return window.Message{Window: b.host, Type: window.MsgHotkey, WParam: uintptr(id)}, true
		}
	}
	return window.Message{}, false
}

// OpenDetached runs a shell script in its own session so it outlives us
// OpenDetached runs a shell script in its own session. Batch files have no
// interpreter here.
func (m *Manager) OpenDetached(path string) error {
	if ext := filepath.Ext(path); ext != ".sh" {
		return errors.Wrapf(window.ErrUnsupported, "cannot open %q scripts", ext)
	}
	cmd := exec.Command("/bin/sh", path)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return window.WithClass(window.ErrNotFound, err)
		}
		return errors.Wrapf(err, "failed to start %s", path)
	}
	return errors.WithStack(cmd.Process.Release())
}

func (m *Manager) IsAvailable() bool {
	return m.c != nil
}

func (m *Manager) Backend() string {
	return "x11"
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.c != nil {
		m.c.close()
		m.c = nil
	}
	return nil
}

func classify(err error) error {
	switch errors.Cause(err).(type) {
	case xproto.AccessError:
		return window.WithClass(window.ErrBusy, err)
	case xproto.WindowError:
		return window.WithClass(window.ErrRaceLost, err)
	}
	return err
}
