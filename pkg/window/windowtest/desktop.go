// Package windowtest provides an in-memory desktop that implements both
// window.Manager and process.Table for tests.
package windowtest

import (
	"os"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/launchdeck/launchdeck/pkg/process"
	"github.com/launchdeck/launchdeck/pkg/window"
)

var (
	_ window.Manager = (*Desktop)(nil)
	_ process.Table  = (*Desktop)(nil)
)

type fakeWindow struct {
	info      window.WindowInfo
	minimized bool

	// closing windows vanish after closeAfter further IsWindow checks;
	// a negative closeAfter ignores close requests
	closing    bool
	closeAfter int
}

// Hotkey is a registration held by the desktop
type Hotkey struct {
	Host      window.Handle
	Modifiers uint32
	Key       uint32
}

// Opened is a file handed to OpenDetached together with its content at
// that moment
type Opened struct {
	Path    string
	Content []byte
}

// Desktop is a fake process table plus window system
type Desktop struct {
	mu sync.Mutex

	nextPID    int
	nextHandle window.Handle

	procs   map[int]string
	windows map[window.Handle]*fakeWindow
	order   []window.Handle

	foreground window.Handle
	hotkeys    map[int]Hotkey
	claimed    map[[2]uint32]bool
	queue      []window.Message
	opened     []Opened

	denyKill      map[int]bool
	kills         map[int]int
	closeRequests map[window.Handle]int
	isWindowCalls int

	// ExitOnClose makes a process exit once its last window closed
	ExitOnClose bool

	// OnIsWindow runs before every IsWindow check, outside the lock
	OnIsWindow func(h window.Handle)

	// Injected failures
	ListErr          error
	OpenErr          error
	SetForegroundErr error
	RestoreErr       error
	PostCloseErr     error

	closed bool
}

// NewDesktop returns an empty desktop
func NewDesktop() *Desktop {
	return &Desktop{
		nextPID:       1000,
		nextHandle:    0x10000,
		procs:         make(map[int]string),
		windows:       make(map[window.Handle]*fakeWindow),
		hotkeys:       make(map[int]Hotkey),
		claimed:       make(map[[2]uint32]bool),
		denyKill:      make(map[int]bool),
		kills:         make(map[int]int),
		closeRequests: make(map[window.Handle]int),
	}
}

// AddProcess starts a windowless process and returns its pid
func (d *Desktop) AddProcess(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextPID++
	d.procs[d.nextPID] = name
	return d.nextPID
}

// AddWindow gives pid a new top-level window placed on top of the z-order
func (d *Desktop) AddWindow(pid int, info window.WindowInfo) window.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextHandle += 0x10
	info.Handle = d.nextHandle
	info.PID = pid
	d.windows[info.Handle] = &fakeWindow{info: info}
	d.order = append([]window.Handle{info.Handle}, d.order...)
	return info.Handle
}

// Start adds a process with one visible, unowned window titled title
func (d *Desktop) Start(name, title string) (int, window.Handle) {
	pid := d.AddProcess(name)
	return pid, d.AddWindow(pid, window.WindowInfo{Title: title, Visible: true})
}

// Exit ends pid and destroys its windows
func (d *Desktop) Exit(pid int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.exitLocked(pid)
}

func (d *Desktop) exitLocked(pid int) {
	delete(d.procs, pid)
	for h, w := range d.windows {
		if w.info.PID == pid {
			d.destroyLocked(h)
		}
	}
}

// Destroy removes a window without ending its process
func (d *Desktop) Destroy(h window.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyLocked(h)
}

func (d *Desktop) destroyLocked(h window.Handle) {
	w, ok := d.windows[h]
	if !ok {
		return
	}
	delete(d.windows, h)
	for i, o := range d.order {
		if o == h {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	if d.foreground == h {
		d.foreground = 0
	}

	if d.ExitOnClose && w.closing {
		for _, other := range d.windows {
			if other.info.PID == w.info.PID {
				return
			}
		}
		delete(d.procs, w.info.PID)
	}
}

// Minimize iconifies h
func (d *Desktop) Minimize(h window.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if w, ok := d.windows[h]; ok {
		w.minimized = true
	}
}

// CloseAfter makes h vanish only after n IsWindow checks following a close
// request. A negative n makes h ignore close requests altogether.
func (d *Desktop) CloseAfter(h window.Handle, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if w, ok := d.windows[h]; ok {
		w.closeAfter = n
	}
}

// DenyKill makes Kill(pid) fail with window.ErrAccessDenied
func (d *Desktop) DenyKill(pid int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.denyKill[pid] = true
}

// Claim marks a hotkey combination as held by another application
func (d *Desktop) Claim(modifiers, key uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.claimed[[2]uint32{modifiers &^ window.ModNoRepeat, key}] = true
}

// Inject queues a native message for the next PollMessages
func (d *Desktop) Inject(msg window.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = append(d.queue, msg)
}

// Press queues the MsgHotkey message for registration id
func (d *Desktop) Press(id int) {
	d.mu.Lock()
	hk, ok := d.hotkeys[id]
	d.mu.Unlock()
	if ok {
		d.Inject(window.Message{Window: hk.Host, Type: window.MsgHotkey, WParam: uintptr(id)})
	}
}

// Foreground window, minimized state and counters

func (d *Desktop) ForegroundWindow() window.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.foreground
}

func (d *Desktop) Minimized(h window.Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.windows[h]
	return ok && w.minimized
}

func (d *Desktop) Kills(pid int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.kills[pid]
}

func (d *Desktop) CloseRequests(h window.Handle) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeRequests[h]
}

func (d *Desktop) IsWindowCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isWindowCalls
}

func (d *Desktop) Hotkeys() map[int]Hotkey {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[int]Hotkey, len(d.hotkeys))
	for id, hk := range d.hotkeys {
		out[id] = hk
	}
	return out
}

func (d *Desktop) Opened() []Opened {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Opened(nil), d.opened...)
}

// process.Table

func (d *Desktop) Processes() ([]process.Entry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ListErr != nil {
		return nil, d.ListErr
	}

	out := make([]process.Entry, 0, len(d.procs))
	for pid, name := range d.procs {
		out = append(out, process.Entry{PID: pid, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out, nil
}

func (d *Desktop) Exists(pid int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.procs[pid]
	return ok, nil
}

func (d *Desktop) Kill(pid int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.kills[pid]++
	if _, ok := d.procs[pid]; !ok {
		return errors.Wrapf(window.ErrNotFound, "pid %d", pid)
	}
	if d.denyKill[pid] {
		return errors.Wrapf(window.ErrAccessDenied, "pid %d", pid)
	}
	d.exitLocked(pid)
	return nil
}

// window.Manager

func (d *Desktop) TopLevelWindows(pid int) ([]window.WindowInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.procs[pid]; !ok {
		return nil, errors.Wrapf(window.ErrNotFound, "pid %d", pid)
	}

	var out []window.WindowInfo
	for _, h := range d.order {
		if w := d.windows[h]; w.info.PID == pid {
			out = append(out, w.info)
		}
	}
	return out, nil
}

func (d *Desktop) IsWindow(h window.Handle) bool {
	if d.OnIsWindow != nil {
		d.OnIsWindow(h)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.isWindowCalls++
	w, ok := d.windows[h]
	if !ok {
		return false
	}
	if w.closing && w.closeAfter >= 0 {
		if w.closeAfter == 0 {
			d.destroyLocked(h)
			return false
		}
		w.closeAfter--
	}
	return true
}

func (d *Desktop) IsMinimized(h window.Handle) bool {
	return d.Minimized(h)
}

func (d *Desktop) Restore(h window.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.RestoreErr != nil {
		return d.RestoreErr
	}
	w, ok := d.windows[h]
	if !ok {
		return errors.Wrapf(window.ErrRaceLost, "restore %s", h)
	}
	w.minimized = false
	return nil
}

func (d *Desktop) SetForeground(h window.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.SetForegroundErr != nil {
		return d.SetForegroundErr
	}
	if _, ok := d.windows[h]; !ok {
		return errors.Wrapf(window.ErrRaceLost, "set foreground %s", h)
	}
	d.foreground = h
	return nil
}

func (d *Desktop) Foreground() (window.Handle, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	w, ok := d.windows[d.foreground]
	if !ok {
		return 0, 0, errors.Wrap(window.ErrNotFound, "no foreground window")
	}
	return w.info.Handle, w.info.PID, nil
}

func (d *Desktop) PostClose(h window.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closeRequests[h]++
	if d.PostCloseErr != nil {
		return d.PostCloseErr
	}
	w, ok := d.windows[h]
	if !ok {
		return errors.Wrapf(window.ErrRaceLost, "close %s", h)
	}
	w.closing = true
	return nil
}

func (d *Desktop) RegisterHotkey(host window.Handle, id int, modifiers, key uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, taken := d.hotkeys[id]; taken {
		return errors.Wrapf(window.ErrBusy, "hotkey id %d", id)
	}
	combo := [2]uint32{modifiers &^ window.ModNoRepeat, key}
	if d.claimed[combo] {
		return errors.Wrapf(window.ErrBusy, "hotkey 0x%x+0x%x", modifiers, key)
	}
	d.claimed[combo] = true
	d.hotkeys[id] = Hotkey{Host: host, Modifiers: modifiers, Key: key}
	return nil
}

func (d *Desktop) UnregisterHotkey(_ window.Handle, id int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	hk, ok := d.hotkeys[id]
	if !ok {
		return errors.Wrapf(window.ErrNotFound, "hotkey id %d", id)
	}
	delete(d.hotkeys, id)
	delete(d.claimed, [2]uint32{hk.Modifiers &^ window.ModNoRepeat, hk.Key})
	return nil
}

func (d *Desktop) PollMessages(dispatch func(window.Message) bool) error {
	d.mu.Lock()
	queue := d.queue
	d.queue = nil
	d.mu.Unlock()

	for _, msg := range queue {
		dispatch(msg)
	}
	return nil
}

func (d *Desktop) OpenDetached(path string) error {
	if d.OpenErr != nil {
		return d.OpenErr
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return window.WithClass(window.ErrNotFound, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = append(d.opened, Opened{Path: path, Content: content})
	return nil
}

func (d *Desktop) IsAvailable() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.closed
}

func (d *Desktop) Backend() string {
	return "fake"
}

func (d *Desktop) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}
