package window

import "fmt"

// Handle is an opaque native window handle. It is never dereferenced,
// only passed back into Manager calls. Validity is checked with
// Manager.IsWindow.
type Handle uintptr

// IsZero reports whether the handle names no window at all
func (h Handle) IsZero() bool {
	return h == 0
}

func (h Handle) String() string {
	return fmt.Sprintf("0x%x", uintptr(h))
}

// Hotkey modifier masks. Every backend accepts these values.
const (
	ModAlt      uint32 = 0x0001
	ModControl  uint32 = 0x0002
	ModShift    uint32 = 0x0004
	ModWin      uint32 = 0x0008
	ModNoRepeat uint32 = 0x4000
)

// MsgHotkey is the message type delivered when a registered hotkey fires.
// WParam carries the registration id.
const MsgHotkey uint32 = 0x0312

// Message is a raw message taken from the native message queue
type Message struct {
	Window Handle
	Type   uint32
	WParam uintptr
	LParam uintptr
}

// WindowInfo describes one top-level window owned by a process
type WindowInfo struct {
	Handle  Handle
	PID     int
	Title   string
	Visible bool
	Owned   bool // window has an owner (dialogs, tool windows)
}

// Manager is the interface that every window backend must satisfy
type Manager interface {
	// TopLevelWindows returns the top-level windows of pid in z-order
	TopLevelWindows(pid int) ([]WindowInfo, error)

	// IsWindow reports whether h still names an existing window
	IsWindow(h Handle) bool

	// IsMinimized reports whether h is minimized (iconic)
	IsMinimized(h Handle) bool

	// Restore un-minimizes h
	Restore(h Handle) error

	// SetForeground makes h the focused foreground window
	SetForeground(h Handle) error

	// Foreground returns the current foreground window
	Foreground() (Handle, int, error)

	// PostClose asks h to close through its normal close protocol
	PostClose(h Handle) error

	// RegisterHotkey binds a system-wide key combination for host.
	// MsgHotkey is delivered to PollMessages on the registering thread,
	// which need not own host.
	RegisterHotkey(host Handle, id int, modifiers, key uint32) error

	// UnregisterHotkey releases a binding made by RegisterHotkey
	UnregisterHotkey(host Handle, id int) error

	// PollMessages drains pending native messages without blocking,
	// handing each to dispatch. Messages dispatch does not handle are
	// passed on to the default handling of the backend.
	PollMessages(dispatch func(Message) bool) error

	// OpenDetached executes a file through the OS default handler,
	// detached from the calling process
	OpenDetached(path string) error

	// IsAvailable checks if this backend can run on the current system
	IsAvailable() bool

	// Backend returns the backend name ("win32" or "x11")
	Backend() string

	// Close cleans up any resources used by the backend
	Close() error
}
