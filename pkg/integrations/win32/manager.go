//go:build windows

package win32

import (
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"

	"github.com/launchdeck/launchdeck/pkg/window"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procGetWindowTextW       = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW = user32.NewProc("GetWindowTextLengthW")
	procGetWindow            = user32.NewProc("GetWindow")
	procIsIconic             = user32.NewProc("IsIconic")
	procShowWindow           = user32.NewProc("ShowWindow")
	procSetForegroundWindow  = user32.NewProc("SetForegroundWindow")
	procPostMessageW         = user32.NewProc("PostMessageW")
	procRegisterHotKey       = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey     = user32.NewProc("UnregisterHotKey")
	procPeekMessageW         = user32.NewProc("PeekMessageW")
	procTranslateMessage     = user32.NewProc("TranslateMessage")
	procDispatchMessageW     = user32.NewProc("DispatchMessageW")
)

const (
	gwOwner   = 4
	swHide    = 0
	swRestore = 9
	wmClose   = 0x0010
	pmRemove  = 0x0001

	errorInvalidWindowHandle     = windows.Errno(1400)
	errorWindowOfOtherThread     = windows.Errno(1408)
	errorHotkeyAlreadyRegistered = windows.Errno(1409)
	errorHotkeyNotRegistered     = windows.Errno(1419)
)

// nativeMsg mirrors the Win32 MSG structure
type nativeMsg struct {
	HWnd     uintptr
	Message  uint32
	WParam   uintptr
	LParam   uintptr
	Time     uint32
	PtX      int32
	PtY      int32
	LPrivate uint32
}

// EnumWindows hands every top-level window to one shared callback; the
// callback reads its filter and output from enumState.
var (
	enumMu    sync.Mutex
	enumState struct {
		pid uint32
		out []window.WindowInfo
	}
	enumCallback = windows.NewCallback(collectWindow)
)

func collectWindow(hwnd windows.HWND, _ uintptr) uintptr {
	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil || pid != enumState.pid {
		return 1
	}

	owner, _, _ := procGetWindow.Call(uintptr(hwnd), gwOwner)
	enumState.out = append(enumState.out, window.WindowInfo{
		Handle:  window.Handle(hwnd),
		PID:     int(pid),
		Title:   windowText(hwnd),
		Visible: windows.IsWindowVisible(hwnd),
		Owned:   owner != 0,
	})
	return 1
}

func windowText(hwnd windows.HWND) string {
	n, _, _ := procGetWindowTextLengthW.Call(uintptr(hwnd))
	if n == 0 {
		return ""
	}
	buf := make([]uint16, n+1)
	procGetWindowTextW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf)
}

// Manager implements window.Manager with user32 and shell32
type Manager struct{}

// NewManager creates a Win32 window backend
func NewManager() *Manager {
	return &Manager{}
}

// TopLevelWindows enumerates the top-level windows of pid in z-order
func (m *Manager) TopLevelWindows(pid int) ([]window.WindowInfo, error) {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumState.pid = uint32(pid)
	enumState.out = nil
	if err := windows.EnumWindows(enumCallback, nil); err != nil {
		return nil, classify(errors.Wrapf(err, "failed to enumerate windows of pid %d", pid))
	}

	out := enumState.out
	enumState.out = nil
	return out, nil
}

func (m *Manager) IsWindow(h window.Handle) bool {
	return !h.IsZero() && windows.IsWindow(windows.HWND(h))
}

func (m *Manager) IsMinimized(h window.Handle) bool {
	r, _, _ := procIsIconic.Call(uintptr(h))
	return r != 0
}

func (m *Manager) Restore(h window.Handle) error {
	if !m.IsWindow(h) {
		return errors.Wrapf(window.ErrRaceLost, "restore %s", h)
	}
	procShowWindow.Call(uintptr(h), swRestore)
	return nil
}

func (m *Manager) SetForeground(h window.Handle) error {
	r, _, err := procSetForegroundWindow.Call(uintptr(h))
	if r == 0 {
		if !m.IsWindow(h) {
			return errors.Wrapf(window.ErrRaceLost, "set foreground %s", h)
		}
		return classify(errors.Wrapf(err, "failed to set foreground window %s", h))
	}
	return nil
}

func (m *Manager) Foreground() (window.Handle, int, error) {
	hwnd := windows.GetForegroundWindow()
	if hwnd == 0 {
		return 0, 0, errors.Wrap(window.ErrNotFound, "no foreground window")
	}
	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil {
		return 0, 0, classify(errors.Wrap(err, "failed to resolve foreground window owner"))
	}
	return window.Handle(hwnd), int(pid), nil
}

func (m *Manager) PostClose(h window.Handle) error {
	r, _, err := procPostMessageW.Call(uintptr(h), wmClose, 0, 0)
	if r == 0 {
		return classify(errors.Wrapf(err, "failed to post close to %s", h))
	}
	return nil
}

// RegisterHotkey binds the combination to the calling thread's message
// queue. Windows refuses a window created by another thread, and the host
// is usually the console window, so host only names the window the
// binding raises. The caller must keep pumping on this same thread.
func (m *Manager) RegisterHotkey(host window.Handle, id int, modifiers, key uint32) error {
	r, _, err := procRegisterHotKey.Call(0, uintptr(id), uintptr(modifiers), uintptr(key))
	if r == 0 {
		return classify(errors.Wrapf(err, "failed to register hotkey %d for %s", id, host))
	}
	return nil
}

func (m *Manager) UnregisterHotkey(_ window.Handle, id int) error {
	r, _, err := procUnregisterHotKey.Call(0, uintptr(id))
	if r == 0 {
		return classify(errors.Wrapf(err, "failed to unregister hotkey %d", id))
	}
	return nil
}

// PollMessages drains the calling thread's message queue. It must run on
// the thread that registered the hotkeys.
func (m *Manager) PollMessages(dispatch func(window.Message) bool) error {
	var msg nativeMsg
	for {
		r, _, _ := procPeekMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0, pmRemove)
		if r == 0 {
			return nil
		}

		handled := dispatch(window.Message{
			Window: window.Handle(msg.HWnd),
			Type:   msg.Message,
			WParam: msg.WParam,
			LParam: msg.LParam,
		})
		if !handled {
			procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
			procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
		}
	}
}

// OpenDetached runs path through the shell "open" verb with no console
func (m *Manager) OpenDetached(path string) error {
	verb, err := windows.UTF16PtrFromString("open")
	if err != nil {
		return errors.WithStack(err)
	}
	file, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := windows.ShellExecute(0, verb, file, nil, nil, swHide); err != nil {
		return classify(errors.Wrapf(err, "failed to open %s", path))
	}
	return nil
}

func (m *Manager) IsAvailable() bool {
	return user32.Load() == nil
}

func (m *Manager) Backend() string {
	return "win32"
}

func (m *Manager) Close() error {
	return nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, windows.ERROR_ACCESS_DENIED):
		return window.WithClass(window.ErrAccessDenied, err)
	case errors.Is(err, errorInvalidWindowHandle):
		return window.WithClass(window.ErrRaceLost, err)
	case errors.Is(err, errorWindowOfOtherThread):
		return window.WithClass(window.ErrAccessDenied, err)
	case errors.Is(err, errorHotkeyAlreadyRegistered):
		return window.WithClass(window.ErrBusy, err)
	case errors.Is(err, errorHotkeyNotRegistered), errors.Is(err, windows.ERROR_FILE_NOT_FOUND):
		return window.WithClass(window.ErrNotFound, err)
	}
	return err
}
