//go:build windows

package win32

import (
	"runtime"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/windows"

	"github.com/launchdeck/launchdeck/pkg/window"
)

var (
	procGetDesktopWindow   = user32.NewProc("GetDesktopWindow")
	procPostThreadMessageW = user32.NewProc("PostThreadMessageW")
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"access denied", windows.ERROR_ACCESS_DENIED, window.ErrAccessDenied},
		{"invalid handle", errorInvalidWindowHandle, window.ErrRaceLost},
		{"foreign window", errorWindowOfOtherThread, window.ErrAccessDenied},
		{"hotkey taken", errorHotkeyAlreadyRegistered, window.ErrBusy},
		{"hotkey missing", errorHotkeyNotRegistered, window.ErrNotFound},
		{"other", windows.ERROR_NOT_ENOUGH_MEMORY, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(errors.Wrap(tt.err, "call"))
			assert.Equal(t, tt.want, window.Classify(err))
		})
	}
}

// The host window belongs to another process, like the console window the
// resident instance runs in. Registration and delivery still work on the
// calling thread.
func TestHotkeyWithForeignHost(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	m := NewManager()
	host, _, _ := procGetDesktopWindow.Call()
	require.NotZero(t, host)

	const id = 0x7a11
	mods := window.ModControl | window.ModAlt | window.ModShift | window.ModNoRepeat
	err := m.RegisterHotkey(window.Handle(host), id, mods, 0x87) // F24
	if window.Classify(err) == window.ErrBusy {
		t.Skip("Ctrl+Alt+Shift+F24 is held by another program")
	}
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, m.UnregisterHotkey(window.Handle(host), id))
	}()

	// make sure the thread has a queue before posting to it
	require.NoError(t, m.PollMessages(func(window.Message) bool { return true }))

	r, _, postErr := procPostThreadMessageW.Call(uintptr(windows.GetCurrentThreadId()),
		uintptr(window.MsgHotkey), id, 0)
	require.NotZero(t, r, postErr)

	var got []window.Message
	require.NoError(t, m.PollMessages(func(msg window.Message) bool {
		got = append(got, msg)
		return true
	}))
	require.Len(t, got, 1)
	assert.Equal(t, window.MsgHotkey, got[0].Type)
	assert.Equal(t, uintptr(id), got[0].WParam)
}
