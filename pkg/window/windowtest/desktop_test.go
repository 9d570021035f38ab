package windowtest

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchdeck/launchdeck/pkg/window"
)

func TestDesktopWindowsTopmostFirst(t *testing.T) {
	d := NewDesktop()
	pid, first := d.Start("1cv8.exe", "first")
	second := d.AddWindow(pid, window.WindowInfo{Title: "second", Visible: true})

	windows, err := d.TopLevelWindows(pid)
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.Equal(t, second, windows[0].Handle)
	assert.Equal(t, first, windows[1].Handle)
	assert.Equal(t, pid, windows[0].PID)
}

func TestDesktopCloseAfter(t *testing.T) {
	d := NewDesktop()
	d.ExitOnClose = true
	pid, h := d.Start("1cv8.exe", "base")
	d.CloseAfter(h, 2)

	require.NoError(t, d.PostClose(h))
	assert.True(t, d.IsWindow(h))
	assert.True(t, d.IsWindow(h))
	assert.False(t, d.IsWindow(h))

	alive, err := d.Exists(pid)
	require.NoError(t, err)
	assert.False(t, alive)
}

func TestDesktopKill(t *testing.T) {
	d := NewDesktop()
	pid, h := d.Start("1cv8.exe", "base")
	denied := d.AddProcess("1cv8c.exe")
	d.DenyKill(denied)

	require.NoError(t, d.Kill(pid))
	assert.False(t, d.IsWindow(h))
	assert.True(t, errors.Is(d.Kill(pid), window.ErrNotFound))
	assert.True(t, errors.Is(d.Kill(denied), window.ErrAccessDenied))
	assert.Equal(t, 2, d.Kills(pid))
}

func TestDesktopHotkeys(t *testing.T) {
	d := NewDesktop()
	d.Claim(window.ModAlt, 'X')

	err := d.RegisterHotkey(1, 7, window.ModAlt|window.ModNoRepeat, 'X')
	assert.True(t, errors.Is(err, window.ErrBusy))

	require.NoError(t, d.RegisterHotkey(1, 7, window.ModControl, 'X'))
	d.Press(7)

	var got []window.Message
	require.NoError(t, d.PollMessages(func(m window.Message) bool {
		got = append(got, m)
		return true
	}))
	require.Len(t, got, 1)
	assert.Equal(t, window.MsgHotkey, got[0].Type)
	assert.Equal(t, uintptr(7), got[0].WParam)

	require.NoError(t, d.UnregisterHotkey(1, 7))
	assert.Empty(t, d.Hotkeys())
}
