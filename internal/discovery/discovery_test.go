package discovery

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchdeck/launchdeck/pkg/window"
	"github.com/launchdeck/launchdeck/pkg/window/windowtest"
)

func TestDiscoverMatchesCaseInsensitively(t *testing.T) {
	d := windowtest.NewDesktop()
	pid, h := d.Start("1CV8C.EXE", "ERP")
	d.Start("explorer.exe", "Desktop")

	got := NewService(d, d, nil, nil).Discover([]string{"1cv8c.exe"})

	require.Len(t, got, 1)
	assert.Equal(t, pid, got[0].PID)
	assert.Equal(t, h, got[0].Window)
	assert.Equal(t, "ERP", got[0].Title)
	assert.Equal(t, "1CV8C.EXE", got[0].Executable)
}

func TestDiscoverOneHandlePerProcess(t *testing.T) {
	d := windowtest.NewDesktop()
	pid, _ := d.Start("1cv8.exe", "Configurator")
	d.AddWindow(pid, window.WindowInfo{Title: "Second", Visible: true})
	top := d.AddWindow(pid, window.WindowInfo{Title: "Third", Visible: true})
	d.Start("1cv8.exe", "Other base")

	got := NewService(d, d, nil, nil).Discover([]string{"1cv8.exe"})

	require.Len(t, got, 2)
	seen := map[int]bool{}
	for _, h := range got {
		assert.False(t, seen[h.PID], "duplicate pid %d", h.PID)
		seen[h.PID] = true
	}
	assert.Equal(t, top, got[0].Window, "topmost acceptable window is primary")
}

func TestDiscoverSkipsOwnedAndHiddenWindows(t *testing.T) {
	d := windowtest.NewDesktop()
	pid := d.AddProcess("1cv8.exe")
	main := d.AddWindow(pid, window.WindowInfo{Title: "Main", Visible: true})
	d.AddWindow(pid, window.WindowInfo{Title: "Dialog", Visible: true, Owned: true})
	d.AddWindow(pid, window.WindowInfo{Title: "Hidden"})

	got := NewService(d, d, nil, nil).Discover([]string{"1cv8.exe"})

	require.Len(t, got, 1)
	assert.Equal(t, main, got[0].Window)
}

func TestDiscoverSkipsWindowlessProcesses(t *testing.T) {
	d := windowtest.NewDesktop()
	d.AddProcess("1cv8.exe")

	assert.Empty(t, NewService(d, d, nil, nil).Discover([]string{"1cv8.exe"}))
}

func TestDiscoverUntitledPredicate(t *testing.T) {
	d := windowtest.NewDesktop()
	pid, _ := d.Start("1cv8.exe", "")

	got := NewService(d, d, PredicateFor(true), nil).Discover([]string{"1cv8.exe"})
	require.Len(t, got, 1)
	assert.Equal(t, pid, got[0].PID)
	assert.Empty(t, got[0].Title)

	assert.Empty(t, NewService(d, d, PredicateFor(false), nil).Discover([]string{"1cv8.exe"}))
}

func TestDiscoverNoMatchIsEmpty(t *testing.T) {
	d := windowtest.NewDesktop()
	d.Start("other.exe", "Other")

	assert.Empty(t, NewService(d, d, nil, nil).Discover([]string{"app"}))
	assert.Empty(t, NewService(d, d, nil, nil).Discover(nil))
}

func TestDiscoverEnumerationFailure(t *testing.T) {
	d := windowtest.NewDesktop()
	d.Start("1cv8.exe", "ERP")
	d.ListErr = errors.Wrap(window.ErrAccessDenied, "snapshot")

	assert.Empty(t, NewService(d, d, nil, nil).Discover([]string{"1cv8.exe"}))
}

func TestForeground(t *testing.T) {
	d := windowtest.NewDesktop()
	_, a := d.Start("1cv8.exe", "A")
	pid, b := d.Start("1cv8.exe", "B")
	svc := NewService(d, d, nil, nil)

	_, ok := svc.Foreground([]string{"1cv8.exe"})
	assert.False(t, ok)

	require.NoError(t, d.SetForeground(b))
	h, ok := svc.Foreground([]string{"1cv8.exe"})
	require.True(t, ok)
	assert.Equal(t, pid, h.PID)

	require.NoError(t, d.SetForeground(a))
	_, ok = svc.Foreground([]string{"notepad.exe"})
	assert.False(t, ok)
}

func TestProcessHandleIdentity(t *testing.T) {
	a := ProcessHandle{PID: 42, Window: 1, Title: "before"}
	b := ProcessHandle{PID: 42, Window: 2, Title: "after"}
	c := ProcessHandle{PID: 43, Window: 1, Title: "before"}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, "42", a.Key())
	assert.True(t, ProcessHandle{}.IsZero())
}
