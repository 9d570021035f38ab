package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchdeck/launchdeck/internal/config"
	"github.com/launchdeck/launchdeck/internal/launcher"
	"github.com/launchdeck/launchdeck/internal/loop"
	"github.com/launchdeck/launchdeck/internal/models"
	"github.com/launchdeck/launchdeck/internal/refresh"
	"github.com/launchdeck/launchdeck/pkg/window"
	"github.com/launchdeck/launchdeck/pkg/window/windowtest"
)

type memoryHistory struct {
	launches []string
	errors   []*models.ErrorLog
}

func (h *memoryHistory) RecordLaunch(target, _ string, _ time.Time) error {
	for i, name := range h.launches {
		if name == target {
			h.launches = append(h.launches[:i], h.launches[i+1:]...)
			break
		}
	}
	h.launches = append([]string{target}, h.launches...)
	return nil
}

func (h *memoryHistory) RecentNames(limit int) ([]string, error) {
	if len(h.launches) > limit {
		return h.launches[:limit], nil
	}
	return h.launches, nil
}

func (h *memoryHistory) CreateErrorLog(errorLog *models.ErrorLog) error {
	h.errors = append(h.errors, errorLog)
	return nil
}

type harness struct {
	ctrl    *Controller
	desktop *windowtest.Desktop
	clock   *loop.Manual
	history *memoryHistory
	cfg     *config.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()

	notes := filepath.Join(root, "tools", "notes.exe")
	require.NoError(t, os.MkdirAll(filepath.Dir(notes), 0o755))
	require.NoError(t, os.WriteFile(notes, []byte("MZ"), 0o755))

	targets, err := config.ParseTargets([]byte(`
bases:
  - name: ERP
    version: 8.3.24.1467
    client: thin
    connection: Srvr="srv";Ref="erp";
tools:
  - name: Notes
    process: notes.exe
    icon: "📝"
    executable: ` + notes + `
`))
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Launcher.ProgramFiles = filepath.Join(root, "pf")
	cfg.Launcher.ProgramFilesX86 = filepath.Join(root, "pf86")
	cfg.Launcher.ScriptDir = filepath.Join(root, "scripts")
	cfg.Discovery.ClosePollInterval = time.Millisecond

	d := windowtest.NewDesktop()
	d.ExitOnClose = true
	clock := loop.NewManual()
	history := &memoryHistory{}

	ctrl, err := New(cfg, Env{
		Windows:   d,
		Procs:     d,
		Scheduler: clock,
		History:   history,
		Targets:   targets,
	}, nil)
	require.NoError(t, err)

	return &harness{ctrl: ctrl, desktop: d, clock: clock, history: history, cfg: cfg}
}

func groupEntries(v refresh.View, name string) []refresh.Entry {
	for _, g := range v.Groups {
		if g.Name == name {
			return g.Entries
		}
	}
	return nil
}

func TestRefreshBuildsGroups(t *testing.T) {
	h := newHarness(t)
	pid, _ := h.desktop.Start("1cv8c.exe", "ERP")
	h.desktop.Start("explorer.exe", "Files")

	v := h.ctrl.Refresh()

	bases := groupEntries(v, GroupBases)
	require.Len(t, bases, 1)
	assert.Equal(t, "🔴 ERP", bases[0].(refresh.LiveProcess).Label)

	tools := groupEntries(v, GroupTools)
	require.Len(t, tools, 1)
	assert.Equal(t, "📝 Notes", tools[0].(refresh.LaunchPlaceholder).Label)

	assert.Equal(t, pid, v.Cursor.Entry.(refresh.LiveProcess).Handle.PID)
	assert.Equal(t, []string{"ERP", "Notes"}, []string{h.ctrl.Targets()[0].Name, h.ctrl.Targets()[1].Name})
}

func TestLaunchSchedulesRefreshAfterAction(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Refresh()

	require.True(t, h.ctrl.Launch("Notes", launcher.Params{}))
	assert.Len(t, h.desktop.Opened(), 1)
	assert.Equal(t, []string{"Notes"}, h.history.launches)
	assert.Equal(t, "Launching Notes", h.ctrl.Status())

	// the program shows up before the settle delay elapses
	pid, _ := h.desktop.Start("notes.exe", "todo.txt")
	assert.IsType(t, refresh.LaunchPlaceholder{}, groupEntries(h.ctrl.View(), GroupTools)[0])

	h.clock.Advance(h.cfg.Refresh.LaunchSettleDelay)
	tools := groupEntries(h.ctrl.View(), GroupTools)
	require.Len(t, tools, 1)
	live := tools[0].(refresh.LiveProcess)
	assert.Equal(t, pid, live.Handle.PID)
	assert.Equal(t, "📝 todo.txt", live.Label)
}

func TestLaunchFailureIsLogged(t *testing.T) {
	h := newHarness(t)

	assert.False(t, h.ctrl.Launch("Missing", launcher.Params{}))
	// no platform installed under the temp program files
	assert.False(t, h.ctrl.Launch("ERP", launcher.Params{}))

	require.Len(t, h.history.errors, 2)
	assert.Equal(t, "launch", h.history.errors[1].Operation)
	assert.Equal(t, "ERP", h.history.errors[1].Target)
	assert.Contains(t, h.ctrl.Status(), "executable not found")
	assert.Empty(t, h.history.launches)
	assert.Zero(t, h.clock.Pending())
}

func TestMaintainNeedsKnownTarget(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.ctrl.Maintain("Nope", launcher.OpUpdateDBConfig))
	assert.Len(t, h.history.errors, 1)
}

func TestActivateAndClose(t *testing.T) {
	h := newHarness(t)
	pid, win := h.desktop.Start("1cv8c.exe", "ERP")
	h.desktop.Minimize(win)

	// not refreshed yet; activation looks the process up itself
	require.True(t, h.ctrl.Activate(pid))
	assert.Equal(t, win, h.desktop.ForegroundWindow())
	assert.False(t, h.desktop.Minimized(win))
	assert.Equal(t, GroupBases, h.ctrl.State().Focus)

	require.True(t, h.ctrl.Close(pid, false))
	assert.Equal(t, 1, h.desktop.CloseRequests(win))
	assert.Zero(t, h.desktop.Kills(pid))

	h.clock.Advance(h.cfg.Refresh.CloseSettleDelay)
	assert.Empty(t, groupEntries(h.ctrl.View(), GroupBases))
	assert.NotContains(t, h.ctrl.State().Selected, GroupBases)

	// already gone
	assert.True(t, h.ctrl.Close(pid, false))
}

func TestForceCloseDenied(t *testing.T) {
	h := newHarness(t)
	pid, _ := h.desktop.Start("1cv8.exe", "Конфигуратор - ERP")
	h.desktop.DenyKill(pid)
	h.ctrl.Refresh()

	assert.False(t, h.ctrl.Close(pid, true))
	require.Len(t, h.history.errors, 1)
	assert.Equal(t, "close", h.history.errors[0].Operation)
}

func TestActivateUnknownPID(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.ctrl.Activate(4242))
	assert.Len(t, h.history.errors, 1)
}

func TestHotkeyShowsHost(t *testing.T) {
	h := newHarness(t)
	_, host := h.desktop.Start("launchdeck.exe", "launchdeck")
	h.desktop.Minimize(host)

	require.True(t, h.ctrl.AttachHost(host))
	assert.Equal(t, "Hotkey Ctrl+Shift+Ё is active", h.ctrl.Status())
	require.Contains(t, h.desktop.Hotkeys(), h.cfg.Hotkey.ID)

	h.desktop.Start("1cv8c.exe", "ERP")
	h.desktop.Press(h.cfg.Hotkey.ID)
	h.ctrl.PumpHotkey()

	assert.Equal(t, host, h.desktop.ForegroundWindow())
	assert.True(t, h.ctrl.Visible())
	assert.Len(t, groupEntries(h.ctrl.View(), GroupBases), 1, "becoming visible refreshes")

	h.ctrl.Shutdown()
	assert.Empty(t, h.desktop.Hotkeys())
}

func TestHotkeyRestoresMinimizedHost(t *testing.T) {
	h := newHarness(t)
	_, host := h.desktop.Start("launchdeck.exe", "launchdeck")
	require.NoError(t, h.desktop.SetForeground(host))
	require.True(t, h.ctrl.AttachHost(host))
	h.ctrl.SetVisible(true)
	require.Empty(t, groupEntries(h.ctrl.View(), GroupBases))

	h.desktop.Minimize(host)
	h.desktop.Start("1cv8c.exe", "ERP")
	h.desktop.Press(h.cfg.Hotkey.ID)
	h.ctrl.PumpHotkey()

	assert.False(t, h.desktop.Minimized(host))
	assert.Len(t, groupEntries(h.ctrl.View(), GroupBases), 1)
}

func TestHotkeyOnFocusedHostKeepsView(t *testing.T) {
	h := newHarness(t)
	_, host := h.desktop.Start("launchdeck.exe", "launchdeck")
	require.NoError(t, h.desktop.SetForeground(host))
	require.True(t, h.ctrl.AttachHost(host))
	h.ctrl.SetVisible(true)

	h.desktop.Start("1cv8c.exe", "ERP")
	h.desktop.Press(h.cfg.Hotkey.ID)
	h.ctrl.PumpHotkey()

	assert.Empty(t, groupEntries(h.ctrl.View(), GroupBases))
}

func TestTrackHostRefreshesOnRestore(t *testing.T) {
	h := newHarness(t)
	_, host := h.desktop.Start("launchdeck.exe", "launchdeck")
	require.True(t, h.ctrl.AttachHost(host))
	h.ctrl.SetVisible(true)

	h.desktop.Minimize(host)
	h.ctrl.TrackHost()
	assert.False(t, h.ctrl.Visible())

	h.desktop.Start("1cv8c.exe", "ERP")
	h.ctrl.TrackHost()
	assert.Empty(t, groupEntries(h.ctrl.View(), GroupBases), "still minimized")

	require.NoError(t, h.desktop.Restore(host))
	h.ctrl.TrackHost()
	assert.True(t, h.ctrl.Visible())
	assert.Len(t, groupEntries(h.ctrl.View(), GroupBases), 1)
}

func TestHotkeySelectsFocusedInstance(t *testing.T) {
	h := newHarness(t)
	_, host := h.desktop.Start("launchdeck.exe", "launchdeck")
	require.True(t, h.ctrl.AttachHost(host))

	h.desktop.Start("1cv8c.exe", "A")
	second, win := h.desktop.Start("1cv8c.exe", "B")
	require.NoError(t, h.desktop.SetForeground(win))

	h.desktop.Press(h.cfg.Hotkey.ID)
	h.ctrl.PumpHotkey()

	assert.Equal(t, host, h.desktop.ForegroundWindow())
	assert.Equal(t, second, h.ctrl.View().Cursor.Entry.(refresh.LiveProcess).Handle.PID)
}

func TestHotkeyBusyDegrades(t *testing.T) {
	h := newHarness(t)
	_, host := h.desktop.Start("launchdeck.exe", "launchdeck")
	h.desktop.Claim(h.cfg.Hotkey.Modifiers, h.cfg.Hotkey.Key)

	assert.False(t, h.ctrl.AttachHost(host))
	assert.Equal(t, "Hotkey Ctrl+Shift+Ё is unavailable", h.ctrl.Status())
	assert.False(t, h.ctrl.Hotkey().Registration().Registered)

	h.ctrl.DetachHost()
}

func TestSetVisibleRefreshesOnTransition(t *testing.T) {
	h := newHarness(t)
	h.ctrl.SetVisible(true)
	assert.Empty(t, groupEntries(h.ctrl.View(), GroupBases))

	h.desktop.Start("1cv8c.exe", "ERP")
	h.ctrl.SetVisible(true)
	assert.Empty(t, groupEntries(h.ctrl.View(), GroupBases), "already visible")

	h.ctrl.SetVisible(false)
	h.ctrl.SetVisible(true)
	assert.Len(t, groupEntries(h.ctrl.View(), GroupBases), 1)
}

func TestShutdownRemovesPendingScripts(t *testing.T) {
	h := newHarness(t)
	require.True(t, h.ctrl.Launch("Notes", launcher.Params{}))
	script := h.desktop.Opened()[0].Path
	require.FileExists(t, script)

	h.ctrl.Shutdown()
	assert.NoFileExists(t, script)
	assert.Zero(t, h.clock.Pending())
}

func TestSelectRemembersPID(t *testing.T) {
	h := newHarness(t)
	h.desktop.Start("1cv8c.exe", "A")
	second, _ := h.desktop.Start("1cv8c.exe", "B")
	h.ctrl.Refresh()

	require.True(t, h.ctrl.Select(second))
	v := h.ctrl.Refresh()
	assert.Equal(t, second, v.Cursor.Entry.(refresh.LiveProcess).Handle.PID)
	assert.False(t, h.ctrl.Select(1))
}

var _ window.Manager = (*windowtest.Desktop)(nil)
