// Package app wires discovery, control, launching, the hotkey and refresh
// into the operations the host window and the CLI expose.
package app

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/launchdeck/launchdeck/internal/config"
	"github.com/launchdeck/launchdeck/internal/control"
	"github.com/launchdeck/launchdeck/internal/discovery"
	"github.com/launchdeck/launchdeck/internal/hotkey"
	"github.com/launchdeck/launchdeck/internal/launcher"
	"github.com/launchdeck/launchdeck/internal/logging"
	"github.com/launchdeck/launchdeck/internal/loop"
	"github.com/launchdeck/launchdeck/internal/models"
	"github.com/launchdeck/launchdeck/internal/refresh"
	"github.com/launchdeck/launchdeck/pkg/process"
	"github.com/launchdeck/launchdeck/pkg/window"
)

// Group names
const (
	GroupBases = "bases"
	GroupTools = "tools"
)

// History persists recents and failures
type History interface {
	RecordLaunch(target, mode string, at time.Time) error
	RecentNames(limit int) ([]string, error)
	CreateErrorLog(errorLog *models.ErrorLog) error
}

// Env is what the controller runs against
type Env struct {
	Windows   window.Manager
	Procs     process.Table
	Scheduler loop.Scheduler
	History   History // optional
	Targets   *config.Targets
}

// Controller owns the refresh state and runs every user-facing operation.
// All methods must be called on the loop goroutine.
type Controller struct {
	cfg    *config.Config
	logger *zap.Logger
	sched  loop.Scheduler

	windows    window.Manager
	discovery  *discovery.Service
	activator  *control.Activator
	terminator *control.Terminator
	launcher   *launcher.Orchestrator
	refresher  *refresh.Coordinator
	bridge     *hotkey.Bridge
	history    History

	targets map[string]launcher.LaunchTarget
	order   []string

	state   refresh.RefreshState
	view    refresh.View
	status  string
	visible bool
	pending loop.Timer

	now func() time.Time
}

// New builds a controller and every component it drives
func New(cfg *config.Config, env Env, logger *zap.Logger) (*Controller, error) {
	logger = logging.OrNop(logger)

	c := &Controller{
		cfg:     cfg,
		logger:  logger.Named("app"),
		sched:   env.Scheduler,
		windows: env.Windows,
		history: env.History,
		targets: make(map[string]launcher.LaunchTarget),
		now:     time.Now,
	}

	layout := launcher.LayoutFromConfig(cfg.Launcher)
	var bases, tools []launcher.LaunchTarget
	if env.Targets != nil {
		for _, spec := range env.Targets.Bases {
			t, err := launcher.BaseTarget(spec, layout)
			if err != nil {
				return nil, err
			}
			bases = append(bases, t)
		}
		for _, spec := range env.Targets.Tools {
			t, err := launcher.ToolTarget(spec)
			if err != nil {
				return nil, err
			}
			tools = append(tools, t)
		}
	}
	for _, t := range append(append([]launcher.LaunchTarget{}, bases...), tools...) {
		c.targets[t.Name] = t
		c.order = append(c.order, t.Name)
	}

	orch, err := launcher.New(env.Windows, env.Scheduler, launcher.OptionsFromConfig(cfg), logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create launcher")
	}

	c.discovery = discovery.NewService(env.Procs, env.Windows, discovery.PredicateFor(cfg.Discovery.AcceptUntitled), logger)
	c.activator = control.NewActivator(env.Windows, logger)
	c.terminator = control.NewTerminator(env.Procs, env.Windows, cfg.Discovery.ClosePollInterval, logger)
	c.launcher = orch
	c.bridge = hotkey.NewBridge(env.Windows, c.ShowHost, logger)

	groups := []refresh.Group{
		{Name: GroupBases, ProcessNames: cfg.Discovery.ManagedProcesses, Label: refresh.PlatformLabel},
		{Name: GroupTools, Targets: tools, Label: refresh.ToolLabel(tools)},
	}
	var recents refresh.RecentsSource
	if env.History != nil {
		recents = env.History
	}
	c.refresher = refresh.NewCoordinator(c.discovery, groups, recents, cfg.Refresh.RecentLimit, logger)

	return c, nil
}

// Targets lists launch targets, bases first
func (c *Controller) Targets() []launcher.LaunchTarget {
	out := make([]launcher.LaunchTarget, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.targets[name])
	}
	return out
}

// View returns the result of the last refresh
func (c *Controller) View() refresh.View {
	return c.view
}

// State returns the current selection memory
func (c *Controller) State() refresh.RefreshState {
	return c.state
}

// Status returns the last user-facing status message
func (c *Controller) Status() string {
	return c.status
}

// Hotkey returns the hotkey bridge
func (c *Controller) Hotkey() *hotkey.Bridge {
	return c.bridge
}

// Launcher returns the launch orchestrator
func (c *Controller) Launcher() *launcher.Orchestrator {
	return c.launcher
}

// HotkeyRegistration returns the current hotkey binding
func (c *Controller) HotkeyRegistration() hotkey.Registration {
	return c.bridge.Registration()
}

// PendingLaunches lists scripts waiting for removal
func (c *Controller) PendingLaunches() []launcher.PendingLaunch {
	return c.launcher.Registry().Pending()
}

// Refresh rebuilds the view now
func (c *Controller) Refresh() refresh.View {
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
	c.view, c.state = c.refresher.Refresh(c.state)
	return c.view
}

// scheduleRefresh queues a refresh after delay. The callback always runs
// after the caller returned, never inside it.
func (c *Controller) scheduleRefresh(delay time.Duration) {
	if c.pending != nil {
		c.pending.Stop()
	}
	c.pending = c.sched.AfterFunc(delay, func() {
		c.pending = nil
		c.Refresh()
	})
}

// Select remembers pid as the selection of its group
func (c *Controller) Select(pid int) bool {
	lp, ok := c.view.FindPID(pid)
	if !ok {
		return false
	}
	c.state = c.state.Select(lp.Group, lp.Handle)
	return true
}

// SelectRecent remembers a recent entry as the selection
func (c *Controller) SelectRecent(name string) {
	c.state = c.state.SelectRecent(name)
}

// SetVisible tracks host visibility; becoming visible refreshes the view
func (c *Controller) SetVisible(visible bool) {
	wasHidden := !c.visible
	c.visible = visible
	if visible && wasHidden {
		c.Refresh()
	}
}

// Visible reports the host visibility last set
func (c *Controller) Visible() bool {
	return c.visible
}

func (c *Controller) lookup(pid int) (discovery.ProcessHandle, bool) {
	if lp, ok := c.view.FindPID(pid); ok {
		return lp.Handle, true
	}
	if lp, ok := c.Refresh().FindPID(pid); ok {
		return lp.Handle, true
	}
	return discovery.ProcessHandle{}, false
}

// Activate focuses the window of pid
func (c *Controller) Activate(pid int) bool {
	h, ok := c.lookup(pid)
	if !ok {
		c.fail("activate", fmt.Sprint(pid), errors.Wrapf(window.ErrNotFound, "process %d is not running", pid))
		return false
	}

	c.state = c.state.Select(c.groupOf(pid), h)
	if !c.activator.Activate(h) {
		c.fail("activate", h.Title, errors.Errorf("could not activate %q", h.Title))
		return false
	}
	c.report("Activated %s", displayTitle(h))
	return true
}

// Close terminates pid gracefully, or kills it with force
func (c *Controller) Close(pid int, force bool) bool {
	h, ok := c.lookup(pid)
	if !ok {
		// already gone is the goal state
		c.report("Process %d is not running", pid)
		c.scheduleRefresh(c.cfg.Refresh.CloseSettleDelay)
		return true
	}

	ok = c.terminator.Terminate(h, force)
	c.scheduleRefresh(c.cfg.Refresh.CloseSettleDelay)
	if !ok {
		c.fail("close", h.Title, errors.Errorf("could not close %q (%s)", displayTitle(h), c.terminator.LastState()))
		return false
	}
	c.report("Closed %s", displayTitle(h))
	return true
}

// Launch starts the named target
func (c *Controller) Launch(name string, params launcher.Params) bool {
	target, ok := c.targets[name]
	if !ok {
		c.fail("launch", name, errors.Errorf("unknown target %q", name))
		return false
	}

	if _, err := c.launcher.Start(target, params); err != nil {
		c.fail("launch", name, err)
		return false
	}

	mode := target.Mode
	if params.Mode != nil {
		mode = *params.Mode
	}
	c.remember(name, mode.String())
	c.state = c.state.SelectRecent(name)
	c.report("Launching %s", name)
	c.scheduleRefresh(c.cfg.Refresh.LaunchSettleDelay)
	return true
}

// Maintain runs a maintenance operation on the named base
func (c *Controller) Maintain(name string, op launcher.Operation) bool {
	target, ok := c.targets[name]
	if !ok {
		c.fail("maintain", name, errors.Errorf("unknown target %q", name))
		return false
	}

	if _, err := c.launcher.Maintain(target, op, launcher.Params{}); err != nil {
		c.fail("maintain", name, err)
		return false
	}

	c.remember(name, launcher.ModeMaintenance.String())
	c.report("Running %s on %s", op, name)
	c.scheduleRefresh(c.cfg.Refresh.LaunchSettleDelay)
	return true
}

// AttachHost binds the realized host window and registers the hotkey
func (c *Controller) AttachHost(host window.Handle) bool {
	if !c.bridge.Attach(host) {
		return false
	}
	if !c.cfg.Hotkey.Enabled {
		return true
	}

	hk := c.cfg.Hotkey
	if !c.bridge.Register(hk.ID, hk.Modifiers, hk.Key) {
		c.report("Hotkey %s is unavailable", hotkey.Describe(hk.Modifiers, hk.Key))
		return false
	}
	c.report("Hotkey %s is active", hotkey.Describe(hk.Modifiers, hk.Key))
	return true
}

// DetachHost releases the hotkey before the host window goes away
func (c *Controller) DetachHost() {
	c.bridge.Unregister(c.cfg.Hotkey.ID)
}

// ShowHost brings the host window back; the hotkey calls it. A managed
// instance that had the focus becomes the selection. A host that was
// minimized or behind another window counts as hidden, so showing it
// refreshes the view.
func (c *Controller) ShowHost() {
	host := c.bridge.Host()
	if host.IsZero() {
		return
	}
	if fg, _, err := c.windows.Foreground(); err != nil || fg != host || c.windows.IsMinimized(host) {
		c.visible = false
	}
	if h, ok := c.discovery.Foreground(c.cfg.Discovery.ManagedProcesses); ok {
		c.state = c.state.Select(GroupBases, h)
	}
	if c.activator.ActivateHost(host) {
		c.SetVisible(true)
	}
}

// TrackHost follows the minimized state of the host, so restoring it by
// hand refreshes the same way the hotkey does
func (c *Controller) TrackHost() {
	host := c.bridge.Host()
	if host.IsZero() {
		return
	}
	c.SetVisible(!c.windows.IsMinimized(host))
}

// PumpHotkey drains native messages for the hotkey
func (c *Controller) PumpHotkey() {
	if err := c.bridge.Pump(); err != nil {
		c.logger.Debug("message pump failed", zap.Error(err))
	}
}

// Shutdown releases the hotkey and removes pending scripts
func (c *Controller) Shutdown() {
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
	c.DetachHost()
	c.launcher.Shutdown()
}

func (c *Controller) groupOf(pid int) string {
	if lp, ok := c.view.FindPID(pid); ok {
		return lp.Group
	}
	return GroupBases
}

func (c *Controller) remember(name, mode string) {
	if c.history == nil {
		return
	}
	if err := c.history.RecordLaunch(name, mode, c.now()); err != nil {
		c.logger.Warn("failed to record launch", zap.String("target", name), zap.Error(err))
	}
}

func (c *Controller) report(format string, args ...interface{}) {
	c.status = fmt.Sprintf(format, args...)
	c.logger.Info(c.status)
}

// fail reports err to the user and stores it in the error log
func (c *Controller) fail(op, target string, err error) {
	c.status = err.Error()
	c.logger.Warn("operation failed", zap.String("operation", op), zap.String("target", target), zap.Error(err))
	c.storeError(op, target, err)
}

func (c *Controller) storeError(op, target string, err error) {
	if c.history == nil {
		return
	}

	errorLog := &models.ErrorLog{
		Timestamp: c.now(),
		Operation: op,
		Target:    target,
		ErrorMsg:  err.Error(),
	}
	if dbErr := c.history.CreateErrorLog(errorLog); dbErr != nil {
		c.logger.Error("failed to store error in database", zap.Error(dbErr), zap.NamedError("original", err))
	}
}

func displayTitle(h discovery.ProcessHandle) string {
	if h.Title == "" {
		return refresh.Untitled
	}
	return h.Title
}
