package control

import (
	"go.uber.org/zap"

	"github.com/launchdeck/launchdeck/internal/discovery"
	"github.com/launchdeck/launchdeck/internal/logging"
	"github.com/launchdeck/launchdeck/pkg/window"
)

// Activator brings windows to the foreground
type Activator struct {
	windows window.Manager
	logger  *zap.Logger
}

func NewActivator(windows window.Manager, logger *zap.Logger) *Activator {
	return &Activator{
		windows: windows,
		logger:  logging.OrNop(logger).Named("activator"),
	}
}

// Activate restores h's window if minimized and focuses it. A window that
// vanished since discovery is a failure, never a fault.
func (a *Activator) Activate(h discovery.ProcessHandle) bool {
	return a.focus(h.Window, zap.Int("pid", h.PID), zap.Stringer("window", h.Window))
}

// ActivateHost does the same for the application's own host window
func (a *Activator) ActivateHost(host window.Handle) bool {
	return a.focus(host, zap.String("target", "host"), zap.Stringer("window", host))
}

func (a *Activator) focus(w window.Handle, fields ...zap.Field) bool {
	if !a.windows.IsWindow(w) {
		a.logger.Info("window vanished before activation", fields...)
		return false
	}

	if a.windows.IsMinimized(w) {
		if err := a.windows.Restore(w); err != nil {
			a.logger.Warn("restore failed", append(fields, zap.Error(err))...)
			return false
		}
	}

	if err := a.windows.SetForeground(w); err != nil {
		a.logger.Warn("set foreground failed", append(fields, zap.Error(err))...)
		return false
	}
	return true
}
