//go:build !windows

package detector

import (
	"os"

	"github.com/pkg/errors"

	"github.com/launchdeck/launchdeck/pkg/integrations/x11"
	"github.com/launchdeck/launchdeck/pkg/window"
)

func newPlatformManager() (window.Manager, error) {
	if DetectDisplayServer() != "x11" {
		return nil, errors.Wrap(ErrNoBackend, "no X display (set DISPLAY, XWayland works too)")
	}
	return x11.NewManager()
}

// DetectDisplayServer reports which display server is reachable. A
// Wayland session with DISPLAY set runs XWayland and counts as x11.
func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if x11Display != "" {
		return "x11"
	}

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" {
		return "x11"
	}

	return "unknown"
}
