//go:build windows

package detector

import (
	"github.com/launchdeck/launchdeck/pkg/integrations/win32"
	"github.com/launchdeck/launchdeck/pkg/window"
)

func newPlatformManager() (window.Manager, error) {
	return win32.NewManager(), nil
}

// DetectDisplayServer always reports "win32" on Windows
func DetectDisplayServer() string {
	return "win32"
}
