package detector

import (
	"github.com/pkg/errors"

	"github.com/launchdeck/launchdeck/pkg/window"
)

// ErrNoBackend is returned when no window backend can run here
var ErrNoBackend = errors.New("no window backend available")

// New returns the window manager backend for the current platform
func New() (window.Manager, error) {
	m, err := newPlatformManager()
	if err != nil {
		return nil, err
	}
	if !m.IsAvailable() {
		m.Close()
		return nil, errors.Wrapf(ErrNoBackend, "%s backend unavailable", m.Backend())
	}
	return m, nil
}
