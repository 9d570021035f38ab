// Package hotkey binds one system-wide key combination to the host window
// and turns the resulting native message into a callback.
package hotkey

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/launchdeck/launchdeck/internal/logging"
	"github.com/launchdeck/launchdeck/pkg/window"
)

// Registration is the binding currently held by a Bridge
type Registration struct {
	ID         int
	Modifiers  uint32
	Key        uint32
	Registered bool
}

func (r Registration) String() string {
	return Describe(r.Modifiers, r.Key)
}

// Bridge owns at most one live hotkey registration for one host window
type Bridge struct {
	windows window.Manager
	host    window.Handle
	reg     Registration
	onFire  func()
	logger  *zap.Logger
}

// NewBridge returns a bridge calling onFire whenever its hotkey fires
func NewBridge(windows window.Manager, onFire func(), logger *zap.Logger) *Bridge {
	return &Bridge{
		windows: windows,
		onFire:  onFire,
		logger:  logging.OrNop(logger).Named("hotkey"),
	}
}

// Attach binds the bridge to the realized host window. Switching hosts
// while a hotkey is registered is refused.
func (b *Bridge) Attach(host window.Handle) bool {
	if b.reg.Registered && host != b.host {
		b.logger.Warn("cannot move a registered hotkey to another window",
			zap.Stringer("host", b.host),
			zap.Stringer("new_host", host))
		return false
	}
	b.host = host
	return true
}

// Host returns the attached host window
func (b *Bridge) Host() window.Handle {
	return b.host
}

// Register binds modifiers+key under id. Registering the same combination
// again is a no-op; anything else while registered is refused. A
// combination owned by another program is reported and yields false.
func (b *Bridge) Register(id int, modifiers, key uint32) bool {
	name := Describe(modifiers, key)

	if b.host.IsZero() {
		b.logger.Warn("hotkey registration before the host window exists", zap.String("hotkey", name))
		return false
	}

	if b.reg.Registered {
		if b.reg.ID == id && b.reg.Modifiers == modifiers && b.reg.Key == key {
			return true
		}
		b.logger.Warn("hotkey already registered",
			zap.String("hotkey", b.reg.String()),
			zap.String("requested", name))
		return false
	}

	if err := b.windows.RegisterHotkey(b.host, id, modifiers, key); err != nil {
		if window.Classify(err) == window.ErrBusy {
			b.logger.Warn("hotkey is taken by another program, continuing without it",
				zap.String("hotkey", name))
		} else {
			b.logger.Warn("hotkey registration failed", zap.String("hotkey", name), zap.Error(err))
		}
		return false
	}

	b.reg = Registration{ID: id, Modifiers: modifiers, Key: key, Registered: true}
	b.logger.Info("hotkey registered", zap.String("hotkey", name), zap.Int("id", id))
	return true
}

// Unregister releases id. It is safe to call when nothing is registered.
func (b *Bridge) Unregister(id int) {
	if !b.reg.Registered || b.reg.ID != id {
		return
	}

	if err := b.windows.UnregisterHotkey(b.host, id); err != nil {
		b.logger.Warn("hotkey release failed", zap.Int("id", id), zap.Error(err))
	}
	b.reg.Registered = false
}

// Registration returns the current binding
func (b *Bridge) Registration() Registration {
	return b.reg
}

// Dispatch handles msg if it is this bridge's hotkey firing
func (b *Bridge) Dispatch(msg window.Message) bool {
	if msg.Type != window.MsgHotkey || !b.reg.Registered || int(msg.WParam) != b.reg.ID {
		return false
	}

	b.logger.Debug("hotkey fired", zap.String("hotkey", b.reg.String()))
	if b.onFire != nil {
		b.onFire()
	}
	return true
}

// Pump drains the native message queue through Dispatch
func (b *Bridge) Pump() error {
	return b.windows.PollMessages(b.Dispatch)
}

var keyNames = map[uint32]string{
	0xC0: "Ё",
	0x20: "Space",
	0x1B: "Esc",
	0x0D: "Enter",
	0x09: "Tab",
}

// Describe renders a combination the way menus show it, e.g. Ctrl+Shift+Ё
func Describe(modifiers, key uint32) string {
	var parts []string
	if modifiers&window.ModWin != 0 {
		parts = append(parts, "Win")
	}
	if modifiers&window.ModAlt != 0 {
		parts = append(parts, "Alt")
	}
	if modifiers&window.ModControl != 0 {
		parts = append(parts, "Ctrl")
	}
	if modifiers&window.ModShift != 0 {
		parts = append(parts, "Shift")
	}
	return strings.Join(append(parts, keyName(key)), "+")
}

func keyName(key uint32) string {
	switch {
	case key >= '0' && key <= '9', key >= 'A' && key <= 'Z':
		return string(rune(key))
	case key >= 0x70 && key <= 0x87:
		return fmt.Sprintf("F%d", key-0x70+1)
	}
	if name, ok := keyNames[key]; ok {
		return name
	}
	return fmt.Sprintf("VK_0x%02X", key)
}
