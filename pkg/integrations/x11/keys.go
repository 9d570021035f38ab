//go:build !windows

package x11

import (
	"github.com/jezek/xgb/xproto"

	"github.com/launchdeck/launchdeck/pkg/window"
)

// Virtual key codes that do not map onto a keysym of the same value
const (
	vkF1   = 0x70
	vkF24  = 0x87
	vkOEM3 = 0xC0 // `~ on US layouts, Ё on Russian ones

	xkF1    = 0xffbe
	xkGrave = 0x0060
)

// vkToKeysym translates a virtual key code into an X keysym.
// Letters map to their lowercase keysym; digits and space are identical.
// Anything unknown is passed through as a raw keysym.
func vkToKeysym(vk uint32) xproto.Keysym {
	switch {
	case vk >= 'A' && vk <= 'Z':
		return xproto.Keysym(vk + ('a' - 'A'))
	case vk >= vkF1 && vk <= vkF24:
		return xproto.Keysym(xkF1 + (vk - vkF1))
	case vk == vkOEM3:
		return xkGrave
	}
	return xproto.Keysym(vk)
}

// translateModifiers maps window.Mod* flags onto an X modifier mask
func translateModifiers(mods uint32) uint16 {
	var mask uint16
	if mods&window.ModAlt != 0 {
		mask |= xproto.ModMask1
	}
	if mods&window.ModControl != 0 {
		mask |= xproto.ModMaskControl
	}
	if mods&window.ModShift != 0 {
		mask |= xproto.ModMaskShift
	}
	if mods&window.ModWin != 0 {
		mask |= xproto.ModMask4
	}
	return mask
}

// lockVariants are the lock modifiers (CapsLock, NumLock) a grab has to
// cover so the hotkey fires regardless of their state
var lockVariants = []uint16{0, xproto.ModMaskLock, xproto.ModMask2, xproto.ModMaskLock | xproto.ModMask2}

const significantMods = xproto.ModMaskShift | xproto.ModMaskControl | xproto.ModMask1 | xproto.ModMask4

// keycodeFor finds the first keycode producing sym in the current keyboard map
func (c *client) keycodeFor(sym xproto.Keysym) (xproto.Keycode, bool) {
	setup := xproto.Setup(c.conn)
	count := byte(setup.MaxKeycode - setup.MinKeycode + 1)

	reply, err := xproto.GetKeyboardMapping(c.conn, setup.MinKeycode, count).Reply()
	if err != nil || reply.KeysymsPerKeycode == 0 {
		return 0, false
	}

	return findKeycode(reply.Keysyms, int(reply.KeysymsPerKeycode), setup.MinKeycode, sym)
}

func findKeycode(keysyms []xproto.Keysym, perKeycode int, first xproto.Keycode, sym xproto.Keysym) (xproto.Keycode, bool) {
	for i, ks := range keysyms {
		if ks == sym {
			return first + xproto.Keycode(i/perKeycode), true
		}
	}
	return 0, false
}
