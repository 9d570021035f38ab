//go:build !windows

package x11

import (
	"encoding/binary"
	"strings"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"
)

var atomNames = []string{
	"_NET_CLIENT_LIST",
	"_NET_CLIENT_LIST_STACKING",
	"_NET_ACTIVE_WINDOW",
	"_NET_CLOSE_WINDOW",
	"_NET_WM_NAME",
	"_NET_WM_PID",
	"_NET_WM_STATE",
	"_NET_WM_STATE_HIDDEN",
	"_NET_WM_STATE_SKIP_TASKBAR",
	"WM_NAME",
	"WM_TRANSIENT_FOR",
	"UTF8_STRING",
}

// client wraps an X connection with the atoms the manager needs
type client struct {
	conn  *xgb.Conn
	root  xproto.Window
	atoms map[string]xproto.Atom
}

func newClient() (*client, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to X server")
	}

	setup := xproto.Setup(conn)
	c := &client{
		conn:  conn,
		root:  setup.DefaultScreen(conn).Root,
		atoms: make(map[string]xproto.Atom, len(atomNames)),
	}

	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, errors.Wrapf(err, "failed to intern atom %s", name)
		}
		c.atoms[name] = reply.Atom
	}

	return c, nil
}

func (c *client) close() {
	c.conn.Close()
}

func (c *client) getProperty(w xproto.Window, atom, atomType xproto.Atom, length uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(c.conn, false, w, atom, atomType, 0, length).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

func (c *client) getUint32s(w xproto.Window, atom, atomType xproto.Atom) []uint32 {
	data, err := c.getProperty(w, atom, atomType, 1<<16)
	if err != nil {
		return nil
	}
	return decodeUint32s(data)
}

func decodeUint32s(data []byte) []uint32 {
	out := make([]uint32, 0, len(data)/4)
	for i := 0; i+4 <= len(data); i += 4 {
		out = append(out, binary.LittleEndian.Uint32(data[i:]))
	}
	return out
}

// clientWindows returns managed top-level windows, topmost first
func (c *client) clientWindows() []xproto.Window {
	ids := c.getUint32s(c.root, c.atoms["_NET_CLIENT_LIST_STACKING"], xproto.AtomWindow)
	if len(ids) > 0 {
		// stacking order is bottom-to-top
		for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
			ids[i], ids[j] = ids[j], ids[i]
		}
	} else {
		ids = c.getUint32s(c.root, c.atoms["_NET_CLIENT_LIST"], xproto.AtomWindow)
	}

	out := make([]xproto.Window, len(ids))
	for i, id := range ids {
		out[i] = xproto.Window(id)
	}
	return out
}

func (c *client) getWindowName(w xproto.Window) string {
	data, err := c.getProperty(w, c.atoms["_NET_WM_NAME"], c.atoms["UTF8_STRING"], 256)
	if err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}

	data, err = c.getProperty(w, c.atoms["WM_NAME"], xproto.AtomString, 256)
	if err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}

	return ""
}

func (c *client) getWindowPID(w xproto.Window) uint32 {
	data, err := c.getProperty(w, c.atoms["_NET_WM_PID"], xproto.AtomCardinal, 1)
	if err != nil || len(data) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(data)
}

func (c *client) isTransient(w xproto.Window) bool {
	for _, owner := range c.getUint32s(w, c.atoms["WM_TRANSIENT_FOR"], xproto.AtomWindow) {
		if owner != 0 {
			return true
		}
	}
	return false
}

func (c *client) hasState(w xproto.Window, state string) bool {
	for _, a := range c.getUint32s(w, c.atoms["_NET_WM_STATE"], xproto.AtomAtom) {
		if xproto.Atom(a) == c.atoms[state] {
			return true
		}
	}
	return false
}

func (c *client) activeWindow() xproto.Window {
	data, err := c.getProperty(c.root, c.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 1)
	if err != nil || len(data) < 4 {
		return 0
	}
	return xproto.Window(binary.LittleEndian.Uint32(data))
}

func (c *client) exists(w xproto.Window) bool {
	_, err := xproto.GetWindowAttributes(c.conn, w).Reply()
	return err == nil
}

// sendRootMessage delivers an EWMH client message to the window manager
func (c *client) sendRootMessage(w xproto.Window, atom string, data ...uint32) error {
	payload := make([]uint32, 5)
	copy(payload, data)

	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: w,
		Type:   c.atoms[atom],
		Data:   xproto.ClientMessageDataUnionData32New(payload),
	}
	mask := uint32(xproto.EventMaskSubstructureNotify | xproto.EventMaskSubstructureRedirect)
	return xproto.SendEventChecked(c.conn, false, c.root, mask, string(ev.Bytes())).Check()
}
