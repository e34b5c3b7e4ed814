package portal

import (
	"fmt"
	"strings"
)

// WindowIdentifier tells the broker which application window a dialog belongs to.
// The zero value means "no parent window".
type WindowIdentifier string

// X11Window builds an identifier from an X11 window XID, written in 0x-prefixed hex.
func X11Window(xid uint32) WindowIdentifier {
	return WindowIdentifier(fmt.Sprintf("x11:0x%x", xid))
}

// WaylandWindow builds an identifier from an xdg_foreign exported surface handle.
func WaylandWindow(handle string) WindowIdentifier {
	return WindowIdentifier("wayland:" + handle)
}

// ParseWindowIdentifier accepts "", "x11:<id>" or "wayland:<handle>".
func ParseWindowIdentifier(s string) (WindowIdentifier, error) {
	if s == "" {
		return "", nil
	}
	kind, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return "", fmt.Errorf("invalid window identifier %q", s)
	}
	switch kind {
	case "x11", "wayland":
		return WindowIdentifier(s), nil
	}
	return "", fmt.Errorf("invalid window identifier %q: unknown windowing system %q", s, kind)
}

func (w WindowIdentifier) String() string { return string(w) }
