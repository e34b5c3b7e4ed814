package remotedesktop

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/b0bbywan/go-odio-portal/backend/portal"
	"github.com/b0bbywan/go-odio-portal/config"
	"github.com/b0bbywan/go-odio-portal/events"
)

// KeyState is the state of a key or pointer button.
type KeyState uint32

const (
	Released KeyState = 0
	Pressed  KeyState = 1
)

func (s KeyState) String() string {
	switch s {
	case Released:
		return "released"
	case Pressed:
		return "pressed"
	}
	return fmt.Sprintf("KeyState(%d)", uint32(s))
}

// ParseKeyState accepts "pressed" or "released".
func ParseKeyState(s string) (KeyState, error) {
	switch strings.ToLower(s) {
	case "pressed":
		return Pressed, nil
	case "released":
		return Released, nil
	}
	return 0, fmt.Errorf("invalid key state %q", s)
}

// Axis is a scroll axis for discrete axis events.
type Axis uint32

const (
	AxisVertical   Axis = 0
	AxisHorizontal Axis = 1
)

func (a Axis) String() string {
	switch a {
	case AxisVertical:
		return "vertical"
	case AxisHorizontal:
		return "horizontal"
	}
	return fmt.Sprintf("Axis(%d)", uint32(a))
}

// ParseAxis accepts "vertical" or "horizontal".
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(s) {
	case "vertical":
		return AxisVertical, nil
	case "horizontal":
		return AxisHorizontal, nil
	}
	return 0, fmt.Errorf("invalid axis %q", s)
}

// PersistMode tells the broker how long a granted session may be restored.
type PersistMode uint32

const (
	PersistNone      PersistMode = 0
	PersistTransient PersistMode = 1
	PersistPermanent PersistMode = 2
)

func (m PersistMode) String() string {
	switch m {
	case PersistNone:
		return "none"
	case PersistTransient:
		return "transient"
	case PersistPermanent:
		return "permanent"
	}
	return fmt.Sprintf("PersistMode(%d)", uint32(m))
}

// ParsePersistMode accepts "none", "transient" or "permanent".
func ParsePersistMode(s string) (PersistMode, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return PersistNone, nil
	case "transient":
		return PersistTransient, nil
	case "permanent":
		return PersistPermanent, nil
	}
	return 0, fmt.Errorf("invalid persist mode %q", s)
}

// RemoteDesktopBackend manages at most one remote desktop session on behalf
// of the API and keeps its restore token across restarts.
type RemoteDesktopBackend struct {
	ctx       context.Context
	config    *config.RemoteDesktopConfig
	transport portal.Transport
	requests  *portal.Correlator
	portal    *Portal
	tokens    *TokenStore

	// resolved from config
	devices CapabilitySet
	persist PersistMode
	parent  portal.WindowIdentifier

	mu      sync.Mutex
	session *Session

	events    chan events.Event
	closeOnce sync.Once
}

// Info describes the broker and the current session.
type Info struct {
	Available       CapabilitySet `json:"available"`
	Version         uint32        `json:"version"`
	Persist         string        `json:"persist"`
	HasRestoreToken bool          `json:"restore_token"`
	Session         SessionInfo   `json:"session"`
}
