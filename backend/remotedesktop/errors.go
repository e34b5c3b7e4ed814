package remotedesktop

import (
	"errors"
	"fmt"
	"strings"
)

// InvalidStateError indicates a call was issued outside the state that permits it
type InvalidStateError struct {
	Op       string
	State    State
	Required []State
	// InFlight names the transition still running, if any.
	InFlight string
}

func (e *InvalidStateError) Error() string {
	if e.InFlight != "" {
		return fmt.Sprintf("%s: invalid state: %s still in progress (state %s)", e.Op, e.InFlight, e.State)
	}
	required := make([]string, 0, len(e.Required))
	for _, s := range e.Required {
		required = append(required, s.String())
	}
	return fmt.Sprintf("%s: invalid state %s (requires %s)", e.Op, e.State, strings.Join(required, " or "))
}

// CapabilityDeniedError indicates a device kind outside the granted set was used
type CapabilityDeniedError struct {
	Op        string
	Requested CapabilitySet
	Granted   CapabilitySet
}

func (e *CapabilityDeniedError) Error() string {
	return fmt.Sprintf("%s: capability denied: %s not in granted %s", e.Op, e.Requested, e.Granted)
}

// SessionClosedError records why a session ended without Close being called
type SessionClosedError struct {
	Reason string
}

func (e *SessionClosedError) Error() string {
	return "session closed: " + e.Reason
}

var errMissingSessionHandle = errors.New("response carries no valid session_handle")
