package dbus

import "fmt"

// TimeoutError is returned when a D-Bus call exceeds its deadline.
type TimeoutError struct{}

func (e *TimeoutError) Error() string { return "dbus: call timed out" }

// SignalError is returned when a D-Bus signal body is malformed.
type SignalError struct {
	Signal string
	Reason string
}

func (e *SignalError) Error() string {
	if e.Signal != "" {
		return fmt.Sprintf("dbus: %s signal error: %s", e.Signal, e.Reason)
	}
	return fmt.Sprintf("dbus: signal error: %s", e.Reason)
}
