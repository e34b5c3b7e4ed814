package portal

import (
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// InvalidTokenError indicates a caller-supplied handle token is not a valid path element
type InvalidTokenError struct {
	Token  string
	Reason string
}

func (e *InvalidTokenError) Error() string {
	return fmt.Sprintf("invalid handle token %q: %s", e.Token, e.Reason)
}

// CancelledError indicates the user dismissed the consent dialog of a request
type CancelledError struct {
	Request dbus.ObjectPath
}

func (e *CancelledError) Error() string {
	return "request cancelled by user: " + string(e.Request)
}

// ResponseError indicates the broker ended a request with a non-cancel failure
type ResponseError struct {
	Request dbus.ObjectPath
	Code    ResponseCode
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("request %s failed: response code %d (%s)", e.Request, uint32(e.Code), e.Code)
}

// TransportError indicates a call could not be delivered to the broker
type TransportError struct {
	Method string
	Err    error
}

func (e *TransportError) Error() string {
	return e.Method + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// RequestClosedError indicates a request was abandoned before the broker answered
type RequestClosedError struct {
	Request dbus.ObjectPath
}

func (e *RequestClosedError) Error() string {
	return "request closed before completion: " + string(e.Request)
}

// TimeoutError indicates no response arrived within the configured delay
type TimeoutError struct {
	Request dbus.ObjectPath
}

func (e *TimeoutError) Error() string {
	return "timeout waiting for portal response: " + string(e.Request)
}

// IsCancelled reports whether err carries a user cancellation.
func IsCancelled(err error) bool {
	var cancelled *CancelledError
	return errors.As(err, &cancelled)
}

var errCorrelatorClosed = errors.New("correlator closed")
