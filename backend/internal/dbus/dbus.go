package dbus

import (
	"context"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
)

// DefaultTimeout is the timeout used for non-interactive D-Bus calls.
var DefaultTimeout = 5 * time.Second

// CallWithTimeout executes a D-Bus call with the default timeout.
func CallWithTimeout(call *dbus.Call) error {
	done := make(chan error, 1)
	go func() { done <- call.Err }()
	select {
	case err := <-done:
		return err
	case <-time.After(DefaultTimeout):
		return &TimeoutError{}
	}
}

// CallWithContext invokes method on obj, bounded by ctx and DefaultTimeout.
func CallWithContext(ctx context.Context, obj dbus.BusObject, method string, args ...interface{}) *dbus.Call {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()
	return obj.CallWithContext(ctx, method, 0, args...)
}

// Send emits a method call without waiting for a reply.
func Send(obj dbus.BusObject, method string, args ...interface{}) error {
	return obj.Call(method, dbus.FlagNoReplyExpected, args...).Err
}

// GetProperty retrieves a single property from a D-Bus object.
func GetProperty(obj dbus.BusObject, iface, prop string) (dbus.Variant, error) {
	var v dbus.Variant
	call := obj.Call(PROP_GET, 0, iface, prop)
	if err := CallWithTimeout(call); err != nil {
		return dbus.Variant{}, err
	}
	if err := call.Store(&v); err != nil {
		return dbus.Variant{}, err
	}
	return v, nil
}

// MatchSignal returns the match options for member on iface emitted by path.
func MatchSignal(path dbus.ObjectPath, iface, member string) []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(iface),
		dbus.WithMatchMember(member),
	}
}

// IsPathElement reports whether s can be used as a single object path element.
func IsPathElement(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(PATH_ELEMENT, r) {
			return false
		}
	}
	return true
}

// EscapeUniqueName turns a unique bus name (":1.42") into a path element ("1_42").
func EscapeUniqueName(name string) string {
	return strings.ReplaceAll(strings.TrimPrefix(name, ":"), ".", "_")
}

// ParseResponse parses an org.freedesktop.portal.Request.Response signal body.
func ParseResponse(sig *dbus.Signal) (uint32, map[string]dbus.Variant, error) {
	if sig == nil {
		return 0, nil, &SignalError{Signal: "Response", Reason: "channel closed"}
	}
	if len(sig.Body) < 2 {
		return 0, nil, &SignalError{Signal: "Response", Reason: "body too short"}
	}
	code, ok := sig.Body[0].(uint32)
	if !ok {
		return 0, nil, &SignalError{Signal: "Response", Reason: "body[0] is not uint32"}
	}
	results, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return 0, nil, &SignalError{Signal: "Response", Reason: "body[1] is not map[string]Variant"}
	}
	return code, results, nil
}

// --- Variant extraction helpers ---

// ExtractString extracts a string from a dbus.Variant.
func ExtractString(v dbus.Variant) (string, bool) {
	val, ok := v.Value().(string)
	return val, ok
}

// ExtractUint32 extracts a uint32 from a dbus.Variant.
func ExtractUint32(v dbus.Variant) (uint32, bool) {
	val, ok := v.Value().(uint32)
	return val, ok
}

// ExtractObjectPath extracts an object path from a dbus.Variant.
// Some portal versions send paths as plain strings, both are accepted.
func ExtractObjectPath(v dbus.Variant) (dbus.ObjectPath, bool) {
	switch val := v.Value().(type) {
	case dbus.ObjectPath:
		return val, val.IsValid()
	case string:
		p := dbus.ObjectPath(val)
		return p, p.IsValid()
	}
	return "", false
}

// ExtractFloat64Slice extracts a []float64 (or a (ddd) struct) from a dbus.Variant.
func ExtractFloat64Slice(v dbus.Variant) ([]float64, bool) {
	switch val := v.Value().(type) {
	case []float64:
		return val, true
	case []interface{}:
		out := make([]float64, 0, len(val))
		for _, item := range val {
			f, ok := item.(float64)
			if !ok {
				return nil, false
			}
			out = append(out, f)
		}
		return out, true
	}
	return nil, false
}

// --- Map helpers (props map[string]dbus.Variant) ---

// MapString extracts a string from a props map by key.
func MapString(props map[string]dbus.Variant, key string) string {
	if v, ok := props[key]; ok {
		s, _ := ExtractString(v)
		return s
	}
	return ""
}

// MapUint32OK extracts a uint32 from a props map by key, with existence check.
func MapUint32OK(props map[string]dbus.Variant, key string) (uint32, bool) {
	if v, ok := props[key]; ok {
		return ExtractUint32(v)
	}
	return 0, false
}

// Keys returns the keys of a props map (useful for debug logging).
func Keys(props map[string]dbus.Variant) []string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	return keys
}
