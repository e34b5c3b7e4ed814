package dbus

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
)

func TestIsPathElement(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"odio_1_abc", true},
		{"ABC123", true},
		{"", false},
		{"with-dash", false},
		{"with/slash", false},
		{"with.dot", false},
		{"spa ce", false},
		{"é", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsPathElement(tt.input); got != tt.want {
				t.Errorf("IsPathElement(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestEscapeUniqueName(t *testing.T) {
	if got := EscapeUniqueName(":1.42"); got != "1_42" {
		t.Errorf("EscapeUniqueName(:1.42) = %q, want 1_42", got)
	}
	if got := EscapeUniqueName("1.2.3"); got != "1_2_3" {
		t.Errorf("EscapeUniqueName(1.2.3) = %q, want 1_2_3", got)
	}
}

// --- Tests for ParseResponse ---

func TestParseResponse_Valid(t *testing.T) {
	sig := &dbus.Signal{
		Body: []interface{}{uint32(1), map[string]dbus.Variant{"k": dbus.MakeVariant("v")}},
	}
	code, results, err := ParseResponse(sig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != 1 {
		t.Errorf("code = %d, want 1", code)
	}
	if MapString(results, "k") != "v" {
		t.Errorf("results[k] = %q, want v", MapString(results, "k"))
	}
}

func TestParseResponse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		sig  *dbus.Signal
	}{
		{"nil signal", nil},
		{"short body", &dbus.Signal{Body: []interface{}{uint32(0)}}},
		{"bad code", &dbus.Signal{Body: []interface{}{"0", map[string]dbus.Variant{}}}},
		{"bad results", &dbus.Signal{Body: []interface{}{uint32(0), "nope"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseResponse(tt.sig)
			var sigErr *SignalError
			if !errors.As(err, &sigErr) {
				t.Errorf("expected SignalError, got %T: %v", err, err)
			}
		})
	}
}

// --- Tests for Variant helpers ---

func TestExtractObjectPath(t *testing.T) {
	if p, ok := ExtractObjectPath(dbus.MakeVariant(dbus.ObjectPath("/session/abc"))); !ok || p != "/session/abc" {
		t.Errorf("ObjectPath variant: got %q, %v", p, ok)
	}
	if p, ok := ExtractObjectPath(dbus.MakeVariant("/session/abc")); !ok || p != "/session/abc" {
		t.Errorf("string variant: got %q, %v", p, ok)
	}
	if _, ok := ExtractObjectPath(dbus.MakeVariant("not a path")); ok {
		t.Error("invalid path should not be accepted")
	}
	if _, ok := ExtractObjectPath(dbus.MakeVariant(uint32(3))); ok {
		t.Error("uint32 should not be accepted")
	}
}

func TestExtractFloat64Slice(t *testing.T) {
	got, ok := ExtractFloat64Slice(dbus.MakeVariant([]interface{}{0.1, 0.2, 0.3}))
	if !ok || len(got) != 3 || got[2] != 0.3 {
		t.Errorf("struct variant: got %v, %v", got, ok)
	}
	if _, ok := ExtractFloat64Slice(dbus.MakeVariant([]interface{}{0.1, "x"})); ok {
		t.Error("mixed struct should not be accepted")
	}
}

func TestMapUint32OK(t *testing.T) {
	props := map[string]dbus.Variant{"devices": dbus.MakeVariant(uint32(3))}
	if v, ok := MapUint32OK(props, "devices"); !ok || v != 3 {
		t.Errorf("MapUint32OK = %d, %v", v, ok)
	}
	if _, ok := MapUint32OK(props, "missing"); ok {
		t.Error("missing key should report !ok")
	}
}
