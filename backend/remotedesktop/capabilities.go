package remotedesktop

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DeviceType is a single device kind a session can control.
type DeviceType uint32

const (
	Keyboard    DeviceType = 1
	Pointer     DeviceType = 2
	Touchscreen DeviceType = 4
)

var deviceTypes = []DeviceType{Keyboard, Pointer, Touchscreen}

var deviceNames = map[DeviceType]string{
	Keyboard:    "keyboard",
	Pointer:     "pointer",
	Touchscreen: "touchscreen",
}

func (d DeviceType) String() string {
	if name, ok := deviceNames[d]; ok {
		return name
	}
	return fmt.Sprintf("DeviceType(%d)", uint32(d))
}

// ParseDeviceType accepts "keyboard", "pointer" or "touchscreen".
func ParseDeviceType(s string) (DeviceType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d, n := range deviceNames {
		if n == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown device type %q", s)
}

// CapabilitySet is a set of device kinds. The zero value is the empty set.
type CapabilitySet struct {
	bits uint32
}

// AllDevices contains every known device kind.
var AllDevices = NewCapabilitySet(Keyboard, Pointer, Touchscreen)

// NewCapabilitySet builds a set from device kinds.
func NewCapabilitySet(kinds ...DeviceType) CapabilitySet {
	var s CapabilitySet
	for _, k := range kinds {
		s.bits |= uint32(k)
	}
	return s.known()
}

// CapabilitySetFromBits converts a broker bitmask, unknown bits are dropped.
func CapabilitySetFromBits(bits uint32) CapabilitySet {
	return CapabilitySet{bits: bits}.known()
}

// ParseCapabilitySet builds a set from device names.
func ParseCapabilitySet(names []string) (CapabilitySet, error) {
	var s CapabilitySet
	for _, name := range names {
		d, err := ParseDeviceType(name)
		if err != nil {
			return CapabilitySet{}, err
		}
		s = s.Union(NewCapabilitySet(d))
	}
	return s, nil
}

func (s CapabilitySet) known() CapabilitySet {
	return CapabilitySet{bits: s.bits & uint32(Keyboard|Pointer|Touchscreen)}
}

// Bits returns the broker bitmask.
func (s CapabilitySet) Bits() uint32 { return s.bits }

func (s CapabilitySet) Has(d DeviceType) bool { return d != 0 && s.bits&uint32(d) == uint32(d) }

func (s CapabilitySet) IsEmpty() bool { return s.bits == 0 }

func (s CapabilitySet) Union(o CapabilitySet) CapabilitySet {
	return CapabilitySet{bits: s.bits | o.bits}
}

func (s CapabilitySet) Intersect(o CapabilitySet) CapabilitySet {
	return CapabilitySet{bits: s.bits & o.bits}
}

// Difference returns the kinds in s that are not in o.
func (s CapabilitySet) Difference(o CapabilitySet) CapabilitySet {
	return CapabilitySet{bits: s.bits &^ o.bits}
}

func (s CapabilitySet) IsSubsetOf(o CapabilitySet) bool {
	return s.bits&^o.bits == 0
}

// Kinds lists the members in keyboard, pointer, touchscreen order.
func (s CapabilitySet) Kinds() []DeviceType {
	kinds := make([]DeviceType, 0, len(deviceTypes))
	for _, d := range deviceTypes {
		if s.Has(d) {
			kinds = append(kinds, d)
		}
	}
	return kinds
}

// Names lists the member names in Kinds order.
func (s CapabilitySet) Names() []string {
	names := make([]string, 0, len(deviceTypes))
	for _, d := range s.Kinds() {
		names = append(names, d.String())
	}
	return names
}

func (s CapabilitySet) String() string {
	if s.IsEmpty() {
		return "{}"
	}
	return "{" + strings.Join(s.Names(), "|") + "}"
}

func (s CapabilitySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

func (s *CapabilitySet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	parsed, err := ParseCapabilitySet(names)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
