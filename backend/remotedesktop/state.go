package remotedesktop

import "fmt"

// State is a session lifecycle state.
type State int

const (
	StateUnopened State = iota
	StateCreated
	StateDevicesSelected
	StateActive
	StateClosed
)

var stateNames = map[State]string{
	StateUnopened:        "unopened",
	StateCreated:         "created",
	StateDevicesSelected: "devices_selected",
	StateActive:          "active",
	StateClosed:          "closed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", text)
}
