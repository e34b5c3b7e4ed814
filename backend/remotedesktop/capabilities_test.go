package remotedesktop

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Tests for CapabilitySet ---

func TestCapabilitySet_Bits(t *testing.T) {
	assert.Equal(t, uint32(1), NewCapabilitySet(Keyboard).Bits())
	assert.Equal(t, uint32(2), NewCapabilitySet(Pointer).Bits())
	assert.Equal(t, uint32(4), NewCapabilitySet(Touchscreen).Bits())
	assert.Equal(t, uint32(7), AllDevices.Bits())
	assert.True(t, CapabilitySet{}.IsEmpty())
}

func TestCapabilitySet_FromBitsDropsUnknown(t *testing.T) {
	s := CapabilitySetFromBits(0xff)
	assert.Equal(t, AllDevices, s)
	assert.True(t, CapabilitySetFromBits(8).IsEmpty())
}

func TestCapabilitySet_Algebra(t *testing.T) {
	kp := NewCapabilitySet(Keyboard, Pointer)
	pt := NewCapabilitySet(Pointer, Touchscreen)

	assert.Equal(t, AllDevices, kp.Union(pt))
	assert.Equal(t, NewCapabilitySet(Pointer), kp.Intersect(pt))
	assert.Equal(t, NewCapabilitySet(Keyboard), kp.Difference(pt))
	assert.True(t, NewCapabilitySet(Pointer).IsSubsetOf(kp))
	assert.False(t, pt.IsSubsetOf(kp))
	assert.True(t, CapabilitySet{}.IsSubsetOf(CapabilitySet{}))
	assert.True(t, kp.Has(Keyboard))
	assert.False(t, kp.Has(Touchscreen))
	assert.False(t, kp.Has(0))
}

func TestCapabilitySet_SubsetExhaustive(t *testing.T) {
	for a := uint32(0); a < 8; a++ {
		for b := uint32(0); b < 8; b++ {
			sa, sb := CapabilitySetFromBits(a), CapabilitySetFromBits(b)
			assert.Equal(t, a&b == a, sa.IsSubsetOf(sb), "%s ⊆ %s", sa, sb)
			assert.True(t, sa.Intersect(sb).IsSubsetOf(sa))
		}
	}
}

func TestCapabilitySet_String(t *testing.T) {
	assert.Equal(t, "{}", CapabilitySet{}.String())
	assert.Equal(t, "{keyboard|pointer}", NewCapabilitySet(Pointer, Keyboard).String())
	assert.Equal(t, []string{"keyboard", "pointer", "touchscreen"}, AllDevices.Names())
}

func TestParseCapabilitySet(t *testing.T) {
	s, err := ParseCapabilitySet([]string{"Pointer", " keyboard"})
	require.NoError(t, err)
	assert.Equal(t, NewCapabilitySet(Keyboard, Pointer), s)

	s, err = ParseCapabilitySet(nil)
	require.NoError(t, err)
	assert.True(t, s.IsEmpty())

	_, err = ParseCapabilitySet([]string{"keyboard", "mouse"})
	assert.Error(t, err)
}

func TestCapabilitySet_JSON(t *testing.T) {
	data, err := json.Marshal(NewCapabilitySet(Touchscreen, Keyboard))
	require.NoError(t, err)
	assert.JSONEq(t, `["keyboard","touchscreen"]`, string(data))

	data, err = json.Marshal(CapabilitySet{})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))

	var s CapabilitySet
	require.NoError(t, json.Unmarshal([]byte(`["pointer"]`), &s))
	assert.Equal(t, NewCapabilitySet(Pointer), s)
	assert.Error(t, json.Unmarshal([]byte(`["joystick"]`), &s))
}

// --- Tests for enums ---

func TestParseKeyState(t *testing.T) {
	st, err := ParseKeyState("Pressed")
	require.NoError(t, err)
	assert.Equal(t, Pressed, st)
	assert.Equal(t, uint32(1), uint32(Pressed))
	assert.Equal(t, uint32(0), uint32(Released))
	_, err = ParseKeyState("down")
	assert.Error(t, err)
}

func TestParseAxis(t *testing.T) {
	a, err := ParseAxis("horizontal")
	require.NoError(t, err)
	assert.Equal(t, AxisHorizontal, a)
	_, err = ParseAxis("diagonal")
	assert.Error(t, err)
}

func TestParsePersistMode(t *testing.T) {
	tests := map[string]PersistMode{
		"":          PersistNone,
		"none":      PersistNone,
		"transient": PersistTransient,
		"PERMANENT": PersistPermanent,
	}
	for in, want := range tests {
		got, err := ParsePersistMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParsePersistMode("forever")
	assert.Error(t, err)
}

func TestStateText(t *testing.T) {
	for state, name := range stateNames {
		text, err := state.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, name, string(text))

		var back State
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, state, back)
	}
	var s State
	assert.Error(t, s.UnmarshalText([]byte("paused")))
}

func TestErrorMessages(t *testing.T) {
	err := &InvalidStateError{Op: "start", State: StateCreated, Required: []State{StateDevicesSelected}}
	assert.Equal(t, "start: invalid state created (requires devices_selected)", err.Error())

	err = &InvalidStateError{Op: "select_devices", State: StateUnopened, Required: []State{StateCreated}, InFlight: "create"}
	assert.Contains(t, err.Error(), "create still in progress")

	denied := &CapabilityDeniedError{Op: "notify_touch_down", Requested: NewCapabilitySet(Touchscreen), Granted: NewCapabilitySet(Pointer)}
	assert.Equal(t, "notify_touch_down: capability denied: {touchscreen} not in granted {pointer}", denied.Error())
}
