package remotedesktop

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b0bbywan/go-odio-portal/backend/portal"
)

type emitter struct {
	name   string
	kind   DeviceType
	method string
	send   func(Input) error
	args   []interface{}
}

var emitters = []emitter{
	{"keycode", Keyboard, METHOD_NOTIFY_KEYBOARD_KEYCODE,
		func(in Input) error { return in.NotifyKeyboardKeycode(30, Pressed) },
		[]interface{}{int32(30), uint32(1)}},
	{"keysym", Keyboard, METHOD_NOTIFY_KEYBOARD_KEYSYM,
		func(in Input) error { return in.NotifyKeyboardKeysym(0xff0d, Released) },
		[]interface{}{int32(0xff0d), uint32(0)}},
	{"motion", Pointer, METHOD_NOTIFY_POINTER_MOTION,
		func(in Input) error { return in.NotifyPointerMotion(1.5, -2) },
		[]interface{}{1.5, -2.0}},
	{"absolute", Pointer, METHOD_NOTIFY_POINTER_MOTION_ABSOLUTE,
		func(in Input) error { return in.NotifyPointerMotionAbsolute(7, 100, 200) },
		[]interface{}{uint32(7), 100.0, 200.0}},
	{"button", Pointer, METHOD_NOTIFY_POINTER_BUTTON,
		func(in Input) error { return in.NotifyPointerButton(272, Pressed) },
		[]interface{}{int32(272), uint32(1)}},
	{"axis", Pointer, METHOD_NOTIFY_POINTER_AXIS,
		func(in Input) error { return in.NotifyPointerAxis(0, 10) },
		[]interface{}{0.0, 10.0}},
	{"axis_discrete", Pointer, METHOD_NOTIFY_POINTER_AXIS_DISCRETE,
		func(in Input) error { return in.NotifyPointerAxisDiscrete(AxisHorizontal, -3) },
		[]interface{}{uint32(1), int32(-3)}},
	{"touch_down", Touchscreen, METHOD_NOTIFY_TOUCH_DOWN,
		func(in Input) error { return in.NotifyTouchDown(7, 0, 10, 20) },
		[]interface{}{uint32(7), uint32(0), 10.0, 20.0}},
	{"touch_motion", Touchscreen, METHOD_NOTIFY_TOUCH_MOTION,
		func(in Input) error { return in.NotifyTouchMotion(7, 0, 11, 21) },
		[]interface{}{uint32(7), uint32(0), 11.0, 21.0}},
	{"touch_up", Touchscreen, METHOD_NOTIFY_TOUCH_UP,
		func(in Input) error { return in.NotifyTouchUp(0) },
		[]interface{}{uint32(0)}},
}

func TestInput_WireFormat(t *testing.T) {
	b := newBroker(t)
	b.grant(AllDevices)
	p := newTestPortal(t, b)
	s := openSession(t, p, AllDevices)

	for _, e := range emitters {
		require.NoError(t, e.send(s), e.name)
	}

	notes := b.Notifications()
	require.Len(t, notes, len(emitters))
	for i, e := range emitters {
		n := notes[i]
		assert.Equal(t, e.method, n.Method, e.name)
		require.GreaterOrEqual(t, len(n.Args), 2, e.name)
		assert.Equal(t, s.Handle(), n.Args[0], e.name)
		assert.Equal(t, map[string]dbus.Variant{}, n.Args[1], "%s: options must be empty", e.name)
		assert.Equal(t, e.args, n.Args[2:], e.name)
	}
}

func TestInput_DeniedForEveryUngrantedKind(t *testing.T) {
	for grant := uint32(0); grant <= AllDevices.Bits(); grant++ {
		granted := CapabilitySetFromBits(grant)
		b := newBroker(t)
		b.grant(granted)
		p := newTestPortal(t, b)
		s := openSession(t, p, AllDevices)

		for _, e := range emitters {
			err := e.send(s)
			if granted.Has(e.kind) {
				assert.NoError(t, err, "%s with grant %s", e.name, granted)
				continue
			}
			var denied *CapabilityDeniedError
			if assert.ErrorAs(t, err, &denied, "%s with grant %s", e.name, granted) {
				assert.Equal(t, NewCapabilitySet(e.kind), denied.Requested)
				assert.Equal(t, granted, denied.Granted)
			}
		}
	}
}

func TestInput_RequiresActive(t *testing.T) {
	b := newBroker(t)
	p := newTestPortal(t, b)

	s, err := p.CreateSession(t.Context(), CreateOptions{})
	require.NoError(t, err)

	for _, e := range emitters {
		var stateErr *InvalidStateError
		require.ErrorAs(t, e.send(s), &stateErr, e.name)
		assert.Equal(t, StateCreated, stateErr.State)
		assert.Equal(t, []State{StateActive}, stateErr.Required)
	}
	assert.Empty(t, b.Notifications())
}

func TestInput_OrderPreserved(t *testing.T) {
	b := newBroker(t)
	p := newTestPortal(t, b)
	s := openSession(t, p, NewCapabilitySet(Pointer))

	for i := 0; i < 50; i++ {
		require.NoError(t, s.NotifyPointerMotion(float64(i), 0))
	}
	notes := b.Notifications()
	require.Len(t, notes, 50)
	for i, n := range notes {
		assert.Equal(t, float64(i), n.Args[2])
	}
}

func TestInput_TransportError(t *testing.T) {
	b := newBroker(t)
	p := newTestPortal(t, b)
	s := openSession(t, p, NewCapabilitySet(Pointer))

	b.NotifyErr = errors.New("connection reset")
	err := s.NotifyPointerButton(272, Pressed)
	var trErr *portal.TransportError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, StateActive, s.State(), "a failed notification does not end the session")
}
