package remotedesktop

import "github.com/b0bbywan/go-odio-portal/logger"

// Input emits input events into an active session.
type Input interface {
	NotifyKeyboardKeycode(keycode int32, state KeyState) error
	NotifyKeyboardKeysym(keysym int32, state KeyState) error
	NotifyPointerMotion(dx, dy float64) error
	NotifyPointerMotionAbsolute(stream uint32, x, y float64) error
	NotifyPointerButton(button int32, state KeyState) error
	NotifyPointerAxis(dx, dy float64) error
	NotifyPointerAxisDiscrete(axis Axis, steps int32) error
	NotifyTouchDown(stream, slot uint32, x, y float64) error
	NotifyTouchMotion(stream, slot uint32, x, y float64) error
	NotifyTouchUp(slot uint32) error
}

var _ Input = (*Session)(nil)

// notify checks the session is active and kind was granted, then sends method
// without waiting for a reply.
func (s *Session) notify(op string, kind DeviceType, method string, args ...interface{}) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.mu.Lock()
	state, granted, handle := s.state, s.granted, s.handle
	s.mu.Unlock()

	if state != StateActive {
		return &InvalidStateError{Op: op, State: state, Required: []State{StateActive}}
	}
	if !granted.Has(kind) {
		return &CapabilityDeniedError{Op: op, Requested: NewCapabilitySet(kind), Granted: granted}
	}

	params := append([]interface{}{handle, emptyOptions()}, args...)
	if err := s.portal.transport().Notify(method, params...); err != nil {
		logger.Warn("[remotedesktop] %s failed: %v", op, err)
		return err
	}
	return nil
}

// NotifyKeyboardKeycode sends an evdev keycode press or release.
func (s *Session) NotifyKeyboardKeycode(keycode int32, state KeyState) error {
	return s.notify("notify_keyboard_keycode", Keyboard, METHOD_NOTIFY_KEYBOARD_KEYCODE, keycode, uint32(state))
}

// NotifyKeyboardKeysym sends an X keysym press or release.
func (s *Session) NotifyKeyboardKeysym(keysym int32, state KeyState) error {
	return s.notify("notify_keyboard_keysym", Keyboard, METHOD_NOTIFY_KEYBOARD_KEYSYM, keysym, uint32(state))
}

// NotifyPointerMotion moves the pointer relatively by dx, dy.
func (s *Session) NotifyPointerMotion(dx, dy float64) error {
	return s.notify("notify_pointer_motion", Pointer, METHOD_NOTIFY_POINTER_MOTION, dx, dy)
}

// NotifyPointerMotionAbsolute moves the pointer to x, y in the coordinate space of stream.
func (s *Session) NotifyPointerMotionAbsolute(stream uint32, x, y float64) error {
	return s.notify("notify_pointer_motion_absolute", Pointer, METHOD_NOTIFY_POINTER_MOTION_ABSOLUTE, stream, x, y)
}

// NotifyPointerButton presses or releases an evdev button code.
func (s *Session) NotifyPointerButton(button int32, state KeyState) error {
	return s.notify("notify_pointer_button", Pointer, METHOD_NOTIFY_POINTER_BUTTON, button, uint32(state))
}

// NotifyPointerAxis sends a smooth scroll of dx, dy.
func (s *Session) NotifyPointerAxis(dx, dy float64) error {
	return s.notify("notify_pointer_axis", Pointer, METHOD_NOTIFY_POINTER_AXIS, dx, dy)
}

// NotifyPointerAxisDiscrete scrolls by a number of wheel steps.
func (s *Session) NotifyPointerAxisDiscrete(axis Axis, steps int32) error {
	return s.notify("notify_pointer_axis_discrete", Pointer, METHOD_NOTIFY_POINTER_AXIS_DISCRETE, uint32(axis), steps)
}

// NotifyTouchDown puts a touch point in slot at x, y of stream.
func (s *Session) NotifyTouchDown(stream, slot uint32, x, y float64) error {
	return s.notify("notify_touch_down", Touchscreen, METHOD_NOTIFY_TOUCH_DOWN, stream, slot, x, y)
}

// NotifyTouchMotion moves the touch point in slot to x, y of stream.
func (s *Session) NotifyTouchMotion(stream, slot uint32, x, y float64) error {
	return s.notify("notify_touch_motion", Touchscreen, METHOD_NOTIFY_TOUCH_MOTION, stream, slot, x, y)
}

// NotifyTouchUp lifts the touch point in slot. Unknown slots are rejected by the broker.
func (s *Session) NotifyTouchUp(slot uint32) error {
	return s.notify("notify_touch_up", Touchscreen, METHOD_NOTIFY_TOUCH_UP, slot)
}
