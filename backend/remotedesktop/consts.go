package remotedesktop

import "github.com/b0bbywan/go-odio-portal/backend/portal"

const (
	REMOTE_DESKTOP_INTERFACE = portal.PORTAL_NS + ".RemoteDesktop"

	METHOD_CREATE_SESSION = REMOTE_DESKTOP_INTERFACE + ".CreateSession"
	METHOD_SELECT_DEVICES = REMOTE_DESKTOP_INTERFACE + ".SelectDevices"
	METHOD_START          = REMOTE_DESKTOP_INTERFACE + ".Start"

	METHOD_NOTIFY_POINTER_MOTION          = REMOTE_DESKTOP_INTERFACE + ".NotifyPointerMotion"
	METHOD_NOTIFY_POINTER_MOTION_ABSOLUTE = REMOTE_DESKTOP_INTERFACE + ".NotifyPointerMotionAbsolute"
	METHOD_NOTIFY_POINTER_BUTTON          = REMOTE_DESKTOP_INTERFACE + ".NotifyPointerButton"
	METHOD_NOTIFY_POINTER_AXIS            = REMOTE_DESKTOP_INTERFACE + ".NotifyPointerAxis"
	METHOD_NOTIFY_POINTER_AXIS_DISCRETE   = REMOTE_DESKTOP_INTERFACE + ".NotifyPointerAxisDiscrete"
	METHOD_NOTIFY_KEYBOARD_KEYCODE        = REMOTE_DESKTOP_INTERFACE + ".NotifyKeyboardKeycode"
	METHOD_NOTIFY_KEYBOARD_KEYSYM         = REMOTE_DESKTOP_INTERFACE + ".NotifyKeyboardKeysym"
	METHOD_NOTIFY_TOUCH_DOWN              = REMOTE_DESKTOP_INTERFACE + ".NotifyTouchDown"
	METHOD_NOTIFY_TOUCH_MOTION            = REMOTE_DESKTOP_INTERFACE + ".NotifyTouchMotion"
	METHOD_NOTIFY_TOUCH_UP                = REMOTE_DESKTOP_INTERFACE + ".NotifyTouchUp"

	PROP_AVAILABLE_DEVICE_TYPES = "AvailableDeviceTypes"
	PROP_VERSION                = "version"

	OPTION_SESSION_HANDLE_TOKEN = "session_handle_token"
	OPTION_TYPES                = "types"
	OPTION_PERSIST_MODE         = "persist_mode"
	OPTION_RESTORE_TOKEN        = "restore_token"

	RESULT_SESSION_HANDLE = "session_handle"
	RESULT_DEVICES        = "devices"
	RESULT_RESTORE_TOKEN  = "restore_token"

	// persist_mode and restore_token exist from interface version 2.
	persistMinVersion = 2
)
