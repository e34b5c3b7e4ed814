package dbus

// Standard D-Bus method names
const (
	DBUS_INTERFACE = "org.freedesktop.DBus"

	DBUS_PROP_IFACE = DBUS_INTERFACE + ".Properties"

	PROP_GET = DBUS_PROP_IFACE + ".Get"
)

// Object path rules: elements are non-empty and only [A-Za-z0-9_].
const (
	PATH_SEPARATOR = "/"
	PATH_ELEMENT   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_"
)
