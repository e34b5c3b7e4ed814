package screenshot

import "github.com/b0bbywan/go-odio-portal/backend/portal"

const (
	SCREENSHOT_INTERFACE = portal.PORTAL_NS + ".Screenshot"

	METHOD_SCREENSHOT = SCREENSHOT_INTERFACE + ".Screenshot"
	METHOD_PICK_COLOR = SCREENSHOT_INTERFACE + ".PickColor"

	PROP_VERSION = "version"

	OPTION_MODAL       = "modal"
	OPTION_INTERACTIVE = "interactive"

	RESULT_URI   = "uri"
	RESULT_COLOR = "color"
)
