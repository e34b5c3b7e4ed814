package portal

const (
	PORTAL_DEST = "org.freedesktop.portal.Desktop"
	PORTAL_PATH = "/org/freedesktop/portal/desktop"
	PORTAL_NS   = "org.freedesktop.portal"

	REQUEST_INTERFACE = PORTAL_NS + ".Request"
	SESSION_INTERFACE = PORTAL_NS + ".Session"

	REQUEST_RESPONSE_MEMBER = "Response"
	SESSION_CLOSED_MEMBER   = "Closed"

	REQUEST_RESPONSE_SIGNAL = REQUEST_INTERFACE + "." + REQUEST_RESPONSE_MEMBER
	SESSION_CLOSED_SIGNAL   = SESSION_INTERFACE + "." + SESSION_CLOSED_MEMBER

	REQUEST_PATH_PREFIX = PORTAL_PATH + "/request/"
	SESSION_PATH_PREFIX = PORTAL_PATH + "/session/"

	OPTION_HANDLE_TOKEN = "handle_token"

	tokenPrefix = "odio"
)

// ResponseCode is the numeric outcome carried by a Request.Response signal.
type ResponseCode uint32

const (
	ResponseSuccess   ResponseCode = 0
	ResponseCancelled ResponseCode = 1
	ResponseOther     ResponseCode = 2
)

func (c ResponseCode) String() string {
	switch c {
	case ResponseSuccess:
		return "success"
	case ResponseCancelled:
		return "cancelled"
	case ResponseOther:
		return "other"
	}
	return "unknown"
}
