package portal

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"

	idbus "github.com/b0bbywan/go-odio-portal/backend/internal/dbus"
)

// HandleToken is the last element of a request or session object path.
type HandleToken string

var tokenSeq atomic.Uint64

// NewHandleToken returns a token unique within the process.
// The counter guarantees uniqueness, the random suffix keeps tokens unpredictable.
func NewHandleToken() HandleToken {
	n := tokenSeq.Add(1)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return HandleToken(fmt.Sprintf("%s%d_%s", tokenPrefix, n, suffix))
}

// ParseHandleToken validates a caller-chosen token.
func ParseHandleToken(s string) (HandleToken, error) {
	tok := HandleToken(s)
	if err := tok.Validate(); err != nil {
		return "", err
	}
	return tok, nil
}

// Validate checks the token can be used as a single object path element.
func (t HandleToken) Validate() error {
	if t == "" {
		return &InvalidTokenError{Token: string(t), Reason: "empty token"}
	}
	if !idbus.IsPathElement(string(t)) {
		return &InvalidTokenError{Token: string(t), Reason: "only [A-Za-z0-9_] allowed"}
	}
	return nil
}

// OrNew returns t, or a fresh token when t is empty.
func (t HandleToken) OrNew() HandleToken {
	if t == "" {
		return NewHandleToken()
	}
	return t
}

func (t HandleToken) String() string { return string(t) }

// RequestPath predicts the request object path the broker derives from sender and token.
func RequestPath(sender string, token HandleToken) dbus.ObjectPath {
	return dbus.ObjectPath(REQUEST_PATH_PREFIX + idbus.EscapeUniqueName(sender) + "/" + string(token))
}

// SessionPath predicts the session object path the broker derives from sender and token.
func SessionPath(sender string, token HandleToken) dbus.ObjectPath {
	return dbus.ObjectPath(SESSION_PATH_PREFIX + idbus.EscapeUniqueName(sender) + "/" + string(token))
}
