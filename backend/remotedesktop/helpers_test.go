package remotedesktop

import (
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/b0bbywan/go-odio-portal/backend/portal"
	"github.com/b0bbywan/go-odio-portal/backend/portal/portaltest"
)

// broker scripts a RemoteDesktop implementation on top of portaltest.
type broker struct {
	*portaltest.Transport

	mu           sync.Mutex
	granted      CapabilitySet
	restoreToken string
	codes        map[string]portal.ResponseCode
	silent       map[string]bool
}

// newBareBroker returns a broker exposing no properties.
func newBareBroker(t *testing.T) *broker {
	t.Helper()
	b := &broker{
		Transport: portaltest.New(),
		granted:   NewCapabilitySet(Keyboard, Pointer),
		codes:     make(map[string]portal.ResponseCode),
		silent:    make(map[string]bool),
	}
	b.Responder = b.respond
	return b
}

// newBroker returns a version 2 broker supporting every device kind.
func newBroker(t *testing.T) *broker {
	t.Helper()
	b := newBareBroker(t)
	b.SetProperty(REMOTE_DESKTOP_INTERFACE, PROP_AVAILABLE_DEVICE_TYPES, AllDevices.Bits())
	b.SetProperty(REMOTE_DESKTOP_INTERFACE, PROP_VERSION, uint32(2))
	return b
}

func (b *broker) grant(s CapabilitySet) {
	b.mu.Lock()
	b.granted = s
	b.mu.Unlock()
}

func (b *broker) issueRestoreToken(tok string) {
	b.mu.Lock()
	b.restoreToken = tok
	b.mu.Unlock()
}

func (b *broker) answer(method string, code portal.ResponseCode) {
	b.mu.Lock()
	b.codes[method] = code
	b.mu.Unlock()
}

func (b *broker) hold(method string) {
	b.mu.Lock()
	b.silent[method] = true
	b.mu.Unlock()
}

func (b *broker) respond(call portaltest.Call) portaltest.Reply {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.silent[call.Method] {
		return portaltest.Reply{Silent: true}
	}
	if code, ok := b.codes[call.Method]; ok && code != portal.ResponseSuccess {
		return portaltest.Reply{Code: code}
	}

	switch call.Method {
	case METHOD_CREATE_SESSION:
		tok, _ := call.Options()[OPTION_SESSION_HANDLE_TOKEN].Value().(string)
		handle := portal.SessionPath(b.Name, portal.HandleToken(tok))
		return portaltest.Reply{Results: map[string]dbus.Variant{
			RESULT_SESSION_HANDLE: dbus.MakeVariant(string(handle)),
		}}
	case METHOD_START:
		results := map[string]dbus.Variant{
			RESULT_DEVICES: dbus.MakeVariant(b.granted.Bits()),
		}
		if b.restoreToken != "" {
			results[RESULT_RESTORE_TOKEN] = dbus.MakeVariant(b.restoreToken)
		}
		return portaltest.Reply{Results: results}
	}
	return portaltest.Reply{}
}

// methods lists the correlated methods called so far.
func (b *broker) methods() []string {
	var out []string
	for _, c := range b.Calls() {
		out = append(out, c.Method)
	}
	return out
}

func newTestPortal(t *testing.T, b *broker) *Portal {
	t.Helper()
	c := portal.NewCorrelator(b, 2*time.Second)
	t.Cleanup(c.Close)
	return NewPortal(c, 0)
}
