// Package portaltest provides an in-memory portal.Transport for tests.
package portaltest

import (
	"context"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/b0bbywan/go-odio-portal/backend/portal"
)

// Call records one method invocation.
type Call struct {
	Method string
	Args   []interface{}
}

// Options returns the trailing vardict of a correlated call.
func (c Call) Options() map[string]dbus.Variant {
	if len(c.Args) == 0 {
		return nil
	}
	opts, _ := c.Args[len(c.Args)-1].(map[string]dbus.Variant)
	return opts
}

// Reply is what a Responder answers to a correlated call.
type Reply struct {
	Code    portal.ResponseCode
	Results map[string]dbus.Variant
	// Path overrides the request path returned by the call.
	Path dbus.ObjectPath
	// Err makes the call itself fail.
	Err error
	// Silent leaves the request pending: no Response is emitted.
	Silent bool
}

// Responder computes the broker's reply to a correlated call.
type Responder func(call Call) Reply

// Transport is a scripted broker.
type Transport struct {
	Name      string
	Responder Responder
	NotifyErr error

	mu       sync.Mutex
	calls    []Call
	notifies []Call
	closed   []dbus.ObjectPath
	subs     map[string]int
	props    map[string]dbus.Variant
	signals  chan *dbus.Signal
	isClosed bool
}

// New returns a transport answering every correlated call with success.
func New() *Transport {
	return &Transport{
		Name:    ":1.42",
		subs:    make(map[string]int),
		props:   make(map[string]dbus.Variant),
		signals: make(chan *dbus.Signal, 64),
	}
}

func subKey(path dbus.ObjectPath, member string) string {
	return string(path) + "#" + member
}

func (t *Transport) UniqueName() string { return t.Name }

func (t *Transport) Call(_ context.Context, method string, args ...interface{}) (dbus.ObjectPath, error) {
	call := Call{Method: method, Args: args}
	t.mu.Lock()
	t.calls = append(t.calls, call)
	responder := t.Responder
	t.mu.Unlock()

	var reply Reply
	if responder != nil {
		reply = responder(call)
	}
	if reply.Err != nil {
		return "", reply.Err
	}

	path := reply.Path
	if path == "" {
		tok, _ := call.Options()[portal.OPTION_HANDLE_TOKEN].Value().(string)
		path = portal.RequestPath(t.Name, portal.HandleToken(tok))
	}
	if !reply.Silent {
		t.Respond(path, reply.Code, reply.Results)
	}
	return path, nil
}

func (t *Transport) Notify(method string, args ...interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.NotifyErr != nil {
		return &portal.TransportError{Method: method, Err: t.NotifyErr}
	}
	t.notifies = append(t.notifies, Call{Method: method, Args: args})
	return nil
}

func (t *Transport) CloseObject(path dbus.ObjectPath, _ string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = append(t.closed, path)
	return nil
}

func (t *Transport) Property(iface, name string) (dbus.Variant, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.props[iface+"."+name]
	if !ok {
		return dbus.Variant{}, &portal.TransportError{Method: iface + "." + name, Err: fmt.Errorf("no such property")}
	}
	return v, nil
}

// SetProperty defines a broker property.
func (t *Transport) SetProperty(iface, name string, value interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.props[iface+"."+name] = dbus.MakeVariant(value)
}

func (t *Transport) Subscribe(path dbus.ObjectPath, _, member string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subs[subKey(path, member)]++
	return nil
}

func (t *Transport) Unsubscribe(path dbus.ObjectPath, _, member string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := subKey(path, member)
	if t.subs[k] > 0 {
		t.subs[k]--
	}
	if t.subs[k] == 0 {
		delete(t.subs, k)
	}
	return nil
}

func (t *Transport) Signals() <-chan *dbus.Signal { return t.signals }

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.isClosed = true
	return nil
}

// Respond emits a Request.Response signal for path.
func (t *Transport) Respond(path dbus.ObjectPath, code portal.ResponseCode, results map[string]dbus.Variant) {
	if results == nil {
		results = map[string]dbus.Variant{}
	}
	t.signals <- &dbus.Signal{
		Path: path,
		Name: portal.REQUEST_RESPONSE_SIGNAL,
		Body: []interface{}{uint32(code), results},
	}
}

// EmitClosed emits a Session.Closed signal for path.
func (t *Transport) EmitClosed(path dbus.ObjectPath) {
	t.signals <- &dbus.Signal{
		Path: path,
		Name: portal.SESSION_CLOSED_SIGNAL,
		Body: []interface{}{map[string]dbus.Variant{}},
	}
}

// Calls returns the correlated calls issued so far.
func (t *Transport) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Call(nil), t.calls...)
}

// Notifications returns the fire-and-forget calls issued so far.
func (t *Transport) Notifications() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Call(nil), t.notifies...)
}

// Closed returns the object paths the client asked to close.
func (t *Transport) Closed() []dbus.ObjectPath {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]dbus.ObjectPath(nil), t.closed...)
}

// Subscribed reports whether a match rule for member on path is active.
func (t *Transport) Subscribed(path dbus.ObjectPath, member string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.subs[subKey(path, member)] > 0
}

// IsClosed reports whether Close was called.
func (t *Transport) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isClosed
}

var _ portal.Transport = (*Transport)(nil)
