package portal

import (
	"context"
	"sync"

	"github.com/godbus/dbus/v5"

	idbus "github.com/b0bbywan/go-odio-portal/backend/internal/dbus"
	"github.com/b0bbywan/go-odio-portal/logger"
)

// Transport is the boundary with the broker: method calls on the portal object,
// signal subscriptions and property reads.
type Transport interface {
	// UniqueName is the caller's unique bus name, used to predict request paths.
	UniqueName() string
	// Call invokes a correlated method and returns the request object path.
	Call(ctx context.Context, method string, args ...interface{}) (dbus.ObjectPath, error)
	// Notify invokes a method without waiting for any reply.
	Notify(method string, args ...interface{}) error
	// CloseObject asks the broker to close a request or session object.
	CloseObject(path dbus.ObjectPath, iface string) error
	Property(iface, name string) (dbus.Variant, error)
	Subscribe(path dbus.ObjectPath, iface, member string) error
	Unsubscribe(path dbus.ObjectPath, iface, member string) error
	Signals() <-chan *dbus.Signal
	Close() error
}

// BusTransport implements Transport on a D-Bus connection.
type BusTransport struct {
	conn    *dbus.Conn
	portal  dbus.BusObject
	signals chan *dbus.Signal
	once    sync.Once
}

// ConnectSessionBus opens a private session bus connection for the portal.
func ConnectSessionBus() (*BusTransport, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, err
	}
	return NewBusTransport(conn), nil
}

// NewBusTransport wraps an established connection.
func NewBusTransport(conn *dbus.Conn) *BusTransport {
	t := &BusTransport{
		conn:    conn,
		portal:  conn.Object(PORTAL_DEST, PORTAL_PATH),
		signals: make(chan *dbus.Signal, 32),
	}
	conn.Signal(t.signals)
	return t
}

func (t *BusTransport) UniqueName() string {
	names := t.conn.Names()
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

func (t *BusTransport) Call(ctx context.Context, method string, args ...interface{}) (dbus.ObjectPath, error) {
	var path dbus.ObjectPath
	call := idbus.CallWithContext(ctx, t.portal, method, args...)
	if call.Err != nil {
		return "", &TransportError{Method: method, Err: call.Err}
	}
	if err := call.Store(&path); err != nil {
		return "", &TransportError{Method: method, Err: err}
	}
	return path, nil
}

func (t *BusTransport) Notify(method string, args ...interface{}) error {
	if err := idbus.Send(t.portal, method, args...); err != nil {
		return &TransportError{Method: method, Err: err}
	}
	return nil
}

func (t *BusTransport) CloseObject(path dbus.ObjectPath, iface string) error {
	method := iface + ".Close"
	if err := idbus.Send(t.conn.Object(PORTAL_DEST, path), method); err != nil {
		return &TransportError{Method: method, Err: err}
	}
	return nil
}

func (t *BusTransport) Property(iface, name string) (dbus.Variant, error) {
	v, err := idbus.GetProperty(t.portal, iface, name)
	if err != nil {
		return dbus.Variant{}, &TransportError{Method: iface + "." + name, Err: err}
	}
	return v, nil
}

func (t *BusTransport) Subscribe(path dbus.ObjectPath, iface, member string) error {
	return t.conn.AddMatchSignal(idbus.MatchSignal(path, iface, member)...)
}

func (t *BusTransport) Unsubscribe(path dbus.ObjectPath, iface, member string) error {
	return t.conn.RemoveMatchSignal(idbus.MatchSignal(path, iface, member)...)
}

func (t *BusTransport) Signals() <-chan *dbus.Signal {
	return t.signals
}

// Close detaches the signal channel and closes the connection. Safe to call twice.
func (t *BusTransport) Close() error {
	var err error
	t.once.Do(func() {
		t.conn.RemoveSignal(t.signals)
		if err = t.conn.Close(); err != nil {
			logger.Error("[portal] failed to close D-Bus connection: %v", err)
		}
	})
	return err
}
