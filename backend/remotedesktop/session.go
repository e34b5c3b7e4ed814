package remotedesktop

import (
	"context"
	"errors"
	"sync"

	"github.com/godbus/dbus/v5"

	idbus "github.com/b0bbywan/go-odio-portal/backend/internal/dbus"
	"github.com/b0bbywan/go-odio-portal/backend/portal"
	"github.com/b0bbywan/go-odio-portal/logger"
)

// Session is a remote desktop session. Setup calls must run in the order
// Create, SelectDevices, Start; Close is valid at any time.
type Session struct {
	portal *Portal

	mu           sync.Mutex
	state        State
	busy         string
	inflight     *portal.Request
	handle       dbus.ObjectPath
	requested    CapabilitySet
	granted      CapabilitySet
	restoreToken string
	err          error
	unwatch      func()
	observers    []func(SessionInfo)

	// serializes input notifications so the wire order matches the call order
	sendMu sync.Mutex
}

// SessionInfo is a snapshot of a session.
type SessionInfo struct {
	State     State         `json:"state"`
	Handle    string        `json:"session,omitempty"`
	Requested CapabilitySet `json:"requested"`
	Granted   CapabilitySet `json:"granted"`
	Error     string        `json:"error,omitempty"`
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Handle returns the session object path, empty until Create succeeds.
func (s *Session) Handle() dbus.ObjectPath {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

func (s *Session) Requested() CapabilitySet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requested
}

// Granted returns the devices the user allowed. It is fixed once Start succeeds.
func (s *Session) Granted() CapabilitySet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.granted
}

// RestoreToken returns the token the broker issued on Start, if any.
func (s *Session) RestoreToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restoreToken
}

// Err returns the error that closed the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infoLocked()
}

func (s *Session) infoLocked() SessionInfo {
	info := SessionInfo{
		State:     s.state,
		Handle:    string(s.handle),
		Requested: s.requested,
		Granted:   s.granted,
	}
	if s.err != nil {
		info.Error = s.err.Error()
	}
	return info
}

// OnChange registers fn to be called after every state change.
func (s *Session) OnChange(fn func(SessionInfo)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Session) emit(info SessionInfo) {
	s.mu.Lock()
	observers := make([]func(SessionInfo), len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()
	for _, fn := range observers {
		fn(info)
	}
}

// Create issues CreateSession. Unopened -> Created.
func (s *Session) Create(ctx context.Context, opts CreateOptions) error {
	const op = "create"
	if err := s.begin(op, StateUnopened); err != nil {
		return err
	}
	if err := opts.validate(); err != nil {
		s.abort()
		return err
	}

	sessionToken := opts.SessionHandleToken.OrNew()
	results, err := s.submit(ctx, op, METHOD_CREATE_SESSION, opts.HandleToken, opts.vardict(sessionToken))
	if err != nil {
		return s.failOrAbort(op, err)
	}

	handle, ok := idbus.ExtractObjectPath(results[RESULT_SESSION_HANDLE])
	if !ok {
		return s.fail(op, &portal.TransportError{Method: METHOD_CREATE_SESSION, Err: errMissingSessionHandle})
	}

	unwatch, err := s.portal.requests.Watch(handle, s.onBrokerClosed)
	if err != nil {
		logger.Warn("[remotedesktop] cannot watch session %s: %v", handle, err)
	}

	return s.commit(op, StateUnopened, func() {
		s.handle = handle
		s.unwatch = unwatch
		s.state = StateCreated
	}, func() {
		if unwatch != nil {
			unwatch()
		}
		s.closeRemote(handle)
	})
}

// SelectDevices issues SelectDevices with the requested kinds. Created -> DevicesSelected.
// The request is checked against AvailableDeviceTypes before contacting the broker.
func (s *Session) SelectDevices(ctx context.Context, opts SelectDevicesOptions) error {
	const op = "select_devices"
	if err := s.begin(op, StateCreated); err != nil {
		return err
	}
	if err := opts.validate(); err != nil {
		s.abort()
		return err
	}
	requested, err := s.resolveRequest(op, opts.Types)
	if err != nil {
		s.abort()
		return err
	}

	version, err := s.portal.Version()
	if err != nil {
		logger.Debug("[remotedesktop] cannot read portal version, assuming 1: %v", err)
		version = 1
	}

	if _, err := s.submit(ctx, op, METHOD_SELECT_DEVICES, opts.HandleToken, opts.vardict(requested, version), s.Handle()); err != nil {
		return s.failOrAbort(op, err)
	}

	return s.commit(op, StateCreated, func() {
		s.requested = requested
		s.state = StateDevicesSelected
	}, nil)
}

func (s *Session) resolveRequest(op string, types CapabilitySet) (CapabilitySet, error) {
	available, err := s.portal.AvailableDeviceTypes()
	if err != nil {
		logger.Warn("[remotedesktop] cannot read available device types: %v", err)
		if types.IsEmpty() {
			return AllDevices, nil
		}
		return types, nil
	}
	if types.IsEmpty() {
		types = available
	}
	if types.IsEmpty() || !types.IsSubsetOf(available) {
		denied := types.Difference(available)
		if denied.IsEmpty() {
			denied = AllDevices
		}
		return CapabilitySet{}, &CapabilityDeniedError{Op: op, Requested: denied, Granted: available}
	}
	return types, nil
}

// Start presents the consent dialog and returns the granted devices.
// DevicesSelected -> Active. An empty grant still activates the session.
func (s *Session) Start(ctx context.Context, parent portal.WindowIdentifier, opts StartOptions) (CapabilitySet, error) {
	const op = "start"
	if err := s.begin(op, StateDevicesSelected); err != nil {
		return CapabilitySet{}, err
	}
	if err := opts.validate(); err != nil {
		s.abort()
		return CapabilitySet{}, err
	}

	requested := s.Requested()
	results, err := s.submit(ctx, op, METHOD_START, opts.HandleToken, map[string]dbus.Variant{}, s.Handle(), string(parent))
	if err != nil {
		return CapabilitySet{}, s.failOrAbort(op, err)
	}

	bits, _ := idbus.MapUint32OK(results, RESULT_DEVICES)
	granted := CapabilitySetFromBits(bits)
	if !granted.IsSubsetOf(requested) {
		logger.Warn("[remotedesktop] broker granted %s beyond requested %s, ignoring extra", granted, requested)
		granted = granted.Intersect(requested)
	}
	restoreToken := idbus.MapString(results, RESULT_RESTORE_TOKEN)

	if err := s.commit(op, StateDevicesSelected, func() {
		s.granted = granted
		s.restoreToken = restoreToken
		s.state = StateActive
	}, nil); err != nil {
		return CapabilitySet{}, err
	}

	if granted.IsEmpty() {
		logger.Warn("[remotedesktop] session %s active without any granted device", s.Handle())
	} else {
		logger.Info("[remotedesktop] session %s active, granted %s", s.Handle(), granted)
	}
	return granted, nil
}

// Close ends the session. Closing a closed session is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosed
	inflight, handle, unwatch := s.inflight, s.handle, s.unwatch
	s.unwatch = nil
	info := s.infoLocked()
	s.mu.Unlock()

	if inflight != nil {
		inflight.Cancel()
	}
	if unwatch != nil {
		unwatch()
	}
	var err error
	if handle != "" {
		err = s.portal.transport().CloseObject(handle, portal.SESSION_INTERFACE)
		logger.Info("[remotedesktop] session %s closed", handle)
	}
	s.emit(info)
	return err
}

func (s *Session) onBrokerClosed() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	s.err = &SessionClosedError{Reason: "closed by broker"}
	inflight, unwatch := s.inflight, s.unwatch
	s.unwatch = nil
	info := s.infoLocked()
	s.mu.Unlock()

	logger.Info("[remotedesktop] session %s closed by broker", info.Handle)
	if inflight != nil {
		inflight.Cancel()
	}
	if unwatch != nil {
		unwatch()
	}
	s.emit(info)
}

// begin marks op as the transition in flight if the session is in required.
func (s *Session) begin(op string, required State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy != "" {
		return &InvalidStateError{Op: op, State: s.state, Required: []State{required}, InFlight: s.busy}
	}
	if s.state != required {
		return &InvalidStateError{Op: op, State: s.state, Required: []State{required}}
	}
	s.busy = op
	return nil
}

// abort ends the transition in flight without changing state.
func (s *Session) abort() {
	s.mu.Lock()
	s.busy = ""
	s.mu.Unlock()
}

func (s *Session) submit(ctx context.Context, op, method string, token portal.HandleToken, opts map[string]dbus.Variant, args ...interface{}) (map[string]dbus.Variant, error) {
	req, err := s.portal.requests.Submit(ctx, method, token, opts, args...)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		req.Cancel()
		return nil, &portal.RequestClosedError{Request: req.Path()}
	}
	s.inflight = req
	s.mu.Unlock()

	results, err := req.Wait(ctx)

	s.mu.Lock()
	s.inflight = nil
	s.mu.Unlock()
	return results, err
}

// commit applies a successful transition unless the session was closed meanwhile,
// in which case rollback releases what the transition acquired.
func (s *Session) commit(op string, required State, apply, rollback func()) error {
	s.mu.Lock()
	s.busy = ""
	if s.state == StateClosed {
		s.mu.Unlock()
		if rollback != nil {
			rollback()
		}
		return &InvalidStateError{Op: op, State: StateClosed, Required: []State{required}}
	}
	apply()
	info := s.infoLocked()
	s.mu.Unlock()

	s.emit(info)
	return nil
}

// failOrAbort keeps the session state on local token errors and closes it otherwise.
func (s *Session) failOrAbort(op string, err error) error {
	var tokErr *portal.InvalidTokenError
	if errors.As(err, &tokErr) {
		s.abort()
		return err
	}
	return s.fail(op, err)
}

// fail moves the session to Closed and records err.
func (s *Session) fail(op string, err error) error {
	s.mu.Lock()
	s.busy = ""
	if s.state == StateClosed {
		s.mu.Unlock()
		return err
	}
	s.state = StateClosed
	s.err = err
	handle, unwatch := s.handle, s.unwatch
	s.unwatch = nil
	info := s.infoLocked()
	s.mu.Unlock()

	if portal.IsCancelled(err) {
		logger.Info("[remotedesktop] %s cancelled by user", op)
	} else {
		logger.Error("[remotedesktop] %s failed: %v", op, err)
	}
	if unwatch != nil {
		unwatch()
	}
	s.closeRemote(handle)
	s.emit(info)
	return err
}

func (s *Session) closeRemote(handle dbus.ObjectPath) {
	if handle == "" {
		return
	}
	if err := s.portal.transport().CloseObject(handle, portal.SESSION_INTERFACE); err != nil {
		logger.Warn("[remotedesktop] failed to close session %s: %v", handle, err)
	}
}
