package remotedesktop

import (
	"context"

	"github.com/b0bbywan/go-odio-portal/backend/portal"
	"github.com/b0bbywan/go-odio-portal/config"
	"github.com/b0bbywan/go-odio-portal/events"
	"github.com/b0bbywan/go-odio-portal/logger"
)

// New creates the remote desktop backend on the session bus.
// Returns nil, nil when the backend is disabled.
func New(ctx context.Context, cfg *config.RemoteDesktopConfig) (*RemoteDesktopBackend, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	t, err := portal.ConnectSessionBus()
	if err != nil {
		return nil, err
	}

	backend, err := NewWithTransport(ctx, cfg, t)
	if err != nil {
		t.Close()
		return nil, err
	}
	return backend, nil
}

// NewWithTransport creates the backend on an existing transport, which it then owns.
func NewWithTransport(ctx context.Context, cfg *config.RemoteDesktopConfig, t portal.Transport) (*RemoteDesktopBackend, error) {
	devices, err := ParseCapabilitySet(cfg.Devices)
	if err != nil {
		return nil, err
	}
	persist, err := ParsePersistMode(cfg.Persist)
	if err != nil {
		return nil, err
	}
	parent, err := portal.ParseWindowIdentifier(cfg.ParentWindow)
	if err != nil {
		return nil, err
	}

	tokenFile := cfg.TokenFile
	if persist == PersistNone {
		tokenFile = ""
	}
	tokens, err := NewTokenStore(ctx, tokenFile)
	if err != nil {
		return nil, err
	}

	requests := portal.NewCorrelator(t, cfg.ResponseTimeout)
	return &RemoteDesktopBackend{
		ctx:       ctx,
		config:    cfg,
		transport: t,
		requests:  requests,
		portal:    NewPortal(requests, cfg.PropertiesTTL),
		tokens:    tokens,
		devices:   devices,
		persist:   persist,
		parent:    parent,
		events:    make(chan events.Event, 32),
	}, nil
}

// Start opens a session in the background when autostart is configured.
func (r *RemoteDesktopBackend) Start() error {
	if !r.config.AutoStart {
		logger.Debug("[remotedesktop] backend started, waiting for a session request")
		return nil
	}
	go func() {
		if _, err := r.Open(r.ctx, CapabilitySet{}); err != nil && !portal.IsCancelled(err) {
			logger.Error("[remotedesktop] autostart failed: %v", err)
		}
	}()
	logger.Info("[remotedesktop] backend started, opening session")
	return nil
}

// Portal exposes the underlying interface client.
func (r *RemoteDesktopBackend) Portal() *Portal {
	return r.portal
}

// Info returns the broker capabilities and the current session.
func (r *RemoteDesktopBackend) Info() Info {
	info := Info{Session: r.Status()}
	if available, err := r.portal.AvailableDeviceTypes(); err == nil {
		info.Available = available
	} else {
		logger.Debug("[remotedesktop] cannot read available device types: %v", err)
	}
	if version, err := r.portal.Version(); err == nil {
		info.Version = version
	}
	info.Persist = r.persist.String()
	info.HasRestoreToken = r.tokens.Load() != ""
	return info
}

// Status returns a snapshot of the current session. Unopened when there is none.
func (r *RemoteDesktopBackend) Status() SessionInfo {
	r.mu.Lock()
	s := r.session
	r.mu.Unlock()
	if s == nil {
		return SessionInfo{State: StateUnopened}
	}
	return s.Info()
}

// Open runs Create, SelectDevices and Start on a new session.
// An empty devices set uses the configured default. Only one session is
// live at a time: opening while another is in progress or active fails.
func (r *RemoteDesktopBackend) Open(ctx context.Context, devices CapabilitySet) (SessionInfo, error) {
	const op = "open"

	r.mu.Lock()
	if r.session != nil {
		if state := r.session.State(); state != StateClosed {
			r.mu.Unlock()
			return r.session.Info(), &InvalidStateError{Op: op, State: state, Required: []State{StateUnopened, StateClosed}}
		}
	}
	s := r.portal.NewSession()
	s.OnChange(r.publish)
	r.session = s
	r.mu.Unlock()

	if devices.IsEmpty() {
		devices = r.devices
	}

	if err := s.Create(ctx, CreateOptions{}); err != nil {
		return r.release(s, err)
	}
	if err := s.SelectDevices(ctx, SelectDevicesOptions{
		Types:        devices,
		PersistMode:  r.persist,
		RestoreToken: r.tokens.Load(),
	}); err != nil {
		return r.release(s, err)
	}
	if _, err := s.Start(ctx, r.parent, StartOptions{}); err != nil {
		return r.release(s, err)
	}

	if r.persist != PersistNone {
		if token := s.RestoreToken(); token != "" {
			if err := r.tokens.Save(token); err != nil {
				logger.Warn("[remotedesktop] failed to save restore token: %v", err)
			}
		}
	}
	return s.Info(), nil
}

// release closes a session whose setup failed. Setup errors that left the
// state untouched (local validation, capability checks) would otherwise
// leave it half open.
func (r *RemoteDesktopBackend) release(s *Session, err error) (SessionInfo, error) {
	if cerr := s.Close(); cerr != nil {
		logger.Debug("[remotedesktop] closing failed session: %v", cerr)
	}
	return s.Info(), err
}

// CloseSession ends the current session, if any.
func (r *RemoteDesktopBackend) CloseSession() (SessionInfo, error) {
	r.mu.Lock()
	s := r.session
	r.mu.Unlock()
	if s == nil {
		return SessionInfo{State: StateUnopened}, nil
	}
	err := s.Close()
	return s.Info(), err
}

// Session returns the input channel of the active session.
func (r *RemoteDesktopBackend) Session() (Input, error) {
	r.mu.Lock()
	s := r.session
	r.mu.Unlock()
	if s == nil {
		return nil, &InvalidStateError{Op: "input", State: StateUnopened, Required: []State{StateActive}}
	}
	if state := s.State(); state != StateActive {
		return nil, &InvalidStateError{Op: "input", State: state, Required: []State{StateActive}}
	}
	return s, nil
}

// ForgetRestoreToken drops the stored token so the next session asks for consent.
func (r *RemoteDesktopBackend) ForgetRestoreToken() error {
	return r.tokens.Save("")
}

// Events returns the channel of remote.session events.
func (r *RemoteDesktopBackend) Events() <-chan events.Event {
	return r.events
}

func (r *RemoteDesktopBackend) publish(info SessionInfo) {
	select {
	case r.events <- events.Event{Type: events.TypeRemoteSession, Data: info}:
	default:
		logger.Warn("[remotedesktop] event channel full, dropping %s event", events.TypeRemoteSession)
	}
}

// Close ends the current session and releases the bus connection.
func (r *RemoteDesktopBackend) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		s := r.session
		r.mu.Unlock()
		if s != nil {
			if err := s.Close(); err != nil {
				logger.Warn("[remotedesktop] failed to close session: %v", err)
			}
		}
		r.tokens.Close()
		r.requests.Close()
		if err := r.transport.Close(); err != nil {
			logger.Error("[remotedesktop] failed to close D-Bus connection: %v", err)
		}
	})
}
