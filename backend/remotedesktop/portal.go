package remotedesktop

import (
	"context"
	"fmt"
	"time"

	"github.com/b0bbywan/go-odio-portal/backend/portal"
	"github.com/b0bbywan/go-odio-portal/cache"
	"github.com/b0bbywan/go-odio-portal/logger"
)

// Portal is a client of the org.freedesktop.portal.RemoteDesktop interface.
type Portal struct {
	requests *portal.Correlator

	// broker properties, read once per ttl
	props *cache.Cache[uint32]
}

// NewPortal returns a client issuing its requests through c.
// Broker properties are cached for propsTTL (0 keeps them forever).
func NewPortal(c *portal.Correlator, propsTTL time.Duration) *Portal {
	return &Portal{
		requests: c,
		props:    cache.New[uint32](propsTTL),
	}
}

func (p *Portal) transport() portal.Transport {
	return p.requests.Transport()
}

func (p *Portal) uint32Property(name string) (uint32, error) {
	return p.props.GetOrLoad(name, func() (uint32, error) {
		variant, err := p.transport().Property(REMOTE_DESKTOP_INTERFACE, name)
		if err != nil {
			return 0, err
		}
		v, ok := variant.Value().(uint32)
		if !ok {
			return 0, fmt.Errorf("%s.%s: unexpected type %s", REMOTE_DESKTOP_INTERFACE, name, variant.Signature())
		}
		return v, nil
	})
}

// Refresh drops the cached broker properties.
func (p *Portal) Refresh() {
	p.props.Clear()
}

// AvailableDeviceTypes returns the kinds the broker can ever grant.
func (p *Portal) AvailableDeviceTypes() (CapabilitySet, error) {
	bits, err := p.uint32Property(PROP_AVAILABLE_DEVICE_TYPES)
	if err != nil {
		return CapabilitySet{}, err
	}
	return CapabilitySetFromBits(bits), nil
}

// Version returns the interface version implemented by the broker.
func (p *Portal) Version() (uint32, error) {
	return p.uint32Property(PROP_VERSION)
}

// NewSession returns an unopened session bound to this portal.
func (p *Portal) NewSession() *Session {
	return &Session{portal: p, state: StateUnopened}
}

// CreateSession returns a session in the Created state.
// On failure the returned session is Closed and carries the error.
func (p *Portal) CreateSession(ctx context.Context, opts CreateOptions) (*Session, error) {
	s := p.NewSession()
	if err := s.Create(ctx, opts); err != nil {
		return s, err
	}
	logger.Debug("[remotedesktop] session %s created", s.Handle())
	return s, nil
}
