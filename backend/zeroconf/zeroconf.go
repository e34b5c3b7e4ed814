package zeroconf

import (
	"context"
	"fmt"
	"sync"

	"github.com/grandcat/zeroconf"

	"github.com/b0bbywan/go-odio-portal/config"
	"github.com/b0bbywan/go-odio-portal/logger"
)

const TXT_SESSION = "session"

// ZeroConfBackend advertises the API over mDNS. The TXT records carry the
// remote desktop session state so clients can find an active portal.
type ZeroConfBackend struct {
	Config *config.ZeroConfig

	server  *zeroconf.Server
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	session string
}

// New prepares the service. Returns nil, nil when disabled or when the API
// is bound to no routable interface.
func New(ctx context.Context, cfg *config.ZeroConfig) (*ZeroConfBackend, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	if len(cfg.Listen) == 0 {
		logger.Info("[zeroconf] API bound to loopback, not advertising")
		return nil, nil
	}

	subCtx, cancel := context.WithCancel(ctx)

	return &ZeroConfBackend{
		Config:  cfg,
		ctx:     subCtx,
		cancel:  cancel,
		session: "unopened",
	}, nil
}

// Start registers the service and shuts it down when the context ends.
func (z *ZeroConfBackend) Start() error {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.server != nil {
		return fmt.Errorf("service already started")
	}

	server, err := zeroconf.Register(
		z.Config.InstanceName,
		z.Config.ServiceType,
		z.Config.Domain,
		z.Config.Port,
		z.textLocked(),
		z.Config.Listen,
	)
	if err != nil {
		return err
	}

	z.server = server
	logger.Info("[zeroconf] service '%s' published (type: %s, port: %d)",
		z.Config.InstanceName, z.Config.ServiceType, z.Config.Port)

	go func() {
		<-z.ctx.Done()
		z.Close()
	}()

	return nil
}

func (z *ZeroConfBackend) textLocked() []string {
	txt := append([]string(nil), z.Config.TxtRecords...)
	return append(txt, TXT_SESSION+"="+z.session)
}

// SetSessionState republishes the TXT records with the given session state.
func (z *ZeroConfBackend) SetSessionState(state string) {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.session == state {
		return
	}
	z.session = state
	if z.server != nil {
		z.server.SetText(z.textLocked())
		logger.Debug("[zeroconf] advertising session=%s", state)
	}
}

// Close stops advertising. Safe to call more than once.
func (z *ZeroConfBackend) Close() {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.server != nil {
		z.server.Shutdown()
		z.server = nil
		logger.Debug("[zeroconf] service '%s' stopped", z.Config.InstanceName)
	}

	if z.cancel != nil {
		z.cancel()
		z.cancel = nil
	}
}
