package backend

import (
	"context"

	"github.com/b0bbywan/go-odio-portal/backend/remotedesktop"
	"github.com/b0bbywan/go-odio-portal/backend/screenshot"
	"github.com/b0bbywan/go-odio-portal/backend/zeroconf"
	"github.com/b0bbywan/go-odio-portal/config"
	"github.com/b0bbywan/go-odio-portal/events"
	"github.com/b0bbywan/go-odio-portal/logger"
)

type Backend struct {
	Remote     *remotedesktop.RemoteDesktopBackend
	Screenshot *screenshot.ScreenshotBackend
	Zeroconf   *zeroconf.ZeroConfBackend

	Broadcaster *Broadcaster

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds every enabled backend. A backend that fails to connect is fatal.
func New(ctx context.Context, cfg *config.Config) (*Backend, error) {
	ctx, cancel := context.WithCancel(ctx)
	b := &Backend{ctx: ctx, cancel: cancel}

	r, err := remotedesktop.New(ctx, cfg.RemoteDesktop)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Remote = r

	s, err := screenshot.New(ctx, cfg.Screenshot)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Screenshot = s

	z, err := zeroconf.New(ctx, cfg.Zeroconf)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Zeroconf = z

	b.Broadcaster = newBroadcasterFromBackend(ctx, b)
	return b, nil
}

func (b *Backend) Start() error {
	if b.Zeroconf != nil {
		if err := b.Zeroconf.Start(); err != nil {
			return err
		}
		go b.advertiseSession()
	}

	if b.Remote != nil {
		if err := b.Remote.Start(); err != nil {
			return err
		}
	}

	return nil
}

// advertiseSession mirrors remote.session events into the mDNS TXT records.
func (b *Backend) advertiseSession() {
	ch := b.Broadcaster.SubscribeFunc(events.FilterTypes([]string{events.TypeRemoteSession}))
	defer b.Broadcaster.Unsubscribe(ch)

	for {
		select {
		case <-b.ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if info, ok := e.Data.(remotedesktop.SessionInfo); ok {
				b.Zeroconf.SetSessionState(info.State.String())
			}
		}
	}
}

func (b *Backend) Close() {
	if b.Remote != nil {
		b.Remote.Close()
	}
	if b.Screenshot != nil {
		b.Screenshot.Close()
	}
	if b.Zeroconf != nil {
		b.Zeroconf.Close()
	}
	if b.cancel != nil {
		b.cancel()
	}
	logger.Debug("[backend] closed")
}
