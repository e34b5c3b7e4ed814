package screenshot

import (
	"context"

	"github.com/godbus/dbus/v5"

	idbus "github.com/b0bbywan/go-odio-portal/backend/internal/dbus"
	"github.com/b0bbywan/go-odio-portal/backend/portal"
	"github.com/b0bbywan/go-odio-portal/cache"
	"github.com/b0bbywan/go-odio-portal/config"
	"github.com/b0bbywan/go-odio-portal/events"
	"github.com/b0bbywan/go-odio-portal/logger"
)

// New creates the screenshot backend on its own session bus connection.
// Returns nil, nil when the backend is disabled.
func New(ctx context.Context, cfg *config.ScreenshotConfig) (*ScreenshotBackend, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	t, err := portal.ConnectSessionBus()
	if err != nil {
		return nil, err
	}
	return NewWithTransport(ctx, cfg, t), nil
}

// NewWithTransport creates the backend on an existing transport, which it then owns.
func NewWithTransport(ctx context.Context, cfg *config.ScreenshotConfig, t portal.Transport) *ScreenshotBackend {
	return &ScreenshotBackend{
		ctx:       ctx,
		transport: t,
		requests:  portal.NewCorrelator(t, cfg.ResponseTimeout),
		props:     cache.New[uint32](0),
		events:    make(chan events.Event, 32),
	}
}

// Version returns the Screenshot interface version implemented by the broker.
func (s *ScreenshotBackend) Version() (uint32, error) {
	return s.props.GetOrLoad(PROP_VERSION, func() (uint32, error) {
		v, err := s.transport.Property(SCREENSHOT_INTERFACE, PROP_VERSION)
		if err != nil {
			return 0, err
		}
		version, ok := idbus.ExtractUint32(v)
		if !ok {
			return 0, &portal.TransportError{Method: SCREENSHOT_INTERFACE + "." + PROP_VERSION, Err: errUnexpectedType(v)}
		}
		return version, nil
	})
}

// Screenshot asks the broker to capture the screen and returns the saved image URI.
func (s *ScreenshotBackend) Screenshot(ctx context.Context, parent portal.WindowIdentifier, opts Options) (Screenshot, error) {
	options := map[string]dbus.Variant{
		OPTION_INTERACTIVE: dbus.MakeVariant(opts.Interactive),
	}
	if opts.Modal != nil {
		options[OPTION_MODAL] = dbus.MakeVariant(*opts.Modal)
	}

	results, err := s.request(ctx, METHOD_SCREENSHOT, opts.HandleToken, options, string(parent))
	if err != nil {
		return Screenshot{}, err
	}

	uri := idbus.MapString(results, RESULT_URI)
	if uri == "" {
		return Screenshot{}, &portal.TransportError{Method: METHOD_SCREENSHOT, Err: errMissingURI}
	}

	shot := Screenshot{URI: uri}
	logger.Info("[screenshot] saved %s", uri)
	s.publish(events.TypeScreenshotTaken, shot)
	return shot, nil
}

// PickColor lets the user pick a pixel on screen and returns its color.
func (s *ScreenshotBackend) PickColor(ctx context.Context, parent portal.WindowIdentifier, opts PickColorOptions) (Color, error) {
	results, err := s.request(ctx, METHOD_PICK_COLOR, opts.HandleToken, map[string]dbus.Variant{}, string(parent))
	if err != nil {
		return Color{}, err
	}

	rgb, ok := idbus.ExtractFloat64Slice(results[RESULT_COLOR])
	if !ok || len(rgb) != 3 {
		return Color{}, &portal.TransportError{Method: METHOD_PICK_COLOR, Err: errMissingColor}
	}

	c := Color{Red: rgb[0], Green: rgb[1], Blue: rgb[2]}
	logger.Debug("[screenshot] picked %s", c.Hex())
	s.publish(events.TypeColorPicked, ColorInfo{Color: c, Hex: c.Hex()})
	return c, nil
}

func (s *ScreenshotBackend) request(ctx context.Context, method string, token portal.HandleToken, options map[string]dbus.Variant, args ...interface{}) (map[string]dbus.Variant, error) {
	req, err := s.requests.Submit(ctx, method, token, options, args...)
	if err != nil {
		return nil, err
	}
	results, err := req.Wait(ctx)
	if err != nil {
		if portal.IsCancelled(err) {
			logger.Info("[screenshot] %s cancelled by user", method)
		} else {
			logger.Warn("[screenshot] %s failed: %v", method, err)
		}
		return nil, err
	}
	return results, nil
}

// Events returns the channel of screenshot.taken and color.picked events.
func (s *ScreenshotBackend) Events() <-chan events.Event {
	return s.events
}

func (s *ScreenshotBackend) publish(typ string, data any) {
	select {
	case s.events <- events.Event{Type: typ, Data: data}:
	default:
		logger.Warn("[screenshot] event channel full, dropping %s event", typ)
	}
}

// Close abandons pending requests and closes the bus connection.
func (s *ScreenshotBackend) Close() {
	s.closeOnce.Do(func() {
		s.requests.Close()
		if err := s.transport.Close(); err != nil {
			logger.Error("[screenshot] failed to close D-Bus connection: %v", err)
		}
	})
}
