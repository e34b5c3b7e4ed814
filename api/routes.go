package api

import (
	"net/http"

	"github.com/b0bbywan/go-odio-portal/backend"
	"github.com/b0bbywan/go-odio-portal/events"
	"github.com/b0bbywan/go-odio-portal/logger"
)

func (s *Server) registerServerRoutes(b *backend.Backend) {
	s.mux.HandleFunc(
		"GET /server",
		JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
			return b.GetServerDeviceInfo(), nil
		}),
	)

	// SSE event stream
	if s.config.SSE && s.broadcaster != nil {
		s.mux.HandleFunc("GET /events", sseHandler(s.broadcaster, sessionSnapshot(b)))
		logger.Info("[api] SSE route registered at /events")
	}
}

func (s *Server) registerRemoteRoutes(rd RemoteDesktop) {
	s.mux.HandleFunc("GET /remote", remoteInfoHandler(rd))
	s.mux.HandleFunc("POST /remote/session", openSessionHandler(rd))
	s.mux.HandleFunc("DELETE /remote/session", closeSessionHandler(rd))
	s.mux.HandleFunc("DELETE /remote/restore_token", forgetTokenHandler(rd))

	// keyboard
	s.mux.HandleFunc("POST /remote/keyboard/keycode", keycodeHandler(rd))
	s.mux.HandleFunc("POST /remote/keyboard/keysym", keysymHandler(rd))

	// pointer
	s.mux.HandleFunc("POST /remote/pointer/motion", pointerMotionHandler(rd))
	s.mux.HandleFunc("POST /remote/pointer/absolute", pointerAbsoluteHandler(rd))
	s.mux.HandleFunc("POST /remote/pointer/button", pointerButtonHandler(rd))
	s.mux.HandleFunc("POST /remote/pointer/axis", pointerAxisHandler(rd))
	s.mux.HandleFunc("POST /remote/pointer/axis_discrete", pointerAxisDiscreteHandler(rd))

	// touchscreen
	s.mux.HandleFunc("POST /remote/touch/down", touchDownHandler(rd))
	s.mux.HandleFunc("POST /remote/touch/motion", touchMotionHandler(rd))
	s.mux.HandleFunc("POST /remote/touch/up", touchUpHandler(rd))

	logger.Info("[api] remote desktop routes registered at /remote")
}

func (s *Server) registerScreenshotRoutes(sc Screenshotter) {
	s.mux.HandleFunc("POST /screenshot", screenshotHandler(sc))
	s.mux.HandleFunc("POST /screenshot/pick_color", pickColorHandler(sc))
	logger.Info("[api] screenshot routes registered at /screenshot")
}

// sessionSnapshot replays the remote desktop session state to new SSE clients.
func sessionSnapshot(b *backend.Backend) Snapshot {
	if b.Remote == nil {
		return nil
	}
	return func() []events.Event {
		return []events.Event{{Type: events.TypeRemoteSession, Data: b.Remote.Status()}}
	}
}
