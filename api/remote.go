package api

import (
	"context"
	"net/http"

	"github.com/b0bbywan/go-odio-portal/backend/remotedesktop"
)

// RemoteDesktop is the part of the remote desktop backend the API drives.
type RemoteDesktop interface {
	Info() remotedesktop.Info
	Open(ctx context.Context, devices remotedesktop.CapabilitySet) (remotedesktop.SessionInfo, error)
	CloseSession() (remotedesktop.SessionInfo, error)
	Session() (remotedesktop.Input, error)
	ForgetRestoreToken() error
}

type openSessionRequest struct {
	Devices []string `json:"devices" validate:"omitempty,dive,oneof=keyboard pointer touchscreen"`
}

type keycodeRequest struct {
	Keycode *int32 `json:"keycode" validate:"required"`
	State   string `json:"state" validate:"required,oneof=pressed released"`
}

type keysymRequest struct {
	Keysym *int32 `json:"keysym" validate:"required"`
	State  string `json:"state" validate:"required,oneof=pressed released"`
}

type motionRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type absoluteRequest struct {
	Stream *uint32  `json:"stream" validate:"required"`
	X      *float64 `json:"x" validate:"required"`
	Y      *float64 `json:"y" validate:"required"`
}

type buttonRequest struct {
	Button *int32 `json:"button" validate:"required"`
	State  string `json:"state" validate:"required,oneof=pressed released"`
}

type axisDiscreteRequest struct {
	Axis  string `json:"axis" validate:"required,oneof=vertical horizontal"`
	Steps int32  `json:"steps" validate:"required"`
}

type touchRequest struct {
	Stream *uint32  `json:"stream" validate:"required"`
	Slot   *uint32  `json:"slot" validate:"required"`
	X      *float64 `json:"x" validate:"required"`
	Y      *float64 `json:"y" validate:"required"`
}

type touchUpRequest struct {
	Slot *uint32 `json:"slot" validate:"required"`
}

func remoteInfoHandler(rd RemoteDesktop) http.HandlerFunc {
	return JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
		return rd.Info(), nil
	})
}

func openSessionHandler(rd RemoteDesktop) http.HandlerFunc {
	return withBody(func(w http.ResponseWriter, r *http.Request, req *openSessionRequest) {
		JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
			devices, err := remotedesktop.ParseCapabilitySet(req.Devices)
			if err != nil {
				return nil, &ValidationError{Field: "devices", Rule: "oneof"}
			}
			return rd.Open(r.Context(), devices)
		})(w, r)
	})
}

func closeSessionHandler(rd RemoteDesktop) http.HandlerFunc {
	return JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
		return rd.CloseSession()
	})
}

func forgetTokenHandler(rd RemoteDesktop) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := rd.ForgetRestoreToken(); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// withInput resolves the active session input, decodes T, and hands both to emit.
func withInput[T any](rd RemoteDesktop, emit func(in remotedesktop.Input, req *T) error) http.HandlerFunc {
	return withBody(func(w http.ResponseWriter, r *http.Request, req *T) {
		in, err := rd.Session()
		if err != nil {
			writeError(w, err)
			return
		}
		writeError(w, emit(in, req))
	})
}

func keycodeHandler(rd RemoteDesktop) http.HandlerFunc {
	return withInput(rd, func(in remotedesktop.Input, req *keycodeRequest) error {
		state, err := remotedesktop.ParseKeyState(req.State)
		if err != nil {
			return err
		}
		return in.NotifyKeyboardKeycode(*req.Keycode, state)
	})
}

func keysymHandler(rd RemoteDesktop) http.HandlerFunc {
	return withInput(rd, func(in remotedesktop.Input, req *keysymRequest) error {
		state, err := remotedesktop.ParseKeyState(req.State)
		if err != nil {
			return err
		}
		return in.NotifyKeyboardKeysym(*req.Keysym, state)
	})
}

func pointerMotionHandler(rd RemoteDesktop) http.HandlerFunc {
	return withInput(rd, func(in remotedesktop.Input, req *motionRequest) error {
		return in.NotifyPointerMotion(req.DX, req.DY)
	})
}

func pointerAbsoluteHandler(rd RemoteDesktop) http.HandlerFunc {
	return withInput(rd, func(in remotedesktop.Input, req *absoluteRequest) error {
		return in.NotifyPointerMotionAbsolute(*req.Stream, *req.X, *req.Y)
	})
}

func pointerButtonHandler(rd RemoteDesktop) http.HandlerFunc {
	return withInput(rd, func(in remotedesktop.Input, req *buttonRequest) error {
		state, err := remotedesktop.ParseKeyState(req.State)
		if err != nil {
			return err
		}
		return in.NotifyPointerButton(*req.Button, state)
	})
}

func pointerAxisHandler(rd RemoteDesktop) http.HandlerFunc {
	return withInput(rd, func(in remotedesktop.Input, req *motionRequest) error {
		return in.NotifyPointerAxis(req.DX, req.DY)
	})
}

func pointerAxisDiscreteHandler(rd RemoteDesktop) http.HandlerFunc {
	return withInput(rd, func(in remotedesktop.Input, req *axisDiscreteRequest) error {
		axis, err := remotedesktop.ParseAxis(req.Axis)
		if err != nil {
			return err
		}
		return in.NotifyPointerAxisDiscrete(axis, req.Steps)
	})
}

func touchDownHandler(rd RemoteDesktop) http.HandlerFunc {
	return withInput(rd, func(in remotedesktop.Input, req *touchRequest) error {
		return in.NotifyTouchDown(*req.Stream, *req.Slot, *req.X, *req.Y)
	})
}

func touchMotionHandler(rd RemoteDesktop) http.HandlerFunc {
	return withInput(rd, func(in remotedesktop.Input, req *touchRequest) error {
		return in.NotifyTouchMotion(*req.Stream, *req.Slot, *req.X, *req.Y)
	})
}

func touchUpHandler(rd RemoteDesktop) http.HandlerFunc {
	return withInput(rd, func(in remotedesktop.Input, req *touchUpRequest) error {
		return in.NotifyTouchUp(*req.Slot)
	})
}
