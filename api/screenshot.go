package api

import (
	"context"
	"net/http"

	"github.com/b0bbywan/go-odio-portal/backend/portal"
	"github.com/b0bbywan/go-odio-portal/backend/screenshot"
)

// Screenshotter is the part of the screenshot backend the API drives.
type Screenshotter interface {
	Screenshot(ctx context.Context, parent portal.WindowIdentifier, opts screenshot.Options) (screenshot.Screenshot, error)
	PickColor(ctx context.Context, parent portal.WindowIdentifier, opts screenshot.PickColorOptions) (screenshot.Color, error)
}

type screenshotRequest struct {
	ParentWindow string `json:"parent_window"`
	HandleToken  string `json:"handle_token" validate:"omitempty,max=255"`
	Modal        *bool  `json:"modal"`
	Interactive  bool   `json:"interactive"`
}

type pickColorRequest struct {
	ParentWindow string `json:"parent_window"`
	HandleToken  string `json:"handle_token" validate:"omitempty,max=255"`
}

func parentWindow(s string) (portal.WindowIdentifier, error) {
	parent, err := portal.ParseWindowIdentifier(s)
	if err != nil {
		return "", &ValidationError{Field: "parent_window", Rule: "window"}
	}
	return parent, nil
}

func screenshotHandler(s Screenshotter) http.HandlerFunc {
	return withBody(func(w http.ResponseWriter, r *http.Request, req *screenshotRequest) {
		JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
			parent, err := parentWindow(req.ParentWindow)
			if err != nil {
				return nil, err
			}
			return s.Screenshot(r.Context(), parent, screenshot.Options{
				HandleToken: portal.HandleToken(req.HandleToken),
				Modal:       req.Modal,
				Interactive: req.Interactive,
			})
		})(w, r)
	})
}

func pickColorHandler(s Screenshotter) http.HandlerFunc {
	return withBody(func(w http.ResponseWriter, r *http.Request, req *pickColorRequest) {
		JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
			parent, err := parentWindow(req.ParentWindow)
			if err != nil {
				return nil, err
			}
			color, err := s.PickColor(r.Context(), parent, screenshot.PickColorOptions{
				HandleToken: portal.HandleToken(req.HandleToken),
			})
			if err != nil {
				return nil, err
			}
			return screenshot.ColorInfo{Color: color, Hex: color.Hex()}, nil
		})(w, r)
	})
}
