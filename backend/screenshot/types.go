package screenshot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/b0bbywan/go-odio-portal/backend/portal"
	"github.com/b0bbywan/go-odio-portal/cache"
	"github.com/b0bbywan/go-odio-portal/events"
)

type ScreenshotBackend struct {
	ctx       context.Context
	transport portal.Transport
	requests  *portal.Correlator

	// interface version, read once
	props *cache.Cache[uint32]

	events    chan events.Event
	closeOnce sync.Once
}

// Options configures a Screenshot request.
type Options struct {
	HandleToken portal.HandleToken
	// Modal defaults to true on the broker side when unset.
	Modal *bool
	// Interactive lets the user choose the area before capture.
	Interactive bool
}

// PickColorOptions configures a PickColor request.
type PickColorOptions struct {
	HandleToken portal.HandleToken
}

// Screenshot is the image the broker saved.
type Screenshot struct {
	URI string `json:"uri"`
}

// Color is an sRGB color with components in [0, 1].
type Color struct {
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`
}

// Hex formats the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", channel(c.Red), channel(c.Green), channel(c.Blue))
}

func channel(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

// ColorInfo is the JSON view of a picked color.
type ColorInfo struct {
	Color
	Hex string `json:"hex"`
}

var (
	errMissingURI   = errors.New("response carries no uri")
	errMissingColor = errors.New("response carries no valid color")
)

func errUnexpectedType(v dbus.Variant) error {
	return fmt.Errorf("unexpected type %s", v.Signature())
}
