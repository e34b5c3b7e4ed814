package events

import "slices"

const (
	TypeServerInfo      = "server.info"
	TypeRemoteSession   = "remote.session"
	TypeScreenshotTaken = "screenshot.taken"
	TypeColorPicked     = "color.picked"
)

type Event struct {
	Type string
	Data any
}

// Filter reports whether an event should be delivered. A nil Filter passes everything.
type Filter func(Event) bool

// BackendTypes maps the backend names accepted by ?backend= to the event types they emit.
var BackendTypes = map[string][]string{
	"remotedesktop": {TypeRemoteSession},
	"screenshot":    {TypeScreenshotTaken, TypeColorPicked},
}

// FilterTypes passes only the listed event types. Returns nil for an empty list.
func FilterTypes(types []string) Filter {
	if len(types) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(types))
	for _, t := range types {
		allowed[t] = struct{}{}
	}
	return func(e Event) bool {
		_, ok := allowed[e.Type]
		return ok
	}
}

// FilterBackend passes the events of the named backends.
// Unknown names are ignored; if none is known the result is nil.
func FilterBackend(names []string) Filter {
	var types []string
	for _, name := range names {
		types = append(types, BackendTypes[name]...)
	}
	return FilterTypes(types)
}

// NewFilter combines an include list and an exclude list.
// An empty include list passes every type not excluded.
func NewFilter(include, exclude []string) Filter {
	in := FilterTypes(include)
	if len(exclude) == 0 {
		return in
	}
	excluded := make(map[string]struct{}, len(exclude))
	for _, t := range exclude {
		excluded[t] = struct{}{}
	}
	return func(e Event) bool {
		if _, ok := excluded[e.Type]; ok {
			return false
		}
		return in == nil || in(e)
	}
}

// IsKnown reports whether t is an event type some backend emits.
func IsKnown(t string) bool {
	if t == TypeServerInfo {
		return true
	}
	for _, types := range BackendTypes {
		if slices.Contains(types, t) {
			return true
		}
	}
	return false
}
