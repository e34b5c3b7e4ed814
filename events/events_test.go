package events

import "testing"

func TestFilterTypes_Nil(t *testing.T) {
	if FilterTypes(nil) != nil {
		t.Error("FilterTypes(nil) should return nil")
	}
	if FilterTypes([]string{}) != nil {
		t.Error("FilterTypes([]) should return nil")
	}
}

func TestFilterTypes_Match(t *testing.T) {
	f := FilterTypes([]string{TypeRemoteSession, TypeServerInfo})
	if f == nil {
		t.Fatal("expected non-nil filter")
	}
	if !f(Event{Type: TypeRemoteSession}) {
		t.Errorf("filter should pass %s", TypeRemoteSession)
	}
	if !f(Event{Type: TypeServerInfo}) {
		t.Errorf("filter should pass %s", TypeServerInfo)
	}
	if f(Event{Type: TypeScreenshotTaken}) {
		t.Errorf("filter should block %s", TypeScreenshotTaken)
	}
}

func TestFilterBackend_Unknown(t *testing.T) {
	if FilterBackend([]string{"unknown"}) != nil {
		t.Error("FilterBackend with unknown names should return nil (pass-all)")
	}
	if FilterBackend(nil) != nil {
		t.Error("FilterBackend(nil) should return nil")
	}
}

func TestFilterBackend_Screenshot(t *testing.T) {
	f := FilterBackend([]string{"screenshot"})
	if f == nil {
		t.Fatal("expected non-nil filter for screenshot")
	}
	for _, typ := range BackendTypes["screenshot"] {
		if !f(Event{Type: typ}) {
			t.Errorf("screenshot filter should pass %s", typ)
		}
	}
	if f(Event{Type: TypeRemoteSession}) {
		t.Error("screenshot filter should block remote.session")
	}
}

func TestNewFilter(t *testing.T) {
	if NewFilter(nil, nil) != nil {
		t.Error("NewFilter(nil, nil) should pass everything")
	}

	onlyExclude := NewFilter(nil, []string{TypeColorPicked})
	if onlyExclude(Event{Type: TypeColorPicked}) {
		t.Error("excluded type should be blocked")
	}
	if !onlyExclude(Event{Type: TypeRemoteSession}) {
		t.Error("other types should pass with only an exclude list")
	}

	both := NewFilter(BackendTypes["screenshot"], []string{TypeColorPicked})
	if !both(Event{Type: TypeScreenshotTaken}) {
		t.Error("included type should pass")
	}
	if both(Event{Type: TypeColorPicked}) {
		t.Error("exclude wins over include")
	}
	if both(Event{Type: TypeRemoteSession}) {
		t.Error("type outside the include list should be blocked")
	}
}

func TestBackendTypes_Completeness(t *testing.T) {
	all := []string{TypeRemoteSession, TypeScreenshotTaken, TypeColorPicked}
	covered := make(map[string]bool)
	for _, types := range BackendTypes {
		for _, t := range types {
			covered[t] = true
		}
	}
	for _, typ := range all {
		if !covered[typ] {
			t.Errorf("event type %q is not covered by any backend in BackendTypes", typ)
		}
	}
}

func TestIsKnown(t *testing.T) {
	for _, typ := range []string{TypeServerInfo, TypeRemoteSession, TypeScreenshotTaken, TypeColorPicked} {
		if !IsKnown(typ) {
			t.Errorf("IsKnown(%q) = false, want true", typ)
		}
	}
	for _, typ := range []string{"", "player.updated", "remote"} {
		if IsKnown(typ) {
			t.Errorf("IsKnown(%q) = true, want false", typ)
		}
	}
}
