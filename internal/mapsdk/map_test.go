package mapsdk

import (
	"encoding/json"
	"math"
	"testing"
)

func TestBounds_ExtendAndCenter(t *testing.T) {
	b := NewBounds()
	if !b.IsEmpty() {
		t.Fatalf("new bounds must be empty")
	}
	b.Extend(LatLng{Lat: 40.7, Lng: -74.0})
	b.Extend(LatLng{Lat: 41.7, Lng: -73.0})
	if b.IsEmpty() {
		t.Fatalf("bounds must not be empty after Extend")
	}
	if b.SW != (LatLng{Lat: 40.7, Lng: -74.0}) || b.NE != (LatLng{Lat: 41.7, Lng: -73.0}) {
		t.Fatalf("unexpected bounds: %+v", b)
	}
	c := b.Center()
	if c.Lat < 41.19 || c.Lat > 41.21 || c.Lng != -73.5 {
		t.Fatalf("center=%+v", c)
	}
	if !b.Contains(LatLng{Lat: 41, Lng: -73.5}) {
		t.Fatalf("expected point inside bounds")
	}
	b.Reset()
	if !b.IsEmpty() {
		t.Fatalf("Reset must empty bounds")
	}
}

func TestBounds_IgnoresNonFinite(t *testing.T) {
	b := NewBounds()
	b.Extend(LatLng{Lat: math.Inf(1), Lng: 1})
	b.Extend(LatLng{Lat: 1, Lng: math.NaN()})
	if !b.IsEmpty() {
		t.Fatalf("non-finite positions must not extend bounds: %+v", b)
	}
	b.Extend(LatLng{Lat: 1, Lng: 2})
	b.Extend(LatLng{Lat: math.Inf(-1), Lng: 2})
	if b.SW != (LatLng{Lat: 1, Lng: 2}) || b.NE != b.SW {
		t.Fatalf("bounds=%+v", b)
	}
	if _, err := json.Marshal(b); err != nil {
		t.Fatalf("bounds must stay encodable: %v", err)
	}
}

func TestMerge_OneLevelCallerWins(t *testing.T) {
	base := Options{"zoom": 13, "nested": map[string]any{"a": 1, "b": 2}, "keep": true}
	over := Options{"zoom": 4, "nested": map[string]any{"a": 9}}

	got := Merge(base, over)
	if got["zoom"] != 4 {
		t.Fatalf("zoom=%v want 4", got["zoom"])
	}
	if got["keep"] != true {
		t.Fatalf("base-only key lost")
	}
	nested := got["nested"].(map[string]any)
	if _, ok := nested["b"]; ok {
		t.Fatalf("merge must not descend into nested maps: %v", nested)
	}
	if base["zoom"] != 13 {
		t.Fatalf("Merge mutated base")
	}
}

func TestOptions_LatLngForms(t *testing.T) {
	cases := []struct {
		name string
		v    any
		ok   bool
	}{
		{"latlng", LatLng{Lat: 1, Lng: 2}, true},
		{"floats", []float64{1, 2}, true},
		{"yaml list", []any{1, 2.0}, true},
		{"object", map[string]any{"lat": 1, "lng": 2}, true},
		{"short list", []any{1}, false},
		{"string", "1,2", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Options{"center": tc.v}.LatLng("center")
			if ok != tc.ok {
				t.Fatalf("ok=%v want %v", ok, tc.ok)
			}
			if ok && got != (LatLng{Lat: 1, Lng: 2}) {
				t.Fatalf("got %+v", got)
			}
		})
	}
}

func TestMarker_TriggerPassesEventAndOrder(t *testing.T) {
	mk := NewMarker(LatLng{Lat: 1, Lng: 2}, nil)
	var order []int
	var seen Event
	mk.On("click", func(e Event) { order = append(order, 1); seen = e })
	mk.On("click", func(Event) { order = append(order, 2) })

	if n := mk.Trigger(Event{Type: "click"}); n != 2 {
		t.Fatalf("ran %d listeners, want 2", n)
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("listener order=%v", order)
	}
	if seen.MarkerID != mk.ID() || seen.LatLng != mk.Position() {
		t.Fatalf("event not stamped with marker: %+v", seen)
	}
	if n := mk.Trigger(Event{Type: "mouseover"}); n != 0 {
		t.Fatalf("unexpected listeners for mouseover: %d", n)
	}
}

func TestMap_LayersRemoveAndScene(t *testing.T) {
	m := NewMap(KindLeaflet, "map", nil)
	g := NewLayerGroup("markers")
	a := NewMarker(LatLng{Lat: 1, Lng: 1}, nil)
	b := NewMarker(LatLng{Lat: 2, Lng: 2}, nil)
	g.AddMarker(a)
	g.AddTo(m)
	g.AddMarker(b)
	m.AddTileLayer(TileLayer{URL: "http://tiles/{z}/{x}/{y}.png"})

	if len(m.Markers()) != 2 {
		t.Fatalf("markers=%d want 2", len(m.Markers()))
	}
	if !m.RemoveMarker(a.ID()) {
		t.Fatalf("RemoveMarker returned false")
	}
	if _, ok := m.Marker(a.ID()); ok {
		t.Fatalf("removed marker still reachable")
	}

	m.BestFit()
	if m.FitCalls() != 1 || m.Fitted() == nil {
		t.Fatalf("BestFit must fit the viewport")
	}

	raw, err := json.Marshal(m.Scene())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var s Scene
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.Kind != KindLeaflet || len(s.Markers) != 1 || s.Markers[0].Layer != "markers" {
		t.Fatalf("unexpected scene: %s", raw)
	}
}

func TestInfoWindow_OpenCloseAnchor(t *testing.T) {
	m := NewMap(KindGoogle, "map", nil)
	iw := NewInfoWindow("loading...", 300)
	mk := NewMarker(LatLng{}, nil)
	m.AddMarker(mk)

	iw.Open(m, mk)
	if !iw.Opened() || iw.Anchor() != mk || m.InfoWindow() != iw {
		t.Fatalf("open did not anchor")
	}
	m.RemoveMarker(mk.ID())
	if iw.Opened() {
		t.Fatalf("removing the anchor must close the window")
	}
}
