package mapbox

import (
	"strings"
	"testing"

	"github.com/mohammed-shakir/mapsheet/internal/document"
	"github.com/mohammed-shakir/mapsheet/internal/mapsdk"
	"github.com/mohammed-shakir/mapsheet/internal/point"
	"github.com/mohammed-shakir/mapsheet/internal/provider"
)

func TestInitialize_BaseLayerFromMapID(t *testing.T) {
	p := New(provider.Options{})
	p.Initialize(document.Container{ID: "map"})
	tiles := p.Map().TileLayers()
	if len(tiles) != 1 || !strings.Contains(tiles[0].URL, DefaultMapID) {
		t.Fatalf("tiles=%+v", tiles)
	}

	custom := New(provider.Options{MapOptions: mapsdk.Options{"mapId": "acme.streets"}})
	custom.Initialize(document.Container{ID: "map"})
	if !strings.Contains(custom.Map().TileLayers()[0].URL, "acme.streets") {
		t.Fatalf("caller mapId must win")
	}
}

func TestDrawPoints_MarkerLayer(t *testing.T) {
	layer := mapsdk.NewLayerGroup("shared")
	p := New(provider.Options{MarkerLayer: layer})
	p.Initialize(document.Container{ID: "map"})
	p.DrawPoints([]*point.Point{
		point.New(point.Row{"lat": "1", "lng": "1"}, point.Options{}),
		point.New(point.Row{"lat": "x", "lng": "1"}, point.Options{}),
		point.New(point.Row{"lat": "2", "lng": "2"}, point.Options{}),
	})

	if len(layer.Markers()) != 2 {
		t.Fatalf("layer markers=%d want 2", len(layer.Markers()))
	}
	if len(p.Map().Layers()) != 1 || p.Map().Layers()[0] != layer {
		t.Fatalf("marker layer must be added to the map")
	}
	if p.Map().FitCalls() != 1 {
		t.Fatalf("expected fit")
	}
	ic := layer.Markers()[0].Icon()
	if ic == nil || !strings.Contains(ic.URL, "FE7569") {
		t.Fatalf("default pin expected, got %+v", ic)
	}

	p.DrawPoints([]*point.Point{point.New(point.Row{"lat": "3", "lng": "3"}, point.Options{})})
	if len(layer.Markers()) != 1 {
		t.Fatalf("redraw must replace layer markers, got %d", len(layer.Markers()))
	}
}

func TestDrawPoints_CenterPins(t *testing.T) {
	p := New(provider.Options{MapOptions: mapsdk.Options{"center": []float64{1, 1}}})
	p.Initialize(document.Container{ID: "map"})
	p.DrawPoints([]*point.Point{point.New(point.Row{"lat": "1", "lng": "1"}, point.Options{})})
	if p.Map().FitCalls() != 0 {
		t.Fatalf("center must suppress fit")
	}
}
