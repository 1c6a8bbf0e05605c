// Package mapquest draws points as POIs on a tile-server map widget.
package mapquest

import (
	"github.com/mohammed-shakir/mapsheet/internal/document"
	"github.com/mohammed-shakir/mapsheet/internal/mapsdk"
	"github.com/mohammed-shakir/mapsheet/internal/point"
	"github.com/mohammed-shakir/mapsheet/internal/provider"
)

const Name = "mapquest"

func init() {
	provider.Register(Name, func(o provider.Options) provider.Provider { return New(o) })
}

// DefaultMapOptions open on lower Manhattan at zoom 13. The zoom here is the
// initial view and does not count as a pinned viewport.
func DefaultMapOptions() mapsdk.Options {
	return mapsdk.Options{
		"mapTypeId":         "osm",
		"zoom":              13,
		"bestFitMargin":     0,
		"zoomOnDoubleClick": true,
		"latLng":            map[string]any{"lat": 40.735383, "lng": -73.984655},
	}
}

type Provider struct {
	m          *mapsdk.Map
	caller     mapsdk.Options
	mapOptions mapsdk.Options
	bounds     *mapsdk.Bounds
	accumulate bool
	drawn      provider.Drawn
}

func New(o provider.Options) *Provider {
	return &Provider{
		m:          o.Map,
		caller:     o.MapOptions,
		mapOptions: mapsdk.Merge(DefaultMapOptions(), o.MapOptions),
		bounds:     mapsdk.NewBounds(),
		accumulate: o.Accumulate,
	}
}

func (p *Provider) Name() string               { return Name }
func (p *Provider) Map() *mapsdk.Map           { return p.m }
func (p *Provider) MapOptions() mapsdk.Options { return p.mapOptions }

func (p *Provider) Initialize(c document.Container) {
	if p.m != nil {
		return
	}
	opts := mapsdk.Merge(mapsdk.Options{"elt": c.ID}, p.mapOptions)
	p.m = mapsdk.NewMap(mapsdk.KindMapQuest, c.ID, opts)
}

func (p *Provider) DrawPoints(points []*point.Point) {
	if p.m == nil {
		p.Initialize(document.Container{})
	}
	if !p.accumulate {
		p.drawn.Clear(p.m)
		p.bounds.Reset()
	}
	for _, pt := range points {
		if !pt.Placeable() {
			continue
		}
		poi := drawPoi(pt)
		p.m.AddMarker(poi)
		p.bounds.Extend(poi.Position())
		p.drawn.Add(pt, poi.ID())
	}
	if !provider.Pinned(p.caller) {
		p.m.BestFit()
	}
}

// Bounds is the extent of every POI drawn since the last reset.
func (p *Provider) Bounds() *mapsdk.Bounds { return p.bounds }

func drawPoi(pt *point.Point) *mapsdk.Marker {
	poi := mapsdk.NewMarker(pt.LatLng(), pt.MarkerOptions())
	if t, ok := pt.Title(); ok {
		poi.SetRollover(t)
		poi.SetTitle(t)
	}
	poi.BindPopup(pt.Content())
	provider.OnClick(poi, pt)
	return poi
}
