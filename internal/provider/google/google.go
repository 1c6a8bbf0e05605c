// Package google draws points on a full-featured map widget with one shared
// info window per map.
package google

import (
	"github.com/mohammed-shakir/mapsheet/internal/document"
	"github.com/mohammed-shakir/mapsheet/internal/mapsdk"
	"github.com/mohammed-shakir/mapsheet/internal/point"
	"github.com/mohammed-shakir/mapsheet/internal/provider"
)

const Name = "google"

const (
	infoWindowPlaceholder = "loading..."
	infoWindowMaxWidth    = 300
)

func init() {
	provider.Register(Name, func(o provider.Options) provider.Provider { return New(o) })
}

// DefaultMapOptions are applied under caller map options.
func DefaultMapOptions() mapsdk.Options {
	return mapsdk.Options{"mapTypeId": "roadmap"}
}

type Provider struct {
	m          *mapsdk.Map
	caller     mapsdk.Options
	mapOptions mapsdk.Options
	bounds     *mapsdk.Bounds
	info       *mapsdk.InfoWindow
	accumulate bool
	drawn      provider.Drawn
}

func New(o provider.Options) *Provider {
	opts := mapsdk.Merge(DefaultMapOptions(), o.MapOptions)
	// center may be given as a [lat, lng] pair
	if c, ok := opts.LatLng("center"); ok {
		opts["center"] = c
	}
	return &Provider{
		m:          o.Map,
		caller:     o.MapOptions,
		mapOptions: opts,
		accumulate: o.Accumulate,
	}
}

func (p *Provider) Name() string               { return Name }
func (p *Provider) Map() *mapsdk.Map           { return p.m }
func (p *Provider) MapOptions() mapsdk.Options { return p.mapOptions }

func (p *Provider) Initialize(c document.Container) {
	if p.m == nil {
		p.m = mapsdk.NewMap(mapsdk.KindGoogle, c.ID, p.mapOptions)
	}
	p.bounds = mapsdk.NewBounds()
	p.info = mapsdk.NewInfoWindow(infoWindowPlaceholder, infoWindowMaxWidth)
	p.m.SetInfoWindow(p.info)
}

func (p *Provider) DrawPoints(points []*point.Point) {
	if p.m == nil {
		p.Initialize(document.Container{})
	}
	if !p.accumulate {
		p.drawn.Clear(p.m)
	}
	for _, pt := range points {
		if !pt.Placeable() {
			continue
		}
		mk := p.drawMarker(pt)
		p.m.AddMarker(mk)
		p.bounds.Extend(mk.Position())
		p.drawn.Add(pt, mk.ID())
	}
	if !provider.Pinned(p.caller) {
		p.m.FitBounds(p.bounds)
	}
}

func (p *Provider) drawMarker(pt *point.Point) *mapsdk.Marker {
	mk := mapsdk.NewMarker(pt.LatLng(), pt.MarkerOptions())
	if t, ok := pt.Title(); ok {
		mk.SetTitle(t)
	}
	setMarkerIcon(mk, pt)
	p.initInfoWindow(mk, pt)
	provider.OnClick(mk, pt)
	return mk
}

func setMarkerIcon(mk *mapsdk.Marker, pt *point.Point) {
	ri := provider.ResolveIcon(pt)
	if ri.Source != provider.IconGeneratedPin {
		mk.SetIcon(&mapsdk.Icon{URL: ri.URL})
		return
	}
	mk.SetShadow(provider.PinShadow())
	mk.SetIcon(provider.PinImage(ri.Color))
}

// initInfoWindow repopulates the shared window on click unless it is already
// open on this marker.
func (p *Provider) initInfoWindow(mk *mapsdk.Marker, pt *point.Point) {
	info := p.info
	m := p.m
	mk.On("click", func(mapsdk.Event) {
		if info.Anchor() == mk && info.Opened() {
			return
		}
		info.SetContent(pt.Content())
		info.Open(m, mk)
	})
}
