// Package mapbox draws points into a marker layer over a hosted base map.
package mapbox

import (
	"fmt"

	"github.com/mohammed-shakir/mapsheet/internal/document"
	"github.com/mohammed-shakir/mapsheet/internal/mapsdk"
	"github.com/mohammed-shakir/mapsheet/internal/point"
	"github.com/mohammed-shakir/mapsheet/internal/provider"
)

const (
	Name         = "mapbox"
	DefaultMapID = "examples.map-vyofok3q"

	tileTemplate = "https://{s}.tiles.mapbox.com/v3/%s/{z}/{x}/{y}.png"
)

func init() {
	provider.Register(Name, func(o provider.Options) provider.Provider { return New(o) })
}

func DefaultMapOptions() mapsdk.Options {
	return mapsdk.Options{"mapId": DefaultMapID}
}

type Provider struct {
	m           *mapsdk.Map
	caller      mapsdk.Options
	mapOptions  mapsdk.Options
	markerLayer *mapsdk.LayerGroup
	bounds      *mapsdk.Bounds
	accumulate  bool
	drawn       provider.Drawn
}

func New(o provider.Options) *Provider {
	layer := o.MarkerLayer
	if layer == nil {
		layer = mapsdk.NewLayerGroup("markers")
	}
	return &Provider{
		m:           o.Map,
		caller:      o.MapOptions,
		mapOptions:  mapsdk.Merge(DefaultMapOptions(), o.MapOptions),
		markerLayer: layer,
		bounds:      mapsdk.NewBounds(),
		accumulate:  o.Accumulate,
	}
}

func (p *Provider) Name() string                    { return Name }
func (p *Provider) Map() *mapsdk.Map                { return p.m }
func (p *Provider) MapOptions() mapsdk.Options      { return p.mapOptions }
func (p *Provider) MarkerLayer() *mapsdk.LayerGroup { return p.markerLayer }

func (p *Provider) Initialize(c document.Container) {
	if p.m != nil {
		return
	}
	p.m = mapsdk.NewMap(mapsdk.KindMapBox, c.ID, p.mapOptions)
	mapID := p.mapOptions.String("mapId")
	p.m.AddTileLayer(mapsdk.TileLayer{
		URL:     tileURL(mapID),
		Options: mapsdk.Options{"mapId": mapID},
	})
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
		mk := provider.LayerMarker(pt)
		p.markerLayer.AddMarker(mk)
		p.bounds.Extend(mk.Position())
		p.drawn.Add(pt, mk.ID())
	}
	p.markerLayer.AddTo(p.m)
	if !provider.Pinned(p.caller) {
		p.m.FitBounds(p.bounds)
	}
}

func tileURL(mapID string) string { return fmt.Sprintf(tileTemplate, mapID) }
