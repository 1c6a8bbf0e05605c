// Package leaflet draws points into a layer group over a raw tile layer.
package leaflet

import (
	"github.com/mohammed-shakir/mapsheet/internal/document"
	"github.com/mohammed-shakir/mapsheet/internal/mapsdk"
	"github.com/mohammed-shakir/mapsheet/internal/point"
	"github.com/mohammed-shakir/mapsheet/internal/provider"
)

const (
	Name = "leaflet"

	DefaultTilePath   = "http://otile{s}.mqcdn.com/tiles/1.0.0/{type}/{z}/{x}/{y}.png"
	DefaultSubdomains = "1234"

	attribution = `Map data &copy; <a href="http://openstreetmap.org">OpenStreetMap</a> contributors, ` +
		`<a href="http://creativecommons.org/licenses/by-sa/2.0/">CC-BY-SA</a>, ` +
		`tiles &copy; <a href="http://www.mapquest.com/" target="_blank">MapQuest</a> ` +
		`<img src="http://developer.mapquest.com/content/osm/mq_logo.png" />`
)

func init() {
	provider.Register(Name, func(o provider.Options) provider.Provider { return New(o) })
}

func DefaultLayerOptions() mapsdk.Options {
	return mapsdk.Options{
		"styleId":     998,
		"attribution": attribution,
		"type":        "osm",
	}
}

// LayerOptions merges caller layer options over the defaults. The public tile
// template is used only when the caller gave no tilePath at all.
func LayerOptions(caller mapsdk.Options) mapsdk.Options {
	opts := mapsdk.Merge(DefaultLayerOptions(), caller)
	if _, ok := caller["tilePath"]; !ok {
		opts["tilePath"] = DefaultTilePath
		opts["subdomains"] = DefaultSubdomains
		opts["type"] = "osm"
	}
	return opts
}

type Provider struct {
	m            *mapsdk.Map
	mapOptions   mapsdk.Options
	layerOptions mapsdk.Options
	markerLayer  *mapsdk.LayerGroup
	bounds       *mapsdk.Bounds
	accumulate   bool
	drawn        provider.Drawn
}

func New(o provider.Options) *Provider {
	layer := o.MarkerLayer
	if layer == nil {
		layer = mapsdk.NewLayerGroup("markers")
	}
	mo := o.MapOptions
	if mo == nil {
		mo = mapsdk.Options{}
	}
	return &Provider{
		m:            o.Map,
		mapOptions:   mo,
		layerOptions: LayerOptions(o.LayerOptions),
		markerLayer:  layer,
		bounds:       mapsdk.NewBounds(),
		accumulate:   o.Accumulate,
	}
}

func (p *Provider) Name() string                    { return Name }
func (p *Provider) Map() *mapsdk.Map                { return p.m }
func (p *Provider) MapOptions() mapsdk.Options      { return p.mapOptions }
func (p *Provider) LayerOptions() mapsdk.Options    { return p.layerOptions }
func (p *Provider) MarkerLayer() *mapsdk.LayerGroup { return p.markerLayer }

func (p *Provider) Initialize(c document.Container) {
	if p.m != nil {
		return
	}
	p.m = mapsdk.NewMap(mapsdk.KindLeaflet, c.ID, p.mapOptions)
	p.m.AddTileLayer(mapsdk.TileLayer{
		URL:     p.layerOptions.String("tilePath"),
		Options: p.layerOptions,
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
	if !provider.Pinned(p.mapOptions) {
		p.m.FitBounds(p.bounds)
	}
}
