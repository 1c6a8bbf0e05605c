// Package provider defines the rendering contract shared by the mapping
// backends and the helpers they have in common.
package provider

import (
	"errors"

	"github.com/mohammed-shakir/mapsheet/internal/document"
	"github.com/mohammed-shakir/mapsheet/internal/mapsdk"
	"github.com/mohammed-shakir/mapsheet/internal/point"
)

var ErrUnknownProvider = errors.New("unknown provider")

// Provider draws points with one mapping widget. Initialize binds (or
// adopts) a map; DrawPoints places the valid points with finite coordinates
// on it.
type Provider interface {
	Name() string
	Initialize(container document.Container)
	DrawPoints(points []*point.Point)
	Map() *mapsdk.Map
}

// Options are the passthrough settings every backend accepts.
type Options struct {
	// Map adopts an existing handle instead of constructing one.
	Map *mapsdk.Map
	// MapOptions and LayerOptions are merged over the backend defaults.
	MapOptions   mapsdk.Options
	LayerOptions mapsdk.Options
	// MarkerLayer is used instead of a fresh layer group where the backend
	// draws into one.
	MarkerLayer *mapsdk.LayerGroup
	// Accumulate keeps markers from earlier DrawPoints calls on the map.
	// By default each call replaces what the previous call drew.
	Accumulate bool
}

// Pinned reports whether the caller fixed the viewport, in which case
// auto-fit is skipped.
func Pinned(callerMapOptions mapsdk.Options) bool {
	return callerMapOptions.Has("zoom") || callerMapOptions.Has("center")
}

// Drawn tracks the markers a backend placed so the next cycle can remove
// them.
type Drawn struct {
	ids    []mapsdk.MarkerID
	points []*point.Point
}

func (d *Drawn) Add(p *point.Point, id mapsdk.MarkerID) {
	p.AttachMarker(id)
	d.ids = append(d.ids, id)
	d.points = append(d.points, p)
}

func (d *Drawn) Len() int { return len(d.ids) }

// Clear removes every tracked marker from m and detaches the points that
// still reference them.
func (d *Drawn) Clear(m *mapsdk.Map) {
	for i, id := range d.ids {
		if m != nil {
			m.RemoveMarker(id)
		}
		if cur, ok := d.points[i].Marker(); ok && cur == id {
			d.points[i].DetachMarker()
		}
	}
	d.ids = nil
	d.points = nil
}

// OnClick wires a point's click handler to a native marker so the handler
// receives both the event and the point.
func OnClick(mk *mapsdk.Marker, p *point.Point) {
	click := p.Click()
	if click == nil {
		return
	}
	mk.On("click", func(ev mapsdk.Event) {
		click(ev, p)
	})
}
