package mapsdk

import "slices"

type Kind string

const (
	KindGoogle   Kind = "google"
	KindMapQuest Kind = "mapquest"
	KindMapBox   Kind = "mapbox"
	KindLeaflet  Kind = "leaflet"
)

type TileLayer struct {
	URL     string  `json:"url"`
	Options Options `json:"options,omitempty"`
}

// Map is a map handle bound to a container element.
type Map struct {
	kind      Kind
	container string
	options   Options
	tiles     []TileLayer
	markers   []*Marker
	groups    []*LayerGroup
	info      *InfoWindow
	fitted    *Bounds
	fitCalls  int
}

func NewMap(kind Kind, container string, opts Options) *Map {
	if opts == nil {
		opts = Options{}
	}
	return &Map{kind: kind, container: container, options: opts}
}

func (m *Map) Kind() Kind              { return m.kind }
func (m *Map) Container() string       { return m.container }
func (m *Map) Options() Options        { return m.options }
func (m *Map) TileLayers() []TileLayer { return m.tiles }

func (m *Map) AddTileLayer(t TileLayer) { m.tiles = append(m.tiles, t) }

func (m *Map) AddMarker(mk *Marker) {
	if mk == nil || m.hasDirect(mk.id) {
		return
	}
	m.markers = append(m.markers, mk)
}

func (m *Map) hasDirect(id MarkerID) bool {
	return slices.ContainsFunc(m.markers, func(x *Marker) bool { return x.id == id })
}

// RemoveMarker detaches the marker from the map and from any layer group
// attached to it.
func (m *Map) RemoveMarker(id MarkerID) bool {
	removed := false
	if i := slices.IndexFunc(m.markers, func(x *Marker) bool { return x.id == id }); i >= 0 {
		m.markers = slices.Delete(m.markers, i, i+1)
		removed = true
	}
	for _, g := range m.groups {
		if g.RemoveMarker(id) {
			removed = true
		}
	}
	if removed && m.info != nil && m.info.anchor != nil && m.info.anchor.id == id {
		m.info.Close()
	}
	return removed
}

// AddLayer attaches a layer group. Markers added to the group later are
// visible on the map as well.
func (m *Map) AddLayer(g *LayerGroup) {
	if g == nil || slices.Contains(m.groups, g) {
		return
	}
	m.groups = append(m.groups, g)
}

func (m *Map) Layers() []*LayerGroup { return m.groups }

// Markers returns direct markers followed by layer group markers.
func (m *Map) Markers() []*Marker {
	out := make([]*Marker, 0, len(m.markers))
	out = append(out, m.markers...)
	for _, g := range m.groups {
		out = append(out, g.markers...)
	}
	return out
}

func (m *Map) Marker(id MarkerID) (*Marker, bool) {
	for _, mk := range m.Markers() {
		if mk.id == id {
			return mk, true
		}
	}
	return nil, false
}

// FitBounds sets the viewport to b. Empty bounds are recorded as a call but
// leave the viewport unchanged.
func (m *Map) FitBounds(b *Bounds) {
	m.fitCalls++
	if b.IsEmpty() {
		return
	}
	cp := *b
	m.fitted = &cp
}

// BestFit fits the viewport to every marker on the map.
func (m *Map) BestFit() {
	b := NewBounds()
	for _, mk := range m.Markers() {
		b.Extend(mk.position)
	}
	m.FitBounds(b)
}

func (m *Map) FitCalls() int   { return m.fitCalls }
func (m *Map) Fitted() *Bounds { return m.fitted }

func (m *Map) SetInfoWindow(iw *InfoWindow) { m.info = iw }
func (m *Map) InfoWindow() *InfoWindow      { return m.info }

// LayerGroup holds markers that are added to a map as one unit.
type LayerGroup struct {
	name    string
	markers []*Marker
}

func NewLayerGroup(name string) *LayerGroup { return &LayerGroup{name: name} }

func (g *LayerGroup) Name() string { return g.name }

func (g *LayerGroup) AddMarker(mk *Marker) {
	if mk == nil || slices.Contains(g.markers, mk) {
		return
	}
	g.markers = append(g.markers, mk)
}

func (g *LayerGroup) RemoveMarker(id MarkerID) bool {
	i := slices.IndexFunc(g.markers, func(x *Marker) bool { return x.id == id })
	if i < 0 {
		return false
	}
	g.markers = slices.Delete(g.markers, i, i+1)
	return true
}

func (g *LayerGroup) Markers() []*Marker { return g.markers }

func (g *LayerGroup) AddTo(m *Map) { m.AddLayer(g) }

// InfoWindow is a popup shared by all markers of a map. Only one can be open.
type InfoWindow struct {
	content  string
	maxWidth int
	anchor   *Marker
	opened   bool
	opens    int
}

func NewInfoWindow(content string, maxWidth int) *InfoWindow {
	return &InfoWindow{content: content, maxWidth: maxWidth}
}

func (w *InfoWindow) Content() string     { return w.content }
func (w *InfoWindow) SetContent(s string) { w.content = s }
func (w *InfoWindow) MaxWidth() int       { return w.maxWidth }
func (w *InfoWindow) Anchor() *Marker     { return w.anchor }
func (w *InfoWindow) Opened() bool        { return w.opened }

// Opens counts Open calls since construction.
func (w *InfoWindow) Opens() int { return w.opens }

func (w *InfoWindow) Open(m *Map, anchor *Marker) {
	w.anchor = anchor
	w.opened = true
	w.opens++
	if m != nil {
		m.info = w
	}
}

func (w *InfoWindow) Close() {
	w.opened = false
}
