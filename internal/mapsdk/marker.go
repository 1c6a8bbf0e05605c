package mapsdk

import "sync/atomic"

type MarkerID int64

var markerSeq atomic.Int64

// Event is a native widget event delivered to listeners.
type Event struct {
	Type     string   `json:"type"`
	MarkerID MarkerID `json:"marker_id"`
	LatLng   LatLng   `json:"latlng"`
}

type Listener func(Event)

// Icon is a marker image. Size, Origin and Anchor follow the marker-image
// idiom; Options carries icon constructor options verbatim for libraries
// that take an option object.
type Icon struct {
	URL     string  `json:"url"`
	Size    *Size   `json:"size,omitempty"`
	Origin  *Point  `json:"origin,omitempty"`
	Anchor  *Point  `json:"anchor,omitempty"`
	Options Options `json:"options,omitempty"`
}

type Marker struct {
	id        MarkerID
	position  LatLng
	title     string
	popup     string
	rollover  string
	icon      *Icon
	shadow    *Icon
	options   Options
	listeners map[string][]Listener
}

// NewMarker creates a detached marker. IDs are unique per process.
func NewMarker(pos LatLng, opts Options) *Marker {
	return &Marker{
		id:        MarkerID(markerSeq.Add(1)),
		position:  pos,
		options:   opts,
		listeners: map[string][]Listener{},
	}
}

func (m *Marker) ID() MarkerID       { return m.id }
func (m *Marker) Position() LatLng   { return m.position }
func (m *Marker) Options() Options   { return m.options }
func (m *Marker) Title() string      { return m.title }
func (m *Marker) SetTitle(s string)  { m.title = s }
func (m *Marker) Popup() string      { return m.popup }
func (m *Marker) BindPopup(s string) { m.popup = s }
func (m *Marker) Rollover() string   { return m.rollover }

func (m *Marker) SetRollover(s string) { m.rollover = s }
func (m *Marker) Icon() *Icon          { return m.icon }
func (m *Marker) SetIcon(i *Icon)      { m.icon = i }
func (m *Marker) Shadow() *Icon        { return m.shadow }
func (m *Marker) SetShadow(i *Icon)    { m.shadow = i }

func (m *Marker) On(event string, l Listener) {
	m.listeners[event] = append(m.listeners[event], l)
}

func (m *Marker) HasListeners(event string) bool {
	return len(m.listeners[event]) > 0
}

// Trigger dispatches ev to every listener registered for ev.Type, in
// registration order, and returns how many ran.
func (m *Marker) Trigger(ev Event) int {
	ev.MarkerID = m.id
	if ev.LatLng == (LatLng{}) {
		ev.LatLng = m.position
	}
	ls := m.listeners[ev.Type]
	for _, l := range ls {
		l(ev)
	}
	return len(ls)
}
