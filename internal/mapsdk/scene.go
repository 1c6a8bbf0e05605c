package mapsdk

// Scene is the serializable state of a Map as consumed by the browser
// bootstrap of each widget.
type Scene struct {
	Kind       Kind             `json:"kind"`
	Container  string           `json:"container"`
	Options    Options          `json:"options,omitempty"`
	Tiles      []TileLayer      `json:"tiles,omitempty"`
	Markers    []MarkerScene    `json:"markers"`
	Fit        *Bounds          `json:"fit,omitempty"`
	InfoWindow *InfoWindowScene `json:"info_window,omitempty"`
}

type MarkerScene struct {
	ID        MarkerID `json:"id"`
	Position  LatLng   `json:"position"`
	Title     string   `json:"title,omitempty"`
	Popup     string   `json:"popup,omitempty"`
	Rollover  string   `json:"rollover,omitempty"`
	Icon      *Icon    `json:"icon,omitempty"`
	Shadow    *Icon    `json:"shadow,omitempty"`
	Layer     string   `json:"layer,omitempty"`
	Clickable bool     `json:"clickable"`
}

type InfoWindowScene struct {
	Content  string    `json:"content"`
	MaxWidth int       `json:"max_width"`
	Opened   bool      `json:"opened"`
	Anchor   *MarkerID `json:"anchor,omitempty"`
}

func (m *Map) Scene() Scene {
	s := Scene{
		Kind:      m.kind,
		Container: m.container,
		Options:   m.options,
		Tiles:     m.tiles,
		Markers:   []MarkerScene{},
		Fit:       m.fitted,
	}
	for _, mk := range m.markers {
		s.Markers = append(s.Markers, markerScene(mk, ""))
	}
	for _, g := range m.groups {
		for _, mk := range g.markers {
			s.Markers = append(s.Markers, markerScene(mk, g.name))
		}
	}
	if m.info != nil {
		iw := &InfoWindowScene{
			Content:  m.info.content,
			MaxWidth: m.info.maxWidth,
			Opened:   m.info.opened,
		}
		if m.info.anchor != nil {
			id := m.info.anchor.id
			iw.Anchor = &id
		}
		s.InfoWindow = iw
	}
	return s
}

func markerScene(mk *Marker, layer string) MarkerScene {
	return MarkerScene{
		ID:        mk.id,
		Position:  mk.position,
		Title:     mk.title,
		Popup:     mk.popup,
		Rollover:  mk.rollover,
		Icon:      mk.icon,
		Shadow:    mk.shadow,
		Layer:     layer,
		Clickable: mk.HasListeners("click"),
	}
}
