package provider

import (
	"strings"

	"github.com/mohammed-shakir/mapsheet/internal/mapsdk"
	"github.com/mohammed-shakir/mapsheet/internal/point"
)

const (
	DefaultPinColor = "FE7569"

	pinURL    = "http://chart.apis.google.com/chart?chst=d_map_pin_letter&chld=|"
	shadowURL = "http://chart.apis.google.com/chart?chst=d_map_pin_shadow"

	iconURLKey = "iconUrl"
)

type IconSource int

const (
	IconFromRow IconSource = iota
	IconFromMarkerOptions
	IconGeneratedPin
)

// ResolvedIcon is the icon chosen for a point and the matching shadow for
// generated pins.
type ResolvedIcon struct {
	Source IconSource
	URL    string
	Color  string
	Shadow string
}

// ResolveIcon picks the marker image: the row's "icon url", then the marker
// option iconUrl, then a chart pin colored by the row's hexcolor.
func ResolveIcon(p *point.Point) ResolvedIcon {
	if u := p.IconURL(); u != "" {
		return ResolvedIcon{Source: IconFromRow, URL: u}
	}
	if u := p.MarkerOptions().String(iconURLKey); u != "" {
		return ResolvedIcon{Source: IconFromMarkerOptions, URL: u}
	}
	color := p.HexColor()
	if color == "" {
		color = DefaultPinColor
	}
	color = strings.TrimPrefix(color, "#")
	return ResolvedIcon{
		Source: IconGeneratedPin,
		URL:    PinURL(color),
		Color:  color,
		Shadow: shadowURL,
	}
}

func PinURL(color string) string { return pinURL + color }

// PinImage and PinShadow are the marker images for generated pins.
func PinImage(color string) *mapsdk.Icon {
	return &mapsdk.Icon{
		URL:    PinURL(color),
		Size:   &mapsdk.Size{W: 21, H: 34},
		Origin: &mapsdk.Point{X: 0, Y: 0},
		Anchor: &mapsdk.Point{X: 10, Y: 34},
	}
}

func PinShadow() *mapsdk.Icon {
	return &mapsdk.Icon{
		URL:    shadowURL,
		Size:   &mapsdk.Size{W: 40, H: 37},
		Origin: &mapsdk.Point{X: 0, Y: 0},
		Anchor: &mapsdk.Point{X: 12, Y: 35},
	}
}

// LeafletIcon builds icon options in the option-object idiom: marker options
// are copied and the resolved URLs laid over them.
func LeafletIcon(p *point.Point) *mapsdk.Icon {
	ri := ResolveIcon(p)
	switch ri.Source {
	case IconFromRow:
		opts := mapsdk.Merge(p.MarkerOptions(), mapsdk.Options{iconURLKey: ri.URL})
		return &mapsdk.Icon{URL: ri.URL, Options: opts}
	case IconFromMarkerOptions:
		return &mapsdk.Icon{URL: ri.URL, Options: mapsdk.Merge(p.MarkerOptions(), nil)}
	default:
		opts := mapsdk.Merge(p.MarkerOptions(), mapsdk.Options{
			iconURLKey:     ri.URL,
			"iconSize":     []int{21, 34},
			"iconAnchor":   []int{10, 34},
			"popupAnchor":  []int{0, -34},
			"shadowUrl":    ri.Shadow,
			"shadowSize":   []int{40, 37},
			"shadowAnchor": []int{12, 35},
		})
		return &mapsdk.Icon{URL: ri.URL, Options: opts}
	}
}

// LayerMarker builds a marker with a bound popup and option-object icon, as
// drawn into a layer group.
func LayerMarker(pt *point.Point) *mapsdk.Marker {
	mk := mapsdk.NewMarker(pt.LatLng(), pt.MarkerOptions())
	mk.BindPopup(pt.Content())
	if t, ok := pt.Title(); ok {
		mk.SetTitle(t)
	}
	mk.SetIcon(LeafletIcon(pt))
	OnClick(mk, pt)
	return mk
}
