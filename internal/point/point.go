package point

import (
	"html"
	"math"
	"strings"

	"github.com/mohammed-shakir/mapsheet/internal/mapsdk"
)

// Normalized row fields that style a point's marker.
const (
	FieldIconURL  = "icon url"
	FieldHexColor = "hexcolor"
)

// ContentFunc renders popup content from a row.
type ContentFunc func(Row) string

// TemplateFunc is a compiled popup template.
type TemplateFunc func(Row) (string, error)

// ClickFunc receives the native event and the point that owns the marker.
type ClickFunc func(ev mapsdk.Event, p *Point)

// Options is the display configuration shared by every point of a sheet.
type Options struct {
	Fields        []string
	TitleColumn   string
	PopupContent  ContentFunc
	PopupTemplate TemplateFunc
	MarkerOptions mapsdk.Options
	Click         ClickFunc
}

// Point is one row placed on the map. It is immutable apart from the marker
// reference set by the provider that drew it.
type Point struct {
	row  Row
	opts Options

	marker    mapsdk.MarkerID
	hasMarker bool
}

// New wraps row. A nil row behaves as an empty one.
func New(row Row, opts Options) *Point {
	if row == nil {
		row = Row{}
	}
	if opts.MarkerOptions == nil {
		opts.MarkerOptions = mapsdk.Options{}
	}
	return &Point{row: row, opts: opts}
}

func (p *Point) Row() Row                      { return p.row }
func (p *Point) Fields() []string              { return p.opts.Fields }
func (p *Point) MarkerOptions() mapsdk.Options { return p.opts.MarkerOptions }
func (p *Point) Click() ClickFunc              { return p.opts.Click }

func (p *Point) Latitude() float64 {
	return parseLeadingFloat(firstNonEmpty(p.row, "latitude", "lat"))
}

func (p *Point) Longitude() float64 {
	return parseLeadingFloat(firstNonEmpty(p.row, "longitude", "lng", "long"))
}

func (p *Point) Coordinates() (lat, lng float64) {
	return p.Latitude(), p.Longitude()
}

func (p *Point) LatLng() mapsdk.LatLng {
	return mapsdk.LatLng{Lat: p.Latitude(), Lng: p.Longitude()}
}

func (p *Point) IsValid() bool {
	return !math.IsNaN(p.Latitude()) && !math.IsNaN(p.Longitude())
}

// Placeable reports whether both coordinates are finite. A valid point with
// an infinite coordinate ("Infinity", "1e999") is kept but never drawn.
func (p *Point) Placeable() bool {
	lat, lng := p.Coordinates()
	return finite(lat) && finite(lng)
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func (p *Point) Get(field string) (string, bool) {
	return p.row.Get(field)
}

// Value is Get without the presence flag.
func (p *Point) Value(field string) string {
	v, _ := p.row.Get(field)
	return v
}

func (p *Point) Title() (string, bool) {
	return p.Get(p.opts.TitleColumn)
}

// Content renders the popup body. A custom function wins over a template,
// which wins over the field list. Without any of them it is empty.
func (p *Point) Content() string {
	var body string
	switch {
	case p.opts.PopupContent != nil:
		body = p.opts.PopupContent(p.row)
	case p.opts.PopupTemplate != nil:
		out, err := p.opts.PopupTemplate(p.row)
		if err != nil {
			return ""
		}
		body = out
	case p.opts.Fields != nil:
		body = p.fieldsHTML()
	default:
		return ""
	}
	return "<div class='mapsheet-popup'>" + body + "</div>"
}

func (p *Point) fieldsHTML() string {
	var b strings.Builder
	if t, ok := p.Title(); ok && t != "" {
		b.WriteString("<h3>")
		b.WriteString(html.EscapeString(t))
		b.WriteString("</h3>")
	}
	for _, f := range p.opts.Fields {
		b.WriteString("<p><strong>")
		b.WriteString(html.EscapeString(f))
		b.WriteString("</strong>: ")
		b.WriteString(html.EscapeString(p.Value(f)))
		b.WriteString("</p>")
	}
	return b.String()
}

// IconURL is the per-row icon override.
func (p *Point) IconURL() string { return p.Value(FieldIconURL) }

// HexColor is the per-row pin color, as written in the sheet.
func (p *Point) HexColor() string { return p.Value(FieldHexColor) }

// AttachMarker records the marker drawn for this point. The provider that
// drew it owns the marker.
func (p *Point) AttachMarker(id mapsdk.MarkerID) {
	p.marker = id
	p.hasMarker = true
}

func (p *Point) DetachMarker() {
	p.marker = 0
	p.hasMarker = false
}

func (p *Point) Marker() (mapsdk.MarkerID, bool) {
	return p.marker, p.hasMarker
}
