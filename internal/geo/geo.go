// Package geo exports drawn points as GeoJSON, indexed by H3 cell.
package geo

import (
	"fmt"
	"sort"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/mapsheet/internal/point"
)

const DefaultRes = 8

type Geometry struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

type Feature struct {
	Type       string         `json:"type"`
	ID         string         `json:"id,omitempty"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

func newCollection(n int) FeatureCollection {
	return FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, n)}
}

func ValidateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}

// CellFor returns the H3 cell containing lat,lng at res.
func CellFor(lat, lng float64, res int) (string, error) {
	if err := ValidateRes(res); err != nil {
		return "", err
	}
	c, err := h3.LatLngToCell(h3.LatLng{Lat: lat, Lng: lng}, res)
	if err != nil {
		return "", fmt.Errorf("h3 cell: %w", err)
	}
	return c.String(), nil
}

// Points builds one Point feature per placeable point, in order. Properties carry
// the row, the title, the H3 cell and the marker id when one was drawn.
func Points(points []*point.Point, res int) (FeatureCollection, error) {
	if err := ValidateRes(res); err != nil {
		return FeatureCollection{}, err
	}
	fc := newCollection(len(points))
	for _, p := range points {
		if !p.Placeable() {
			continue
		}
		lat, lng := p.Coordinates()
		cell, err := CellFor(lat, lng, res)
		if err != nil {
			return FeatureCollection{}, err
		}
		props := make(map[string]any, len(p.Row())+3)
		for k, v := range p.Row() {
			props[k] = v
		}
		props["h3"] = cell
		if t, ok := p.Title(); ok {
			props["title"] = t
		}
		f := Feature{
			Type:       "Feature",
			Geometry:   Geometry{Type: "Point", Coordinates: []float64{lng, lat}},
			Properties: props,
		}
		if id, ok := p.Marker(); ok {
			f.ID = fmt.Sprintf("%d", id)
			props["marker_id"] = int64(id)
		}
		fc.Features = append(fc.Features, f)
	}
	return fc, nil
}

// Cells groups placeable points by H3 cell at res and returns one Polygon
// feature per cell with its point count, sorted by cell.
func Cells(points []*point.Point, res int) (FeatureCollection, error) {
	if err := ValidateRes(res); err != nil {
		return FeatureCollection{}, err
	}
	counts := map[h3.Cell]int{}
	for _, p := range points {
		if !p.Placeable() {
			continue
		}
		lat, lng := p.Coordinates()
		c, err := h3.LatLngToCell(h3.LatLng{Lat: lat, Lng: lng}, res)
		if err != nil {
			return FeatureCollection{}, fmt.Errorf("h3 cell: %w", err)
		}
		counts[c]++
	}

	cells := make([]h3.Cell, 0, len(counts))
	for c := range counts {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].String() < cells[j].String() })

	fc := newCollection(len(cells))
	for _, c := range cells {
		ring, err := boundaryRing(c)
		if err != nil {
			return FeatureCollection{}, err
		}
		fc.Features = append(fc.Features, Feature{
			Type:       "Feature",
			ID:         c.String(),
			Geometry:   Geometry{Type: "Polygon", Coordinates: [][][]float64{ring}},
			Properties: map[string]any{"h3": c.String(), "res": res, "count": counts[c]},
		})
	}
	return fc, nil
}

// boundaryRing returns the closed [lng,lat] ring of c.
func boundaryRing(c h3.Cell) ([][]float64, error) {
	b, err := c.Boundary()
	if err != nil {
		return nil, fmt.Errorf("h3 boundary: %w", err)
	}
	ring := make([][]float64, 0, len(b)+1)
	for _, ll := range b {
		ring = append(ring, []float64{ll.Lng, ll.Lat})
	}
	if len(ring) > 0 {
		ring = append(ring, ring[0])
	}
	return ring, nil
}

// ToParent returns the ancestor of cell at parentRes.
func ToParent(cell string, parentRes int) (string, error) {
	if err := ValidateRes(parentRes); err != nil {
		return "", err
	}
	var c h3.Cell
	if err := c.UnmarshalText([]byte(cell)); err != nil {
		return "", fmt.Errorf("parse cell: %w", err)
	}
	if !c.IsValid() {
		return "", fmt.Errorf("invalid h3 cell %q", cell)
	}
	curRes := c.Resolution()
	if parentRes > curRes {
		return "", fmt.Errorf("parentRes %d must be <= cell resolution %d", parentRes, curRes)
	}
	if parentRes == curRes {
		return cell, nil
	}
	p, err := c.Parent(parentRes)
	if err != nil {
		return "", fmt.Errorf("h3 parent: %w", err)
	}
	return p.String(), nil
}
