// Package mapsdk models the mapping widgets the providers drive: map handles,
// markers, icons, info windows, layers and bounds. Each handle records the
// calls made on it and can be flattened into a Scene for the browser
// bootstrap.
package mapsdk

import "math"

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Finite reports whether both coordinates are finite numbers.
func (p LatLng) Finite() bool {
	return !math.IsNaN(p.Lat) && !math.IsInf(p.Lat, 0) && !math.IsNaN(p.Lng) && !math.IsInf(p.Lng, 0)
}

// Bounds is a growing rectangle over every position passed to Extend.
type Bounds struct {
	SW    LatLng `json:"sw"`
	NE    LatLng `json:"ne"`
	valid bool
}

func NewBounds() *Bounds { return &Bounds{} }

// Extend grows b to include p. Positions with a non-finite coordinate are
// ignored.
func (b *Bounds) Extend(p LatLng) {
	if !p.Finite() {
		return
	}
	if !b.valid {
		b.SW, b.NE = p, p
		b.valid = true
		return
	}
	b.SW.Lat = math.Min(b.SW.Lat, p.Lat)
	b.SW.Lng = math.Min(b.SW.Lng, p.Lng)
	b.NE.Lat = math.Max(b.NE.Lat, p.Lat)
	b.NE.Lng = math.Max(b.NE.Lng, p.Lng)
}

func (b *Bounds) IsEmpty() bool { return b == nil || !b.valid }

func (b *Bounds) Contains(p LatLng) bool {
	if b.IsEmpty() {
		return false
	}
	return p.Lat >= b.SW.Lat && p.Lat <= b.NE.Lat &&
		p.Lng >= b.SW.Lng && p.Lng <= b.NE.Lng
}

func (b *Bounds) Center() LatLng {
	if b.IsEmpty() {
		return LatLng{}
	}
	return LatLng{Lat: (b.SW.Lat + b.NE.Lat) / 2, Lng: (b.SW.Lng + b.NE.Lng) / 2}
}

func (b *Bounds) Reset() {
	b.SW, b.NE = LatLng{}, LatLng{}
	b.valid = false
}

// Size and Point are pixel measures used by marker images.
type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}
