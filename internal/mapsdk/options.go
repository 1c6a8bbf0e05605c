package mapsdk

import (
	"fmt"
	"strconv"
)

// Options is a free-form option object passed through to a widget
// constructor. Values come from YAML or Go callers.
type Options map[string]any

// Merge copies base and then overrides into a new map. The merge is one level
// deep: a nested map in overrides replaces the nested map in base.
func Merge(base, overrides Options) Options {
	out := make(Options, len(base)+len(overrides))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Has reports whether key is set to a non-nil value.
func (o Options) Has(key string) bool {
	if o == nil {
		return false
	}
	v, ok := o[key]
	return ok && v != nil
}

// String returns the value for key rendered as a string, or "" when unset.
func (o Options) String(key string) string {
	if !o.Has(key) {
		return ""
	}
	switch v := o[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Float returns the numeric value for key.
func (o Options) Float(key string) (float64, bool) {
	if !o.Has(key) {
		return 0, false
	}
	return toFloat(o[key])
}

// LatLng interprets key as a position. It accepts a LatLng, a two-element
// [lat, lng] list or a {lat, lng} object.
func (o Options) LatLng(key string) (LatLng, bool) {
	if !o.Has(key) {
		return LatLng{}, false
	}
	return AsLatLng(o[key])
}

func AsLatLng(v any) (LatLng, bool) {
	switch t := v.(type) {
	case LatLng:
		return t, true
	case *LatLng:
		if t == nil {
			return LatLng{}, false
		}
		return *t, true
	case []float64:
		if len(t) != 2 {
			return LatLng{}, false
		}
		return LatLng{Lat: t[0], Lng: t[1]}, true
	case []any:
		if len(t) != 2 {
			return LatLng{}, false
		}
		lat, ok1 := toFloat(t[0])
		lng, ok2 := toFloat(t[1])
		if !ok1 || !ok2 {
			return LatLng{}, false
		}
		return LatLng{Lat: lat, Lng: lng}, true
	case map[string]any:
		lat, ok1 := toFloat(t["lat"])
		lng, ok2 := toFloat(t["lng"])
		if !ok1 || !ok2 {
			return LatLng{}, false
		}
		return LatLng{Lat: lat, Lng: lng}, true
	case Options:
		return AsLatLng(map[string]any(t))
	}
	return LatLng{}, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
