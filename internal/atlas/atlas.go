// Package atlas keeps the named sheets a process serves and serializes all
// access to each of them.
package atlas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mohammed-shakir/mapsheet/internal/core/observability"
	"github.com/mohammed-shakir/mapsheet/internal/geo"
	"github.com/mohammed-shakir/mapsheet/internal/mapsdk"
	"github.com/mohammed-shakir/mapsheet/internal/sheet"
)

var (
	ErrUnknownMap    = errors.New("unknown map")
	ErrDuplicateMap  = errors.New("map already registered")
	ErrNotDrawn      = errors.New("map not drawn yet")
	ErrUnknownMarker = errors.New("unknown marker")
)

// Invalidator drops cached source data for a key and sheet.
type Invalidator interface {
	Invalidate(ctx context.Context, key, sheet string) error
}

type entry struct {
	name string
	inv  Invalidator

	mu      sync.Mutex
	sheet   *sheet.Sheet
	drawnAt time.Time
	lastErr error
}

// Status is a point-in-time view of one map.
type Status struct {
	Name      string    `json:"name"`
	Provider  string    `json:"provider"`
	Key       string    `json:"key"`
	Sheet     string    `json:"sheet,omitempty"`
	Points    int       `json:"points"`
	Valid     int       `json:"valid"`
	Markers   int       `json:"markers"`
	DrawnAt   time.Time `json:"drawn_at,omitzero"`
	LastError string    `json:"last_error,omitempty"`
}

// ClickResult reports the widget state after a dispatched click.
type ClickResult struct {
	MarkerID  mapsdk.MarkerID `json:"marker_id"`
	Listeners int             `json:"listeners"`
	Popup     string          `json:"popup"`
	// InfoWindow is set for widgets with a shared info window.
	InfoWindow *mapsdk.InfoWindowScene `json:"info_window,omitempty"`
}

type Atlas struct {
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry
}

func New(logger *slog.Logger) *Atlas {
	if logger == nil {
		logger = slog.Default()
	}
	return &Atlas{logger: logger, now: time.Now, entries: map[string]*entry{}}
}

// Add registers s under name. inv may be nil when the source is not cached.
func (a *Atlas) Add(name string, s *sheet.Sheet, inv Invalidator) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.entries[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateMap, name)
	}
	a.entries[name] = &entry{name: name, sheet: s, inv: inv}
	return nil
}

func (a *Atlas) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.entries))
	for n := range a.entries {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (a *Atlas) get(name string) (*entry, error) {
	a.mu.RLock()
	e, ok := a.entries[name]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMap, name)
	}
	return e, nil
}

// NamesForKey lists the maps fed by the given source key.
func (a *Atlas) NamesForKey(key string) []string {
	var out []string
	for _, n := range a.Names() {
		e, _ := a.get(n)
		if e.sheet.Key() == key {
			out = append(out, n)
		}
	}
	return out
}

// Refresh fetches the sheet behind name and redraws it. A failed fetch keeps
// the previous drawing and is recorded in Status.
func (a *Atlas) Refresh(ctx context.Context, name string) error {
	e, err := a.get(name)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	start := a.now()
	if err := e.sheet.Fetch(ctx); err != nil {
		e.lastErr = err
		a.logger.Warn("map refresh failed", "map", name, "err", err)
		return fmt.Errorf("refresh %s: %w", name, err)
	}
	e.lastErr = nil
	e.drawnAt = a.now()

	valid := e.sheet.ValidCount()
	invalid := len(e.sheet.Points()) - valid
	observability.ObserveDraw(name, e.sheet.Provider().Name(), valid, invalid, float64(e.drawnAt.Unix()))
	a.logger.Info("map drawn",
		"map", name,
		"provider", e.sheet.Provider().Name(),
		"sheet", e.sheet.SheetName(),
		"points", valid+invalid,
		"skipped", invalid,
		"took", e.drawnAt.Sub(start),
	)
	return nil
}

// RefreshAll refreshes every map and joins the failures.
func (a *Atlas) RefreshAll(ctx context.Context) error {
	var errs []error
	for _, n := range a.Names() {
		if err := a.Refresh(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Invalidate drops cached source data for name without redrawing.
func (a *Atlas) Invalidate(ctx context.Context, name string) error {
	e, err := a.get(name)
	if err != nil {
		return err
	}
	if e.inv == nil {
		return nil
	}
	e.mu.Lock()
	key, sheetName := e.sheet.Key(), e.sheet.Request().SheetName
	e.mu.Unlock()
	return e.inv.Invalidate(ctx, key, sheetName)
}

// With runs fn while holding the map's lock.
func (a *Atlas) With(name string, fn func(*sheet.Sheet) error) error {
	e, err := a.get(name)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.sheet)
}

func (a *Atlas) drawn(name string, fn func(*entry) error) error {
	e, err := a.get(name)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.drawnAt.IsZero() || e.sheet.Map() == nil {
		return fmt.Errorf("%w: %q", ErrNotDrawn, name)
	}
	return fn(e)
}

func (a *Atlas) Scene(name string) (mapsdk.Scene, error) {
	var sc mapsdk.Scene
	err := a.drawn(name, func(e *entry) error {
		sc = e.sheet.Map().Scene()
		return nil
	})
	return sc, err
}

// Click dispatches a native click on a drawn marker.
func (a *Atlas) Click(name string, id mapsdk.MarkerID) (ClickResult, error) {
	var res ClickResult
	err := a.drawn(name, func(e *entry) error {
		m := e.sheet.Map()
		mk, ok := m.Marker(id)
		if !ok {
			return fmt.Errorf("%w: %d on %q", ErrUnknownMarker, id, name)
		}
		res.MarkerID = id
		res.Listeners = mk.Trigger(mapsdk.Event{Type: "click"})
		res.Popup = mk.Popup()
		if sc := m.Scene(); sc.InfoWindow != nil {
			res.InfoWindow = sc.InfoWindow
			res.Popup = sc.InfoWindow.Content
		}
		return nil
	})
	return res, err
}

// GeoJSON exports the points of name with H3 cells at res.
func (a *Atlas) GeoJSON(name string, res int) (geo.FeatureCollection, error) {
	var fc geo.FeatureCollection
	err := a.drawn(name, func(e *entry) error {
		var err error
		fc, err = geo.Points(e.sheet.Points(), res)
		return err
	})
	return fc, err
}

// Cells aggregates the points of name per H3 cell at res.
func (a *Atlas) Cells(name string, res int) (geo.FeatureCollection, error) {
	var fc geo.FeatureCollection
	err := a.drawn(name, func(e *entry) error {
		var err error
		fc, err = geo.Cells(e.sheet.Points(), res)
		return err
	})
	return fc, err
}

func (a *Atlas) Status(name string) (Status, error) {
	e, err := a.get(name)
	if err != nil {
		return Status{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	st := Status{
		Name:     name,
		Provider: e.sheet.Provider().Name(),
		Key:      e.sheet.Key(),
		Sheet:    e.sheet.SheetName(),
		Points:   len(e.sheet.Points()),
		Valid:    e.sheet.ValidCount(),
		DrawnAt:  e.drawnAt,
	}
	if m := e.sheet.Map(); m != nil {
		st.Markers = len(m.Markers())
	}
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
	}
	return st, nil
}

func (a *Atlas) Statuses() []Status {
	names := a.Names()
	out := make([]Status, 0, len(names))
	for _, n := range names {
		if st, err := a.Status(n); err == nil {
			out = append(out, st)
		}
	}
	return out
}

// Ready fails until every map has been drawn at least once.
func (a *Atlas) Ready(context.Context) error {
	var pending []string
	for _, st := range a.Statuses() {
		if st.DrawnAt.IsZero() {
			pending = append(pending, st.Name)
		}
	}
	if len(pending) > 0 {
		return fmt.Errorf("%w: %v", ErrNotDrawn, pending)
	}
	return nil
}
