package atlas

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mohammed-shakir/mapsheet/internal/document"
	"github.com/mohammed-shakir/mapsheet/internal/point"
	_ "github.com/mohammed-shakir/mapsheet/internal/provider/google"
	_ "github.com/mohammed-shakir/mapsheet/internal/provider/mapbox"
	"github.com/mohammed-shakir/mapsheet/internal/sheet"
	"github.com/mohammed-shakir/mapsheet/internal/source"
)

type stubSource struct {
	rows  []point.Row
	err   error
	calls int
}

func (s *stubSource) Fetch(context.Context, source.Request) (source.Tables, source.Metadata, error) {
	s.calls++
	if s.err != nil {
		return nil, source.Metadata{}, s.err
	}
	return source.Tables{"Sheet1": s.rows}, source.Metadata{TableNames: []string{"Sheet1"}}, nil
}

type recordingInvalidator struct{ keys []string }

func (r *recordingInvalidator) Invalidate(_ context.Context, key, sheet string) error {
	r.keys = append(r.keys, key+"/"+sheet)
	return nil
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newSheet(t *testing.T, key, provider string, src source.Fetcher) *sheet.Sheet {
	t.Helper()
	s, err := sheet.New(sheet.Config{
		Key:          key,
		SheetName:    "Sheet1",
		ProviderName: provider,
		Container:    document.Container{ID: "map"},
		Fields:       []string{"title"},
		TitleColumn:  "title",
	}, sheet.WithFetcher(src), sheet.WithLogger(quiet()))
	if err != nil {
		t.Fatalf("sheet.New: %v", err)
	}
	return s
}

var rowsAB = []point.Row{
	{"lat": "40.7", "lng": "-74.0", "title": "A"},
	{"lat": "bad", "lng": "-74.0", "title": "B"},
	{"lat": "40.8", "lng": "-73.9", "title": "C"},
}

func TestRefreshSceneAndStatus(t *testing.T) {
	a := New(quiet())
	src := &stubSource{rows: rowsAB}
	if err := a.Add("stores", newSheet(t, "k1", "google", src), nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := a.Add("stores", newSheet(t, "k1", "google", src), nil); !errors.Is(err, ErrDuplicateMap) {
		t.Fatalf("err=%v", err)
	}

	if _, err := a.Scene("stores"); !errors.Is(err, ErrNotDrawn) {
		t.Fatalf("scene before draw: %v", err)
	}
	if err := a.Ready(context.Background()); err == nil {
		t.Fatalf("not ready before first draw")
	}
	if _, err := a.Scene("nope"); !errors.Is(err, ErrUnknownMap) {
		t.Fatalf("err=%v", err)
	}

	if err := a.Refresh(context.Background(), "stores"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	sc, err := a.Scene("stores")
	if err != nil {
		t.Fatalf("Scene: %v", err)
	}
	if sc.Kind != "google" || len(sc.Markers) != 2 || sc.Fit == nil {
		t.Fatalf("scene=%+v", sc)
	}
	if err := a.Ready(context.Background()); err != nil {
		t.Fatalf("Ready: %v", err)
	}

	st, _ := a.Status("stores")
	if st.Points != 3 || st.Valid != 2 || st.Markers != 2 || st.DrawnAt.IsZero() || st.LastError != "" {
		t.Fatalf("status=%+v", st)
	}

	// a second refresh replaces the markers rather than stacking them
	if err := a.Refresh(context.Background(), "stores"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if st, _ := a.Status("stores"); st.Markers != 2 {
		t.Fatalf("markers after redraw=%d want 2", st.Markers)
	}
}

func TestRefreshFailureKeepsDrawing(t *testing.T) {
	a := New(quiet())
	src := &stubSource{rows: rowsAB}
	_ = a.Add("stores", newSheet(t, "k1", "mapbox", src), nil)
	if err := a.Refresh(context.Background(), "stores"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	src.err = errors.New("upstream down")
	if err := a.Refresh(context.Background(), "stores"); err == nil {
		t.Fatalf("expected error")
	}
	st, _ := a.Status("stores")
	if st.Markers != 2 || !strings.Contains(st.LastError, "upstream down") {
		t.Fatalf("status=%+v", st)
	}
	if err := a.RefreshAll(context.Background()); err == nil {
		t.Fatalf("RefreshAll must surface the failure")
	}
}

func TestClick(t *testing.T) {
	a := New(quiet())
	_ = a.Add("g", newSheet(t, "k1", "google", &stubSource{rows: rowsAB}), nil)
	_ = a.Add("b", newSheet(t, "k2", "mapbox", &stubSource{rows: rowsAB}), nil)
	if err := a.RefreshAll(context.Background()); err != nil {
		t.Fatalf("RefreshAll: %v", err)
	}

	sc, _ := a.Scene("g")
	res, err := a.Click("g", sc.Markers[0].ID)
	if err != nil {
		t.Fatalf("Click: %v", err)
	}
	if res.InfoWindow == nil || !res.InfoWindow.Opened || !strings.Contains(res.Popup, "<h3>A</h3>") {
		t.Fatalf("google click result=%+v", res)
	}
	if res.InfoWindow.Anchor == nil || *res.InfoWindow.Anchor != sc.Markers[0].ID {
		t.Fatalf("info window must anchor to the clicked marker")
	}

	sb, _ := a.Scene("b")
	res, err = a.Click("b", sb.Markers[1].ID)
	if err != nil {
		t.Fatalf("Click: %v", err)
	}
	if res.InfoWindow != nil || !strings.Contains(res.Popup, "<h3>C</h3>") {
		t.Fatalf("mapbox click result=%+v", res)
	}

	if _, err := a.Click("g", 999999); !errors.Is(err, ErrUnknownMarker) {
		t.Fatalf("err=%v", err)
	}
}

func TestGeoJSONCellsAndKeys(t *testing.T) {
	a := New(quiet())
	inv := &recordingInvalidator{}
	_ = a.Add("g", newSheet(t, "shared", "google", &stubSource{rows: rowsAB}), inv)
	_ = a.Add("h", newSheet(t, "shared", "mapbox", &stubSource{rows: rowsAB}), nil)
	_ = a.Add("x", newSheet(t, "other", "mapbox", &stubSource{rows: rowsAB}), nil)
	_ = a.Refresh(context.Background(), "g")

	fc, err := a.GeoJSON("g", 7)
	if err != nil {
		t.Fatalf("GeoJSON: %v", err)
	}
	if len(fc.Features) != 2 || fc.Features[0].ID == "" {
		t.Fatalf("features=%+v", fc.Features)
	}
	if _, err := a.GeoJSON("g", 99); err == nil {
		t.Fatalf("bad resolution must fail")
	}
	cells, err := a.Cells("g", 3)
	if err != nil || len(cells.Features) == 0 {
		t.Fatalf("Cells: %v %+v", err, cells)
	}

	if got := strings.Join(a.NamesForKey("shared"), ","); got != "g,h" {
		t.Fatalf("names for key=%s", got)
	}

	if err := a.Invalidate(context.Background(), "g"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if err := a.Invalidate(context.Background(), "h"); err != nil {
		t.Fatalf("Invalidate without cache: %v", err)
	}
	if len(inv.keys) != 1 || inv.keys[0] != "shared/Sheet1" {
		t.Fatalf("invalidated=%v", inv.keys)
	}

	var seen string
	_ = a.With("g", func(s *sheet.Sheet) error { seen = s.Key(); return nil })
	if seen != "shared" {
		t.Fatalf("With saw %q", seen)
	}
}
