package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/IBM/sarama/mocks"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mohammed-shakir/mapsheet/internal/clickevents"
	"github.com/mohammed-shakir/mapsheet/internal/core/config"
	"github.com/mohammed-shakir/mapsheet/internal/core/observability"
	"github.com/mohammed-shakir/mapsheet/internal/metrics"
	"github.com/mohammed-shakir/mapsheet/internal/sheet"
	_ "github.com/mohammed-shakir/mapsheet/internal/provider/leaflet"
	_ "github.com/mohammed-shakir/mapsheet/internal/provider/mapquest"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func testConfig(t *testing.T, defs ...config.MapDef) config.Config {
	t.Helper()
	t.Cleanup(func() { observability.Init(prometheus.DefaultRegisterer, true) })
	cfg := config.FromEnv()
	cfg.Maps = defs
	return cfg
}

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "stores.csv")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func get(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

func TestBuild_ServesCSVMapThroughRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	path := writeCSV(t, "Name,Lat,Lng\nA,40.7,-74.0\nB,,1\nC,40.8,-73.9\n")

	cfg := testConfig(t, config.MapDef{
		Name:          "stores",
		Source:        "csv",
		Key:           path,
		Provider:      "leaflet",
		Container:     "map",
		TitleColumn:   "name",
		PopupTemplate: "<b>{{.name}}</b>",
	})
	cfg.RedisAddr = mr.Addr()

	a, err := Build(context.Background(), cfg, quiet(), metrics.BuildInfo{Version: "test"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	h := a.Handler()

	if rr := get(h, http.MethodGet, "/readyz"); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready before draw: %d", rr.Code)
	}
	if err := a.Atlas().RefreshAll(context.Background()); err != nil {
		t.Fatalf("RefreshAll: %v", err)
	}
	if rr := get(h, http.MethodGet, "/readyz"); rr.Code != http.StatusOK {
		t.Fatalf("ready after draw: %d %s", rr.Code, rr.Body.String())
	}
	if len(mr.Keys()) == 0 {
		t.Fatal("fetched tables must be written to redis")
	}

	rr := get(h, http.MethodGet, "/maps/stores/scene")
	var sc struct {
		Markers []struct {
			ID    int64  `json:"id"`
			Popup string `json:"popup"`
		} `json:"markers"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &sc); err != nil {
		t.Fatal(err)
	}
	if len(sc.Markers) != 2 || sc.Markers[0].Popup != "<div class='mapsheet-popup'><b>A</b></div>" {
		t.Fatalf("scene=%+v", sc)
	}

	click := "/maps/stores/markers/" + strings.TrimSpace(itoa(sc.Markers[0].ID)) + "/click"
	if rr := get(h, http.MethodPost, click); rr.Code != http.StatusOK {
		t.Fatalf("click: %d %s", rr.Code, rr.Body.String())
	}
	body := get(h, http.MethodGet, "/metrics").Body.String()
	for _, want := range []string{
		`mapsheet_marker_clicks_total{map="stores"} 1`,
		`mapsheet_points_total{map="stores",validity="invalid"} 1`,
		`app_build_info{build_date="",revision="",version="test"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q", want)
		}
	}

	var buf bytes.Buffer
	if err := a.RenderPage(context.Background(), &buf, "stores"); err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	if !strings.Contains(buf.String(), "leaflet.js") {
		t.Fatalf("page does not boot leaflet")
	}
}

func TestBuild_SharesFetcherAndResolvesTemplateIDs(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "store.tmpl"), []byte("<i>{{.name}}</i>"), 0o600); err != nil {
		t.Fatal(err)
	}
	path := writeCSV(t, "Name,Lat,Lng\nA,1,2\n")
	cfg := testConfig(t,
		config.MapDef{Name: "a", Source: "csv", Key: path, Provider: "leaflet", Container: "map", PopupTemplate: "store"},
		config.MapDef{Name: "b", Source: "csv", Key: path, Provider: "mapquest", Container: "other"},
	)
	cfg.TemplatesDir = dir

	a, err := Build(context.Background(), cfg, quiet(), metrics.BuildInfo{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(a.fetch) != 1 {
		t.Fatalf("fetchers per kind=%d want 1", len(a.fetch))
	}
	if err := a.Atlas().RefreshAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	sc, _ := a.Atlas().Scene("a")
	if len(sc.Markers) != 1 || sc.Markers[0].Popup != "<div class='mapsheet-popup'><i>A</i></div>" {
		t.Fatalf("scene=%+v", sc)
	}
	if got := a.Atlas().NamesForKey(path); len(got) != 2 {
		t.Fatalf("names for key=%v", got)
	}
}

func TestBuild_Errors(t *testing.T) {
	cfg := testConfig(t, config.MapDef{Name: "x", Source: "csv", Key: "k", Provider: "nope", Container: "map"})
	if _, err := Build(context.Background(), cfg, quiet(), metrics.BuildInfo{}); err == nil || !strings.Contains(err.Error(), `map "x"`) {
		t.Fatalf("unknown provider: %v", err)
	}

	cfg = testConfig(t, config.MapDef{Name: "t", Source: "csv", Key: "k", Provider: "leaflet", Container: "map", PopupTemplate: "stroe"})
	if _, err := Build(context.Background(), cfg, quiet(), metrics.BuildInfo{}); !errors.Is(err, sheet.ErrTemplateNotFound) {
		t.Fatalf("misspelled template id: %v", err)
	}

	cfg = testConfig(t)
	cfg.RedisAddr = "127.0.0.1:1"
	if _, err := Build(context.Background(), cfg, quiet(), metrics.BuildInfo{}); err == nil {
		t.Fatal("unreachable redis must fail")
	}
}

func TestClick_PublishesEvent(t *testing.T) {
	path := writeCSV(t, "Name,Lat,Lng\nA,40.7,-74.0\n")
	cfg := testConfig(t, config.MapDef{
		Name: "stores", Source: "csv", Key: path, Provider: "leaflet", Container: "map", TitleColumn: "name",
	})
	a, err := Build(context.Background(), cfg, quiet(), metrics.BuildInfo{})
	if err != nil {
		t.Fatal(err)
	}

	mcfg := mocks.NewTestConfig()
	prod := mocks.NewAsyncProducer(t, mcfg)
	got := make(chan clickevents.Event, 1)
	prod.ExpectInputWithCheckerFunctionAndSucceed(func(b []byte) error {
		var ev clickevents.Event
		if err := json.Unmarshal(b, &ev); err != nil {
			return err
		}
		got <- ev
		return nil
	})
	a.clicks = clickevents.NewWithProducer(prod, "marker-clicks", 4, quiet())
	t.Cleanup(func() { _ = a.Close() })

	if err := a.Atlas().Refresh(context.Background(), "stores"); err != nil {
		t.Fatal(err)
	}
	sc, _ := a.Atlas().Scene("stores")
	if _, err := a.Atlas().Click("stores", sc.Markers[0].ID); err != nil {
		t.Fatal(err)
	}
	ev := <-got
	if ev.Map != "stores" || ev.Title != "A" || ev.MarkerID != int64(sc.Markers[0].ID) || ev.Lat != 40.7 {
		t.Fatalf("event=%+v", ev)
	}
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
