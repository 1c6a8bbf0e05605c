package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mohammed-shakir/mapsheet/internal/core/observability"
)

func scrape(t *testing.T, p *Provider) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, p.Path(), nil)
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	return rr.Body.String()
}

func TestProvider_RegistersStandardCollectors_AndBuildInfo(t *testing.T) {
	p := Init(Config{Enabled: true, Build: BuildInfo{Version: "test", Revision: "r", BuildDate: "now"}})
	t.Cleanup(func() { observability.Init(prometheus.DefaultRegisterer, true) })

	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge", Help: "smoke"})
	p.Register(g)
	g.Set(42)
	if n := testutil.CollectAndCount(g); n == 0 {
		t.Fatalf("expected at least 1 sample from test_gauge, got %d", n)
	}

	body := scrape(t, p)
	if !strings.Contains(body, "go_goroutines") {
		t.Fatalf("expected go_goroutines in payload; got:\n%s", body)
	}
	if !strings.Contains(body, `app_build_info{build_date="now",revision="r",version="test"} 1`) {
		t.Fatalf("expected app_build_info in payload; got:\n%s", body)
	}
	if p.Path() != "/metrics" || !p.Enabled() {
		t.Fatalf("path=%q enabled=%v", p.Path(), p.Enabled())
	}
}

func TestProvider_ServiceMetricsLandOnPrivateRegistry(t *testing.T) {
	p := Init(Config{Enabled: true})
	t.Cleanup(func() { observability.Init(prometheus.DefaultRegisterer, true) })

	observability.ObserveDraw("stores", "leaflet", 2, 1, 1)
	observability.AddCacheHits(1)
	observability.ObserveCacheOp("mget", nil, 0.002)

	body := scrape(t, p)
	for _, want := range []string{
		`mapsheet_draws_total{map="stores",provider="leaflet"} 1`,
		`mapsheet_points_total{map="stores",validity="invalid"} 1`,
		`cache_results_total{outcome="hit"} 1`,
		`redis_operation_duration_seconds_count{op="mget"} 1`,
		`app_build_info{build_date="",revision="",version="dev"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}
}

func TestProvider_Disabled(t *testing.T) {
	p := Init(Config{Path: "/m"})
	t.Cleanup(func() { observability.Init(prometheus.DefaultRegisterer, true) })
	observability.ObserveDraw("stores", "google", 1, 0, 1)
	if strings.Contains(scrape(t, p), "mapsheet_draws_total") {
		t.Fatalf("disabled service metrics must not be recorded")
	}
	if p.Path() != "/m" {
		t.Fatalf("path=%q", p.Path())
	}
}
