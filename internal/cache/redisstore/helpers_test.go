package redisstore

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mohammed-shakir/mapsheet/internal/metrics"
)

func newRecorder(t *testing.T, p *metrics.Provider) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	return rr.Body.String()
}
