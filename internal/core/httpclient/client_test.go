package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewOutbound_Timeout(t *testing.T) {
	if c := NewOutbound(0); c.Timeout != DefaultTimeout {
		t.Fatalf("timeout=%v want default", c.Timeout)
	}
	c := NewOutbound(2 * time.Second)
	if c.Timeout != 2*time.Second {
		t.Fatalf("timeout=%v", c.Timeout)
	}
	ua, ok := c.Transport.(uaTransport)
	if !ok {
		t.Fatalf("transport=%T", c.Transport)
	}
	tr, ok := ua.next.(*http.Transport)
	if !ok || tr.Proxy == nil || tr.DialContext == nil {
		t.Fatalf("transport not configured: %#v", ua.next)
	}
}

func TestNewOutbound_UserAgent(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("User-Agent"))
	}))
	defer srv.Close()

	c := NewOutbound(time.Second)
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("User-Agent", "custom")
	resp, err = c.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()

	if len(got) != 2 || got[0] != UserAgent || got[1] != "custom" {
		t.Fatalf("user agents=%v", got)
	}
}
