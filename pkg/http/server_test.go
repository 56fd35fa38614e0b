package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestServerExportsRequestMetrics(t *testing.T) {
	s := NewServer(nil)

	// Drive one request through the middleware chain so the counters exist.
	req := httptest.NewRequest(http.MethodGet, "/nothing-here", nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "http_requests_total") {
		t.Fatalf("request counters missing from /metrics")
	}
	if !strings.Contains(body, "http_request_duration_seconds") {
		t.Fatalf("latency histograms missing from /metrics")
	}
}
