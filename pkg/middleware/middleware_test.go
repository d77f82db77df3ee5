package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func okHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
}

func TestPrometheusCountsRequests(t *testing.T) {
	registry := prometheus.NewRegistry()
	handler := Prometheus(WithRegistry(registry), WithNamespace("test"))(okHandler(http.StatusOK))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	}

	expected := `
# HELP test_requests_total Total number of pipeline requests
# TYPE test_requests_total counter
test_requests_total{method="GET",status="200"} 3
`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "test_requests_total"); err != nil {
		t.Error(err)
	}
}

func TestPrometheusLabelsStatus(t *testing.T) {
	registry := prometheus.NewRegistry()
	handler := Prometheus(WithRegistry(registry))(okHandler(http.StatusInternalServerError))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}

	expected := `
# HELP glaze_requests_total Total number of pipeline requests
# TYPE glaze_requests_total counter
glaze_requests_total{method="GET",status="500"} 1
`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "glaze_requests_total"); err != nil {
		t.Error(err)
	}
}

func TestOpenTelemetryPassesThrough(t *testing.T) {
	handler := OpenTelemetry()(okHandler(http.StatusOK))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/page", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestOpenTelemetryFilter(t *testing.T) {
	var served bool
	handler := OpenTelemetry(WithRequestFilter(func(r *http.Request) bool { return false }))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { served = true }),
	)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !served {
		t.Error("filtered request did not reach the handler")
	}
}
