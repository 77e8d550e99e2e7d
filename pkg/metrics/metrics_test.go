package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRegistryHandlerExposesCaptureCounters(t *testing.T) {
	registry := NewRegistry()
	registry.ExchangeRecorded("app")
	registry.ExchangeSkipped("app")
	registry.CaptureFailed("app")

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	registry.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	body := rr.Body.String()
	for _, name := range []string{
		"autofixture_exchanges_recorded_total",
		"autofixture_exchanges_skipped_total",
		"autofixture_capture_failures_total",
	} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected metric %s in output", name)
		}
	}
}

func TestNilRegistryIsInert(t *testing.T) {
	var registry *Registry

	registry.ExchangeRecorded("app")
	registry.ExchangeSkipped("app")
	registry.CaptureFailed("app")

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	registry.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 from nil registry handler, got %d", rr.Code)
	}
}
