package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveProvider(t *testing.T) {
	before := testutil.ToFloat64(providerRequestsTotal.WithLabelValues("gemini", "extract", "timeout"))
	ObserveProvider("gemini", "extract", "timeout", 2*time.Second)
	after := testutil.ToFloat64(providerRequestsTotal.WithLabelValues("gemini", "extract", "timeout"))

	if after-before != 1 {
		t.Errorf("provider_requests_total delta = %v, want 1", after-before)
	}
}

func TestCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("elevenlabs", "hit"))
	misses := testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("elevenlabs", "miss"))

	CacheLookup("elevenlabs", true)
	CacheLookup("elevenlabs", false)
	CacheLookup("elevenlabs", false)

	if got := testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("elevenlabs", "hit")) - hits; got != 1 {
		t.Errorf("hit delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("elevenlabs", "miss")) - misses; got != 2 {
		t.Errorf("miss delta = %v, want 2", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	RouteDecision("scene")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "samaksh_query_routes_total") {
		t.Error("expected samaksh_query_routes_total in exposition")
	}
}
