package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func scrape(t *testing.T, reg *Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape status = %d", rec.Code)
	}
	return rec.Body.String()
}

func TestRegistry_ExposesDefaultCollectors(t *testing.T) {
	body := scrape(t, NewRegistry())
	for _, name := range []string{"go_goroutines", "http_requests_in_flight"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s in scrape output", name)
		}
	}
}

func TestRecordHTTPMetrics(t *testing.T) {
	reg := NewRegistry()
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/products/:id", "404"))

	RecordHTTPMetrics("GET", "/api/products/:id", 404, 12*time.Millisecond)

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/products/:id", "404"))
	if after != before+1 {
		t.Fatalf("counter = %v, want %v", after, before+1)
	}
	body := scrape(t, reg)
	if !strings.Contains(body, `route="/api/products/:id"`) {
		t.Fatal("expected route label in scrape output")
	}
}

func TestInFlightGauge(t *testing.T) {
	start := testutil.ToFloat64(httpRequestsInFlight)
	IncrementInFlight()
	IncrementInFlight()
	DecrementInFlight()
	if got := testutil.ToFloat64(httpRequestsInFlight); got != start+1 {
		t.Fatalf("in flight = %v, want %v", got, start+1)
	}
	DecrementInFlight()
}

func TestRegistry_CustomCollectors(t *testing.T) {
	reg := NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_test_total", Help: "test"})

	if err := reg.Register(counter); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := reg.Register(counter); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if !reg.Unregister(counter) {
		t.Fatal("expected Unregister to report true")
	}
}
