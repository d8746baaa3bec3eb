package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Andi3172/fullstack-tic-project/pkg/catalog"
	"github.com/Andi3172/fullstack-tic-project/pkg/config"
	"github.com/Andi3172/fullstack-tic-project/pkg/health"
	"github.com/Andi3172/fullstack-tic-project/pkg/observability/metrics"
	"github.com/Andi3172/fullstack-tic-project/pkg/server/router"
	ginrouter "github.com/Andi3172/fullstack-tic-project/pkg/server/router/gin"
	"github.com/Andi3172/fullstack-tic-project/pkg/testutil"
	"github.com/Andi3172/fullstack-tic-project/pkg/version"
)

type stubRefresher struct {
	stats catalog.SnapshotStats
	err   error
	calls int
}

func (s *stubRefresher) Refresh(context.Context) (catalog.SnapshotStats, error) {
	s.calls++
	return s.stats, s.err
}

func managementConfig() config.ManagementConfig {
	return config.ManagementConfig{
		Enabled:      true,
		Port:         9090,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

func newTestManagement(t *testing.T, deps ManagementDeps) (router.Router, *testutil.RecordingLogger) {
	t.Helper()
	r := ginrouter.NewRouter()
	log := testutil.NewRecordingLogger()
	NewManagementServer(managementConfig(), r, log, deps)
	return r, log
}

func serve(r http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func staticCheck(name string, status health.Status) func(context.Context) health.CheckResult {
	return func(context.Context) health.CheckResult {
		return health.CheckResult{Name: name, Status: status}
	}
}

func TestManagementServer_HealthEndpoint(t *testing.T) {
	registry := health.NewRegistry()
	registry.RegisterFunc("mongodb", staticCheck("mongodb", health.StatusUnhealthy))
	r, _ := newTestManagement(t, ManagementDeps{Health: registry})

	rec := serve(r, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("liveness ignores dependencies, expected 200 got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "healthy" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestManagementServer_ReadyEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		statuses   map[string]health.Status
		wantCode   int
		wantStatus health.Status
	}{
		{
			name:       "all healthy",
			statuses:   map[string]health.Status{"mongodb": health.StatusHealthy, "catalog": health.StatusHealthy},
			wantCode:   http.StatusOK,
			wantStatus: health.StatusHealthy,
		},
		{
			name:       "stale snapshot is degraded but ready",
			statuses:   map[string]health.Status{"mongodb": health.StatusHealthy, "catalog": health.StatusDegraded},
			wantCode:   http.StatusOK,
			wantStatus: health.StatusDegraded,
		},
		{
			name:       "store down",
			statuses:   map[string]health.Status{"mongodb": health.StatusUnhealthy, "catalog": health.StatusDegraded},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: health.StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := health.NewRegistry()
			for name, status := range tt.statuses {
				registry.RegisterFunc(name, staticCheck(name, status))
			}
			r, _ := newTestManagement(t, ManagementDeps{Health: registry})

			rec := serve(r, http.MethodGet, "/ready")
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			var body health.AggregatedResult
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tt.wantStatus {
				t.Fatalf("expected %s, got %s", tt.wantStatus, body.Status)
			}
			if len(body.Checks) != len(tt.statuses) {
				t.Fatalf("expected %d checks, got %d", len(tt.statuses), len(body.Checks))
			}
		})
	}
}

func TestManagementServer_MetricsEndpoint(t *testing.T) {
	registry := metrics.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "catalogd_test_total", Help: "test counter"})
	registry.MustRegister(counter)
	counter.Add(2)

	r, _ := newTestManagement(t, ManagementDeps{Metrics: registry})
	rec := serve(r, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "catalogd_test_total 2") {
		t.Fatalf("expected registered counter in exposition, got:\n%s", rec.Body.String())
	}
}

func TestManagementServer_VersionEndpoint(t *testing.T) {
	info := version.Info{Service: "catalogd", Version: "1.4.0", Commit: "abc123", BuildTime: "2026-01-02T03:04:05Z", GoVersion: "go1.25.5"}
	r, _ := newTestManagement(t, ManagementDeps{Version: info})

	rec := serve(r, http.MethodGet, "/version")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got version.Info
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != info {
		t.Fatalf("expected %+v, got %+v", info, got)
	}
}

func TestManagementServer_CatalogRefresh(t *testing.T) {
	t.Run("success returns snapshot stats", func(t *testing.T) {
		refresher := &stubRefresher{stats: catalog.SnapshotStats{Records: 42, Loaded: true, Age: "0s"}}
		r, log := newTestManagement(t, ManagementDeps{Refresher: refresher})

		rec := serve(r, http.MethodPost, "/catalog/refresh")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var stats catalog.SnapshotStats
		if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if stats.Records != 42 || !stats.Loaded {
			t.Fatalf("unexpected stats %+v", stats)
		}
		if refresher.calls != 1 {
			t.Fatalf("expected one refresh, got %d", refresher.calls)
		}
		found := false
		for _, e := range log.Entries() {
			if e.Message == "catalog refreshed" && e.Field("records") == 42 {
				found = true
			}
		}
		if !found {
			t.Fatal("expected refresh to be logged with the record count")
		}
	})

	t.Run("store failure answers 503", func(t *testing.T) {
		refresher := &stubRefresher{err: errors.Join(catalog.ErrStoreUnavailable, errors.New("connection refused"))}
		r, _ := newTestManagement(t, ManagementDeps{Refresher: refresher})

		rec := serve(r, http.MethodPost, "/catalog/refresh")
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})

	t.Run("not mounted without a refresher", func(t *testing.T) {
		r, _ := newTestManagement(t, ManagementDeps{})
		if rec := serve(r, http.MethodPost, "/catalog/refresh"); rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestManagementServer_ProbesAreNotAccessLogged(t *testing.T) {
	r, log := newTestManagement(t, ManagementDeps{})
	serve(r, http.MethodGet, "/health")
	serve(r, http.MethodGet, "/ready")
	serve(r, http.MethodGet, "/version")

	var logged []any
	for _, e := range log.Entries() {
		if e.Message == "request completed" {
			logged = append(logged, e.Field("path"))
		}
	}
	if len(logged) != 1 || logged[0] != "/version" {
		t.Fatalf("expected only /version to be access logged, got %v", logged)
	}
}
