package logging

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Andi3172/fullstack-tic-project/pkg/middleware/requestid"
	"github.com/Andi3172/fullstack-tic-project/pkg/server/router"
	ginrouter "github.com/Andi3172/fullstack-tic-project/pkg/server/router/gin"
	"github.com/Andi3172/fullstack-tic-project/pkg/testutil"
)

func newRouter(log *testutil.RecordingLogger, cfg Config) router.Router {
	r := ginrouter.NewRouter()
	r.Use(requestid.RequestID(), WithConfig(log, cfg))
	r.GET("/items/:id", func(c router.Context) error {
		switch c.Param("id") {
		case "missing":
			return c.String(http.StatusNotFound, "nope")
		case "down":
			return c.String(http.StatusServiceUnavailable, "down")
		case "err":
			return errors.New("handler exploded")
		}
		return c.String(http.StatusOK, "ok")
	})
	r.GET("/health", func(c router.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	return r
}

func TestLogging_LevelByOutcome(t *testing.T) {
	tests := []struct {
		path    string
		level   string
		message string
		status  int
	}{
		{"/items/1", "info", "request completed", http.StatusOK},
		{"/items/missing", "warn", "request completed", http.StatusNotFound},
		{"/items/down", "error", "request completed", http.StatusServiceUnavailable},
		{"/items/err", "error", "request failed", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			log := testutil.NewRecordingLogger()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set(requestid.RequestIDHeader, "rid-42")
			newRouter(log, DefaultConfig()).ServeHTTP(httptest.NewRecorder(), req)

			entries := log.Entries()
			if len(entries) != 1 {
				t.Fatalf("expected one entry, got %d", len(entries))
			}
			e := entries[0]
			if e.Level != tt.level || e.Message != tt.message {
				t.Fatalf("got %s %q, want %s %q", e.Level, e.Message, tt.level, tt.message)
			}
			if e.Field("status") != tt.status {
				t.Fatalf("status field = %v, want %d", e.Field("status"), tt.status)
			}
			if e.Field("route") != "/items/:id" || e.Field("request_id") != "rid-42" {
				t.Fatalf("unexpected fields: %v", e.Args)
			}
		})
	}
}

func TestLogging_ErrorField(t *testing.T) {
	log := testutil.NewRecordingLogger()
	newRouter(log, DefaultConfig()).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/err", nil))

	if got := log.Entries()[0].Field("error"); got != "handler exploded" {
		t.Fatalf("error field = %v", got)
	}
}

func TestLogging_ExcludedPaths(t *testing.T) {
	log := testutil.NewRecordingLogger()
	r := newRouter(log, Config{ExcludedPathPrefixes: []string{"/health"}})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	if n := len(log.Entries()); n != 0 {
		t.Fatalf("expected excluded path to be silent, got %d entries", n)
	}
}

func TestLogging_LogStart(t *testing.T) {
	log := testutil.NewRecordingLogger()
	r := newRouter(log, Config{LogStart: true})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/1", nil))

	if got := log.Messages("debug"); len(got) != 1 || got[0] != "request started" {
		t.Fatalf("expected start line, got %v", got)
	}
}
