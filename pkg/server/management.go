package server

import (
	"context"
	"net/http"
	"time"

	"github.com/Andi3172/fullstack-tic-project/pkg/catalog"
	"github.com/Andi3172/fullstack-tic-project/pkg/config"
	"github.com/Andi3172/fullstack-tic-project/pkg/controller"
	"github.com/Andi3172/fullstack-tic-project/pkg/health"
	"github.com/Andi3172/fullstack-tic-project/pkg/middleware/logging"
	"github.com/Andi3172/fullstack-tic-project/pkg/middleware/recovery"
	"github.com/Andi3172/fullstack-tic-project/pkg/middleware/requestid"
	"github.com/Andi3172/fullstack-tic-project/pkg/observability/logger"
	"github.com/Andi3172/fullstack-tic-project/pkg/observability/metrics"
	"github.com/Andi3172/fullstack-tic-project/pkg/server/router"
	"github.com/Andi3172/fullstack-tic-project/pkg/version"
)

// CatalogRefresher rebuilds the catalog snapshot on demand.
type CatalogRefresher interface {
	Refresh(ctx context.Context) (catalog.SnapshotStats, error)
}

// ManagementServer serves probes, metrics and operator endpoints on a port
// separate from the public API.
type ManagementServer struct {
	*Server
	healthRegistry  *health.Registry
	metricsRegistry *metrics.Registry
	versionInfo     version.Info
	refresher       CatalogRefresher
	log             logger.Logger
}

// ManagementDeps are the collaborators behind the management endpoints.
type ManagementDeps struct {
	Health  *health.Registry
	Metrics *metrics.Registry
	Version version.Info
	// Refresher is optional; without it POST /catalog/refresh is not mounted.
	Refresher CatalogRefresher
}

// NewManagementServer registers:
//
//	GET  /health           liveness, always 200
//	GET  /ready            200 unless a dependency is unhealthy
//	GET  /metrics          Prometheus exposition
//	GET  /version          build metadata
//	POST /catalog/refresh  rebuild the catalog snapshot
func NewManagementServer(cfg config.ManagementConfig, r router.Router, log logger.Logger, deps ManagementDeps) *ManagementServer {
	r.Use(
		requestid.RequestID(),
		logging.WithConfig(log, logging.Config{ExcludedPathPrefixes: []string{"/health", "/ready", "/metrics"}}),
		recovery.Recovery(log),
	)

	if deps.Health == nil {
		deps.Health = health.NewRegistry()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewRegistry()
	}

	s := &ManagementServer{
		Server: NewServer(Config{
			Port:         cfg.Port,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		}, r, log),
		healthRegistry:  deps.Health,
		metricsRegistry: deps.Metrics,
		versionInfo:     deps.Version,
		refresher:       deps.Refresher,
		log:             log,
	}

	r.GET("/health", s.handleHealth)
	r.GET("/ready", s.handleReady)
	r.GET("/metrics", s.handleMetrics)
	r.GET("/version", s.handleVersion)
	if s.refresher != nil {
		r.POST("/catalog/refresh", s.handleRefresh)
	}
	return s
}

func (s *ManagementServer) handleHealth(c router.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "healthy",
	})
}

// handleReady reports 503 only when a check is unhealthy; a degraded
// dependency still takes traffic.
func (s *ManagementServer) handleReady(c router.Context) error {
	result := s.healthRegistry.Check(c.Request().Context())
	if !result.IsReady() {
		return c.JSON(http.StatusServiceUnavailable, result)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *ManagementServer) handleMetrics(c router.Context) error {
	s.metricsRegistry.Handler().ServeHTTP(c.Response(), c.Request())
	return nil
}

func (s *ManagementServer) handleVersion(c router.Context) error {
	return c.JSON(http.StatusOK, s.versionInfo)
}

func (s *ManagementServer) handleRefresh(c router.Context) error {
	stats, err := s.refresher.Refresh(c.Request().Context())
	if err != nil {
		s.log.WithContext(c.Request().Context()).Error("catalog refresh requested by operator failed", "error", err)
		return controller.Error(c, err)
	}
	s.log.WithContext(c.Request().Context()).Info("catalog refreshed", "records", stats.Records)
	return controller.Success(c, stats)
}
