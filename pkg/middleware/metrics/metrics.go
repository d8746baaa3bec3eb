// Package metrics records Prometheus request metrics.
package metrics

import (
	"time"

	"github.com/Andi3172/fullstack-tic-project/pkg/observability/metrics"
	"github.com/Andi3172/fullstack-tic-project/pkg/server/router"
)

// unmatchedRoute labels requests that matched no route.
const unmatchedRoute = "unmatched"

// Metrics records the duration and count of every request by method, route
// template and status, and tracks in-flight requests.
func Metrics() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			metrics.IncrementInFlight()
			defer metrics.DecrementInFlight()

			start := time.Now()
			err := next(c)

			status := c.Response().Status()
			if err != nil && !c.Response().Written() {
				status = 500
			}
			route := c.Route()
			if route == "" {
				route = unmatchedRoute
			}
			metrics.RecordHTTPMetrics(c.Request().Method, route, status, time.Since(start))

			return err
		}
	}
}
