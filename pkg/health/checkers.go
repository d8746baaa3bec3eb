package health

import (
	"context"
	"time"
)

// Checkable is an interface for components that support health checks
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// AdapterChecker reports a store adapter healthy when its HealthCheck
// returns within the timeout.
type AdapterChecker struct {
	name    string
	adapter Checkable
	timeout time.Duration
}

// NewAdapterChecker creates a checker; a zero timeout means five seconds.
func NewAdapterChecker(name string, adapter Checkable, timeout time.Duration) *AdapterChecker {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &AdapterChecker{name: name, adapter: adapter, timeout: timeout}
}

func (c *AdapterChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.adapter.HealthCheck(checkCtx)
	result := CheckResult{
		Name:      c.name,
		Status:    StatusHealthy,
		Message:   "OK",
		Timestamp: time.Now(),
		Duration:  time.Since(start),
	}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = ""
		result.Error = err.Error()
	}
	return result
}

func (c *AdapterChecker) Name() string {
	return c.name
}

// NewDatabaseChecker wraps a database adapter (MongoDB, PostgreSQL).
func NewDatabaseChecker(name string, db Checkable) *AdapterChecker {
	return NewAdapterChecker(name, db, 5*time.Second)
}

// NewCacheChecker wraps a cache adapter (Redis).
func NewCacheChecker(name string, cache Checkable) *AdapterChecker {
	return NewAdapterChecker(name, cache, 3*time.Second)
}

// SnapshotInfo describes an in-process snapshot for NewSnapshotChecker.
type SnapshotInfo struct {
	Loaded  bool
	Records int
	Age     time.Duration
}

// NewSnapshotChecker reports degraded while no snapshot is loaded or the
// snapshot is older than maxAge. It never reports unhealthy: the next read
// reloads the snapshot.
func NewSnapshotChecker(name string, maxAge time.Duration, info func() SnapshotInfo) Checker {
	return &namedChecker{name: name, checkFunc: func(context.Context) CheckResult {
		snap := info()
		result := CheckResult{
			Name:      name,
			Status:    StatusHealthy,
			Message:   "OK",
			Timestamp: time.Now(),
			Metadata: map[string]interface{}{
				"loaded":  snap.Loaded,
				"records": snap.Records,
				"age":     snap.Age.String(),
			},
		}
		switch {
		case !snap.Loaded:
			result.Status = StatusDegraded
			result.Message = "snapshot not loaded"
		case maxAge > 0 && snap.Age > maxAge:
			result.Status = StatusDegraded
			result.Message = "snapshot is stale"
		}
		return result
	}}
}
