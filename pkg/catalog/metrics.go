package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the cache collectors. A nil *Metrics records nothing.
type Metrics struct {
	hits            prometheus.Counter
	misses          prometheus.Counter
	refreshes       prometheus.Counter
	refreshFailures prometheus.Counter
	snapshotSize    prometheus.Gauge
}

// NewMetrics creates the cache collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_cache_hits_total",
			Help: "Catalog reads served from the in-process snapshot",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_cache_misses_total",
			Help: "Catalog reads that required a store read",
		}),
		refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_cache_refreshes_total",
			Help: "Successful snapshot refreshes",
		}),
		refreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_cache_refresh_failures_total",
			Help: "Snapshot refreshes that failed to read the store",
		}),
		snapshotSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_cache_snapshot_records",
			Help: "Number of records in the current snapshot",
		}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.hits, m.misses, m.refreshes, m.refreshFailures, m.snapshotSize} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *Metrics) refreshed(size int) {
	if m != nil {
		m.refreshes.Inc()
		m.snapshotSize.Set(float64(size))
	}
}

func (m *Metrics) refreshFailed() {
	if m != nil {
		m.refreshFailures.Inc()
	}
}
