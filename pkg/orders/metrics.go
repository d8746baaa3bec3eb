package orders

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Metrics holds order collectors. A nil *Metrics records nothing.
type Metrics struct {
	placedTotal   prometheus.Counter
	revenueTotal  prometheus.Counter
	statusUpdates *prometheus.CounterVec
}

// NewMetrics creates the order collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		placedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_placed_total",
			Help: "Orders successfully placed",
		}),
		revenueTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_revenue_total",
			Help: "Sum of placed order totals",
		}),
		statusUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_status_updates_total",
			Help: "Order status transitions by target status",
		}, []string{"status"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.placedTotal, m.revenueTotal, m.statusUpdates} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) placed(total decimal.Decimal) {
	if m == nil {
		return
	}
	m.placedTotal.Inc()
	m.revenueTotal.Add(total.InexactFloat64())
}

func (m *Metrics) statusChanged(status Status) {
	if m != nil {
		m.statusUpdates.WithLabelValues(string(status)).Inc()
	}
}
