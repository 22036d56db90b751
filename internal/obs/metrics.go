// Package obs holds the Prometheus instrumentation shared by the day
// driver, the restock engine, and the status server. All methods are safe
// on a nil receiver so components can run unmetered in tests.
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the simulation counters and gauges.
type Metrics struct {
	purchases      prometheus.Counter
	rejections     prometheus.Counter
	requests       prometheus.Counter
	noStockVisits  prometheus.Counter
	eventsAppended prometheus.Counter
	restockCommits *prometheus.CounterVec
	balance        prometheus.Gauge
}

// NewMetrics registers the simulation collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		purchases: factory.NewCounter(prometheus.CounterOpts{
			Name: "vendbot_purchases_total",
			Help: "Units dispensed across all simulated days.",
		}),
		rejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "vendbot_rejections_total",
			Help: "Purchase attempts rejected (unknown product, sold out, over limit).",
		}),
		requests: factory.NewCounter(prometheus.CounterOpts{
			Name: "vendbot_requests_total",
			Help: "Free-text customer requests recorded.",
		}),
		noStockVisits: factory.NewCounter(prometheus.CounterOpts{
			Name: "vendbot_no_stock_visits_total",
			Help: "Customer visits that ended without a purchase.",
		}),
		eventsAppended: factory.NewCounter(prometheus.CounterOpts{
			Name: "vendbot_events_appended_total",
			Help: "Ledger events appended to the snapshot store.",
		}),
		restockCommits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vendbot_restock_commits_total",
			Help: "Restock transactions by outcome.",
		}, []string{"outcome"}),
		balance: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vendbot_balance",
			Help: "Active machine balance after the latest commit.",
		}),
	}
}

func (m *Metrics) Purchase() {
	if m != nil {
		m.purchases.Inc()
	}
}

func (m *Metrics) Rejections(n int) {
	if m != nil && n > 0 {
		m.rejections.Add(float64(n))
	}
}

func (m *Metrics) Request() {
	if m != nil {
		m.requests.Inc()
	}
}

func (m *Metrics) NoStockVisit() {
	if m != nil {
		m.noStockVisits.Inc()
	}
}

func (m *Metrics) EventsAppended(n int) {
	if m != nil && n > 0 {
		m.eventsAppended.Add(float64(n))
	}
}

func (m *Metrics) RestockCommitted() {
	if m != nil {
		m.restockCommits.WithLabelValues("committed").Inc()
	}
}

func (m *Metrics) RestockRejected() {
	if m != nil {
		m.restockCommits.WithLabelValues("rejected").Inc()
	}
}

func (m *Metrics) SetBalance(v float64) {
	if m != nil {
		m.balance.Set(v)
	}
}
