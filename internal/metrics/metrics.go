// Package metrics exposes Prometheus counters for stock movements.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Outcome labels of PurchaseOps.
const (
	OutcomeOK                = "ok"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeNotFound          = "not_found"
	OutcomeInvalid           = "invalid"
	OutcomeForbidden         = "forbidden"
	OutcomeError             = "error"
)

// Metrics groups the collectors of the service on its own registry.
type Metrics struct {
	Registry      *prometheus.Registry
	PurchaseOps   *prometheus.CounterVec
	UnitsSold     prometheus.Counter
	CacheRequests *prometheus.CounterVec
	EventsFailed  prometheus.Counter
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		PurchaseOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inventory",
			Name:      "purchase_operations_total",
			Help:      "Purchase ledger operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		UnitsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "inventory",
			Name:      "units_sold_total",
			Help:      "Units taken from stock by recorded purchases.",
		}),
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inventory",
			Name:      "product_cache_requests_total",
			Help:      "Product snapshot cache lookups by result.",
		}, []string{"result"}),
		EventsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "inventory",
			Name:      "event_publish_failures_total",
			Help:      "Stock events that could not be published.",
		}),
	}
	m.Registry.MustRegister(
		m.PurchaseOps, m.UnitsSold, m.CacheRequests, m.EventsFailed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}
