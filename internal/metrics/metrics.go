// Package metrics exposes the Prometheus counters and gauges the §11 domain
// stack calls for: accepted connections, completed transactions by status
// code, and bytes written to peers. Emission policy (where these are
// scraped from) is external to the core, per §1 — this package only
// instruments it.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the counters/gauges a netdriver.Server registers once at
// startup and passes down to every connection.
type Metrics struct {
	ConnectionsAccepted prometheus.Counter
	ConnectionsActive   prometheus.Gauge
	TransactionsTotal   *prometheus.CounterVec
	BytesWritten        prometheus.Counter
}

// New registers the metrics on reg and returns them. reg may be
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConnectionsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "minihttpd",
			Name:      "connections_accepted_total",
			Help:      "Total number of TCP connections accepted.",
		}),
		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "minihttpd",
			Name:      "connections_active",
			Help:      "Number of connections currently open.",
		}),
		TransactionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "minihttpd",
			Name:      "transactions_total",
			Help:      "Total number of completed HTTP transactions, by status code.",
		}, []string{"status"}),
		BytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "minihttpd",
			Name:      "bytes_written_total",
			Help:      "Total number of response bytes written to peers.",
		}),
	}
}
