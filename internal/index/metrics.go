package index

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors exported by the index server.
type Metrics struct {
	requests    *prometheus.CounterVec
	hashedBytes prometheus.Counter
	matches     prometheus.Histogram
	signatures  prometheus.GaugeFunc
}

// NewMetrics creates the server collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer, idx Index) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctph",
			Name:      "requests_total",
			Help:      "Requests handled by the index server, by operation and outcome.",
		}, []string{"operation", "code"}),
		hashedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ctph",
			Name:      "hashed_bytes_total",
			Help:      "Bytes fuzzy hashed through the hash endpoint.",
		}),
		matches: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ctph",
			Name:      "match_results",
			Help:      "Number of signatures returned per match request.",
			Buckets:   []float64{0, 1, 2, 5, 10, 50, 100, 1000},
		}),
		signatures: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "ctph",
			Name:      "signatures",
			Help:      "Signatures currently stored in the index.",
		}, func() float64 {
			return float64(idx.Len())
		}),
	}
	reg.MustRegister(m.requests, m.hashedBytes, m.matches, m.signatures)
	return m
}
