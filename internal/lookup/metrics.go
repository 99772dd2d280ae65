// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package lookup

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts lookup traffic. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	hits     prometheus.Counter
	retries  prometheus.Counter
	duration prometheus.Histogram
}

// NewMetrics creates the lookup collectors and registers them on reg.
// A nil reg leaves the collectors unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lookup_requests_total",
			Help: "Author lookups that reached the network, by outcome.",
		}, []string{"outcome"}),
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lookup_cache_hits_total",
			Help: "Author lookups answered from the cache.",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lookup_retries_total",
			Help: "Retries after HTTP 429 responses.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lookup_request_duration_seconds",
			Help:    "Wall time of network lookups including backoff waits.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.hits, m.retries, m.duration)
	}
	return m
}

func (m *Metrics) observe(outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
	m.duration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) cacheHit() {
	if m == nil {
		return
	}
	m.hits.Inc()
}

func (m *Metrics) retry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}
