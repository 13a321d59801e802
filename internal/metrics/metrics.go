package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mvoice"

// Store: holds the service's Prometheus collectors. A nil *Store records nothing.
type Store struct {
	webhookRequests  *prometheus.CounterVec
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	vocabularyDrift  *prometheus.GaugeVec
	cacheLookups     *prometheus.CounterVec
}

// NewStore: registers the collectors on reg. A nil reg uses the default registerer.
func NewStore(reg prometheus.Registerer) *Store {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Store{
		webhookRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_requests_total",
				Help:      "Webhook turns handled, by intent and outcome",
			},
			[]string{"intent", "outcome"},
		),
		upstreamRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Upstream API calls, by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),
		upstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Upstream API call latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		vocabularyDrift: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "vocabulary_drift_entries",
				Help:      "Entries added or removed upstream since the reference lists were written",
			},
			[]string{"category", "direction"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "menu_cache_lookups_total",
				Help:      "Menu cache lookups, by result",
			},
			[]string{"result"},
		),
	}
}

// RecordWebhook: counts one webhook turn.
func (s *Store) RecordWebhook(intent, outcome string) {
	if s == nil {
		return
	}
	s.webhookRequests.WithLabelValues(intent, outcome).Inc()
}

// RecordUpstream: counts one upstream call and observes its latency.
// status is the HTTP status code as text, or "error" for transport failures.
func (s *Store) RecordUpstream(endpoint, status string, duration time.Duration) {
	if s == nil {
		return
	}
	s.upstreamRequests.WithLabelValues(endpoint, status).Inc()
	s.upstreamDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// SetVocabularyDrift: publishes the latest change-detection counts.
func (s *Store) SetVocabularyDrift(category string, added, removed int) {
	if s == nil {
		return
	}
	s.vocabularyDrift.WithLabelValues(category, "added").Set(float64(added))
	s.vocabularyDrift.WithLabelValues(category, "removed").Set(float64(removed))
}

// RecordCacheLookup: counts a menu cache hit or miss.
func (s *Store) RecordCacheLookup(hit bool) {
	if s == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	s.cacheLookups.WithLabelValues(result).Inc()
}
