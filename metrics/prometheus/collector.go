// Package prometheus implements songrec.MetricsCollector with client_golang.
package prometheus

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hupe1980/songrec"
)

const namespace = "songrec"

// Collector records songrec operations as Prometheus metrics.
type Collector struct {
	catalogLoads   *prometheus.CounterVec
	catalogEntries prometheus.Gauge
	catalogLatency prometheus.Histogram

	recommends       *prometheus.CounterVec
	recommendLatency prometheus.Histogram
	recommendResults prometheus.Histogram

	embeds       *prometheus.CounterVec
	embedLatency prometheus.Histogram
}

var _ songrec.MetricsCollector = (*Collector)(nil)

// New registers the songrec metrics with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Collector{
		catalogLoads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_loads_total",
			Help:      "Total number of catalog builds by outcome",
		}, []string{"outcome"}),
		catalogEntries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_entries",
			Help:      "Number of songs in the loaded catalog",
		}),
		catalogLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_load_duration_seconds",
			Help:      "Catalog build latency in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		recommends: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Total number of recommendation requests by outcome",
		}, []string{"outcome"}),
		recommendLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommendation_duration_seconds",
			Help:      "Recommendation latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		recommendResults: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommendation_results",
			Help:      "Number of results returned per successful recommendation",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		}),
		embeds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embeddings_total",
			Help:      "Total number of embedding generator calls by outcome",
		}, []string{"outcome"}),
		embedLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedding_duration_seconds",
			Help:      "Embedding generator latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// RecordCatalogLoad implements songrec.MetricsCollector.
func (c *Collector) RecordCatalogLoad(entries int, duration time.Duration, err error) {
	c.catalogLoads.WithLabelValues(Outcome(err)).Inc()
	c.catalogLatency.Observe(duration.Seconds())
	if err == nil {
		c.catalogEntries.Set(float64(entries))
	}
}

// RecordRecommend implements songrec.MetricsCollector.
func (c *Collector) RecordRecommend(_, results int, duration time.Duration, err error) {
	c.recommends.WithLabelValues(Outcome(err)).Inc()
	c.recommendLatency.Observe(duration.Seconds())
	if err == nil {
		c.recommendResults.Observe(float64(results))
	}
}

// RecordEmbed implements songrec.MetricsCollector.
func (c *Collector) RecordEmbed(duration time.Duration, err error) {
	c.embeds.WithLabelValues(Outcome(err)).Inc()
	c.embedLatency.Observe(duration.Seconds())
}

// Outcome maps an error to a low-cardinality label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, songrec.ErrInvalidRequest), errors.Is(err, songrec.ErrInvalidK):
		return "invalid_request"
	case errors.Is(err, songrec.ErrMalformedIndex):
		return "malformed_index"
	case errors.Is(err, songrec.ErrMissingArtifact):
		return "missing_artifact"
	case errors.Is(err, songrec.ErrEmbedding):
		return "embedding_error"
	case errors.Is(err, songrec.ErrOverloaded):
		return "overloaded"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
