package songrec

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// metrics/prometheus provides an implementation backed by client_golang.
type MetricsCollector interface {
	// RecordCatalogLoad is called after each catalog build.
	// entries is the number of indexed songs, 0 on failure.
	RecordCatalogLoad(entries int, duration time.Duration, err error)

	// RecordRecommend is called after each recommendation.
	// k is the number of results requested, results the number returned.
	RecordRecommend(k, results int, duration time.Duration, err error)

	// RecordEmbed is called after each embedding generator call.
	RecordEmbed(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordCatalogLoad(int, time.Duration, error)    {}
func (NoopMetricsCollector) RecordRecommend(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordEmbed(time.Duration, error)               {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	CatalogLoads        atomic.Int64
	CatalogLoadErrors   atomic.Int64
	CatalogEntries      atomic.Int64
	RecommendCount      atomic.Int64
	RecommendErrors     atomic.Int64
	RecommendEmpty      atomic.Int64
	RecommendTotalNanos atomic.Int64
	EmbedCount          atomic.Int64
	EmbedErrors         atomic.Int64
	EmbedTotalNanos     atomic.Int64
}

// RecordCatalogLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCatalogLoad(entries int, _ time.Duration, err error) {
	b.CatalogLoads.Add(1)
	if err != nil {
		b.CatalogLoadErrors.Add(1)
		return
	}
	b.CatalogEntries.Store(int64(entries))
}

// RecordRecommend implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRecommend(_, results int, duration time.Duration, err error) {
	b.RecommendCount.Add(1)
	b.RecommendTotalNanos.Add(duration.Nanoseconds())
	switch {
	case err != nil:
		b.RecommendErrors.Add(1)
	case results == 0:
		b.RecommendEmpty.Add(1)
	}
}

// RecordEmbed implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEmbed(duration time.Duration, err error) {
	b.EmbedCount.Add(1)
	b.EmbedTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.EmbedErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		CatalogLoads:      b.CatalogLoads.Load(),
		CatalogLoadErrors: b.CatalogLoadErrors.Load(),
		CatalogEntries:    b.CatalogEntries.Load(),
		RecommendCount:    b.RecommendCount.Load(),
		RecommendErrors:   b.RecommendErrors.Load(),
		RecommendEmpty:    b.RecommendEmpty.Load(),
		RecommendAvgNanos: avg(b.RecommendTotalNanos.Load(), b.RecommendCount.Load()),
		EmbedCount:        b.EmbedCount.Load(),
		EmbedErrors:       b.EmbedErrors.Load(),
		EmbedAvgNanos:     avg(b.EmbedTotalNanos.Load(), b.EmbedCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	CatalogLoads      int64
	CatalogLoadErrors int64
	CatalogEntries    int64
	RecommendCount    int64
	RecommendErrors   int64
	RecommendEmpty    int64
	RecommendAvgNanos int64
	EmbedCount        int64
	EmbedErrors       int64
	EmbedAvgNanos     int64
}
