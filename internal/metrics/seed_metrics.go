package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	seedRunDuration   *prometheus.HistogramVec
	seedRecordsStored *prometheus.CounterVec
	seedRecordsFailed *prometheus.CounterVec
	seedMetricsOnce   sync.Once
)

func initializeSeedMetrics() {
	seedMetricsOnce.Do(func() {
		seedRunDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "seed_run_duration_seconds",
				Help:    "Time spent seeding a collection",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"collection", "status"},
		)

		seedRecordsStored = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seed_records_stored_total",
				Help: "Total number of seed records stored",
			},
			[]string{"collection"},
		)

		seedRecordsFailed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seed_records_failed_total",
				Help: "Total number of seed records that failed to store",
			},
			[]string{"collection"},
		)

		GetInstance().registry.MustRegister(
			seedRunDuration,
			seedRecordsStored,
			seedRecordsFailed,
		)
	})
}

// RecordSeedMetrics records the outcome of seeding one collection
func RecordSeedMetrics(collection string, startTime time.Time, status string, stored, failed int) {
	if !BusinessMetricsEnabled() {
		return
	}
	initializeSeedMetrics()

	seedRunDuration.WithLabelValues(collection, status).Observe(time.Since(startTime).Seconds())
	seedRecordsStored.WithLabelValues(collection).Add(float64(stored))
	if failed > 0 {
		seedRecordsFailed.WithLabelValues(collection).Add(float64(failed))
	}
}
