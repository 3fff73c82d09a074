package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "agenda"

var (
	once sync.Once

	monthCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "month_cache_lookups_total",
			Help:      "Month availability cache lookups by result.",
		},
		[]string{"result"},
	)

	bookingAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_attempts_total",
			Help:      "Public booking attempts by outcome.",
		},
		[]string{"outcome"},
	)

	cacheInvalidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidations_total",
			Help:      "Owner cache invalidations by result.",
		},
		[]string{"result"},
	)

	monthComputeSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "month_compute_seconds",
			Help:      "Time spent computing a month of availability on cache miss.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Register registers metrics with the default registry (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(monthCacheLookups, bookingAttempts, cacheInvalidations, monthComputeSeconds)
	})
}

// Recorder is the sink the booking engine reports to.
type Recorder interface {
	MonthCacheLookup(result string)
	BookingAttempt(outcome string)
	CacheInvalidation(result string)
	MonthComputed(seconds float64)
}

// Prometheus records into the package collectors.
type Prometheus struct{}

func (Prometheus) MonthCacheLookup(result string) {
	monthCacheLookups.WithLabelValues(result).Inc()
}

func (Prometheus) BookingAttempt(outcome string) {
	bookingAttempts.WithLabelValues(outcome).Inc()
}

func (Prometheus) CacheInvalidation(result string) {
	cacheInvalidations.WithLabelValues(result).Inc()
}

func (Prometheus) MonthComputed(seconds float64) {
	monthComputeSeconds.Observe(seconds)
}

// Nop discards everything.
type Nop struct{}

func (Nop) MonthCacheLookup(string)  {}
func (Nop) BookingAttempt(string)    {}
func (Nop) CacheInvalidation(string) {}
func (Nop) MonthComputed(float64)    {}
