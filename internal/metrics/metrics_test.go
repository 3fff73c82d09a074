package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusRecorderCounts(t *testing.T) {
	Register()
	Register()

	var r Recorder = Prometheus{}

	before := testutil.ToFloat64(bookingAttempts.WithLabelValues("created"))
	r.BookingAttempt("created")
	r.BookingAttempt("created")
	assert.Equal(t, before+2, testutil.ToFloat64(bookingAttempts.WithLabelValues("created")))

	hits := testutil.ToFloat64(monthCacheLookups.WithLabelValues("hit"))
	r.MonthCacheLookup("hit")
	assert.Equal(t, hits+1, testutil.ToFloat64(monthCacheLookups.WithLabelValues("hit")))

	failed := testutil.ToFloat64(cacheInvalidations.WithLabelValues("error"))
	r.CacheInvalidation("error")
	assert.Equal(t, failed+1, testutil.ToFloat64(cacheInvalidations.WithLabelValues("error")))

	r.MonthComputed(0.01)
}
