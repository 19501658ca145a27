// Package metrics collects and exposes the Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector is the recording side used by services, handlers and workers.
type MetricsCollector interface {
	RecordPassportWrite(op string)
	RecordStoreFailure(op string)
	RecordPhotoRejected(reason string)
	RecordHTTPStatus(statusCode int)
	SetPassportsByExpiry(counts map[string]int)
	RecordSweepDuration(duration time.Duration)
}

// Collector is the Prometheus implementation of MetricsCollector.
type Collector struct {
	passportWrites *prometheus.CounterVec
	storeFailures  *prometheus.CounterVec
	photoRejected  *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	passports      *prometheus.GaugeVec
	sweepDuration  prometheus.Histogram
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		passportWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "passdesk_passport_writes_total",
			Help: "Successful passport writes by operation.",
		}, []string{"op"}),
		storeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "passdesk_store_failures_total",
			Help: "Failed store operations by operation.",
		}, []string{"op"}),
		photoRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "passdesk_photo_rejected_total",
			Help: "Rejected photos by reason.",
		}, []string{"reason"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "passdesk_http_status_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
		passports: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "passdesk_passports",
			Help: "Passports by expiry status at the last sweep.",
		}, []string{"expiry_status"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "passdesk_sweep_duration_seconds",
			Help:    "Duration of the expiry sweep in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.passportWrites,
		c.storeFailures,
		c.photoRejected,
		c.httpStatus,
		c.passports,
		c.sweepDuration,
	)

	return c
}

// RecordPassportWrite counts a successful create, update or delete.
func (c *Collector) RecordPassportWrite(op string) {
	c.passportWrites.WithLabelValues(op).Inc()
}

// RecordStoreFailure counts a failed store call.
func (c *Collector) RecordStoreFailure(op string) {
	c.storeFailures.WithLabelValues(op).Inc()
}

// RecordPhotoRejected counts a rejected photo; reason is the API error code.
func (c *Collector) RecordPhotoRejected(reason string) {
	c.photoRejected.WithLabelValues(reason).Inc()
}

// RecordHTTPStatus counts one response.
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// SetPassportsByExpiry replaces the gauge values. Series for statuses
// missing from counts are deleted, not set to zero.
func (c *Collector) SetPassportsByExpiry(counts map[string]int) {
	c.passports.Reset()
	for status, n := range counts {
		c.passports.WithLabelValues(status).Set(float64(n))
	}
}

// RecordSweepDuration observes one sweep.
func (c *Collector) RecordSweepDuration(duration time.Duration) {
	c.sweepDuration.Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NoopCollector discards everything. Used where no registry is wired.
type NoopCollector struct{}

func (NoopCollector) RecordPassportWrite(string)          {}
func (NoopCollector) RecordStoreFailure(string)           {}
func (NoopCollector) RecordPhotoRejected(string)          {}
func (NoopCollector) RecordHTTPStatus(int)                {}
func (NoopCollector) SetPassportsByExpiry(map[string]int) {}
func (NoopCollector) RecordSweepDuration(time.Duration)   {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NoopCollector{}
)
