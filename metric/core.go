package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all platform-level metrics (not component-specific)
type Metrics struct {
	// Data pipeline metrics
	PointsProcessed    *prometheus.CounterVec
	BatchesProcessed   *prometheus.CounterVec
	ProofsGenerated    *prometheus.CounterVec
	ProcessingDuration *prometheus.HistogramVec

	// Notification metrics
	NotificationsSent *prometheus.CounterVec

	// Broker metrics
	BrokerConnections prometheus.Gauge
	BrokerPublished   *prometheus.CounterVec

	// Storage metrics
	StorageOperations *prometheus.CounterVec

	// Service metrics
	ErrorsTotal       *prometheus.CounterVec
	HealthCheckStatus *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		PointsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "opin",
				Subsystem: "pipeline",
				Name:      "points_processed_total",
				Help:      "Total number of data points processed",
			},
			[]string{"category", "quality"},
		),

		BatchesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "opin",
				Subsystem: "pipeline",
				Name:      "batches_processed_total",
				Help:      "Total number of batches processed",
			},
			[]string{"status"},
		),

		ProofsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "opin",
				Subsystem: "proof",
				Name:      "generated_total",
				Help:      "Total number of privacy proofs generated",
			},
			[]string{"circuit", "status"},
		),

		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "opin",
				Subsystem: "pipeline",
				Name:      "duration_seconds",
				Help:      "Processing duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "operation"},
		),

		NotificationsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "opin",
				Subsystem: "notify",
				Name:      "sent_total",
				Help:      "Total number of notifications dispatched",
			},
			[]string{"channel", "status"},
		),

		BrokerConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "opin",
				Subsystem: "broker",
				Name:      "connections",
				Help:      "Number of live broadcast connections",
			},
		),

		BrokerPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "opin",
				Subsystem: "broker",
				Name:      "published_total",
				Help:      "Total number of messages published to topics",
			},
			[]string{"topic"},
		),

		StorageOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "opin",
				Subsystem: "storage",
				Name:      "operations_total",
				Help:      "Total number of storage operations",
			},
			[]string{"operation", "status"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "opin",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"service", "type"},
		),

		HealthCheckStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "opin",
				Subsystem: "health",
				Name:      "status",
				Help:      "Health check status (0=unhealthy, 1=healthy)",
			},
			[]string{"service"},
		),
	}
}

// RecordPointProcessed increments the processed point counter
func (c *Metrics) RecordPointProcessed(category, quality string) {
	c.PointsProcessed.WithLabelValues(category, quality).Inc()
}

// RecordBatchProcessed increments the processed batch counter
func (c *Metrics) RecordBatchProcessed(status string) {
	c.BatchesProcessed.WithLabelValues(status).Inc()
}

// RecordProofGenerated increments the proof generation counter
func (c *Metrics) RecordProofGenerated(circuit, status string) {
	c.ProofsGenerated.WithLabelValues(circuit, status).Inc()
}

// RecordProcessingDuration records processing time
func (c *Metrics) RecordProcessingDuration(service, operation string, duration time.Duration) {
	c.ProcessingDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordNotificationSent increments the notification counter
func (c *Metrics) RecordNotificationSent(channel, status string) {
	c.NotificationsSent.WithLabelValues(channel, status).Inc()
}

// RecordStorageOperation increments the storage operation counter
func (c *Metrics) RecordStorageOperation(operation, status string) {
	c.StorageOperations.WithLabelValues(operation, status).Inc()
}

// RecordError increments error counter
func (c *Metrics) RecordError(service, errorType string) {
	c.ErrorsTotal.WithLabelValues(service, errorType).Inc()
}

// RecordHealthStatus updates health check status
func (c *Metrics) RecordHealthStatus(service string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	c.HealthCheckStatus.WithLabelValues(service).Set(value)
}
