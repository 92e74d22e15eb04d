package metric

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatheredNames(t *testing.T, registry *MetricsRegistry) map[string]bool {
	t.Helper()
	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	return names
}

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
	assert.NotNil(t, registry.CoreMetrics())
}

func TestCoreMetricsExposed(t *testing.T) {
	registry := NewMetricsRegistry()

	core := registry.CoreMetrics()
	core.RecordPointProcessed("sensor", "high")
	core.RecordBatchProcessed("completed")
	core.RecordProofGenerated("location_v1", "success")
	core.RecordProcessingDuration("pipeline", "process_batch", 25*time.Millisecond)
	core.RecordNotificationSent("webhook", "success")
	core.RecordHealthStatus("storage", true)

	names := gatheredNames(t, registry)
	for _, want := range []string{
		"opin_pipeline_points_processed_total",
		"opin_pipeline_batches_processed_total",
		"opin_proof_generated_total",
		"opin_pipeline_duration_seconds",
		"opin_notify_sent_total",
		"opin_health_status",
	} {
		assert.True(t, names[want], "expected metric family %s", want)
	}
}

func TestMetricsRegistry_RegisterCounter(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_requests_total",
		Help: "Total gateway requests",
	})

	require.NoError(t, registry.RegisterCounter("gateway", "gateway_requests_total", counter))
	counter.Inc()

	assert.True(t, gatheredNames(t, registry)["gateway_requests_total"])
}

func TestMetricsRegistry_DuplicateRejected(t *testing.T) {
	registry := NewMetricsRegistry()

	first := prometheus.NewGauge(prometheus.GaugeOpts{Name: "queue_depth", Help: "Queue depth"})
	second := prometheus.NewGauge(prometheus.GaugeOpts{Name: "queue_depth", Help: "Queue depth"})

	require.NoError(t, registry.RegisterGauge("dispatcher", "queue_depth", first))
	err := registry.RegisterGauge("dispatcher", "queue_depth", second)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestMetricsRegistry_Unregister(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "temp_counter",
		Help: "Temporary counter",
	})
	require.NoError(t, registry.RegisterCounter("test", "temp_counter", counter))

	assert.True(t, registry.Unregister("test", "temp_counter"))
	assert.False(t, registry.Unregister("test", "temp_counter"), "second unregister is a no-op")

	// Re-registering under the same key works after unregister.
	replacement := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "temp_counter",
		Help: "Temporary counter",
	})
	assert.NoError(t, registry.RegisterCounter("test", "temp_counter", replacement))
}
