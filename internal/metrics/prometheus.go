package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the AVDECC controller
type Metrics struct {
	// ADP discovery metrics
	EntitiesDiscovered prometheus.Counter
	EntitiesDeparted   prometheus.Counter
	EntitiesUpdated    prometheus.Counter
	EntitiesTracked    prometheus.Gauge

	// AECP command metrics
	AECPCommandsSent      *prometheus.CounterVec
	AECPCommandsCompleted *prometheus.CounterVec
	AECPCommandsTimedOut  *prometheus.CounterVec
	AECPCommandsRetried   *prometheus.CounterVec

	// ACMP command metrics
	ACMPCommandsSent      *prometheus.CounterVec
	ACMPCommandsCompleted *prometheus.CounterVec
	ACMPCommandsTimedOut  *prometheus.CounterVec

	// Enumeration metrics
	DescriptorsRead      prometheus.Counter
	DescriptorReadErrors prometheus.Counter
	EnumerationDuration  prometheus.Histogram
	EnumerationsActive   prometheus.Gauge

	// Event loop metrics
	EventRingDepth   prometheus.Gauge
	EventsMissed     prometheus.Counter
	SubmitQueueDepth prometheus.Gauge

	// HTTP status server metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// ADP discovery metrics
		EntitiesDiscovered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "avdecc_entities_discovered_total",
			Help: "Total number of entities discovered via ADP",
		}),
		EntitiesDeparted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "avdecc_entities_departed_total",
			Help: "Total number of entities that departed or timed out",
		}),
		EntitiesUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "avdecc_entities_updated_total",
			Help: "Total number of available_index changes observed",
		}),
		EntitiesTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "avdecc_entities_tracked",
			Help: "Current number of entities tracked by the controller",
		}),

		// AECP command metrics
		AECPCommandsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "avdecc_aecp_commands_sent_total",
			Help: "Total number of AECP-AEM commands sent",
		}, []string{"command_type"}),
		AECPCommandsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "avdecc_aecp_commands_completed_total",
			Help: "Total number of AECP-AEM commands that received a response",
		}, []string{"command_type"}),
		AECPCommandsTimedOut: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "avdecc_aecp_commands_timed_out_total",
			Help: "Total number of AECP-AEM commands that exhausted their retries",
		}, []string{"command_type"}),
		AECPCommandsRetried: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "avdecc_aecp_commands_retried_total",
			Help: "Total number of AECP-AEM commands retransmitted after a first timeout",
		}, []string{"command_type"}),

		// ACMP command metrics
		ACMPCommandsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "avdecc_acmp_commands_sent_total",
			Help: "Total number of ACMP commands sent",
		}, []string{"message_type"}),
		ACMPCommandsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "avdecc_acmp_commands_completed_total",
			Help: "Total number of ACMP commands that received a response",
		}, []string{"message_type"}),
		ACMPCommandsTimedOut: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "avdecc_acmp_commands_timed_out_total",
			Help: "Total number of ACMP commands that timed out",
		}, []string{"message_type"}),

		// Enumeration metrics
		DescriptorsRead: promauto.NewCounter(prometheus.CounterOpts{
			Name: "avdecc_descriptors_read_total",
			Help: "Total number of READ_DESCRIPTOR responses successfully decoded",
		}),
		DescriptorReadErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "avdecc_descriptor_read_errors_total",
			Help: "Total number of READ_DESCRIPTOR failures tolerated during enumeration",
		}),
		EnumerationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "avdecc_enumeration_duration_seconds",
			Help:    "Wall-clock time to fully enumerate a discovered entity",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}),
		EnumerationsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "avdecc_enumerations_active",
			Help: "Current number of entities with an in-progress descriptor walk",
		}),

		// Event loop metrics
		EventRingDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "avdecc_event_ring_depth",
			Help: "Current number of queued notifications awaiting DrainEvents",
		}),
		EventsMissed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "avdecc_events_missed_total",
			Help: "Total number of notifications dropped because the event ring was full",
		}),
		SubmitQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "avdecc_submit_queue_depth",
			Help: "Current number of command submissions waiting for the event loop",
		}),

		// HTTP status server metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "avdecc_http_requests_total",
			Help: "Total number of HTTP requests to the status server",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "avdecc_http_request_duration_seconds",
			Help:    "Duration of HTTP requests to the status server",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "avdecc_http_errors_total",
			Help: "Total number of HTTP error responses from the status server",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordEntityDiscovered increments the entities discovered counter.
func (m *Metrics) RecordEntityDiscovered() {
	m.EntitiesDiscovered.Inc()
}

// RecordEntityDeparted increments the entities departed counter.
func (m *Metrics) RecordEntityDeparted() {
	m.EntitiesDeparted.Inc()
}

// RecordEntityUpdated increments the entities updated counter.
func (m *Metrics) RecordEntityUpdated() {
	m.EntitiesUpdated.Inc()
}

// SetEntitiesTracked sets the current tracked-entity gauge.
func (m *Metrics) SetEntitiesTracked(count int) {
	m.EntitiesTracked.Set(float64(count))
}

// RecordAECPCommandSent increments the AECP commands-sent counter for
// commandType.
func (m *Metrics) RecordAECPCommandSent(commandType string) {
	m.AECPCommandsSent.WithLabelValues(commandType).Inc()
}

// RecordAECPCommandCompleted increments the AECP commands-completed counter
// for commandType.
func (m *Metrics) RecordAECPCommandCompleted(commandType string) {
	m.AECPCommandsCompleted.WithLabelValues(commandType).Inc()
}

// RecordAECPCommandTimedOut increments the AECP commands-timed-out counter
// for commandType.
func (m *Metrics) RecordAECPCommandTimedOut(commandType string) {
	m.AECPCommandsTimedOut.WithLabelValues(commandType).Inc()
}

// RecordAECPCommandRetried increments the AECP commands-retried counter for
// commandType.
func (m *Metrics) RecordAECPCommandRetried(commandType string) {
	m.AECPCommandsRetried.WithLabelValues(commandType).Inc()
}

// RecordACMPCommandSent increments the ACMP commands-sent counter for
// messageType.
func (m *Metrics) RecordACMPCommandSent(messageType string) {
	m.ACMPCommandsSent.WithLabelValues(messageType).Inc()
}

// RecordACMPCommandCompleted increments the ACMP commands-completed counter
// for messageType.
func (m *Metrics) RecordACMPCommandCompleted(messageType string) {
	m.ACMPCommandsCompleted.WithLabelValues(messageType).Inc()
}

// RecordACMPCommandTimedOut increments the ACMP commands-timed-out counter
// for messageType.
func (m *Metrics) RecordACMPCommandTimedOut(messageType string) {
	m.ACMPCommandsTimedOut.WithLabelValues(messageType).Inc()
}

// RecordDescriptorRead increments the descriptors-read counter.
func (m *Metrics) RecordDescriptorRead() {
	m.DescriptorsRead.Inc()
}

// RecordDescriptorReadError increments the descriptor-read-errors counter.
func (m *Metrics) RecordDescriptorReadError() {
	m.DescriptorReadErrors.Inc()
}

// RecordEnumerationComplete observes the duration of a finished enumeration
// walk.
func (m *Metrics) RecordEnumerationComplete(durationSeconds float64) {
	m.EnumerationDuration.Observe(durationSeconds)
}

// SetEnumerationsActive sets the current active-enumerations gauge.
func (m *Metrics) SetEnumerationsActive(count int) {
	m.EnumerationsActive.Set(float64(count))
}

// SetEventRingDepth sets the current event-ring depth gauge.
func (m *Metrics) SetEventRingDepth(depth int) {
	m.EventRingDepth.Set(float64(depth))
}

// AddEventsMissed adds delta to the events-missed counter, for periodically
// reconciling against ring.Ring's monotonic MissedCount.
func (m *Metrics) AddEventsMissed(delta uint64) {
	m.EventsMissed.Add(float64(delta))
}

// SetSubmitQueueDepth sets the current submit-queue depth gauge.
func (m *Metrics) SetSubmitQueueDepth(depth int) {
	m.SubmitQueueDepth.Set(float64(depth))
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
