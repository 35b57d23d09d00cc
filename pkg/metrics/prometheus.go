// Package metrics provides Prometheus metrics for the seisnear search service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Search outcomes
	searches        *prometheus.CounterVec
	searchDuration  prometheus.Histogram
	searchAttempts  prometheus.Histogram
	radiusEscalated prometheus.Counter
	eventsFound     prometheus.Counter
	eventsSkipped   prometheus.Counter
	eventsDuplicate prometheus.Counter

	// Producer fan-out
	producersStarted   prometheus.Counter
	producersTimedOut  prometheus.Counter
	producerDuration   prometheus.Histogram
	candidatesInserted prometheus.Counter
	candidatesRejected prometheus.Counter
	resolveFailures    prometheus.Counter

	// Catalog collaborator
	catalogRequests *prometheus.CounterVec
	catalogLatency  *prometheus.HistogramVec

	// Async jobs
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueue       prometheus.Counter
	queueDequeue       prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec
	workerCount        prometheus.Gauge
	jobLatency         prometheus.Histogram
	jobErrors          prometheus.Counter

	// Result store
	storeOperations *prometheus.CounterVec
	storeRecords    prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "seisnear",
		subsystem:        "search",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	auto := promauto.With(m.registry)
	latencyBuckets := []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

	m.searches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "searches_total",
		Help:      "Completed station searches by outcome",
	}, []string{"outcome"})
	m.searchDuration = m.histogram("search_duration_milliseconds", "End-to-end search duration in milliseconds", latencyBuckets)
	m.searchAttempts = m.histogram("search_attempts", "Discovery attempts per search", []float64{1, 2, 3, 4, 5, 6, 7, 8, 10, 12})
	m.radiusEscalated = m.counter("radius_escalations_total", "Radius escalations after a no-data catalog answer")
	m.eventsFound = m.counter("events_found_total", "Events registered from the event catalog")
	m.eventsSkipped = m.counter("events_skipped_total", "Events skipped for a missing time window")
	m.eventsDuplicate = m.counter("events_duplicate_total", "Catalog events dropped as duplicates")

	m.producersStarted = m.counter("producers_started_total", "Network producers spawned")
	m.producersTimedOut = m.counter("producers_timed_out_total", "Network producers abandoned at the producer timeout")
	m.producerDuration = m.histogram("producer_duration_milliseconds", "Time a network producer spent enumerating stations", latencyBuckets)
	m.candidatesInserted = m.counter("candidates_inserted_total", "Candidates retained by a nearest-station set")
	m.candidatesRejected = m.counter("candidates_rejected_total", "Candidates rejected by a full nearest-station set")
	m.resolveFailures = m.counter("coordinate_resolution_failures_total", "Channel coordinate lookups that failed")

	m.catalogRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catalog_requests_total",
		Help:      "Catalog requests by operation and outcome",
	}, []string{"operation", "outcome"})
	m.catalogLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catalog_request_duration_milliseconds",
		Help:      "Catalog request latency in milliseconds",
		Buckets:   latencyBuckets,
	}, []string{"operation"})

	m.queueSize = m.gauge("queue_size", "Pending asynchronous search jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum pending asynchronous search jobs")
	m.queueEnqueue = m.counter("queue_enqueue_total", "Jobs enqueued")
	m.queueDequeue = m.counter("queue_dequeue_total", "Jobs dequeued")
	m.queueEnqueueErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Rejected enqueue attempts by reason",
	}, []string{"reason"})
	m.workerCount = m.gauge("worker_count", "Search workers running")
	m.jobLatency = m.histogram("job_latency_milliseconds", "Asynchronous job processing latency in milliseconds", latencyBuckets)
	m.jobErrors = m.counter("job_errors_total", "Asynchronous jobs that could not be stored")

	m.storeOperations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_operations_total",
		Help:      "Result store operations by kind and outcome",
	}, []string{"operation", "outcome"})
	m.storeRecords = m.gauge("store_records", "Search reports held by the result store")

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.httpErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_errors_total",
		Help:      "HTTP error responses by endpoint, method, error type and severity",
	}, []string{"endpoint", "method", "error_type", "severity"})

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordSearch counts a finished search and observes its duration and attempts.
func RecordSearch(outcome string, durationMs float64, attempts int) {
	globalManager.searches.WithLabelValues(outcome).Inc()
	globalManager.searchDuration.Observe(durationMs)
	globalManager.searchAttempts.Observe(float64(attempts))
}

// RecordRadiusEscalation counts a retry with an enlarged radius.
func RecordRadiusEscalation() {
	globalManager.radiusEscalated.Inc()
}

// RecordEventsFound adds n registered events.
func RecordEventsFound(n int) {
	globalManager.eventsFound.Add(float64(n))
}

// RecordEventSkipped counts an event dropped for a missing time window.
func RecordEventSkipped() {
	globalManager.eventsSkipped.Inc()
}

// RecordEventDuplicate counts a catalog event dropped as a duplicate.
func RecordEventDuplicate() {
	globalManager.eventsDuplicate.Inc()
}

// RecordProducerStarted counts a spawned network producer.
func RecordProducerStarted() {
	globalManager.producersStarted.Inc()
}

// RecordProducerTimedOut counts a producer abandoned at the join deadline.
func RecordProducerTimedOut() {
	globalManager.producersTimedOut.Inc()
}

// RecordProducerDuration observes producer runtime in milliseconds.
func RecordProducerDuration(ms float64) {
	globalManager.producerDuration.Observe(ms)
}

// RecordCandidate counts an insertion attempt into a nearest-station set.
func RecordCandidate(retained bool) {
	if retained {
		globalManager.candidatesInserted.Inc()
		return
	}
	globalManager.candidatesRejected.Inc()
}

// RecordResolveFailure counts a failed channel coordinate lookup.
func RecordResolveFailure() {
	globalManager.resolveFailures.Inc()
}

// RecordCatalogRequest counts a catalog call and observes its latency.
func RecordCatalogRequest(operation, outcome string, latencyMs float64) {
	globalManager.catalogRequests.WithLabelValues(operation, outcome).Inc()
	globalManager.catalogLatency.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueue.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeue.Inc()
}

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordJobLatency observes asynchronous job latency in milliseconds.
func RecordJobLatency(ms float64) {
	globalManager.jobLatency.Observe(ms)
}

// RecordJobError counts a job whose report could not be stored.
func RecordJobError() {
	globalManager.jobErrors.Inc()
}

// RecordStoreOperation counts a result store call.
func RecordStoreOperation(operation, outcome string) {
	globalManager.storeOperations.WithLabelValues(operation, outcome).Inc()
}

// UpdateStoreRecords sets the number of stored reports.
func UpdateStoreRecords(count int) {
	globalManager.storeRecords.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPError counts an error response.
func RecordHTTPError(endpoint, method, errorType, severity string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType, severity).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
