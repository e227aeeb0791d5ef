package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Tab metrics
	TabsOpen     prometheus.Gauge
	TabsPinned   prometheus.Gauge
	TabsCreated  prometheus.Counter
	TabsClosed   prometheus.Counter
	TabsRejected *prometheus.CounterVec

	// Lifecycle metrics
	TabsByState        *prometheus.GaugeVec
	StateTransitions   *prometheus.CounterVec
	IllegalTransitions prometheus.Counter

	// Eviction metrics
	Evictions       *prometheus.CounterVec
	EvictionSweeps  prometheus.Counter
	MemoryPressure  prometheus.Gauge
	PressureSamples prometheus.Counter

	// Snapshot metrics
	SnapshotsSaved   prometheus.Counter
	SnapshotsLoaded  prometheus.Counter
	SnapshotsDeleted prometheus.Counter
	AutosaveRuns     prometheus.Counter
	Resurrections    prometheus.Counter
	ScrollRestores   *prometheus.CounterVec

	// Storage metrics
	StorageOps      *prometheus.CounterVec
	StorageDuration *prometheus.HistogramVec

	// Surface metrics
	SurfaceCalls    *prometheus.CounterVec
	SurfaceDuration *prometheus.HistogramVec

	// Engine operation metrics
	EngineOps *prometheus.HistogramVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64
	TotalErrors       int64
	OpenTabs          int64
	ActiveConnections int64
	TotalEvictions    int64
	TotalDuration     float64 // sum of all request durations
	RequestCount      int64   // count for averaging
}

var (
	collector     *Metrics
	collectorOnce sync.Once
)

// NewMetrics returns the process-wide metrics collector. Prometheus
// registration is global, so the collectors are built once and shared.
func NewMetrics() *Metrics {
	collectorOnce.Do(func() {
		collector = newCollector()
	})
	return collector
}

func newCollector() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabengine_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tabengine_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tabengine_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tabengine_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Tab metrics
		TabsOpen: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tabengine_tabs_open",
				Help: "Number of open tabs",
			},
		),
		TabsPinned: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tabengine_tabs_pinned",
				Help: "Number of pinned tabs",
			},
		),
		TabsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tabengine_tabs_created_total",
				Help: "Total number of tabs created",
			},
		),
		TabsClosed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tabengine_tabs_closed_total",
				Help: "Total number of tabs closed",
			},
		),
		TabsRejected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabengine_tabs_rejected_total",
				Help: "Total number of rejected tab operations",
			},
			[]string{"operation", "reason"},
		),

		// Lifecycle metrics
		TabsByState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tabengine_tabs_by_state",
				Help: "Number of tabs per lifecycle state",
			},
			[]string{"state"},
		),
		StateTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabengine_state_transitions_total",
				Help: "Total number of lifecycle state transitions",
			},
			[]string{"from", "to"},
		),
		IllegalTransitions: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tabengine_illegal_transitions_total",
				Help: "Total number of rejected lifecycle transitions",
			},
		),

		// Eviction metrics
		Evictions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabengine_evictions_total",
				Help: "Total number of evicted tabs",
			},
			[]string{"reason"},
		),
		EvictionSweeps: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tabengine_eviction_sweeps_total",
				Help: "Total number of eviction sweeps",
			},
		),
		MemoryPressure: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tabengine_memory_pressure_ratio",
				Help: "Smoothed memory usage ratio against the high water mark",
			},
		),
		PressureSamples: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tabengine_pressure_samples_total",
				Help: "Total number of memory pressure samples taken",
			},
		),

		// Snapshot metrics
		SnapshotsSaved: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tabengine_snapshots_saved_total",
				Help: "Total number of snapshots saved",
			},
		),
		SnapshotsLoaded: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tabengine_snapshots_loaded_total",
				Help: "Total number of snapshots loaded",
			},
		),
		SnapshotsDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tabengine_snapshots_deleted_total",
				Help: "Total number of snapshots deleted",
			},
		),
		AutosaveRuns: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tabengine_autosave_runs_total",
				Help: "Total number of autosave passes",
			},
		),
		Resurrections: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tabengine_resurrections_total",
				Help: "Total number of tabs resurrected after a crash",
			},
		),
		ScrollRestores: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabengine_scroll_restores_total",
				Help: "Total number of scroll restore attempts",
			},
			[]string{"outcome"},
		),

		// Storage metrics
		StorageOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabengine_storage_ops_total",
				Help: "Total number of storage operations",
			},
			[]string{"backend", "op", "status"},
		),
		StorageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tabengine_storage_duration_seconds",
				Help:    "Storage operation duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"backend", "op"},
		),

		// Surface metrics
		SurfaceCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabengine_surface_calls_total",
				Help: "Total number of content surface calls",
			},
			[]string{"method", "status"},
		),
		SurfaceDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tabengine_surface_duration_seconds",
				Help:    "Content surface call duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method"},
		),

		// Engine operation metrics
		EngineOps: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tabengine_engine_op_duration_seconds",
				Help:    "Engine operation duration in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 2.5},
			},
			[]string{"component", "operation"},
		),

		// WebSocket metrics
		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tabengine_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabengine_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		// System metrics
		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tabengine_uptime_seconds",
				Help: "Engine uptime in seconds",
			},
		),
	}

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	// Update snapshot
	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordTabCounts updates the open and pinned tab gauges
func (m *Metrics) RecordTabCounts(open, pinned int) {
	m.TabsOpen.Set(float64(open))
	m.TabsPinned.Set(float64(pinned))
	m.mu.Lock()
	m.snapshot.OpenTabs = int64(open)
	m.mu.Unlock()
}

// IncTabsCreated increments the created tabs counter
func (m *Metrics) IncTabsCreated() {
	m.TabsCreated.Inc()
}

// IncTabsClosed increments the closed tabs counter
func (m *Metrics) IncTabsClosed() {
	m.TabsClosed.Inc()
}

// RecordRejected records a rejected tab operation
func (m *Metrics) RecordRejected(operation, reason string) {
	m.TabsRejected.WithLabelValues(operation, reason).Inc()
}

// RecordTransition records a lifecycle state transition
func (m *Metrics) RecordTransition(from, to string) {
	m.StateTransitions.WithLabelValues(from, to).Inc()
}

// SetStateCount sets the gauge for a lifecycle state
func (m *Metrics) SetStateCount(state string, count int) {
	m.TabsByState.WithLabelValues(state).Set(float64(count))
}

// RecordIllegalTransition counts a rejected lifecycle transition
func (m *Metrics) RecordIllegalTransition() {
	m.IllegalTransitions.Inc()
}

// RecordEviction records evicted tabs for a sweep reason
func (m *Metrics) RecordEviction(reason string, count int) {
	m.Evictions.WithLabelValues(reason).Add(float64(count))
	m.mu.Lock()
	m.snapshot.TotalEvictions += int64(count)
	m.mu.Unlock()
}

// SetMemoryPressure sets the smoothed memory pressure gauge
func (m *Metrics) SetMemoryPressure(ratio float64) {
	m.MemoryPressure.Set(ratio)
}

// RecordScrollRestore records a scroll restore outcome
// (restored, pending, unsupported, failed)
func (m *Metrics) RecordScrollRestore(outcome string) {
	m.ScrollRestores.WithLabelValues(outcome).Inc()
}

// RecordStorageOp records a storage operation
func (m *Metrics) RecordStorageOp(backend, op, status string, duration time.Duration) {
	m.StorageOps.WithLabelValues(backend, op, status).Inc()
	m.StorageDuration.WithLabelValues(backend, op).Observe(duration.Seconds())
}

// RecordSurfaceCall records a content surface call
func (m *Metrics) RecordSurfaceCall(method, status string, duration time.Duration) {
	m.SurfaceCalls.WithLabelValues(method, status).Inc()
	m.SurfaceDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordEngineOp records one engine operation's duration
func (m *Metrics) RecordEngineOp(component, operation string, duration time.Duration) {
	m.EngineOps.WithLabelValues(component, operation).Observe(duration.Seconds())
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// GetSnapshot returns current metric values for the JSON API
func (m *Metrics) GetSnapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// GetUptimeSeconds returns seconds since the collector was created
func (m *Metrics) GetUptimeSeconds() float64 {
	return time.Since(m.startTime).Seconds()
}
