package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vantagebrowser/tabengine/internal/domain/engine"
	"github.com/vantagebrowser/tabengine/internal/infrastructure/monitoring"
)

// MetricsAggregator exposes a JSON view of engine and process metrics
type MetricsAggregator struct {
	metrics *monitoring.Metrics
	engine  *engine.Engine
}

// NewMetricsAggregator creates a metrics aggregator
func NewMetricsAggregator(metrics *monitoring.Metrics, eng *engine.Engine) *MetricsAggregator {
	return &MetricsAggregator{
		metrics: metrics,
		engine:  eng,
	}
}

// AggregatedMetrics represents a snapshot of engine metrics
type AggregatedMetrics struct {
	Timestamp time.Time              `json:"timestamp"`
	Engine    map[string]interface{} `json:"engine"`
	State     engine.Stats           `json:"state"`
	Summary   MetricsSummary         `json:"summary"`
}

// MetricsSummary provides high-level metrics
type MetricsSummary struct {
	TotalRequests     int64   `json:"total_requests"`
	AverageLatencyMs  float64 `json:"average_latency_ms"`
	ErrorRate         float64 `json:"error_rate"`
	ActiveConnections int     `json:"active_connections"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// GetAggregatedMetrics returns engine metrics in JSON form
func (ma *MetricsAggregator) GetAggregatedMetrics(c *gin.Context) {
	snapshot := AggregatedMetrics{
		Timestamp: time.Now(),
		Engine:    ma.getEngineMetrics(),
		State:     ma.engine.Stats(),
		Summary:   ma.calculateSummary(),
	}

	c.JSON(http.StatusOK, snapshot)
}

// getEngineMetrics collects engine-level counters
func (ma *MetricsAggregator) getEngineMetrics() map[string]interface{} {
	snapshot := ma.metrics.GetSnapshot()
	uptime := ma.metrics.GetUptimeSeconds()

	return map[string]interface{}{
		"status":             "operational",
		"total_requests":     snapshot.TotalRequests,
		"total_errors":       snapshot.TotalErrors,
		"open_tabs":          snapshot.OpenTabs,
		"total_evictions":    snapshot.TotalEvictions,
		"active_connections": snapshot.ActiveConnections,
		"uptime_seconds":     uptime,
	}
}

// calculateSummary computes high-level summary metrics
func (ma *MetricsAggregator) calculateSummary() MetricsSummary {
	snapshot := ma.metrics.GetSnapshot()
	uptime := ma.metrics.GetUptimeSeconds()

	var avgLatency float64
	if snapshot.RequestCount > 0 {
		avgLatency = (snapshot.TotalDuration / float64(snapshot.RequestCount)) * 1000
	}

	var errorRate float64
	if snapshot.TotalRequests > 0 {
		errorRate = float64(snapshot.TotalErrors) / float64(snapshot.TotalRequests)
	}

	return MetricsSummary{
		TotalRequests:     snapshot.TotalRequests,
		AverageLatencyMs:  avgLatency,
		ErrorRate:         errorRate,
		ActiveConnections: int(snapshot.ActiveConnections),
		UptimeSeconds:     uptime,
	}
}
