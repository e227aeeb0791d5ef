package http

import (
	"time"

	"github.com/vantagebrowser/tabengine/internal/infrastructure/monitoring"
)

// HandlerMetrics wraps handlers with metrics tracking
type HandlerMetrics struct {
	metrics *monitoring.Metrics
}

// NewHandlerMetrics creates a metrics wrapper
func NewHandlerMetrics(metrics *monitoring.Metrics) *HandlerMetrics {
	return &HandlerMetrics{metrics: metrics}
}

// TrackTabOperation tracks tab registry operations
func (hm *HandlerMetrics) TrackTabOperation(operation string) func() {
	start := time.Now()
	return func() {
		hm.metrics.RecordEngineOp("tabs", operation, time.Since(start))
	}
}

// TrackSnapshotOperation tracks snapshot and resurrection operations
func (hm *HandlerMetrics) TrackSnapshotOperation(operation string) func() {
	start := time.Now()
	return func() {
		hm.metrics.RecordEngineOp("snapshots", operation, time.Since(start))
	}
}

// TrackEvictionOperation tracks sweep operations
func (hm *HandlerMetrics) TrackEvictionOperation(operation string) func() {
	start := time.Now()
	return func() {
		hm.metrics.RecordEngineOp("eviction", operation, time.Since(start))
	}
}
