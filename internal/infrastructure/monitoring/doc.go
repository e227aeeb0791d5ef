/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the tab
engine, tracking HTTP requests, tab lifecycle activity, eviction sweeps,
snapshot persistence, and system metrics.

# Features

- HTTP request metrics (latency, throughput, size)
- Tab registry metrics (open, pinned, created, closed, rejected)
- Lifecycle transition metrics per state pair
- Eviction metrics by sweep reason, smoothed memory pressure gauge
- Snapshot, autosave, and resurrection counters
- Storage and content surface operation metrics
- WebSocket connection metrics
- System metrics (uptime)

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record custom metrics
	metrics.RecordTabCounts(7, 2)
	metrics.RecordTransition("idle", "suspended")

	// Time surface operations
	timer := monitoring.NewTimer(metrics, "describe")
	// ... perform operation ...
	timer.Stop("success")

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
