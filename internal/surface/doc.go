// Package surface abstracts the rendering process that owns the actual
// page views.
//
// The engine never assumes the renderer is healthy. The HTTP client
// wraps every call in a circuit breaker and short retries so a wedged
// renderer degrades tab reclamation instead of blocking it. Loopback
// provides the same contract in-process for headless operation and
// tests.
//
// Capability is tri-state: a probe can find a feature present, find it
// absent, or fail to reach the renderer at all. Callers treat unknown
// as "try once, keep going".
package surface
