package monitoring

// Snapshot returns a copy of the current metric values for the JSON API
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// AverageRequestDuration returns the mean request duration in seconds
func (m *Metrics) AverageRequestDuration() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snapshot.RequestCount == 0 {
		return 0
	}
	return m.snapshot.TotalDuration / float64(m.snapshot.RequestCount)
}
