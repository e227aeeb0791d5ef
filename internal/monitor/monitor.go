package monitor

import (
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vantagebrowser/tabengine/internal/infrastructure/logging"
)

// Memory is a point-in-time memory reading.
type Memory struct {
	Timestamp          int64   `json:"timestamp"`
	HeapAllocBytes     uint64  `json:"heap_alloc_bytes"`
	HeapSysBytes       uint64  `json:"heap_sys_bytes"`
	HostTotalBytes     uint64  `json:"host_total_bytes"`
	HostAvailableBytes uint64  `json:"host_available_bytes"`
	NumGC              uint32  `json:"num_gc"`
	Goroutines         int     `json:"goroutines"`
	Ratio              float64 `json:"ratio"`
	// Reliable is false when neither the host total nor an assumed
	// total could back the ratio.
	Reliable bool `json:"reliable"`
}

// Reader samples process and host memory. Host totals come from
// /proc/meminfo where available; a configured assumed total backs the
// ratio elsewhere.
type Reader struct {
	assumedTotal uint64
	log          *logging.Logger

	detectOnce sync.Once
	hostTotal  uint64
}

// NewReader creates a memory reader. assumedTotalBytes of zero means
// no fallback total.
func NewReader(assumedTotalBytes int64, logger *logging.Logger) *Reader {
	r := &Reader{log: logger}
	if assumedTotalBytes > 0 {
		r.assumedTotal = uint64(assumedTotalBytes)
	}
	return r
}

// HostTotalBytes returns the detected host memory total, zero when unknown.
// Detection runs once and is cached.
func (r *Reader) HostTotalBytes() uint64 {
	r.detectOnce.Do(func() {
		total, _ := hostMemory()
		r.hostTotal = total
		if total > 0 {
			r.log.Info("Host memory detected", zap.Uint64("total_bytes", total))
		} else if r.assumedTotal > 0 {
			r.log.Warn("Host memory unknown, using assumed total",
				zap.Uint64("assumed_bytes", r.assumedTotal))
		} else {
			r.log.Warn("Host memory unknown, pressure falls back to tab count")
		}
	})
	return r.hostTotal
}

// Memory takes a reading.
func (r *Reader) Memory() Memory {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	reading := Memory{
		Timestamp:      time.Now().Unix(),
		HeapAllocBytes: memStats.Alloc,
		HeapSysBytes:   memStats.Sys,
		NumGC:          memStats.NumGC,
		Goroutines:     runtime.NumGoroutine(),
	}

	total := r.HostTotalBytes()
	_, available := hostMemory()

	switch {
	case total > 0 && available > 0 && available <= total:
		reading.HostTotalBytes = total
		reading.HostAvailableBytes = available
		reading.Ratio = float64(total-available) / float64(total)
		reading.Reliable = true
	case r.assumedTotal > 0:
		reading.HostTotalBytes = r.assumedTotal
		reading.Ratio = float64(memStats.Sys) / float64(r.assumedTotal)
		reading.Reliable = true
	default:
		reading.Reliable = false
	}

	if reading.Ratio > 1 {
		reading.Ratio = 1
	}
	return reading
}
