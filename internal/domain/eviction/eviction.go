package eviction

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/vantagebrowser/tabengine/internal/infrastructure/logging"
	"github.com/vantagebrowser/tabengine/internal/infrastructure/monitoring"
	"github.com/vantagebrowser/tabengine/internal/monitor"
	"github.com/vantagebrowser/tabengine/internal/shared/types"
)

// Eviction reasons carried on events and metrics.
const (
	ReasonMemoryPressure = "memory-pressure"
	ReasonTabCount       = "tab-count"
)

// Pressure is one evaluated memory reading.
type Pressure struct {
	Ratio    float64 `json:"ratio"`
	Smoothed float64 `json:"smoothed"`
	Reliable bool    `json:"reliable"`
}

// Decision is the outcome of one evaluation.
type Decision struct {
	Evict    bool     `json:"evict"`
	Reason   string   `json:"reason,omitempty"`
	Pressure Pressure `json:"pressure"`
}

// memoryReader narrows monitor.Reader for tests.
type memoryReader interface {
	Memory() monitor.Memory
}

// Policy decides when reclamation runs and which tabs it takes.
// Selection is pure; executing the suspends belongs to the caller.
type Policy struct {
	mu        sync.Mutex
	window    []float64 // Protected by mu, sliding ratio samples
	last      Pressure  // Protected by mu
	windowCap int
	reader    memoryReader
	highWater float64
	maxTabs   int
	batch     int
	log       *logging.Logger
	metrics   *monitoring.Metrics
}

// Config tunes the policy.
type Config struct {
	HighWater    float64
	SampleWindow int
	MaxTabs      int
	BatchSize    int
}

// New creates an eviction policy over the given memory reader.
func New(cfg Config, reader memoryReader, log *logging.Logger) *Policy {
	if cfg.SampleWindow < 1 {
		cfg.SampleWindow = 1
	}
	return &Policy{
		window:    make([]float64, 0, cfg.SampleWindow),
		windowCap: cfg.SampleWindow,
		reader:    reader,
		highWater: cfg.HighWater,
		maxTabs:   cfg.MaxTabs,
		batch:     cfg.BatchSize,
		log:       log,
	}
}

// WithMetrics adds metrics tracking to the policy
func (p *Policy) WithMetrics(metrics *monitoring.Metrics) *Policy {
	p.metrics = metrics
	return p
}

// Sample takes one memory reading and folds it into the sliding window.
func (p *Policy) Sample() Pressure {
	reading := p.reader.Memory()

	p.mu.Lock()
	smoothed := reading.Ratio
	if reading.Reliable {
		if len(p.window) >= p.windowCap {
			p.window = p.window[1:]
		}
		p.window = append(p.window, reading.Ratio)
		smoothed = stat.Mean(p.window, nil)
	}
	pressure := Pressure{
		Ratio:    reading.Ratio,
		Smoothed: smoothed,
		Reliable: reading.Reliable,
	}
	p.last = pressure
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.SetMemoryPressure(smoothed)
	}
	return pressure
}

// Last returns the most recent sample without taking a new one.
func (p *Policy) Last() Pressure {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Batch returns the sweep size cap.
func (p *Policy) Batch() int {
	return p.batch
}

// Evaluate samples pressure and decides whether a sweep should run.
// With a reliable reading the smoothed ratio is held against the high
// water mark; without one, tab count over two thirds of the cap
// triggers instead.
func (p *Policy) Evaluate(openTabs int) Decision {
	pressure := p.Sample()

	if pressure.Reliable {
		if pressure.Smoothed >= p.highWater {
			return Decision{Evict: true, Reason: ReasonMemoryPressure, Pressure: pressure}
		}
		return Decision{Pressure: pressure}
	}

	if openTabs > p.maxTabs*2/3 {
		return Decision{Evict: true, Reason: ReasonTabCount, Pressure: pressure}
	}
	return Decision{Pressure: pressure}
}

// Candidates picks the reclaim batch: least recently active first,
// never pinned, never the active tab, never tabs already reclaimed.
func (p *Policy) Candidates(tabs []*types.Tab, states map[string]types.LifecycleState) []string {
	eligible := make([]*types.Tab, 0, len(tabs))
	for _, tab := range tabs {
		if tab.Pinned || tab.Active {
			continue
		}
		if state, ok := states[tab.ID]; ok && !state.Live() {
			continue
		}
		eligible = append(eligible, tab)
	}

	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].LastActiveAt.Before(eligible[j].LastActiveAt)
	})

	if len(eligible) > p.batch {
		eligible = eligible[:p.batch]
	}
	ids := make([]string, len(eligible))
	for i, tab := range eligible {
		ids[i] = tab.ID
	}
	return ids
}

// Record counts an executed sweep.
func (p *Policy) Record(reason string, evicted int) {
	if p.metrics != nil {
		m := p.metrics
		m.EvictionSweeps.Inc()
		if evicted > 0 {
			m.RecordEviction(reason, evicted)
		}
	}
}
