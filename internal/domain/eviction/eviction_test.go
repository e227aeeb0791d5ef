package eviction

import (
	"testing"
	"time"

	"github.com/vantagebrowser/tabengine/internal/infrastructure/logging"
	"github.com/vantagebrowser/tabengine/internal/monitor"
	"github.com/vantagebrowser/tabengine/internal/shared/types"
)

// scriptedReader replays memory readings in order, repeating the last.
type scriptedReader struct {
	readings []monitor.Memory
	index    int
}

func (s *scriptedReader) Memory() monitor.Memory {
	r := s.readings[s.index]
	if s.index < len(s.readings)-1 {
		s.index++
	}
	return r
}

func reliable(ratio float64) monitor.Memory {
	return monitor.Memory{Ratio: ratio, Reliable: true}
}

func testPolicy(reader memoryReader) *Policy {
	return New(Config{
		HighWater:    0.75,
		SampleWindow: 12,
		MaxTabs:      15,
		BatchSize:    3,
	}, reader, logging.NewNop())
}

func TestEvaluateHighWater(t *testing.T) {
	p := testPolicy(&scriptedReader{readings: []monitor.Memory{reliable(0.80)}})

	decision := p.Evaluate(5)
	if !decision.Evict {
		t.Fatal("Expected eviction above high water")
	}
	if decision.Reason != ReasonMemoryPressure {
		t.Errorf("Expected memory-pressure reason, got %s", decision.Reason)
	}
}

func TestEvaluateBelowHighWater(t *testing.T) {
	p := testPolicy(&scriptedReader{readings: []monitor.Memory{reliable(0.50)}})

	decision := p.Evaluate(14)
	if decision.Evict {
		t.Errorf("Expected no eviction at 0.50, got reason %s", decision.Reason)
	}
}

func TestSmoothingAbsorbsSpike(t *testing.T) {
	p := testPolicy(&scriptedReader{readings: []monitor.Memory{reliable(0.50)}})

	for i := 0; i < 11; i++ {
		p.Sample()
	}

	// One spike against eleven calm samples must not trigger
	p.reader = &scriptedReader{readings: []monitor.Memory{reliable(0.95)}}
	decision := p.Evaluate(5)
	if decision.Evict {
		t.Errorf("Expected smoothing to absorb the spike, smoothed %g", decision.Pressure.Smoothed)
	}
	if decision.Pressure.Ratio != 0.95 {
		t.Errorf("Expected raw ratio preserved, got %g", decision.Pressure.Ratio)
	}
}

func TestSustainedPressureTriggers(t *testing.T) {
	p := testPolicy(&scriptedReader{readings: []monitor.Memory{reliable(0.90)}})

	var decision Decision
	for i := 0; i < 12; i++ {
		decision = p.Evaluate(5)
	}
	if !decision.Evict {
		t.Errorf("Expected sustained pressure to trigger, smoothed %g", decision.Pressure.Smoothed)
	}
}

func TestWindowSlides(t *testing.T) {
	p := testPolicy(&scriptedReader{readings: []monitor.Memory{reliable(0.10)}})

	for i := 0; i < 30; i++ {
		p.Sample()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.window) != 12 {
		t.Errorf("Expected window capped at 12, got %d", len(p.window))
	}
}

func TestFallbackTabCount(t *testing.T) {
	unreliable := &scriptedReader{readings: []monitor.Memory{{Ratio: 0, Reliable: false}}}
	p := testPolicy(unreliable)

	decision := p.Evaluate(11)
	if !decision.Evict || decision.Reason != ReasonTabCount {
		t.Errorf("Expected tab-count eviction at 11 tabs, got %+v", decision)
	}

	decision = p.Evaluate(10)
	if decision.Evict {
		t.Errorf("Expected no eviction at exactly two thirds, got %+v", decision)
	}
}

func TestCandidates(t *testing.T) {
	base := time.Now()
	tabs := []*types.Tab{
		{ID: "active", Active: true, LastActiveAt: base.Add(-10 * time.Minute)},
		{ID: "pinned", Pinned: true, LastActiveAt: base.Add(-20 * time.Minute)},
		{ID: "oldest", LastActiveAt: base.Add(-30 * time.Minute)},
		{ID: "older", LastActiveAt: base.Add(-15 * time.Minute)},
		{ID: "suspended", LastActiveAt: base.Add(-25 * time.Minute)},
		{ID: "recent", LastActiveAt: base.Add(-1 * time.Minute)},
		{ID: "mid", LastActiveAt: base.Add(-5 * time.Minute)},
	}
	states := map[string]types.LifecycleState{
		"active":    types.StateActive,
		"pinned":    types.StateIdle,
		"oldest":    types.StateIdle,
		"older":     types.StateIdle,
		"suspended": types.StateSuspended,
		"recent":    types.StateActive,
		"mid":       types.StateIdle,
	}

	p := testPolicy(&scriptedReader{readings: []monitor.Memory{reliable(0.5)}})
	got := p.Candidates(tabs, states)

	want := []string{"oldest", "older", "mid"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d candidates, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected candidate %d to be %s, got %s", i, want[i], got[i])
		}
	}
}

func TestCandidatesEmptyWhenAllExempt(t *testing.T) {
	tabs := []*types.Tab{
		{ID: "active", Active: true},
		{ID: "pinned", Pinned: true},
	}
	states := map[string]types.LifecycleState{
		"active": types.StateActive,
		"pinned": types.StateIdle,
	}

	p := testPolicy(&scriptedReader{readings: []monitor.Memory{reliable(0.9)}})
	if got := p.Candidates(tabs, states); len(got) != 0 {
		t.Errorf("Expected no candidates, got %v", got)
	}
}
