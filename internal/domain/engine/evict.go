package engine

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/vantagebrowser/tabengine/internal/domain/eviction"
	"github.com/vantagebrowser/tabengine/internal/events"
	"github.com/vantagebrowser/tabengine/internal/shared/types"
)

// SweepReport describes one eviction pass.
type SweepReport struct {
	At         time.Time         `json:"at"`
	Triggered  bool              `json:"triggered"`
	Reason     string            `json:"reason,omitempty"`
	Pressure   eviction.Pressure `json:"pressure"`
	Evicted    []string          `json:"evicted,omitempty"`
	Hibernated []string          `json:"hibernated,omitempty"`
	Failed     int               `json:"failed"`
}

// EvictionStatus is the observability view of the policy.
type EvictionStatus struct {
	Pressure   eviction.Pressure `json:"pressure"`
	OverBudget []string          `json:"over_budget_workspaces,omitempty"`
	LastSweep  *SweepReport      `json:"last_sweep,omitempty"`
}

// Sweep evaluates pressure and reclaims a batch when the policy calls
// for it. force runs the batch regardless of pressure, for the manual
// endpoint. Failures on individual tabs do not stop the batch.
func (e *Engine) Sweep(ctx context.Context, force bool) *SweepReport {
	decision := e.policy.Evaluate(e.tabs.Count())
	report := &SweepReport{
		At:        time.Now(),
		Triggered: decision.Evict,
		Reason:    decision.Reason,
		Pressure:  decision.Pressure,
	}
	if !decision.Evict {
		if !force {
			return report
		}
		report.Triggered = true
		report.Reason = "manual"
	}

	candidates := e.sweepCandidates()
	for _, id := range candidates {
		tab, ok := e.tabs.Get(id)
		if !ok {
			continue
		}
		if err := e.SuspendTab(ctx, id, report.Reason); err != nil {
			report.Failed++
			e.log.Warn("Eviction suspend failed",
				zap.String("tab_id", id), zap.Error(err))
			continue
		}
		report.Evicted = append(report.Evicted, id)
		e.publish(events.Event{
			Kind:        events.KindTabEvicted,
			TabID:       id,
			WorkspaceID: tab.WorkspaceID,
			Reason:      report.Reason,
		})
	}

	// Under real memory pressure with nothing live left to take,
	// spill the oldest suspended surfaces instead.
	if decision.Reason == eviction.ReasonMemoryPressure && len(candidates) == 0 {
		for _, id := range e.hibernateCandidates() {
			if err := e.HibernateTab(ctx, id); err != nil {
				report.Failed++
				e.log.Warn("Eviction hibernate failed",
					zap.String("tab_id", id), zap.Error(err))
				continue
			}
			report.Hibernated = append(report.Hibernated, id)
		}
	}

	e.policy.Record(report.Reason, len(report.Evicted)+len(report.Hibernated))
	e.mu.Lock()
	e.lastSweep = report
	e.mu.Unlock()

	if len(report.Evicted) > 0 || len(report.Hibernated) > 0 {
		e.log.Info("Eviction sweep done",
			zap.String("reason", report.Reason),
			zap.Int("evicted", len(report.Evicted)),
			zap.Int("hibernated", len(report.Hibernated)),
			zap.Float64("smoothed", report.Pressure.Smoothed))
	}
	return report
}

// sweepCandidates orders the batch with over-budget workspaces first,
// then the rest, each leg least recently active first.
func (e *Engine) sweepCandidates() []string {
	states := e.tracker.States()
	all := e.tabs.List()

	overSet := make(map[string]bool)
	for _, workspaceID := range e.budget.OverWorkspaces() {
		overSet[workspaceID] = true
	}
	if len(overSet) == 0 {
		return e.policy.Candidates(all, states)
	}

	var over, rest []*types.Tab
	for _, tab := range all {
		if overSet[tab.WorkspaceID] {
			over = append(over, tab)
		} else {
			rest = append(rest, tab)
		}
	}
	ids := e.policy.Candidates(over, states)
	for _, id := range e.policy.Candidates(rest, states) {
		if len(ids) >= e.policy.Batch() {
			break
		}
		ids = append(ids, id)
	}
	return ids
}

// hibernateCandidates picks suspended, unpinned tabs, oldest first,
// up to the batch size.
func (e *Engine) hibernateCandidates() []string {
	states := e.tracker.States()

	var eligible []*types.Tab
	for _, tab := range e.tabs.List() {
		if tab.Pinned || tab.Active {
			continue
		}
		if states[tab.ID] != types.StateSuspended {
			continue
		}
		eligible = append(eligible, tab)
	}
	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].LastActiveAt.Before(eligible[j].LastActiveAt)
	})
	if len(eligible) > e.policy.Batch() {
		eligible = eligible[:e.policy.Batch()]
	}

	ids := make([]string, len(eligible))
	for i, tab := range eligible {
		ids[i] = tab.ID
	}
	return ids
}

// Eviction returns current pressure and the last executed sweep.
func (e *Engine) Eviction() EvictionStatus {
	e.mu.Lock()
	last := e.lastSweep
	e.mu.Unlock()

	return EvictionStatus{
		Pressure:   e.policy.Last(),
		OverBudget: e.budget.OverWorkspaces(),
		LastSweep:  last,
	}
}
