package workspace

import (
	"sync"

	"github.com/vantagebrowser/tabengine/internal/events"
	"github.com/vantagebrowser/tabengine/internal/infrastructure/logging"
	"github.com/vantagebrowser/tabengine/internal/shared/types"
)

// Fallback weights when the renderer reports none.
const (
	WeightLive      = 40 << 20 // estimated bytes per live tab
	WeightSuspended = 1 << 20
)

// Usage describes one workspace's standing against its cap.
type Usage struct {
	WorkspaceID string  `json:"workspace_id"`
	UsedBytes   int64   `json:"used_bytes"`
	CapBytes    int64   `json:"cap_bytes"`
	Tabs        int     `json:"tabs"`
	Over        bool    `json:"over"`
	Ratio       float64 `json:"ratio"`
}

// Budget tracks estimated memory per workspace against soft caps.
// Going over never blocks anything directly; it reorders eviction.
type Budget struct {
	mu         sync.RWMutex
	usage      map[string]map[string]int64 // Protected by mu, ws -> tab -> bytes
	caps       map[string]int64            // Protected by mu
	defaultCap int64
	bus        *events.Bus
	log        *logging.Logger
}

// New creates a budget with the given default per-workspace cap.
func New(defaultCap int64, bus *events.Bus, log *logging.Logger) *Budget {
	return &Budget{
		usage:      make(map[string]map[string]int64),
		caps:       make(map[string]int64),
		defaultCap: defaultCap,
		bus:        bus,
		log:        log,
	}
}

// EstimateTab returns the fallback weight for a tab in the given state.
func EstimateTab(state types.LifecycleState) int64 {
	switch state {
	case types.StateSuspended:
		return WeightSuspended
	case types.StateHibernated:
		return 0
	default:
		return WeightLive
	}
}

// Charge records a tab's estimated bytes against its workspace.
// Crossing the cap publishes a budget event once per crossing.
func (b *Budget) Charge(workspaceID, tabID string, bytes int64) {
	b.mu.Lock()
	wasOver := b.overLocked(workspaceID)
	tabs, ok := b.usage[workspaceID]
	if !ok {
		tabs = make(map[string]int64)
		b.usage[workspaceID] = tabs
	}
	tabs[tabID] = bytes
	nowOver := b.overLocked(workspaceID)
	used := b.usedLocked(workspaceID)
	capBytes := b.capLocked(workspaceID)
	b.mu.Unlock()

	if nowOver && !wasOver && b.bus != nil {
		ratio := 0.0
		if capBytes > 0 {
			ratio = float64(used) / float64(capBytes)
		}
		b.bus.Publish(events.Event{
			Kind:        events.KindBudget,
			WorkspaceID: workspaceID,
			Ratio:       ratio,
		})
	}
}

// Discharge clears a tab's contribution.
func (b *Budget) Discharge(workspaceID, tabID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if tabs, ok := b.usage[workspaceID]; ok {
		delete(tabs, tabID)
		if len(tabs) == 0 {
			delete(b.usage, workspaceID)
		}
	}
}

// Used returns the workspace's estimated bytes.
func (b *Budget) Used(workspaceID string) int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.usedLocked(workspaceID)
}

// Cap returns the workspace's cap, configured or default.
func (b *Budget) Cap(workspaceID string) int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.capLocked(workspaceID)
}

// Over reports whether the workspace exceeds its cap.
func (b *Budget) Over(workspaceID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.overLocked(workspaceID)
}

// OverWorkspaces returns every workspace currently over budget.
func (b *Budget) OverWorkspaces() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var over []string
	for workspaceID := range b.usage {
		if b.overLocked(workspaceID) {
			over = append(over, workspaceID)
		}
	}
	return over
}

// Report returns usage for every charged workspace.
func (b *Budget) Report() []Usage {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Usage, 0, len(b.usage))
	for workspaceID, tabs := range b.usage {
		used := b.usedLocked(workspaceID)
		capBytes := b.capLocked(workspaceID)
		u := Usage{
			WorkspaceID: workspaceID,
			UsedBytes:   used,
			CapBytes:    capBytes,
			Tabs:        len(tabs),
			Over:        b.overLocked(workspaceID),
		}
		if capBytes > 0 {
			u.Ratio = float64(used) / float64(capBytes)
		}
		out = append(out, u)
	}
	return out
}

// SetCap overrides one workspace's cap.
func (b *Budget) SetCap(workspaceID string, capBytes int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.caps[workspaceID] = capBytes
}

func (b *Budget) usedLocked(workspaceID string) int64 {
	var used int64
	for _, bytes := range b.usage[workspaceID] {
		used += bytes
	}
	return used
}

func (b *Budget) capLocked(workspaceID string) int64 {
	if capBytes, ok := b.caps[workspaceID]; ok {
		return capBytes
	}
	return b.defaultCap
}

func (b *Budget) overLocked(workspaceID string) bool {
	capBytes := b.capLocked(workspaceID)
	if capBytes <= 0 {
		return false
	}
	return b.usedLocked(workspaceID) > capBytes
}
