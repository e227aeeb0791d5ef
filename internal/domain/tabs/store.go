package tabs

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vantagebrowser/tabengine/internal/events"
	"github.com/vantagebrowser/tabengine/internal/infrastructure/logging"
	"github.com/vantagebrowser/tabengine/internal/infrastructure/monitoring"
	"github.com/vantagebrowser/tabengine/internal/shared/types"
)

// Store owns the tab registry: which tabs exist, their strip order,
// which one is active, their groups, and the recently closed stack.
type Store struct {
	mu        sync.RWMutex
	tabs      map[string]*types.Tab      // Protected by mu
	order     []string                   // Protected by mu, strip order
	groups    map[string]*types.TabGroup // Protected by mu
	activeID  string                     // Protected by mu, empty when none
	closed    []*types.ClosedTab         // Protected by mu, most recent last
	maxTabs   int
	closedCap int
	bus       *events.Bus
	log       *logging.Logger
	metrics   *monitoring.Metrics
}

// New creates a tab store. maxTabs caps live tabs, closedCap bounds the
// recently closed stack.
func New(maxTabs, closedCap int, bus *events.Bus, log *logging.Logger) *Store {
	return &Store{
		tabs:      make(map[string]*types.Tab),
		groups:    make(map[string]*types.TabGroup),
		maxTabs:   maxTabs,
		closedCap: closedCap,
		bus:       bus,
		log:       log,
	}
}

// WithMetrics adds metrics tracking to the store
func (s *Store) WithMetrics(metrics *monitoring.Metrics) *Store {
	s.metrics = metrics
	return s
}

// Create opens a new tab. The tab becomes active unless the request
// asks for background.
func (s *Store) Create(req types.CreateTabRequest) (*types.Tab, error) {
	now := time.Now()
	tab := &types.Tab{
		ID:           uuid.New().String(),
		WorkspaceID:  req.WorkspaceID,
		URL:          req.URL,
		CreatedAt:    now,
		LastActiveAt: now,
		Pinned:       req.Pinned,
		History:      []string{req.URL},
		HistoryIndex: 0,
	}

	s.mu.Lock()
	if len(s.tabs) >= s.maxTabs {
		s.mu.Unlock()
		s.log.Warn("tab limit reached, create refused",
			zap.Int("max_tabs", s.maxTabs),
			zap.String("url", req.URL))
		if s.metrics != nil {
			s.metrics.RecordRejected("create", "limit")
		}
		return nil, ErrTabLimit
	}
	if req.GroupID != "" {
		if _, ok := s.groups[req.GroupID]; !ok {
			s.mu.Unlock()
			return nil, ErrGroupNotFound
		}
		tab.GroupID = req.GroupID
	}

	s.tabs[tab.ID] = tab
	s.order = append(s.order, tab.ID)

	evts := []events.Event{{
		Kind:        events.KindTabCreated,
		TabID:       tab.ID,
		WorkspaceID: tab.WorkspaceID,
		URL:         tab.URL,
	}}
	if !req.Background {
		evts = append(evts, s.activateLocked(tab.ID, now))
	}
	out := cloneTab(tab)
	s.recordCountsLocked()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.IncTabsCreated()
	}
	s.publish(evts...)
	return out, nil
}

// Activate makes the tab the single active one. Activating the current
// active tab only refreshes its activity time.
func (s *Store) Activate(id string) (*types.Tab, error) {
	s.mu.Lock()
	tab, ok := s.tabs[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	evt := s.activateLocked(id, time.Now())
	out := cloneTab(tab)
	s.mu.Unlock()

	s.publish(evt)
	return out, nil
}

// Touch refreshes a tab's activity time without changing focus.
func (s *Store) Touch(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tab, ok := s.tabs[id]
	if !ok {
		return ErrNotFound
	}
	tab.LastActiveAt = time.Now()
	return nil
}

// activateLocked swaps the active tab. Caller must hold mu.
func (s *Store) activateLocked(id string, now time.Time) events.Event {
	previous := s.activeID
	if previous != "" && previous != id {
		if prev, ok := s.tabs[previous]; ok {
			prev.Active = false
		}
	}
	tab := s.tabs[id]
	tab.Active = true
	tab.LastActiveAt = now
	s.activeID = id

	return events.Event{
		Kind:        events.KindTabActivated,
		TabID:       id,
		WorkspaceID: tab.WorkspaceID,
		PreviousID:  previous,
		URL:         tab.CurrentURL(),
	}
}

// Close removes a tab and remembers it for reopening. Pinned tabs must
// be unpinned first. Closing the active tab elects its predecessor in
// strip order, falling back to the first remaining tab.
func (s *Store) Close(id string) error {
	s.mu.Lock()
	tab, ok := s.tabs[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if tab.Pinned {
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.RecordRejected("close", "pinned")
		}
		return ErrPinned
	}

	index := s.indexLocked(id)
	s.removeLocked(id)
	s.pushClosedLocked(tab, index)

	evts := []events.Event{{
		Kind:        events.KindTabClosed,
		TabID:       id,
		WorkspaceID: tab.WorkspaceID,
		URL:         tab.CurrentURL(),
	}}
	if s.activeID == id {
		s.activeID = ""
		if successor := s.predecessorLocked(index); successor != "" {
			evts = append(evts, s.activateLocked(successor, time.Now()))
		}
	}
	s.recordCountsLocked()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.IncTabsClosed()
	}
	s.publish(evts...)
	return nil
}

// Update patches renderer-reported fields.
func (s *Store) Update(id string, req types.UpdateTabRequest) (*types.Tab, error) {
	s.mu.Lock()
	tab, ok := s.tabs[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if req.Title != nil {
		tab.Title = *req.Title
	}
	if req.Favicon != nil {
		tab.Favicon = *req.Favicon
	}
	if req.Pinned != nil {
		tab.Pinned = *req.Pinned
	}
	out := cloneTab(tab)
	s.recordCountsLocked()
	s.mu.Unlock()

	s.publish(events.Event{
		Kind:        events.KindTabUpdated,
		TabID:       id,
		WorkspaceID: out.WorkspaceID,
	})
	return out, nil
}

// SetPinned pins or unpins a tab.
func (s *Store) SetPinned(id string, pinned bool) error {
	s.mu.Lock()
	tab, ok := s.tabs[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	tab.Pinned = pinned
	s.recordCountsLocked()
	s.mu.Unlock()

	s.publish(events.Event{
		Kind:        events.KindTabUpdated,
		TabID:       id,
		WorkspaceID: tab.WorkspaceID,
	})
	return nil
}

// RecordCrash increments the tab's crash counter and returns the new
// count.
func (s *Store) RecordCrash(id string) (int, error) {
	s.mu.Lock()
	tab, ok := s.tabs[id]
	if !ok {
		s.mu.Unlock()
		return 0, ErrNotFound
	}
	tab.CrashCount++
	count := tab.CrashCount
	wsID := tab.WorkspaceID
	s.mu.Unlock()

	s.publish(events.Event{
		Kind:        events.KindTabCrashed,
		TabID:       id,
		WorkspaceID: wsID,
		Reason:      "renderer_crash",
	})
	return count, nil
}

// Replace loads a full registry, used on startup restore. Extra tabs
// beyond the cap are dropped least recently active first, sparing
// pinned tabs while any unpinned remain.
func (s *Store) Replace(loaded []*types.Tab, activeID string) {
	s.mu.Lock()
	s.tabs = make(map[string]*types.Tab, len(loaded))
	s.order = s.order[:0]
	s.activeID = ""

	kept := clampToCap(loaded, s.maxTabs)
	for _, tab := range kept {
		clone := cloneTab(tab)
		clone.Active = false
		if clone.GroupID != "" {
			if _, ok := s.groups[clone.GroupID]; !ok {
				clone.GroupID = ""
			}
		}
		s.tabs[clone.ID] = clone
		s.order = append(s.order, clone.ID)
	}

	var evt *events.Event
	if _, ok := s.tabs[activeID]; ok && activeID != "" {
		e := s.activateLocked(activeID, time.Now())
		evt = &e
	} else if len(s.order) > 0 {
		e := s.activateLocked(s.order[0], time.Now())
		evt = &e
	}
	s.recordCountsLocked()
	s.mu.Unlock()

	if evt != nil {
		s.publish(*evt)
	}
}

// Get retrieves a tab by ID
func (s *Store) Get(id string) (*types.Tab, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tab, ok := s.tabs[id]
	if !ok {
		return nil, false
	}
	return cloneTab(tab), true
}

// Active returns the active tab, if any
func (s *Store) Active() (*types.Tab, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.activeID == "" {
		return nil, false
	}
	tab, ok := s.tabs[s.activeID]
	if !ok {
		return nil, false
	}
	return cloneTab(tab), true
}

// List returns all tabs in strip order
func (s *Store) List() []*types.Tab {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.Tab, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, cloneTab(s.tabs[id]))
	}
	return out
}

// ListByWorkspace returns the workspace's tabs in strip order
func (s *Store) ListByWorkspace(workspaceID string) []*types.Tab {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*types.Tab
	for _, id := range s.order {
		if tab := s.tabs[id]; tab.WorkspaceID == workspaceID {
			out = append(out, cloneTab(tab))
		}
	}
	return out
}

// Count returns the number of live tabs
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tabs)
}

// Stats returns registry statistics
func (s *Store) Stats() types.TabStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pinned int
	for _, tab := range s.tabs {
		if tab.Pinned {
			pinned++
		}
	}

	stats := types.TabStats{
		TotalTabs:      len(s.tabs),
		PinnedTabs:     pinned,
		Groups:         len(s.groups),
		RecentlyClosed: len(s.closed),
	}
	if s.activeID != "" {
		id := s.activeID
		stats.ActiveTabID = &id
	}
	return stats
}

// indexLocked returns the tab's strip position. Caller must hold mu.
func (s *Store) indexLocked(id string) int {
	for i, other := range s.order {
		if other == id {
			return i
		}
	}
	return -1
}

// removeLocked deletes a tab from the registry. Caller must hold mu.
func (s *Store) removeLocked(id string) {
	delete(s.tabs, id)
	if i := s.indexLocked(id); i >= 0 {
		s.order = append(s.order[:i], s.order[i+1:]...)
	}
}

// predecessorLocked picks the successor for a tab closed at index.
// Caller must hold mu, after removal.
func (s *Store) predecessorLocked(index int) string {
	if len(s.order) == 0 {
		return ""
	}
	if index > 0 && index-1 < len(s.order) {
		return s.order[index-1]
	}
	return s.order[0]
}

// pushClosedLocked remembers a closed tab, dropping the oldest beyond
// the cap. Caller must hold mu.
func (s *Store) pushClosedLocked(tab *types.Tab, index int) {
	entry := &types.ClosedTab{
		Tab:      *cloneTab(tab),
		Index:    index,
		ClosedAt: time.Now(),
	}
	entry.Tab.Active = false
	if len(s.closed) >= s.closedCap {
		s.closed = s.closed[1:]
	}
	s.closed = append(s.closed, entry)
}

// recordCountsLocked refreshes tab gauges. Caller must hold mu.
func (s *Store) recordCountsLocked() {
	if s.metrics == nil {
		return
	}
	var pinned int
	for _, tab := range s.tabs {
		if tab.Pinned {
			pinned++
		}
	}
	s.metrics.RecordTabCounts(len(s.tabs), pinned)
}

func (s *Store) publish(evts ...events.Event) {
	if s.bus == nil {
		return
	}
	for _, evt := range evts {
		s.bus.Publish(evt)
	}
}

// cloneTab copies a tab including its history slice.
func cloneTab(tab *types.Tab) *types.Tab {
	clone := *tab
	clone.History = append([]string(nil), tab.History...)
	return &clone
}

// clampToCap keeps at most max tabs, dropping least recently active
// unpinned tabs first.
func clampToCap(loaded []*types.Tab, max int) []*types.Tab {
	if len(loaded) <= max {
		return loaded
	}

	drop := make(map[string]struct{}, len(loaded)-max)
	for len(loaded)-len(drop) > max {
		var victim *types.Tab
		for _, tab := range loaded {
			if _, gone := drop[tab.ID]; gone || tab.Pinned {
				continue
			}
			if victim == nil || tab.LastActiveAt.Before(victim.LastActiveAt) {
				victim = tab
			}
		}
		if victim == nil {
			// Only pinned tabs remain, drop oldest anyway
			for _, tab := range loaded {
				if _, gone := drop[tab.ID]; gone {
					continue
				}
				if victim == nil || tab.LastActiveAt.Before(victim.LastActiveAt) {
					victim = tab
				}
			}
		}
		if victim == nil {
			break
		}
		drop[victim.ID] = struct{}{}
	}

	kept := make([]*types.Tab, 0, max)
	for _, tab := range loaded {
		if _, gone := drop[tab.ID]; !gone {
			kept = append(kept, tab)
		}
	}
	return kept
}
