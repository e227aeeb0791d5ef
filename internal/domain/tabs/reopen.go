package tabs

import (
	"time"

	"github.com/vantagebrowser/tabengine/internal/events"
	"github.com/vantagebrowser/tabengine/internal/shared/types"
)

// RecentlyClosed returns the undo stack, most recent first.
func (s *Store) RecentlyClosed() []*types.ClosedTab {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.ClosedTab, 0, len(s.closed))
	for i := len(s.closed) - 1; i >= 0; i-- {
		entry := *s.closed[i]
		entry.Tab = *cloneTab(&s.closed[i].Tab)
		out = append(out, &entry)
	}
	return out
}

// ReopenLast restores the most recently closed tab, optionally scoped
// to a workspace. The tab keeps its original ID so stored snapshots
// still address it, returns to its old strip position, and becomes
// active.
func (s *Store) ReopenLast(workspaceID string) (*types.Tab, error) {
	s.mu.Lock()
	pick := -1
	for i := len(s.closed) - 1; i >= 0; i-- {
		if workspaceID == "" || s.closed[i].Tab.WorkspaceID == workspaceID {
			pick = i
			break
		}
	}
	if pick < 0 {
		s.mu.Unlock()
		return nil, ErrNothingToReopen
	}
	if len(s.tabs) >= s.maxTabs {
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.RecordRejected("reopen", "limit")
		}
		return nil, ErrTabLimit
	}

	entry := s.closed[pick]
	s.closed = append(s.closed[:pick], s.closed[pick+1:]...)

	tab := cloneTab(&entry.Tab)
	tab.Active = false
	if tab.GroupID != "" {
		if _, ok := s.groups[tab.GroupID]; !ok {
			tab.GroupID = ""
		}
	}
	if _, taken := s.tabs[tab.ID]; taken {
		// The slot was reused while closed, should not happen
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	index := entry.Index
	if index < 0 || index > len(s.order) {
		index = len(s.order)
	}
	s.tabs[tab.ID] = tab
	s.order = append(s.order, "")
	copy(s.order[index+1:], s.order[index:])
	s.order[index] = tab.ID

	evts := []events.Event{{
		Kind:        events.KindTabReopened,
		TabID:       tab.ID,
		WorkspaceID: tab.WorkspaceID,
		URL:         tab.CurrentURL(),
	}}
	evts = append(evts, s.activateLocked(tab.ID, time.Now()))
	out := cloneTab(tab)
	s.recordCountsLocked()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.IncTabsCreated()
	}
	s.publish(evts...)
	return out, nil
}

// Adopt inserts a restored tab without minting a new identity, appended
// at the end of the strip and inactive. The caller owns lifecycle
// registration and activation.
func (s *Store) Adopt(tab *types.Tab) error {
	s.mu.Lock()
	if _, taken := s.tabs[tab.ID]; taken {
		s.mu.Unlock()
		return ErrDuplicate
	}
	if len(s.tabs) >= s.maxTabs {
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.RecordRejected("adopt", "limit")
		}
		return ErrTabLimit
	}

	stored := cloneTab(tab)
	stored.Active = false
	if stored.GroupID != "" {
		if _, ok := s.groups[stored.GroupID]; !ok {
			stored.GroupID = ""
		}
	}
	if len(stored.History) == 0 && stored.URL != "" {
		stored.History = []string{stored.URL}
		stored.HistoryIndex = 0
	}

	s.tabs[stored.ID] = stored
	s.order = append(s.order, stored.ID)
	out := events.Event{
		Kind:        events.KindTabReopened,
		TabID:       stored.ID,
		WorkspaceID: stored.WorkspaceID,
		URL:         stored.CurrentURL(),
	}
	s.recordCountsLocked()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.IncTabsCreated()
	}
	s.publish(out)
	return nil
}
