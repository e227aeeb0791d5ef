package tabs

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vantagebrowser/tabengine/internal/events"
	"github.com/vantagebrowser/tabengine/internal/shared/types"
)

// CreateGroup creates a tab group.
func (s *Store) CreateGroup(name, color string) *types.TabGroup {
	group := &types.TabGroup{
		ID:        uuid.New().String(),
		Name:      name,
		Color:     color,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.groups[group.ID] = group
	out := *group
	s.mu.Unlock()

	return &out
}

// AssignToGroup moves a tab into a group. An empty groupID clears the
// assignment.
func (s *Store) AssignToGroup(tabID, groupID string) error {
	s.mu.Lock()
	tab, ok := s.tabs[tabID]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if groupID != "" {
		if _, ok := s.groups[groupID]; !ok {
			s.mu.Unlock()
			return ErrGroupNotFound
		}
	}
	tab.GroupID = groupID
	wsID := tab.WorkspaceID
	s.mu.Unlock()

	s.publish(events.Event{
		Kind:        events.KindTabUpdated,
		TabID:       tabID,
		WorkspaceID: wsID,
	})
	return nil
}

// CollapseGroup folds or unfolds a group in the strip.
func (s *Store) CollapseGroup(groupID string, collapsed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.groups[groupID]
	if !ok {
		return ErrGroupNotFound
	}
	group.Collapsed = collapsed
	return nil
}

// CloseGroup closes every unpinned member of a group in one pass, then
// re-elects an active tab once. The group itself is removed when no
// member remains.
func (s *Store) CloseGroup(groupID string) (int, error) {
	s.mu.Lock()
	if _, ok := s.groups[groupID]; !ok {
		s.mu.Unlock()
		return 0, ErrGroupNotFound
	}

	var members []string
	for _, id := range s.order {
		if tab := s.tabs[id]; tab.GroupID == groupID && !tab.Pinned {
			members = append(members, id)
		}
	}

	var evts []events.Event
	activeIndex := -1
	for _, id := range members {
		tab := s.tabs[id]
		index := s.indexLocked(id)
		if s.activeID == id {
			activeIndex = index
			s.activeID = ""
		}
		s.removeLocked(id)
		s.pushClosedLocked(tab, index)
		evts = append(evts, events.Event{
			Kind:        events.KindTabClosed,
			TabID:       id,
			WorkspaceID: tab.WorkspaceID,
			URL:         tab.CurrentURL(),
		})
	}

	if activeIndex >= 0 {
		if successor := s.predecessorLocked(activeIndex); successor != "" {
			evts = append(evts, s.activateLocked(successor, time.Now()))
		}
	}

	remaining := 0
	for _, tab := range s.tabs {
		if tab.GroupID == groupID {
			remaining++
		}
	}
	if remaining == 0 {
		delete(s.groups, groupID)
	}
	s.recordCountsLocked()
	s.mu.Unlock()

	if s.metrics != nil {
		for range members {
			s.metrics.IncTabsClosed()
		}
	}
	s.publish(evts...)
	return len(members), nil
}

// RestoreGroups loads persisted groups, keeping any that already exist.
func (s *Store) RestoreGroups(groups []*types.TabGroup) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, group := range groups {
		clone := *group
		s.groups[clone.ID] = &clone
	}
}

// ListGroups returns all groups ordered by creation time.
func (s *Store) ListGroups() []*types.TabGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.TabGroup, 0, len(s.groups))
	for _, group := range s.groups {
		clone := *group
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
