package tabs

import (
	"time"

	"github.com/vantagebrowser/tabengine/internal/events"
)

// Navigate points a tab at a new URL. Forward history past the current
// position is discarded, the way a real location bar works.
func (s *Store) Navigate(id, url string) error {
	s.mu.Lock()
	tab, ok := s.tabs[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}

	tab.History = append(tab.History[:tab.HistoryIndex+1], url)
	tab.HistoryIndex = len(tab.History) - 1
	tab.URL = url
	tab.Title = ""
	tab.Favicon = ""
	tab.CrashCount = 0 // a fresh load gets a fresh crash budget
	tab.LastActiveAt = time.Now()
	wsID := tab.WorkspaceID
	s.mu.Unlock()

	s.publish(events.Event{
		Kind:        events.KindTabNavigated,
		TabID:       id,
		WorkspaceID: wsID,
		URL:         url,
	})
	return nil
}

// Back steps one entry back in the tab's history and returns the URL.
func (s *Store) Back(id string) (string, error) {
	return s.step(id, -1)
}

// Forward steps one entry forward in the tab's history and returns the
// URL.
func (s *Store) Forward(id string) (string, error) {
	return s.step(id, +1)
}

func (s *Store) step(id string, delta int) (string, error) {
	s.mu.Lock()
	tab, ok := s.tabs[id]
	if !ok {
		s.mu.Unlock()
		return "", ErrNotFound
	}

	next := tab.HistoryIndex + delta
	if next < 0 || next >= len(tab.History) {
		s.mu.Unlock()
		return "", ErrNoHistory
	}

	tab.HistoryIndex = next
	tab.URL = tab.History[next]
	tab.Title = ""
	tab.Favicon = ""
	tab.LastActiveAt = time.Now()
	url := tab.URL
	wsID := tab.WorkspaceID
	s.mu.Unlock()

	s.publish(events.Event{
		Kind:        events.KindTabNavigated,
		TabID:       id,
		WorkspaceID: wsID,
		URL:         url,
	})
	return url, nil
}
