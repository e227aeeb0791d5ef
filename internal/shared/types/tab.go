package types

import "time"

// LifecycleState represents tab lifecycle states
type LifecycleState string

const (
	StateActive     LifecycleState = "active"
	StateIdle       LifecycleState = "idle"
	StateSuspended  LifecycleState = "suspended"
	StateHibernated LifecycleState = "hibernated"
)

// Valid reports whether s is a known lifecycle state.
func (s LifecycleState) Valid() bool {
	switch s {
	case StateActive, StateIdle, StateSuspended, StateHibernated:
		return true
	}
	return false
}

// Live reports whether the tab still holds renderer resources.
func (s LifecycleState) Live() bool {
	return s == StateActive || s == StateIdle
}

// Tab represents an open tab in the registry
type Tab struct {
	ID           string    `json:"id"`
	WorkspaceID  string    `json:"workspace_id"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	Favicon      string    `json:"favicon,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	Active       bool      `json:"active"`
	Pinned       bool      `json:"pinned"`
	GroupID      string    `json:"group_id,omitempty"`
	CrashCount   int       `json:"crash_count"`

	// Per-tab navigation history (HistoryIndex points into History)
	History      []string `json:"history"`
	HistoryIndex int      `json:"history_index"`
}

// CurrentURL returns the history entry the tab is positioned at.
// Falls back to URL for tabs restored without history.
func (t *Tab) CurrentURL() string {
	if t.HistoryIndex >= 0 && t.HistoryIndex < len(t.History) {
		return t.History[t.HistoryIndex]
	}
	return t.URL
}

// TabGroup represents a named group of tabs
type TabGroup struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	Collapsed bool      `json:"collapsed"`
	CreatedAt time.Time `json:"created_at"`
}

// ClosedTab is an undo-stack entry for a recently closed tab
type ClosedTab struct {
	Tab      Tab       `json:"tab"`
	Index    int       `json:"index"` // registry position at close time
	ClosedAt time.Time `json:"closed_at"`
}

// TabStats contains tab registry statistics
type TabStats struct {
	TotalTabs      int     `json:"total_tabs"`
	PinnedTabs     int     `json:"pinned_tabs"`
	Groups         int     `json:"groups"`
	RecentlyClosed int     `json:"recently_closed"`
	ActiveTabID    *string `json:"active_tab_id,omitempty"`
}
