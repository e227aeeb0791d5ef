package types

import "time"

// TabSnapshot captures the restorable state of a tab at a point in time
type TabSnapshot struct {
	TabID       string            `json:"tab_id"`
	Revision    string            `json:"revision"` // ULID, orders captures
	URL         string            `json:"url"`
	Title       string            `json:"title"`
	Favicon     string            `json:"favicon,omitempty"`
	ScrollX     float64           `json:"scroll_x"`
	ScrollY     float64           `json:"scroll_y"`
	FormData    map[string]string `json:"form_data,omitempty"`
	PartialText []byte            `json:"partial_text,omitempty"` // gzip when Compressed
	Compressed  bool              `json:"compressed"`
	ContentType string            `json:"content_type,omitempty"`
	CapturedAt  time.Time         `json:"captured_at"`
}

// ResurrectionReason tags why a resurrection record was written
type ResurrectionReason string

const (
	ReasonAutosave ResurrectionReason = "autosave"
	ReasonSuspend  ResurrectionReason = "suspend"
	ReasonClose    ResurrectionReason = "close"
)

// ResurrectionRecord is a crash-recovery entry. Records are kept
// most-recent-first, deduplicated by tab, and bounded.
type ResurrectionRecord struct {
	ID          string             `json:"id"` // ULID, k-sortable by save time
	TabID       string             `json:"tab_id"`
	WorkspaceID string             `json:"workspace_id"`
	URL         string             `json:"url"`
	Title       string             `json:"title"`
	Pinned      bool               `json:"pinned"`
	GroupID     string             `json:"group_id,omitempty"`
	ScrollX     float64            `json:"scroll_x"`
	ScrollY     float64            `json:"scroll_y"`
	SavedAt     time.Time          `json:"saved_at"`
	Reason      ResurrectionReason `json:"reason"`
}

// RegistrySnapshot persists the full tab registry across clean restarts
type RegistrySnapshot struct {
	Tabs        []*Tab      `json:"tabs"`
	Groups      []*TabGroup `json:"groups,omitempty"`
	ActiveTabID string      `json:"active_tab_id,omitempty"`
	SavedAt     time.Time   `json:"saved_at"`
}

// RecoveryReport summarizes a startup resurrection pass
type RecoveryReport struct {
	Restored int       `json:"restored"`
	Expired  int       `json:"expired"`
	Failed   int       `json:"failed"`
	Cutoff   time.Time `json:"cutoff"`
}
