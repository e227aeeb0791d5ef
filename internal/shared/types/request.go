package types

// CreateTabRequest opens a new tab
type CreateTabRequest struct {
	URL         string `json:"url" binding:"required"`
	WorkspaceID string `json:"workspace_id"`
	Pinned      bool   `json:"pinned"`
	GroupID     string `json:"group_id"`
	Background  bool   `json:"background"` // open without activating
}

// NavigateRequest points a tab at a new URL
type NavigateRequest struct {
	URL string `json:"url" binding:"required"`
}

// UpdateTabRequest patches mutable tab fields
type UpdateTabRequest struct {
	Title   *string `json:"title,omitempty"`
	Favicon *string `json:"favicon,omitempty"`
	Pinned  *bool   `json:"pinned,omitempty"`
}

// CreateGroupRequest creates a tab group
type CreateGroupRequest struct {
	Name  string `json:"name" binding:"required"`
	Color string `json:"color"`
}

// AssignGroupRequest moves a tab into a group (empty group clears)
type AssignGroupRequest struct {
	TabID string `json:"tab_id" binding:"required"`
}

// CollapseGroupRequest toggles group collapse
type CollapseGroupRequest struct {
	Collapsed bool `json:"collapsed"`
}

// ReopenRequest restores the most recently closed tab
type ReopenRequest struct {
	WorkspaceID string `json:"workspace_id"`
}

// SignalMessage is an inbound WebSocket frame from the renderer
type SignalMessage struct {
	Type  string `json:"type"` // activity | host_blur | host_focus
	TabID string `json:"tab_id,omitempty"`
}
