package surface

import (
	"context"
	"errors"
)

// Capability reports whether a renderer feature can be used for a tab.
type Capability string

const (
	// CapabilityPresent means the feature is available
	CapabilityPresent Capability = "present"
	// CapabilityAbsent means the renderer reported the feature missing
	CapabilityAbsent Capability = "absent"
	// CapabilityUnknown means the renderer could not be asked
	CapabilityUnknown Capability = "unknown"
)

// PageState is the renderer's view of a tab at the moment of capture.
type PageState struct {
	URL         string            `json:"url"`
	Title       string            `json:"title"`
	ScrollX     float64           `json:"scroll_x"`
	ScrollY     float64           `json:"scroll_y"`
	FormData    map[string]string `json:"form_data,omitempty"`
	Content     []byte            `json:"content,omitempty"`
	WeightBytes int64             `json:"weight_bytes,omitempty"`
}

// Errors returned by surface implementations.
var (
	// ErrUnavailable indicates the renderer cannot be reached
	ErrUnavailable = errors.New("surface unavailable")
	// ErrNoSurface indicates the renderer has no surface for the tab
	ErrNoSurface = errors.New("no surface for tab")
)

// Surface is the engine's handle on the rendering process. Every call
// targets a single tab and must tolerate the renderer being gone.
type Surface interface {
	// Probe reports whether scroll restoration works for the tab
	Probe(ctx context.Context, tabID string) (Capability, error)

	// Describe returns the tab's current page state for capture
	Describe(ctx context.Context, tabID string) (*PageState, error)

	// Suspend parks the tab's renderer work without dropping its view
	Suspend(ctx context.Context, tabID string) error

	// Discard releases the tab's renderer resources entirely
	Discard(ctx context.Context, tabID string) error

	// Resume reloads the tab at the given URL
	Resume(ctx context.Context, tabID, url string) error

	// RestoreScroll requests a scroll position and returns the position
	// the renderer actually reached
	RestoreScroll(ctx context.Context, tabID string, x, y float64) (float64, float64, error)
}
