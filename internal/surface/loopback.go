package surface

import (
	"context"
	"sync"
)

// Compile-time interface checks
var (
	_ Surface = (*Client)(nil)
	_ Surface = (*Loopback)(nil)
)

// Loopback is an in-process surface used when no renderer is attached.
// Tabs behave as blank pages that accept every lifecycle call, which
// keeps the engine fully operational headless. Tests use it as a
// scriptable renderer.
type Loopback struct {
	mu    sync.RWMutex
	pages map[string]*loopPage
}

type loopPage struct {
	state     PageState
	suspended bool
	discarded bool
	noScroll  bool
	slipX     float64
	slipY     float64
	slipLeft  int
}

// NewLoopback creates an empty loopback surface.
func NewLoopback() *Loopback {
	return &Loopback{pages: make(map[string]*loopPage)}
}

// Open registers a surface for a tab.
func (l *Loopback) Open(tabID, url string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pages[tabID] = &loopPage{state: PageState{URL: url}}
}

// SetState replaces a tab's page state.
func (l *Loopback) SetState(tabID string, state PageState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if page, ok := l.pages[tabID]; ok {
		page.state = state
	} else {
		l.pages[tabID] = &loopPage{state: state}
	}
}

// SetSlip makes the next attempts scroll restorations land short by
// (dx, dy), emulating late layout shift.
func (l *Loopback) SetSlip(tabID string, dx, dy float64, attempts int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if page, ok := l.pages[tabID]; ok {
		page.slipX, page.slipY, page.slipLeft = dx, dy, attempts
	}
}

// DenyScroll makes Probe report scroll restoration as absent.
func (l *Loopback) DenyScroll(tabID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if page, ok := l.pages[tabID]; ok {
		page.noScroll = true
	}
}

// Suspended reports whether the tab's page is parked.
func (l *Loopback) Suspended(tabID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	page, ok := l.pages[tabID]
	return ok && page.suspended
}

// Discarded reports whether the tab's page was released.
func (l *Loopback) Discarded(tabID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	page, ok := l.pages[tabID]
	return ok && page.discarded
}

// Probe implements Surface.
func (l *Loopback) Probe(_ context.Context, tabID string) (Capability, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	page, ok := l.pages[tabID]
	if !ok {
		return CapabilityUnknown, ErrNoSurface
	}
	if page.noScroll {
		return CapabilityAbsent, nil
	}
	return CapabilityPresent, nil
}

// Describe implements Surface.
func (l *Loopback) Describe(_ context.Context, tabID string) (*PageState, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	page, ok := l.pages[tabID]
	if !ok || page.discarded {
		return nil, ErrNoSurface
	}
	state := page.state
	return &state, nil
}

// Suspend implements Surface.
func (l *Loopback) Suspend(_ context.Context, tabID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	page, ok := l.pages[tabID]
	if !ok {
		return ErrNoSurface
	}
	page.suspended = true
	return nil
}

// Discard implements Surface.
func (l *Loopback) Discard(_ context.Context, tabID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	page, ok := l.pages[tabID]
	if !ok {
		return ErrNoSurface
	}
	page.discarded = true
	page.state.Content = nil
	return nil
}

// Resume implements Surface.
func (l *Loopback) Resume(_ context.Context, tabID, url string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	page, ok := l.pages[tabID]
	if !ok {
		page = &loopPage{}
		l.pages[tabID] = page
	}
	page.suspended = false
	page.discarded = false
	page.state.URL = url
	page.state.ScrollX = 0
	page.state.ScrollY = 0
	return nil
}

// RestoreScroll implements Surface.
func (l *Loopback) RestoreScroll(_ context.Context, tabID string, x, y float64) (float64, float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	page, ok := l.pages[tabID]
	if !ok || page.discarded {
		return 0, 0, ErrNoSurface
	}
	if page.slipLeft > 0 {
		page.slipLeft--
		page.state.ScrollX = x - page.slipX
		page.state.ScrollY = y - page.slipY
	} else {
		page.state.ScrollX = x
		page.state.ScrollY = y
	}
	return page.state.ScrollX, page.state.ScrollY, nil
}
