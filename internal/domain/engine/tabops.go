package engine

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/vantagebrowser/tabengine/internal/domain/lifecycle"
	"github.com/vantagebrowser/tabengine/internal/domain/snapshot"
	"github.com/vantagebrowser/tabengine/internal/domain/tabs"
	"github.com/vantagebrowser/tabengine/internal/domain/workspace"
	"github.com/vantagebrowser/tabengine/internal/shared/types"
	"github.com/vantagebrowser/tabengine/internal/surface"
)

// CreateTab opens a tab and registers it with the tracker and budget.
func (e *Engine) CreateTab(ctx context.Context, req types.CreateTabRequest) (*types.Tab, error) {
	tab, err := e.tabs.Create(req)
	if err != nil {
		return nil, err
	}
	e.tracker.Watch(tab.ID, tab.Active)
	e.budget.Charge(tab.WorkspaceID, tab.ID, workspace.EstimateTab(types.StateActive))
	return tab, nil
}

// CloseTab closes a tab, leaving a resurrection record so the undo
// path survives a crash, and tears down its renderer surface.
func (e *Engine) CloseTab(ctx context.Context, id string) error {
	tab, ok := e.tabs.Get(id)
	if !ok {
		return tabs.ErrNotFound
	}
	if err := e.tabs.Close(id); err != nil {
		return err
	}

	e.tracker.Forget(id)
	e.budget.Discharge(tab.WorkspaceID, id)

	var scrollX, scrollY float64
	if snap, err := e.snapshots.Load(ctx, id); err == nil {
		scrollX, scrollY = snap.ScrollX, snap.ScrollY
	}
	if err := e.snapshots.RecordResurrection(ctx, tab, scrollX, scrollY, types.ReasonClose); err != nil {
		e.log.Warn("Resurrection record failed on close",
			zap.String("tab_id", id), zap.Error(err))
	}

	if err := e.surface.Discard(ctx, id); err != nil &&
		!errors.Is(err, surface.ErrNoSurface) && !errors.Is(err, surface.ErrUnavailable) {
		e.log.Warn("Surface discard failed on close",
			zap.String("tab_id", id), zap.Error(err))
	}
	return nil
}

// CloseGroup closes every unpinned member of a group in one pass and
// tears down each member's tracking, budget, and surface.
func (e *Engine) CloseGroup(ctx context.Context, groupID string) (int, error) {
	var members []*types.Tab
	for _, tab := range e.tabs.List() {
		if tab.GroupID == groupID && !tab.Pinned {
			members = append(members, tab)
		}
	}

	closed, err := e.tabs.CloseGroup(groupID)
	if err != nil {
		return 0, err
	}

	for _, tab := range members {
		e.tracker.Forget(tab.ID)
		e.budget.Discharge(tab.WorkspaceID, tab.ID)

		var scrollX, scrollY float64
		if snap, err := e.snapshots.Load(ctx, tab.ID); err == nil {
			scrollX, scrollY = snap.ScrollX, snap.ScrollY
		}
		if err := e.snapshots.RecordResurrection(ctx, tab, scrollX, scrollY, types.ReasonClose); err != nil {
			e.log.Warn("Resurrection record failed on group close",
				zap.String("tab_id", tab.ID), zap.Error(err))
		}
		if err := e.surface.Discard(ctx, tab.ID); err != nil &&
			!errors.Is(err, surface.ErrNoSurface) && !errors.Is(err, surface.ErrUnavailable) {
			e.log.Warn("Surface discard failed on group close",
				zap.String("tab_id", tab.ID), zap.Error(err))
		}
	}
	return closed, nil
}

// ActivateTab focuses a tab and resumes it if reclaimed.
func (e *Engine) ActivateTab(ctx context.Context, id string) (*types.Tab, error) {
	tab, err := e.tabs.Activate(id)
	if err != nil {
		return nil, err
	}
	if err := e.ResumeTab(ctx, id); err != nil {
		e.log.Warn("Resume failed on activation",
			zap.String("tab_id", id), zap.Error(err))
	}
	return tab, nil
}

// NavigateTab points a tab at a new URL. Navigation counts as input.
func (e *Engine) NavigateTab(ctx context.Context, id, url string) error {
	if err := e.tabs.Navigate(id, url); err != nil {
		return err
	}
	e.touch(id)
	return nil
}

// Back steps a tab's history back and returns the new URL.
func (e *Engine) Back(ctx context.Context, id string) (string, error) {
	url, err := e.tabs.Back(id)
	if err != nil {
		return "", err
	}
	e.touch(id)
	return url, nil
}

// Forward steps a tab's history forward and returns the new URL.
func (e *Engine) Forward(ctx context.Context, id string) (string, error) {
	url, err := e.tabs.Forward(id)
	if err != nil {
		return "", err
	}
	e.touch(id)
	return url, nil
}

// Activity records user input on a tab, waking it if needed.
func (e *Engine) Activity(id string) error {
	if err := e.tabs.Touch(id); err != nil {
		return err
	}
	e.touch(id)
	return nil
}

// touch wakes the tracker entry, recharging the budget when the tab
// leaves a reclaimed state.
func (e *Engine) touch(id string) {
	state, _ := e.tracker.State(id)
	if err := e.tracker.Touch(id); err != nil {
		if errors.Is(err, lifecycle.ErrUnknownTab) {
			e.tracker.Watch(id, true)
		}
		return
	}
	if state == types.StateSuspended || state == types.StateHibernated {
		if tab, ok := e.tabs.Get(id); ok {
			e.budget.Charge(tab.WorkspaceID, id, workspace.EstimateTab(types.StateActive))
		}
	}
}

// ReopenTab restores the most recently closed tab and brings its
// surface back from the kept snapshot.
func (e *Engine) ReopenTab(ctx context.Context, workspaceID string) (*types.Tab, error) {
	tab, err := e.tabs.ReopenLast(workspaceID)
	if err != nil {
		return nil, err
	}
	e.tracker.Watch(tab.ID, true)
	e.budget.Charge(tab.WorkspaceID, tab.ID, workspace.EstimateTab(types.StateActive))
	e.restoreSurface(ctx, tab)
	return tab, nil
}

// RecordCrash counts a renderer crash. The tab's surface is gone, so
// it lands in suspended with whatever snapshot the autosave left.
func (e *Engine) RecordCrash(ctx context.Context, id string) (int, error) {
	tab, ok := e.tabs.Get(id)
	if !ok {
		return 0, tabs.ErrNotFound
	}
	count, err := e.tabs.RecordCrash(id)
	if err != nil {
		return 0, err
	}
	if err := e.tracker.MarkSuspended(id, lifecycle.ReasonCrash); err != nil {
		e.log.Debug("Crashed tab was not live",
			zap.String("tab_id", id), zap.Error(err))
	} else {
		e.budget.Charge(tab.WorkspaceID, id, workspace.EstimateTab(types.StateSuspended))
	}
	return count, nil
}

// RestoreRecord manually restores one resurrection record within the
// freshness window. A record whose tab is already open just refocuses
// that tab.
func (e *Engine) RestoreRecord(ctx context.Context, recordID string) (*types.Tab, error) {
	record, err := e.snapshots.TakeRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}

	if existing, ok := e.tabs.Get(record.TabID); ok {
		return e.ActivateTab(ctx, existing.ID)
	}

	tab := snapshot.TabFromRecord(record)
	if err := e.tabs.Adopt(tab); err != nil {
		if putErr := e.snapshots.PutRecord(ctx, record); putErr != nil {
			e.log.Warn("Could not return record after failed restore",
				zap.String("record_id", recordID), zap.Error(putErr))
		}
		return nil, err
	}

	e.tracker.Watch(tab.ID, false)
	if err := e.tracker.MarkSuspended(tab.ID, lifecycle.ReasonRestore); err != nil {
		e.log.Warn("Restored tab could not enter suspended state",
			zap.String("tab_id", tab.ID), zap.Error(err))
	}
	e.budget.Charge(tab.WorkspaceID, tab.ID, workspace.EstimateTab(types.StateSuspended))

	return e.ActivateTab(ctx, tab.ID)
}

// SaveSnapshot forces a capture for one tab, outside the usual suspend
// and autosave paths.
func (e *Engine) SaveSnapshot(ctx context.Context, id string) (*types.TabSnapshot, error) {
	tab, ok := e.tabs.Get(id)
	if !ok {
		return nil, tabs.ErrNotFound
	}
	snap := e.captureSnapshot(ctx, tab)
	if err := e.snapshots.Save(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}
