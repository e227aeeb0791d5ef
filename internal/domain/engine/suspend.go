package engine

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/vantagebrowser/tabengine/internal/domain/lifecycle"
	"github.com/vantagebrowser/tabengine/internal/domain/tabs"
	"github.com/vantagebrowser/tabengine/internal/domain/workspace"
	"github.com/vantagebrowser/tabengine/internal/shared/types"
	"github.com/vantagebrowser/tabengine/internal/surface"
)

// SuspendTab runs the reclamation pipeline for one tab: capture a
// snapshot, park the renderer surface, flip the lifecycle state, and
// leave a resurrection record. Snapshot and surface failures degrade
// rather than abort; the suspend still reclaims memory.
func (e *Engine) SuspendTab(ctx context.Context, id, reason string) error {
	tab, ok := e.tabs.Get(id)
	if !ok {
		return tabs.ErrNotFound
	}
	if state, watched := e.tracker.State(id); watched && !state.Live() {
		return lifecycle.ErrBadTransition
	}

	snap := e.captureSnapshot(ctx, tab)
	if err := e.snapshots.Save(ctx, snap); err != nil {
		e.log.Error("Snapshot save failed before suspend",
			zap.String("tab_id", id), zap.Error(err))
	}

	if err := e.surface.Suspend(ctx, id); err != nil && !errors.Is(err, surface.ErrNoSurface) {
		e.log.Warn("Surface suspend failed",
			zap.String("tab_id", id), zap.Error(err))
	}

	if err := e.tracker.MarkSuspended(id, reason); err != nil {
		return err
	}

	if err := e.snapshots.RecordResurrection(ctx, tab, snap.ScrollX, snap.ScrollY, types.ReasonSuspend); err != nil {
		e.log.Warn("Resurrection record failed",
			zap.String("tab_id", id), zap.Error(err))
	}
	e.budget.Charge(tab.WorkspaceID, id, workspace.EstimateTab(types.StateSuspended))

	e.log.Info("Tab suspended",
		zap.String("tab_id", id),
		zap.String("reason", reason))
	return nil
}

// HibernateTab discards a suspended tab's surface entirely; only the
// snapshot remains.
func (e *Engine) HibernateTab(ctx context.Context, id string) error {
	tab, ok := e.tabs.Get(id)
	if !ok {
		return tabs.ErrNotFound
	}

	if err := e.surface.Discard(ctx, id); err != nil &&
		!errors.Is(err, surface.ErrNoSurface) && !errors.Is(err, surface.ErrUnavailable) {
		e.log.Warn("Surface discard failed",
			zap.String("tab_id", id), zap.Error(err))
	}

	if err := e.tracker.Hibernate(id); err != nil {
		return err
	}
	e.budget.Charge(tab.WorkspaceID, id, workspace.EstimateTab(types.StateHibernated))

	e.log.Info("Tab hibernated", zap.String("tab_id", id))
	return nil
}

// timerSuspend adapts SuspendTab to the tracker's callback shape.
func (e *Engine) timerSuspend(id, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.OpTimeout)
	defer cancel()

	if err := e.SuspendTab(ctx, id, reason); err != nil {
		e.log.Warn("Scheduled suspend failed",
			zap.String("tab_id", id),
			zap.String("reason", reason),
			zap.Error(err))
	}
}

// suspendExempt is consulted before timer suspends only; host blur
// overrides both exemptions.
func (e *Engine) suspendExempt(id string) bool {
	tab, ok := e.tabs.Get(id)
	if !ok {
		return false
	}
	if tab.Pinned {
		return true
	}
	return tab.Active && e.tracker.HostFocused()
}

// captureSnapshot asks the renderer for the tab's page state and folds
// it into a snapshot. An unreachable surface yields a registry-only
// snapshot, which still restores URL and title.
func (e *Engine) captureSnapshot(ctx context.Context, tab *types.Tab) *types.TabSnapshot {
	snap := &types.TabSnapshot{
		TabID:   tab.ID,
		URL:     tab.CurrentURL(),
		Title:   tab.Title,
		Favicon: tab.Favicon,
	}

	state, err := e.surface.Describe(ctx, tab.ID)
	if err != nil {
		e.log.Debug("Surface describe unavailable, capturing registry state only",
			zap.String("tab_id", tab.ID), zap.Error(err))
		return snap
	}

	if state.URL != "" {
		snap.URL = state.URL
	}
	if state.Title != "" {
		snap.Title = state.Title
	}
	snap.ScrollX = state.ScrollX
	snap.ScrollY = state.ScrollY
	snap.FormData = state.FormData
	if state.WeightBytes > 0 {
		e.budget.Charge(tab.WorkspaceID, tab.ID, state.WeightBytes)
	}

	if len(state.Content) > 0 {
		content, err := e.extractor.Extract(state.Content, snap.URL)
		if err != nil {
			e.log.Warn("Content extraction failed",
				zap.String("tab_id", tab.ID), zap.Error(err))
			return snap
		}
		if snap.Title == "" && content.Title != "" {
			snap.Title = content.Title
		}
		if snap.Favicon == "" && content.Favicon != "" {
			snap.Favicon = content.Favicon
		}
		snap.PartialText = []byte(content.Text)
		snap.ContentType = content.ContentType
	}
	return snap
}
