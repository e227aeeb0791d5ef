package engine

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/vantagebrowser/tabengine/internal/domain/lifecycle"
	"github.com/vantagebrowser/tabengine/internal/domain/tabs"
	"github.com/vantagebrowser/tabengine/internal/domain/workspace"
	"github.com/vantagebrowser/tabengine/internal/shared/types"
	"github.com/vantagebrowser/tabengine/internal/storage"
	"github.com/vantagebrowser/tabengine/internal/surface"
)

// scrollRetryDelays space the scroll restore attempts so they land at
// 100ms, 500ms, and 1500ms after the initial set.
var scrollRetryDelays = []time.Duration{
	100 * time.Millisecond,
	400 * time.Millisecond,
	1000 * time.Millisecond,
}

// ResumeTab wakes a tab. Coming out of suspended or hibernated the
// renderer surface is restored from the snapshot, scroll position
// included.
func (e *Engine) ResumeTab(ctx context.Context, id string) error {
	tab, ok := e.tabs.Get(id)
	if !ok {
		return tabs.ErrNotFound
	}

	from, err := e.tracker.Resume(id)
	if errors.Is(err, lifecycle.ErrUnknownTab) {
		// The registry knows the tab but the tracker lost it,
		// re-register and treat it as a cold resume.
		e.tracker.Watch(id, tab.Active)
		from = types.StateHibernated
	} else if err != nil {
		return err
	}

	e.budget.Charge(tab.WorkspaceID, id, workspace.EstimateTab(types.StateActive))

	if from == types.StateSuspended || from == types.StateHibernated {
		e.restoreSurface(ctx, tab)
	}
	return nil
}

// restoreSurface brings a tab's renderer back from its snapshot and
// replays the scroll position. Crash-looping tabs stay dark until the
// user navigates; an unresponsive surface degrades the restore to
// registry state instead of failing it.
func (e *Engine) restoreSurface(ctx context.Context, tab *types.Tab) {
	if tab.CrashCount >= e.cfg.MaxCrashes {
		e.log.Warn("Tab crash looping, renderer restore withheld until navigation",
			zap.String("tab_id", tab.ID),
			zap.Int("crashes", tab.CrashCount))
		return
	}

	snap, err := e.snapshots.Load(ctx, tab.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		e.log.Warn("Snapshot load failed on resume",
			zap.String("tab_id", tab.ID), zap.Error(err))
	}
	url := tab.CurrentURL()
	if snap != nil && snap.URL != "" {
		url = snap.URL
	}

	capability, probeErr := e.surface.Probe(ctx, tab.ID)
	if probeErr != nil && !errors.Is(probeErr, surface.ErrNoSurface) {
		e.log.Warn("Surface unresponsive, restore degraded to registry state",
			zap.String("tab_id", tab.ID), zap.Error(probeErr))
		return
	}

	if err := e.surface.Resume(ctx, tab.ID, url); err != nil {
		e.log.Warn("Surface resume failed",
			zap.String("tab_id", tab.ID), zap.Error(err))
		return
	}

	if snap == nil || (snap.ScrollX == 0 && snap.ScrollY == 0) {
		return
	}
	if probeErr != nil {
		// Fresh surface; ask again now that it exists.
		capability, _ = e.surface.Probe(ctx, tab.ID)
	}
	e.restoreScroll(ctx, tab.ID, capability, snap.ScrollX, snap.ScrollY)
}

// restoreScroll replays a scroll position. With the capability present
// it retries until the surface reports a position within epsilon; when
// the surface cannot confirm, one best-effort set is all it gets.
func (e *Engine) restoreScroll(ctx context.Context, tabID string, capability surface.Capability, x, y float64) {
	if capability != surface.CapabilityPresent {
		if _, _, err := e.surface.RestoreScroll(ctx, tabID, x, y); err != nil {
			e.log.Debug("Best-effort scroll set failed",
				zap.String("tab_id", tabID), zap.Error(err))
		}
		e.recordScroll("best_effort")
		return
	}

	attempt := func() (bool, error) {
		ax, ay, err := e.surface.RestoreScroll(ctx, tabID, x, y)
		if err != nil {
			return false, err
		}
		return math.Abs(ax-x) <= e.cfg.ScrollEpsilon && math.Abs(ay-y) <= e.cfg.ScrollEpsilon, nil
	}

	matched, err := attempt()
	if err != nil {
		e.recordScroll("failed")
		return
	}
	if matched {
		e.recordScroll("matched")
		return
	}

	for _, delay := range scrollRetryDelays {
		select {
		case <-ctx.Done():
			e.recordScroll("abandoned")
			return
		case <-time.After(delay):
		}
		matched, err = attempt()
		if err != nil {
			e.recordScroll("failed")
			return
		}
		if matched {
			e.recordScroll("matched")
			return
		}
	}

	e.log.Debug("Scroll restore never settled",
		zap.String("tab_id", tabID),
		zap.Float64("x", x), zap.Float64("y", y))
	e.recordScroll("gave_up")
}

func (e *Engine) recordScroll(outcome string) {
	if e.metrics != nil {
		e.metrics.RecordScrollRestore(outcome)
	}
}
