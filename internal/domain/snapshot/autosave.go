package snapshot

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vantagebrowser/tabengine/internal/shared/id"
	"github.com/vantagebrowser/tabengine/internal/shared/types"
	"github.com/vantagebrowser/tabengine/internal/storage"
)

// AutosavePass snapshots every open tab's light state, refreshes the
// resurrection list, and persists the registry. Heavy fields captured
// earlier (scroll, form data, partial text) are carried forward so a
// suspended tab's full snapshot survives the pass.
func (s *Store) AutosavePass(ctx context.Context) error {
	tabs := s.registry.List()

	var failed int
	incoming := make([]*types.ResurrectionRecord, 0, len(tabs))
	for _, tab := range tabs {
		snap := &types.TabSnapshot{
			TabID:      tab.ID,
			Revision:   id.NewRevisionID().String(),
			URL:        tab.CurrentURL(),
			Title:      tab.Title,
			Favicon:    tab.Favicon,
			CapturedAt: s.now(),
		}
		if prev, err := s.load(ctx, tab.ID); err == nil {
			snap.ScrollX = prev.ScrollX
			snap.ScrollY = prev.ScrollY
			snap.FormData = prev.FormData
			snap.PartialText = prev.PartialText
			snap.Compressed = prev.Compressed
			snap.ContentType = prev.ContentType
		} else if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("autosave carry-forward failed",
				zap.String("tab_id", tab.ID), zap.Error(err))
		}

		if err := s.write(ctx, snap); err != nil {
			failed++
			s.log.Warn("autosave snapshot failed",
				zap.String("tab_id", tab.ID), zap.Error(err))
			continue
		}
		incoming = append(incoming, s.recordForTab(tab, snap.ScrollX, snap.ScrollY, types.ReasonAutosave))
	}

	existing, err := s.Resurrections(ctx)
	if err != nil {
		return err
	}
	if err := s.writeResurrections(ctx, mergeRecords(existing, incoming, s.cfg.Cap)); err != nil {
		return err
	}
	if err := s.SaveRegistry(ctx); err != nil {
		return err
	}

	now := s.now()
	s.mu.Lock()
	s.lastSaved = &now
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.AutosaveRuns.Inc()
	}
	if failed > 0 {
		s.log.Warn("autosave completed with failures",
			zap.Int("tabs", len(tabs)), zap.Int("failed", failed))
	}
	return nil
}

// SaveRegistry persists the full tab registry.
func (s *Store) SaveRegistry(ctx context.Context) error {
	reg := &types.RegistrySnapshot{
		Tabs:    s.registry.List(),
		Groups:  s.registry.ListGroups(),
		SavedAt: s.now(),
	}
	if active, ok := s.registry.Active(); ok {
		reg.ActiveTabID = active.ID
	}
	if err := storage.SetJSON(ctx, s.kv, keyRegistry, reg); err != nil {
		return fmt.Errorf("snapshot: write registry: %w", err)
	}
	return nil
}

// LoadRegistry reads the persisted registry. A missing registry returns
// nil without error.
func (s *Store) LoadRegistry(ctx context.Context) (*types.RegistrySnapshot, error) {
	var reg types.RegistrySnapshot
	err := storage.GetJSON(ctx, s.kv, keyRegistry, &reg)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: read registry: %w", err)
	}
	return &reg, nil
}
