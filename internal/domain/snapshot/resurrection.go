package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/vantagebrowser/tabengine/internal/shared/id"
	"github.com/vantagebrowser/tabengine/internal/shared/types"
	"github.com/vantagebrowser/tabengine/internal/storage"
)

// ErrExpired indicates a resurrection record fell outside the freshness
// window.
var ErrExpired = errors.New("resurrection record expired")

// Resurrections returns the stored resurrection list, newest first.
func (s *Store) Resurrections(ctx context.Context) ([]*types.ResurrectionRecord, error) {
	var records []*types.ResurrectionRecord
	err := storage.GetJSON(ctx, s.kv, keyResurrection, &records)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: read resurrection list: %w", err)
	}
	return records, nil
}

// RecordResurrection appends one record for a tab, deduplicating by tab
// and trimming to the cap.
func (s *Store) RecordResurrection(ctx context.Context, tab *types.Tab, scrollX, scrollY float64, reason types.ResurrectionReason) error {
	existing, err := s.Resurrections(ctx)
	if err != nil {
		return err
	}
	merged := mergeRecords(existing, []*types.ResurrectionRecord{s.recordForTab(tab, scrollX, scrollY, reason)}, s.cfg.Cap)
	return s.writeResurrections(ctx, merged)
}

// recordForTab builds a resurrection record from registry state.
func (s *Store) recordForTab(tab *types.Tab, scrollX, scrollY float64, reason types.ResurrectionReason) *types.ResurrectionRecord {
	return &types.ResurrectionRecord{
		ID:          id.NewRecordID().String(),
		TabID:       tab.ID,
		WorkspaceID: tab.WorkspaceID,
		URL:         tab.CurrentURL(),
		Title:       tab.Title,
		Pinned:      tab.Pinned,
		GroupID:     tab.GroupID,
		ScrollX:     scrollX,
		ScrollY:     scrollY,
		SavedAt:     s.now(),
		Reason:      reason,
	}
}

func (s *Store) writeResurrections(ctx context.Context, records []*types.ResurrectionRecord) error {
	if err := storage.SetJSON(ctx, s.kv, keyResurrection, records); err != nil {
		return fmt.Errorf("snapshot: write resurrection list: %w", err)
	}
	return nil
}

// TakeRecord removes one record from the list and returns it. Records
// outside the freshness window stay listed but cannot be taken.
func (s *Store) TakeRecord(ctx context.Context, recordID string) (*types.ResurrectionRecord, error) {
	records, err := s.Resurrections(ctx)
	if err != nil {
		return nil, err
	}
	for i, record := range records {
		if record.ID != recordID {
			continue
		}
		if record.SavedAt.Before(s.now().Add(-s.cfg.Window)) {
			return nil, ErrExpired
		}
		rest := append(records[:i], records[i+1:]...)
		if err := s.writeResurrections(ctx, rest); err != nil {
			return nil, err
		}
		return record, nil
	}
	return nil, storage.ErrNotFound
}

// PutRecord merges a record back into the list, for callers that took
// one and could not finish the restore.
func (s *Store) PutRecord(ctx context.Context, record *types.ResurrectionRecord) error {
	existing, err := s.Resurrections(ctx)
	if err != nil {
		return err
	}
	return s.writeResurrections(ctx, mergeRecords(existing, []*types.ResurrectionRecord{record}, s.cfg.Cap))
}

// mergeRecords combines record sets, keeping the newest record per tab,
// ordered newest first, bounded at cap. Record IDs are ULIDs, so
// lexicographic order is save order.
func mergeRecords(existing, incoming []*types.ResurrectionRecord, limit int) []*types.ResurrectionRecord {
	byTab := make(map[string]*types.ResurrectionRecord, len(existing)+len(incoming))
	for _, record := range existing {
		if prev, ok := byTab[record.TabID]; !ok || record.ID > prev.ID {
			byTab[record.TabID] = record
		}
	}
	for _, record := range incoming {
		if prev, ok := byTab[record.TabID]; !ok || record.ID > prev.ID {
			byTab[record.TabID] = record
		}
	}

	merged := make([]*types.ResurrectionRecord, 0, len(byTab))
	for _, record := range byTab {
		merged = append(merged, record)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ID > merged[j].ID })
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// Recover rebuilds the registry at startup. The persisted registry
// restores the full set from a clean shutdown; resurrection records
// within the freshness window add back tabs a crash lost. Stale records
// are dropped and the consumed list is rewritten with only the stale
// remainder so a second boot cannot double-restore.
func (s *Store) Recover(ctx context.Context) (*types.RecoveryReport, error) {
	cutoff := s.now().Add(-s.cfg.Window)
	report := &types.RecoveryReport{Cutoff: cutoff}

	reg, err := s.LoadRegistry(ctx)
	if err != nil {
		return nil, err
	}

	records, err := s.Resurrections(ctx)
	if err != nil {
		return nil, err
	}

	var tabs []*types.Tab
	seen := make(map[string]bool)
	activeID := ""
	if reg != nil {
		s.registry.RestoreGroups(reg.Groups)
		for _, tab := range reg.Tabs {
			tabs = append(tabs, tab)
			seen[tab.ID] = true
		}
		activeID = reg.ActiveTabID
	}

	var stale []*types.ResurrectionRecord
	for _, record := range records {
		if record.SavedAt.Before(cutoff) {
			stale = append(stale, record)
			report.Expired++
			continue
		}
		if seen[record.TabID] {
			continue
		}
		if record.TabID == "" || record.URL == "" {
			report.Failed++
			continue
		}
		tabs = append(tabs, TabFromRecord(record))
		seen[record.TabID] = true
		if s.metrics != nil {
			s.metrics.Resurrections.Inc()
		}
	}

	if len(tabs) == 0 {
		s.log.Info("nothing to recover", zap.Int("expired", report.Expired))
		return report, s.writeResurrections(ctx, stale)
	}

	s.registry.Replace(tabs, activeID)
	report.Restored = len(tabs)

	if err := s.writeResurrections(ctx, stale); err != nil {
		return report, err
	}

	now := s.now()
	s.mu.Lock()
	s.lastRecovered = &now
	s.mu.Unlock()

	s.log.Info("registry recovered",
		zap.Int("restored", report.Restored),
		zap.Int("expired", report.Expired),
		zap.Int("failed", report.Failed))
	return report, nil
}

// TabFromRecord rebuilds a minimal tab from a resurrection record.
func TabFromRecord(record *types.ResurrectionRecord) *types.Tab {
	return &types.Tab{
		ID:           record.TabID,
		WorkspaceID:  record.WorkspaceID,
		URL:          record.URL,
		Title:        record.Title,
		Pinned:       record.Pinned,
		GroupID:      record.GroupID,
		CreatedAt:    record.SavedAt,
		LastActiveAt: record.SavedAt,
		History:      []string{record.URL},
		HistoryIndex: 0,
	}
}
