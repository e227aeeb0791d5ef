package snapshot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vantagebrowser/tabengine/internal/shared/types"
)

// GC removes snapshots of closed tabs past their TTL and trims the
// resurrection list to its window and cap. Snapshots of tabs that were
// pinned when last recorded are spared, and open tabs are never
// touched. Returns how many snapshots were deleted.
func (s *Store) GC(ctx context.Context) (int, error) {
	open := make(map[string]bool)
	for _, tab := range s.registry.List() {
		open[tab.ID] = true
	}

	records, err := s.Resurrections(ctx)
	if err != nil {
		return 0, err
	}
	pinned := make(map[string]bool)
	for _, record := range records {
		if record.Pinned {
			pinned[record.TabID] = true
		}
	}

	keys, err := s.kv.List(ctx, keySnapshotPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("snapshot: gc list: %w", err)
	}

	cutoff := s.now().Add(-s.cfg.TTL)
	deleted := 0
	for _, key := range keys {
		tabID := tabIDFromKey(key)
		if open[tabID] || pinned[tabID] {
			continue
		}
		snap, err := s.load(ctx, tabID)
		if err != nil {
			s.log.Warn("gc read failed", zap.String("key", key), zap.Error(err))
			continue
		}
		if snap.CapturedAt.After(cutoff) {
			continue
		}
		if err := s.kv.Delete(ctx, key); err != nil {
			s.log.Warn("gc delete failed", zap.String("key", key), zap.Error(err))
			continue
		}
		deleted++
	}
	if s.metrics != nil && deleted > 0 {
		s.metrics.SnapshotsDeleted.Add(float64(deleted))
	}

	trimmed := trimRecords(records, s.now().Add(-s.cfg.Window), s.cfg.Cap)
	if len(trimmed) != len(records) {
		if err := s.writeResurrections(ctx, trimmed); err != nil {
			return deleted, err
		}
	}

	if deleted > 0 || len(trimmed) != len(records) {
		s.log.Info("snapshot gc",
			zap.Int("deleted", deleted),
			zap.Int("records_trimmed", len(records)-len(trimmed)))
	}
	return deleted, nil
}

// trimRecords drops records older than the cutoff and beyond the cap.
func trimRecords(records []*types.ResurrectionRecord, cutoff time.Time, limit int) []*types.ResurrectionRecord {
	kept := make([]*types.ResurrectionRecord, 0, len(records))
	for _, record := range records {
		if record.SavedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, record)
	}
	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}
