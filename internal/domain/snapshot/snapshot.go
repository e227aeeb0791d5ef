package snapshot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vantagebrowser/tabengine/internal/infrastructure/logging"
	"github.com/vantagebrowser/tabengine/internal/infrastructure/monitoring"
	"github.com/vantagebrowser/tabengine/internal/shared/id"
	"github.com/vantagebrowser/tabengine/internal/shared/types"
	"github.com/vantagebrowser/tabengine/internal/storage"
)

// Storage keys. Per-tab snapshots live under one prefix so a single
// pattern lists them all.
const (
	keySnapshotPrefix = "tabs:snapshot:"
	keyResurrection   = "tabs:resurrection"
	keyRegistry       = "tabs:registry"
)

// compressFloor is the partial text size above which gzip kicks in.
const compressFloor = 512

// TabRegistry is the slice of the tab store the snapshot layer needs.
type TabRegistry interface {
	List() []*types.Tab
	ListGroups() []*types.TabGroup
	Active() (*types.Tab, bool)
	Replace(tabs []*types.Tab, activeID string)
	RestoreGroups(groups []*types.TabGroup)
}

// Config tunes persistence behavior.
type Config struct {
	// Window bounds how old a resurrection record may be and still be
	// restored at startup
	Window time.Duration
	// Cap bounds the resurrection list
	Cap int
	// TTL bounds how long snapshots of closed tabs are kept
	TTL time.Duration
	// MaxTextSize clamps partial text before compression
	MaxTextSize int64
}

// Store persists tab snapshots, the resurrection list, and the registry
// itself.
type Store struct {
	kv       storage.KV
	registry TabRegistry
	cfg      Config
	log      *logging.Logger
	metrics  *monitoring.Metrics
	now      func() time.Time

	mu            sync.RWMutex
	lastSaved     *time.Time // Protected by mu
	lastRecovered *time.Time // Protected by mu
}

// New creates a snapshot store over the given KV backend.
func New(kv storage.KV, registry TabRegistry, cfg Config, log *logging.Logger) *Store {
	return &Store{
		kv:       kv,
		registry: registry,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// WithMetrics adds metrics tracking to the store
func (s *Store) WithMetrics(metrics *monitoring.Metrics) *Store {
	s.metrics = metrics
	return s
}

// Save validates, clamps, compresses, and writes a snapshot. A missing
// revision or capture time is filled in.
func (s *Store) Save(ctx context.Context, snap *types.TabSnapshot) error {
	if snap.TabID == "" {
		return fmt.Errorf("snapshot: missing tab id")
	}
	if snap.URL == "" {
		return fmt.Errorf("snapshot: missing url for tab %s", snap.TabID)
	}
	if snap.Revision == "" {
		snap.Revision = id.NewRevisionID().String()
	}
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = s.now()
	}

	if !snap.Compressed && snap.PartialText != nil {
		if s.cfg.MaxTextSize > 0 && int64(len(snap.PartialText)) > s.cfg.MaxTextSize {
			snap.PartialText = snap.PartialText[:s.cfg.MaxTextSize]
		}
		if len(snap.PartialText) >= compressFloor {
			packed, err := compress(snap.PartialText)
			if err != nil {
				return fmt.Errorf("snapshot: compress for tab %s: %w", snap.TabID, err)
			}
			snap.PartialText = packed
			snap.Compressed = true
		}
	}

	if err := s.write(ctx, snap); err != nil {
		return err
	}

	now := s.now()
	s.mu.Lock()
	s.lastSaved = &now
	s.mu.Unlock()
	return nil
}

// write stores a snapshot as-is.
func (s *Store) write(ctx context.Context, snap *types.TabSnapshot) error {
	if err := storage.SetJSON(ctx, s.kv, keySnapshotPrefix+snap.TabID, snap); err != nil {
		return fmt.Errorf("snapshot: write for tab %s: %w", snap.TabID, err)
	}
	if s.metrics != nil {
		s.metrics.SnapshotsSaved.Inc()
	}
	return nil
}

// Load returns a tab's snapshot with partial text decompressed.
// storage.ErrNotFound passes through when none exists.
func (s *Store) Load(ctx context.Context, tabID string) (*types.TabSnapshot, error) {
	snap, err := s.load(ctx, tabID)
	if err != nil {
		return nil, err
	}
	if snap.Compressed {
		text, err := decompress(snap.PartialText)
		if err != nil {
			return nil, fmt.Errorf("snapshot: decompress for tab %s: %w", tabID, err)
		}
		snap.PartialText = text
		snap.Compressed = false
	}
	if s.metrics != nil {
		s.metrics.SnapshotsLoaded.Inc()
	}
	return snap, nil
}

// load reads a snapshot without touching the compressed payload.
func (s *Store) load(ctx context.Context, tabID string) (*types.TabSnapshot, error) {
	var snap types.TabSnapshot
	if err := storage.GetJSON(ctx, s.kv, keySnapshotPrefix+tabID, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Delete removes a tab's snapshot. Missing snapshots are not an error.
func (s *Store) Delete(ctx context.Context, tabID string) error {
	if err := s.kv.Delete(ctx, keySnapshotPrefix+tabID); err != nil {
		return fmt.Errorf("snapshot: delete for tab %s: %w", tabID, err)
	}
	if s.metrics != nil {
		s.metrics.SnapshotsDeleted.Inc()
	}
	return nil
}

// DeleteAll removes every stored snapshot and returns how many.
func (s *Store) DeleteAll(ctx context.Context) (int, error) {
	keys, err := s.kv.List(ctx, keySnapshotPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("snapshot: list: %w", err)
	}
	deleted := 0
	for _, key := range keys {
		if err := s.kv.Delete(ctx, key); err != nil {
			return deleted, fmt.Errorf("snapshot: delete %q: %w", key, err)
		}
		deleted++
	}
	if s.metrics != nil {
		s.metrics.SnapshotsDeleted.Add(float64(deleted))
	}
	return deleted, nil
}

// Stats reports persistence timestamps.
func (s *Store) Stats() (lastSaved, lastRecovered *time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSaved, s.lastRecovered
}

// tabIDFromKey recovers the tab ID from a snapshot storage key.
func tabIDFromKey(key string) string {
	return strings.TrimPrefix(key, keySnapshotPrefix)
}
