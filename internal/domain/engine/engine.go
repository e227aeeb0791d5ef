package engine

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vantagebrowser/tabengine/internal/capture"
	"github.com/vantagebrowser/tabengine/internal/domain/eviction"
	"github.com/vantagebrowser/tabengine/internal/domain/lifecycle"
	"github.com/vantagebrowser/tabengine/internal/domain/snapshot"
	"github.com/vantagebrowser/tabengine/internal/domain/tabs"
	"github.com/vantagebrowser/tabengine/internal/domain/workspace"
	"github.com/vantagebrowser/tabengine/internal/events"
	"github.com/vantagebrowser/tabengine/internal/infrastructure/logging"
	"github.com/vantagebrowser/tabengine/internal/infrastructure/monitoring"
	"github.com/vantagebrowser/tabengine/internal/shared/types"
	"github.com/vantagebrowser/tabengine/internal/surface"
)

// Config tunes the engine's background work.
type Config struct {
	AutosaveInterval time.Duration
	EvictionInterval time.Duration
	GCInterval       time.Duration
	ScrollEpsilon    float64
	MaxTextSize      int64
	// MaxCrashes is how many renderer crashes a tab survives before
	// resume stops reviving it until the next navigation.
	MaxCrashes int
	// OpTimeout bounds timer-driven storage and surface work.
	OpTimeout time.Duration
}

// Deps are the collaborators the engine orchestrates.
type Deps struct {
	Tabs      *tabs.Store
	Tracker   *lifecycle.Tracker
	Policy    *eviction.Policy
	Snapshots *snapshot.Store
	Budget    *workspace.Budget
	Surface   surface.Surface
	Bus       *events.Bus
}

// Engine drives the reclamation pipelines: it owns the side effects
// that connect the tab registry, the activity tracker, the eviction
// policy, snapshots, budgets, and the renderer surface.
type Engine struct {
	cfg       Config
	tabs      *tabs.Store
	tracker   *lifecycle.Tracker
	policy    *eviction.Policy
	snapshots *snapshot.Store
	budget    *workspace.Budget
	surface   surface.Surface
	extractor *capture.Extractor
	bus       *events.Bus
	log       *logging.Logger
	metrics   *monitoring.Metrics

	mu        sync.Mutex
	lastSweep *SweepReport // Protected by mu
	started   bool         // Protected by mu
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New creates the engine and installs its suspend pipeline on the
// tracker.
func New(cfg Config, deps Deps, log *logging.Logger) *Engine {
	if cfg.MaxCrashes < 1 {
		cfg.MaxCrashes = 3
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 10 * time.Second
	}
	e := &Engine{
		cfg:       cfg,
		tabs:      deps.Tabs,
		tracker:   deps.Tracker,
		policy:    deps.Policy,
		snapshots: deps.Snapshots,
		budget:    deps.Budget,
		surface:   deps.Surface,
		extractor: capture.NewExtractor(cfg.MaxTextSize),
		bus:       deps.Bus,
		log:       log,
	}
	e.tracker.WithSuspender(e.timerSuspend).WithExemption(e.suspendExempt)
	return e
}

// WithMetrics adds metrics tracking to the engine
func (e *Engine) WithMetrics(metrics *monitoring.Metrics) *Engine {
	e.metrics = metrics
	return e
}

// Start recovers persisted state and launches the background loops.
// Recovery failure is logged, not fatal; the engine starts empty.
func (e *Engine) Start(ctx context.Context) (*types.RecoveryReport, error) {
	report, err := e.snapshots.Recover(ctx)
	if err != nil {
		e.log.Error("Recovery failed, starting empty", zap.Error(err))
		report = &types.RecoveryReport{}
	}

	// Restored tabs come back suspended with snapshots intact; only
	// the previously active tab gets its renderer back right away.
	for _, tab := range e.tabs.List() {
		if tab.Active {
			e.tracker.Watch(tab.ID, true)
			e.budget.Charge(tab.WorkspaceID, tab.ID, workspace.EstimateTab(types.StateActive))
			e.restoreSurface(ctx, tab)
			continue
		}
		e.tracker.Watch(tab.ID, false)
		if err := e.tracker.MarkSuspended(tab.ID, lifecycle.ReasonRestore); err != nil {
			e.log.Warn("Restored tab could not enter suspended state",
				zap.String("tab_id", tab.ID), zap.Error(err))
		}
		e.budget.Charge(tab.WorkspaceID, tab.ID, workspace.EstimateTab(types.StateSuspended))
	}

	if _, err := e.snapshots.GC(ctx); err != nil {
		e.log.Warn("Startup snapshot sweep failed", zap.Error(err))
	}

	runCtx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.cancel = cancel
	e.started = true
	e.mu.Unlock()

	e.wg.Add(3)
	go e.autosaveLoop(runCtx)
	go e.evictionLoop(runCtx)
	go e.gcLoop(runCtx)

	e.log.Info("Engine started",
		zap.Int("restored", report.Restored),
		zap.Int("expired", report.Expired),
		zap.Int("open", e.tabs.Count()))
	return report, nil
}

// Close stops the loops, flushes a final autosave so a clean restart
// restores losslessly, and releases the surface.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = false
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.wg.Wait()
	e.tracker.Close()

	if err := e.snapshots.AutosavePass(ctx); err != nil {
		e.log.Error("Final autosave failed", zap.Error(err))
		return err
	}
	if closer, ok := e.surface.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			e.log.Warn("Surface close failed", zap.Error(err))
		}
	}
	e.log.Info("Engine stopped")
	return nil
}

func (e *Engine) autosaveLoop(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.AutosaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			opCtx, cancel := context.WithTimeout(ctx, e.cfg.OpTimeout)
			if err := e.snapshots.AutosavePass(opCtx); err != nil {
				e.log.Warn("Autosave pass failed", zap.Error(err))
			}
			cancel()
		}
	}
}

func (e *Engine) evictionLoop(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.EvictionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			opCtx, cancel := context.WithTimeout(ctx, e.cfg.OpTimeout)
			e.Sweep(opCtx, false)
			cancel()
		}
	}
}

func (e *Engine) gcLoop(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			opCtx, cancel := context.WithTimeout(ctx, e.cfg.OpTimeout)
			if deleted, err := e.snapshots.GC(opCtx); err != nil {
				e.log.Warn("Snapshot sweep failed", zap.Error(err))
			} else if deleted > 0 {
				e.log.Info("Snapshot sweep done", zap.Int("deleted", deleted))
			}
			cancel()
		}
	}
}

// Stats aggregates engine-wide counters for the stats endpoint.
type Stats struct {
	Tabs          types.TabStats               `json:"tabs"`
	States        map[types.LifecycleState]int `json:"states"`
	Pressure      eviction.Pressure            `json:"pressure"`
	Workspaces    []workspace.Usage            `json:"workspaces,omitempty"`
	LastSaved     *time.Time                   `json:"last_saved,omitempty"`
	LastRecovered *time.Time                   `json:"last_recovered,omitempty"`
	EventsDropped uint64                       `json:"events_dropped"`
}

// Stats returns a point-in-time aggregate.
func (e *Engine) Stats() Stats {
	saved, recovered := e.snapshots.Stats()
	s := Stats{
		Tabs:          e.tabs.Stats(),
		States:        e.tracker.Counts(),
		Pressure:      e.policy.Last(),
		Workspaces:    e.budget.Report(),
		LastSaved:     saved,
		LastRecovered: recovered,
	}
	if e.bus != nil {
		s.EventsDropped = e.bus.Dropped()
	}
	return s
}

func (e *Engine) publish(evt events.Event) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(evt)
}
