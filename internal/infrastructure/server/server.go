package server

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vantagebrowser/tabengine/internal/api/http"
	"github.com/vantagebrowser/tabengine/internal/api/middleware"
	"github.com/vantagebrowser/tabengine/internal/api/ws"
	"github.com/vantagebrowser/tabengine/internal/domain/engine"
	"github.com/vantagebrowser/tabengine/internal/domain/eviction"
	"github.com/vantagebrowser/tabengine/internal/domain/lifecycle"
	"github.com/vantagebrowser/tabengine/internal/domain/snapshot"
	"github.com/vantagebrowser/tabengine/internal/domain/tabs"
	"github.com/vantagebrowser/tabengine/internal/domain/workspace"
	"github.com/vantagebrowser/tabengine/internal/events"
	"github.com/vantagebrowser/tabengine/internal/infrastructure/config"
	"github.com/vantagebrowser/tabengine/internal/infrastructure/logging"
	"github.com/vantagebrowser/tabengine/internal/infrastructure/monitoring"
	"github.com/vantagebrowser/tabengine/internal/infrastructure/tracing"
	"github.com/vantagebrowser/tabengine/internal/monitor"
	"github.com/vantagebrowser/tabengine/internal/storage"
	"github.com/vantagebrowser/tabengine/internal/surface"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	engine  *engine.Engine
	bus     *events.Bus
	kv      storage.KV
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	// Initialize logger
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		l, err := logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			OutputPaths: []string{"stdout"},
		})
		if err != nil {
			l = logging.NewDefault()
		}
		logger = l
	}

	logger.Info("Initializing Tab Engine",
		zap.String("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Backend),
		zap.Int("max_tabs", cfg.Tabs.MaxTabs),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()

	// Initialize request tracing
	tracer := tracing.New("tabengine", logger.Logger)

	// Initialize persistence
	kv, err := storage.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	kv = storage.Instrument(kv, metrics, cfg.Storage.Backend)
	logger.Info("Storage ready",
		zap.String("backend", cfg.Storage.Backend),
		zap.String("path", cfg.Storage.Path))

	// Initialize event bus and domain stores
	bus := events.New(logger.Component("events"))

	tabStore := tabs.New(cfg.Tabs.MaxTabs, cfg.Tabs.RecentlyClosedCap, bus, logger.Component("tabs")).
		WithMetrics(metrics)
	tracker := lifecycle.New(lifecycle.Config{
		IdleThreshold:    cfg.Lifecycle.IdleThreshold,
		SuspendAfterIdle: cfg.Lifecycle.SuspendAfterIdle,
		BlurSuspendDelay: cfg.Lifecycle.BlurSuspendDelay,
	}, bus, logger.Component("lifecycle")).WithMetrics(metrics)
	snaps := snapshot.New(kv, tabStore, snapshot.Config{
		Window:      cfg.Snapshot.ResurrectionWindow,
		Cap:         cfg.Snapshot.ResurrectionCap,
		TTL:         cfg.Snapshot.SnapshotTTL,
		MaxTextSize: cfg.Snapshot.MaxTextSize,
	}, logger.Component("snapshot")).WithMetrics(metrics)
	budget := workspace.New(cfg.Workspace.DefaultBudgetBytes, bus, logger.Component("workspace"))

	// Per-workspace cap overrides
	if cfg.Workspace.CapsFile != "" {
		caps, err := workspace.LoadCaps(cfg.Workspace.CapsFile)
		if err != nil {
			logger.Warn("Workspace caps file unreadable", zap.Error(err))
		} else {
			budget.ApplyCaps(caps)
			logger.Info("Workspace caps loaded", zap.Int("workspaces", len(caps)))
		}
	}

	// Memory pressure policy
	reader := monitor.NewReader(cfg.Eviction.AssumedTotalBytes, logger.Component("monitor"))
	policy := eviction.New(eviction.Config{
		HighWater:    cfg.Eviction.MemoryHighWater,
		SampleWindow: cfg.Eviction.SampleWindow,
		MaxTabs:      cfg.Tabs.MaxTabs,
		BatchSize:    cfg.Eviction.BatchSize,
	}, reader, logger.Component("eviction")).WithMetrics(metrics)

	// Renderer surface: HTTP adapter when configured, loopback otherwise
	var surf surface.Surface
	if cfg.Surface.URL != "" {
		surf = surface.NewClient(surface.ClientConfig{
			BaseURL: cfg.Surface.URL,
			Timeout: cfg.Surface.Timeout,
			Retries: cfg.Surface.RetryCount,
			RPS:     cfg.Surface.RequestsPerSecond,
		})
		logger.Info("Surface client ready", zap.String("url", cfg.Surface.URL))
	} else {
		surf = surface.NewLoopback()
		logger.Info("Loopback surface ready")
	}

	// Engine orchestrates the reclamation pipelines
	eng := engine.New(engine.Config{
		AutosaveInterval: cfg.Snapshot.AutosaveInterval,
		EvictionInterval: cfg.Eviction.Interval,
		GCInterval:       cfg.Snapshot.GCInterval,
		ScrollEpsilon:    cfg.Snapshot.ScrollEpsilon,
		MaxTextSize:      cfg.Snapshot.MaxTextSize,
	}, engine.Deps{
		Tabs:      tabStore,
		Tracker:   tracker,
		Policy:    policy,
		Snapshots: snaps,
		Budget:    budget,
		Surface:   surf,
		Bus:       bus,
	}, logger.Component("engine")).WithMetrics(metrics)

	// Recover persisted tabs and launch the background loops
	report, err := eng.Start(context.Background())
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("failed to start engine: %w", err)
	}
	if report.Restored > 0 || report.Expired > 0 {
		logger.Info("Session recovered",
			zap.Int("restored", report.Restored),
			zap.Int("expired", report.Expired))
	}

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	// Create handler metrics wrapper
	handlerMetrics := http.NewHandlerMetrics(metrics)

	// Create handlers
	handlers := http.NewHandlers(eng, tabStore, tracker, snaps, budget, handlerMetrics, logger.Component("api"))
	wsHandler := ws.NewHandler(eng, tracker, bus, metrics, logger.Component("ws"))

	// Register routes
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/stats", handlers.Stats)

	// Tab management
	router.POST("/tabs", handlers.CreateTab)
	router.GET("/tabs", handlers.ListTabs)
	router.POST("/tabs/reopen", handlers.ReopenTab)
	router.GET("/tabs/recently-closed", handlers.RecentlyClosed)
	router.GET("/tabs/active", handlers.ActiveTab)
	router.GET("/tabs/:id", handlers.GetTab)
	router.PATCH("/tabs/:id", handlers.UpdateTab)
	router.DELETE("/tabs/:id", handlers.CloseTab)
	router.POST("/tabs/:id/activate", handlers.ActivateTab)
	router.POST("/tabs/:id/navigate", handlers.NavigateTab)
	router.POST("/tabs/:id/back", handlers.Back)
	router.POST("/tabs/:id/forward", handlers.Forward)
	router.POST("/tabs/:id/activity", handlers.Activity)

	// Lifecycle operations
	router.POST("/tabs/:id/suspend", handlers.SuspendTab)
	router.POST("/tabs/:id/resume", handlers.ResumeTab)
	router.POST("/tabs/:id/hibernate", handlers.HibernateTab)
	router.POST("/tabs/:id/crash", handlers.RecordCrash)
	router.GET("/lifecycle", handlers.LifecycleStates)
	router.POST("/host/blur", handlers.HostBlur)
	router.POST("/host/focus", handlers.HostFocus)

	// Snapshot and resurrection endpoints
	router.GET("/snapshots/:id", handlers.GetSnapshot)
	router.POST("/snapshots/:id/save", handlers.SaveSnapshot)
	router.DELETE("/snapshots/:id", handlers.DeleteSnapshot)
	router.POST("/snapshots/gc", handlers.RunSnapshotGC)
	router.GET("/resurrection", handlers.ListResurrections)
	router.POST("/resurrection/:id/restore", handlers.RestoreResurrection)

	// Group endpoints
	router.POST("/groups", handlers.CreateGroup)
	router.GET("/groups", handlers.ListGroups)
	router.POST("/groups/:id/assign", handlers.AssignToGroup)
	router.POST("/groups/:id/collapse", handlers.CollapseGroup)
	router.DELETE("/groups/:id", handlers.CloseGroup)

	// Eviction endpoints
	router.POST("/eviction/run", handlers.RunEviction)
	router.GET("/eviction/status", handlers.EvictionStatus)

	// Workspace budgets
	router.GET("/workspaces", handlers.ListWorkspaceBudgets)
	router.GET("/workspaces/:id/budget", handlers.GetWorkspaceBudget)
	router.PUT("/workspaces/:id/budget", handlers.SetWorkspaceBudget)

	// Renderer log ingestion
	router.POST("/logs/stream", handlers.StreamLogs)

	// WebSocket
	router.GET("/ws", wsHandler.HandleConnection)

	// Create metrics aggregator
	metricsAggregator := http.NewMetricsAggregator(metrics, eng)

	// Metrics endpoints
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/metrics/json", metricsAggregator.GetAggregatedMetrics)

	logger.Info("Server initialized successfully")

	return &Server{
		router:  router,
		engine:  eng,
		bus:     bus,
		kv:      kv,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// Run starts the HTTP server
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Handler returns the route tree for embedding and tests
func (s *Server) Handler() *gin.Engine {
	return s.router
}

// Close gracefully shuts down the server
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	// Stop the engine first so the final autosave lands before storage
	// goes away
	if err := s.engine.Close(ctx); err != nil {
		s.logger.Error("Engine shutdown failed", zap.Error(err))
		return fmt.Errorf("failed to stop engine: %w", err)
	}
	s.bus.Close()

	if err := s.kv.Close(); err != nil {
		s.logger.Error("Storage close failed", zap.Error(err))
		return fmt.Errorf("failed to close storage: %w", err)
	}

	// Sync logger before exit
	s.logger.Sync()

	return nil
}
