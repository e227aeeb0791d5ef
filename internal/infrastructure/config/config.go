package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all engine configuration.
type Config struct {
	Server    ServerConfig
	Tabs      TabsConfig
	Lifecycle LifecycleConfig
	Eviction  EvictionConfig
	Snapshot  SnapshotConfig
	Workspace WorkspaceConfig
	Storage   StorageConfig
	Surface   SurfaceConfig
	Logging   LogConfig
	RateLimit RateLimitConfig

	// LowRAMMode halves tab and memory headroom for constrained hosts.
	LowRAMMode bool `envconfig:"TABENGINE_LOW_RAM_MODE" default:"false"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"TABENGINE_PORT" default:"8090"`
	Host string `envconfig:"TABENGINE_HOST" default:"0.0.0.0"`
}

// TabsConfig holds tab registry configuration.
type TabsConfig struct {
	MaxTabs           int `envconfig:"TABENGINE_MAX_TABS" default:"15"`
	RecentlyClosedCap int `envconfig:"TABENGINE_RECENTLY_CLOSED_CAP" default:"10"`
}

// LifecycleConfig holds activity tracking thresholds.
type LifecycleConfig struct {
	// IdleThreshold is how long after the last input a tab goes idle.
	IdleThreshold time.Duration `envconfig:"TABENGINE_IDLE_THRESHOLD" default:"30s"`
	// SuspendAfterIdle is the idle-to-suspended leg; total inactivity
	// before suspension is IdleThreshold + SuspendAfterIdle.
	SuspendAfterIdle time.Duration `envconfig:"TABENGINE_SUSPEND_AFTER_IDLE" default:"90s"`
	// BlurSuspendDelay applies to every tab when the host window blurs.
	BlurSuspendDelay time.Duration `envconfig:"TABENGINE_BLUR_SUSPEND_DELAY" default:"5s"`
}

// EvictionConfig holds memory pressure policy configuration.
type EvictionConfig struct {
	MemoryHighWater float64       `envconfig:"TABENGINE_MEMORY_HIGH_WATER" default:"0.75"`
	BatchSize       int           `envconfig:"TABENGINE_EVICTION_BATCH_SIZE" default:"3"`
	Interval        time.Duration `envconfig:"TABENGINE_EVICTION_INTERVAL" default:"15s"`
	SampleWindow    int           `envconfig:"TABENGINE_PRESSURE_SAMPLES" default:"12"`
	// AssumedTotalBytes backs the ratio when the host total cannot be read.
	AssumedTotalBytes int64 `envconfig:"TABENGINE_ASSUMED_TOTAL_BYTES" default:"0"`
}

// SnapshotConfig holds snapshot and resurrection configuration.
type SnapshotConfig struct {
	AutosaveInterval   time.Duration `envconfig:"TABENGINE_AUTOSAVE_INTERVAL" default:"30s"`
	ResurrectionWindow time.Duration `envconfig:"TABENGINE_RESURRECTION_WINDOW" default:"5m"`
	ResurrectionCap    int           `envconfig:"TABENGINE_RESURRECTION_CAP" default:"20"`
	SnapshotTTL        time.Duration `envconfig:"TABENGINE_SNAPSHOT_TTL" default:"24h"`
	GCInterval         time.Duration `envconfig:"TABENGINE_GC_INTERVAL" default:"1h"`
	MaxTextSize        int64         `envconfig:"TABENGINE_MAX_TEXT_SIZE" default:"524288"`
	ScrollEpsilon      float64       `envconfig:"TABENGINE_SCROLL_EPSILON" default:"2.0"`
}

// WorkspaceConfig holds per-workspace budget configuration.
type WorkspaceConfig struct {
	DefaultBudgetBytes int64  `envconfig:"TABENGINE_WORKSPACE_BUDGET_BYTES" default:"268435456"`
	CapsFile           string `envconfig:"TABENGINE_WORKSPACE_CAPS" default:""`
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	Backend string `envconfig:"TABENGINE_STORAGE_BACKEND" default:"file"` // file | sqlite
	Path    string `envconfig:"TABENGINE_STORAGE_PATH" default:"/tmp/tabengine/storage"`
}

// SurfaceConfig holds content-surface client configuration.
type SurfaceConfig struct {
	// URL of the renderer surface adapter; empty selects the loopback surface.
	URL               string        `envconfig:"TABENGINE_SURFACE_URL" default:""`
	Timeout           time.Duration `envconfig:"TABENGINE_SURFACE_TIMEOUT" default:"5s"`
	RetryCount        int           `envconfig:"TABENGINE_SURFACE_RETRIES" default:"2"`
	RequestsPerSecond float64       `envconfig:"TABENGINE_SURFACE_RPS" default:"50"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds API rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyLowRAM()
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8090",
			Host: "0.0.0.0",
		},
		Tabs: TabsConfig{
			MaxTabs:           15,
			RecentlyClosedCap: 10,
		},
		Lifecycle: LifecycleConfig{
			IdleThreshold:    30 * time.Second,
			SuspendAfterIdle: 90 * time.Second,
			BlurSuspendDelay: 5 * time.Second,
		},
		Eviction: EvictionConfig{
			MemoryHighWater: 0.75,
			BatchSize:       3,
			Interval:        15 * time.Second,
			SampleWindow:    12,
		},
		Snapshot: SnapshotConfig{
			AutosaveInterval:   30 * time.Second,
			ResurrectionWindow: 5 * time.Minute,
			ResurrectionCap:    20,
			SnapshotTTL:        24 * time.Hour,
			GCInterval:         time.Hour,
			MaxTextSize:        512 * 1024,
			ScrollEpsilon:      2.0,
		},
		Workspace: WorkspaceConfig{
			DefaultBudgetBytes: 256 * 1024 * 1024,
		},
		Storage: StorageConfig{
			Backend: "file",
			Path:    "/tmp/tabengine/storage",
		},
		Surface: SurfaceConfig{
			Timeout:           5 * time.Second,
			RetryCount:        2,
			RequestsPerSecond: 50,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Tabs.MaxTabs < 1 {
		return fmt.Errorf("invalid config: max tabs must be at least 1, got %d", c.Tabs.MaxTabs)
	}
	if c.Eviction.MemoryHighWater <= 0 || c.Eviction.MemoryHighWater > 1 {
		return fmt.Errorf("invalid config: memory high water must be in (0, 1], got %g", c.Eviction.MemoryHighWater)
	}
	if c.Eviction.BatchSize < 1 {
		return fmt.Errorf("invalid config: eviction batch size must be at least 1, got %d", c.Eviction.BatchSize)
	}
	if c.Lifecycle.IdleThreshold <= 0 || c.Lifecycle.SuspendAfterIdle <= 0 {
		return fmt.Errorf("invalid config: lifecycle thresholds must be positive")
	}
	if c.Snapshot.ResurrectionCap < 1 {
		return fmt.Errorf("invalid config: resurrection cap must be at least 1, got %d", c.Snapshot.ResurrectionCap)
	}
	switch c.Storage.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("invalid config: unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

// applyLowRAM tightens limits when running on a constrained host.
// Tab cap and workspace budget halve (cap floors at 5), lifecycle legs
// halve so reclamation starts sooner, and the high water drops to 0.60.
func (c *Config) applyLowRAM() {
	if !c.LowRAMMode {
		return
	}
	c.Tabs.MaxTabs /= 2
	if c.Tabs.MaxTabs < 5 {
		c.Tabs.MaxTabs = 5
	}
	c.Lifecycle.IdleThreshold /= 2
	c.Lifecycle.SuspendAfterIdle /= 2
	if c.Eviction.MemoryHighWater > 0.60 {
		c.Eviction.MemoryHighWater = 0.60
	}
	c.Workspace.DefaultBudgetBytes /= 2
}
