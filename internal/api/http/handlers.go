package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vantagebrowser/tabengine/internal/domain/engine"
	"github.com/vantagebrowser/tabengine/internal/domain/lifecycle"
	"github.com/vantagebrowser/tabengine/internal/domain/snapshot"
	"github.com/vantagebrowser/tabengine/internal/domain/tabs"
	"github.com/vantagebrowser/tabengine/internal/domain/workspace"
	"github.com/vantagebrowser/tabengine/internal/infrastructure/logging"
	"github.com/vantagebrowser/tabengine/internal/storage"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	engine    *engine.Engine
	tabs      *tabs.Store
	tracker   *lifecycle.Tracker
	snapshots *snapshot.Store
	budget    *workspace.Budget
	metrics   *HandlerMetrics
	log       *logging.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(
	eng *engine.Engine,
	tabStore *tabs.Store,
	tracker *lifecycle.Tracker,
	snapshots *snapshot.Store,
	budget *workspace.Budget,
	metrics *HandlerMetrics,
	log *logging.Logger,
) *Handlers {
	return &Handlers{
		engine:    eng,
		tabs:      tabStore,
		tracker:   tracker,
		snapshots: snapshots,
		budget:    budget,
		metrics:   metrics,
		log:       log,
	}
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "Tab Engine (Go)",
		"version": "0.3.0",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"tabs":         h.tabs.Stats(),
		"states":       h.tracker.Counts(),
		"host_focused": h.tracker.HostFocused(),
	})
}

// Stats returns engine-wide counters
func (h *Handlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Stats())
}

// fail maps domain sentinels onto HTTP statuses.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, tabs.ErrNotFound),
		errors.Is(err, tabs.ErrGroupNotFound),
		errors.Is(err, tabs.ErrNothingToReopen),
		errors.Is(err, lifecycle.ErrUnknownTab),
		errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, tabs.ErrTabLimit),
		errors.Is(err, tabs.ErrPinned),
		errors.Is(err, tabs.ErrDuplicate),
		errors.Is(err, tabs.ErrNoHistory),
		errors.Is(err, lifecycle.ErrBadTransition):
		status = http.StatusConflict
	case errors.Is(err, snapshot.ErrExpired):
		status = http.StatusGone
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
