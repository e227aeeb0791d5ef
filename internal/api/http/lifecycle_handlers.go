package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// LifecycleStates returns every watched tab's state plus totals
func (h *Handlers) LifecycleStates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"states":       h.tracker.States(),
		"counts":       h.tracker.Counts(),
		"host_focused": h.tracker.HostFocused(),
	})
}

// HostBlur signals that the browser host lost focus
func (h *Handlers) HostBlur(c *gin.Context) {
	h.tracker.HostBlur()
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"host_focused": false,
	})
}

// HostFocus signals that the browser host regained focus
func (h *Handlers) HostFocus(c *gin.Context) {
	h.tracker.HostFocus()
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"host_focused": true,
	})
}

// RunEviction triggers a reclamation sweep regardless of pressure
func (h *Handlers) RunEviction(c *gin.Context) {
	report := h.engine.Sweep(c.Request.Context(), true)
	c.JSON(http.StatusOK, report)
}

// EvictionStatus returns current pressure and the last executed sweep
func (h *Handlers) EvictionStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Eviction())
}
