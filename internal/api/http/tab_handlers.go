package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vantagebrowser/tabengine/internal/shared/types"
)

// CreateTab opens a new tab
func (h *Handlers) CreateTab(c *gin.Context) {
	var req types.CreateTabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	done := h.metrics.TrackTabOperation("create")
	tab, err := h.engine.CreateTab(c.Request.Context(), req)
	done()
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, tab)
}

// ListTabs lists open tabs, optionally scoped to a workspace
func (h *Handlers) ListTabs(c *gin.Context) {
	workspaceID := c.Query("workspace")

	var list []*types.Tab
	if workspaceID != "" {
		list = h.tabs.ListByWorkspace(workspaceID)
	} else {
		list = h.tabs.List()
	}

	c.JSON(http.StatusOK, gin.H{
		"tabs":  list,
		"stats": h.tabs.Stats(),
	})
}

// GetTab returns one tab with its lifecycle state
func (h *Handlers) GetTab(c *gin.Context) {
	id := c.Param("id")

	tab, ok := h.tabs.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "tab not found"})
		return
	}

	resp := gin.H{"tab": tab}
	if state, watched := h.tracker.State(id); watched {
		resp["state"] = state
	}
	if last, ok := h.tracker.LastInput(id); ok {
		resp["last_input"] = last
	}
	c.JSON(http.StatusOK, resp)
}

// ActiveTab returns the focused tab
func (h *Handlers) ActiveTab(c *gin.Context) {
	tab, ok := h.tabs.Active()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active tab"})
		return
	}

	c.JSON(http.StatusOK, tab)
}

// CloseTab closes a tab
func (h *Handlers) CloseTab(c *gin.Context) {
	id := c.Param("id")

	done := h.metrics.TrackTabOperation("close")
	err := h.engine.CloseTab(c.Request.Context(), id)
	done()
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tab_id":  id,
	})
}

// ActivateTab focuses a tab
func (h *Handlers) ActivateTab(c *gin.Context) {
	id := c.Param("id")

	tab, err := h.engine.ActivateTab(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, tab)
}

// UpdateTab patches mutable tab fields
func (h *Handlers) UpdateTab(c *gin.Context) {
	id := c.Param("id")

	var req types.UpdateTabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tab, err := h.tabs.Update(id, req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, tab)
}

// NavigateTab points a tab at a new URL
func (h *Handlers) NavigateTab(c *gin.Context) {
	id := c.Param("id")

	var req types.NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.engine.NavigateTab(c.Request.Context(), id, req.URL); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tab_id":  id,
		"url":     req.URL,
	})
}

// Back steps a tab's history back
func (h *Handlers) Back(c *gin.Context) {
	id := c.Param("id")

	url, err := h.engine.Back(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tab_id":  id,
		"url":     url,
	})
}

// Forward steps a tab's history forward
func (h *Handlers) Forward(c *gin.Context) {
	id := c.Param("id")

	url, err := h.engine.Forward(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tab_id":  id,
		"url":     url,
	})
}

// Activity records user input on a tab
func (h *Handlers) Activity(c *gin.Context) {
	id := c.Param("id")

	if err := h.engine.Activity(id); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tab_id":  id,
	})
}

// SuspendTab manually runs the suspend pipeline on a tab
func (h *Handlers) SuspendTab(c *gin.Context) {
	id := c.Param("id")

	done := h.metrics.TrackTabOperation("suspend")
	err := h.engine.SuspendTab(c.Request.Context(), id, "manual")
	done()
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tab_id":  id,
	})
}

// ResumeTab wakes a tab without focusing it
func (h *Handlers) ResumeTab(c *gin.Context) {
	id := c.Param("id")

	if err := h.engine.ResumeTab(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tab_id":  id,
	})
}

// HibernateTab discards a suspended tab's surface
func (h *Handlers) HibernateTab(c *gin.Context) {
	id := c.Param("id")

	if err := h.engine.HibernateTab(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tab_id":  id,
	})
}

// RecordCrash reports a renderer crash for a tab
func (h *Handlers) RecordCrash(c *gin.Context) {
	id := c.Param("id")

	count, err := h.engine.RecordCrash(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tab_id":      id,
		"crash_count": count,
	})
}

// ReopenTab restores the most recently closed tab
func (h *Handlers) ReopenTab(c *gin.Context) {
	var req types.ReopenRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	done := h.metrics.TrackTabOperation("reopen")
	tab, err := h.engine.ReopenTab(c.Request.Context(), req.WorkspaceID)
	done()
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, tab)
}

// RecentlyClosed lists the undo stack, most recent first
func (h *Handlers) RecentlyClosed(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"closed": h.tabs.RecentlyClosed(),
	})
}
