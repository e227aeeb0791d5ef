package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetSnapshot returns a tab's stored snapshot
func (h *Handlers) GetSnapshot(c *gin.Context) {
	tabID := c.Param("id")

	snap, err := h.snapshots.Load(c.Request.Context(), tabID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

// SaveSnapshot forces a capture for one tab
func (h *Handlers) SaveSnapshot(c *gin.Context) {
	tabID := c.Param("id")

	done := h.metrics.TrackSnapshotOperation("save")
	snap, err := h.engine.SaveSnapshot(c.Request.Context(), tabID)
	done()
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

// DeleteSnapshot removes a tab's stored snapshot
func (h *Handlers) DeleteSnapshot(c *gin.Context) {
	tabID := c.Param("id")

	if err := h.snapshots.Delete(c.Request.Context(), tabID); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tab_id":  tabID,
	})
}

// ListResurrections returns the resurrection list, newest first
func (h *Handlers) ListResurrections(c *gin.Context) {
	records, err := h.snapshots.Resurrections(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
	})
}

// RestoreResurrection restores one resurrection record as a live tab
func (h *Handlers) RestoreResurrection(c *gin.Context) {
	recordID := c.Param("id")

	done := h.metrics.TrackSnapshotOperation("restore")
	tab, err := h.engine.RestoreRecord(c.Request.Context(), recordID)
	done()
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, tab)
}

// RunSnapshotGC prunes expired snapshots of closed tabs
func (h *Handlers) RunSnapshotGC(c *gin.Context) {
	deleted, err := h.snapshots.GC(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"deleted": deleted,
	})
}
