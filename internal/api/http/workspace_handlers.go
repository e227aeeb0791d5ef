package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vantagebrowser/tabengine/internal/domain/workspace"
)

// ListWorkspaceBudgets returns usage for every charged workspace
func (h *Handlers) ListWorkspaceBudgets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"workspaces": h.budget.Report(),
	})
}

// GetWorkspaceBudget returns one workspace's standing against its cap
func (h *Handlers) GetWorkspaceBudget(c *gin.Context) {
	workspaceID := c.Param("id")

	used := h.budget.Used(workspaceID)
	capBytes := h.budget.Cap(workspaceID)
	usage := workspace.Usage{
		WorkspaceID: workspaceID,
		UsedBytes:   used,
		CapBytes:    capBytes,
		Tabs:        len(h.tabs.ListByWorkspace(workspaceID)),
		Over:        h.budget.Over(workspaceID),
	}
	if capBytes > 0 {
		usage.Ratio = float64(used) / float64(capBytes)
	}

	c.JSON(http.StatusOK, usage)
}

// SetWorkspaceBudget overrides one workspace's cap
func (h *Handlers) SetWorkspaceBudget(c *gin.Context) {
	workspaceID := c.Param("id")

	var req struct {
		CapBytes int64 `json:"cap_bytes" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.budget.SetCap(workspaceID, req.CapBytes)

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"workspace_id": workspaceID,
		"cap_bytes":    req.CapBytes,
	})
}
