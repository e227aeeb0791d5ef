package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vantagebrowser/tabengine/internal/shared/types"
)

// CreateGroup creates a tab group
func (h *Handlers) CreateGroup(c *gin.Context) {
	var req types.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group := h.tabs.CreateGroup(req.Name, req.Color)
	c.JSON(http.StatusCreated, group)
}

// ListGroups lists all tab groups
func (h *Handlers) ListGroups(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"groups": h.tabs.ListGroups(),
	})
}

// AssignToGroup moves a tab into a group
func (h *Handlers) AssignToGroup(c *gin.Context) {
	groupID := c.Param("id")

	var req types.AssignGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.tabs.AssignToGroup(req.TabID, groupID); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"tab_id":   req.TabID,
		"group_id": groupID,
	})
}

// CollapseGroup toggles a group's collapsed state
func (h *Handlers) CollapseGroup(c *gin.Context) {
	groupID := c.Param("id")

	var req types.CollapseGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.tabs.CollapseGroup(groupID, req.Collapsed); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"group_id":  groupID,
		"collapsed": req.Collapsed,
	})
}

// CloseGroup closes every unpinned tab in a group
func (h *Handlers) CloseGroup(c *gin.Context) {
	groupID := c.Param("id")

	closed, err := h.engine.CloseGroup(c.Request.Context(), groupID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"group_id": groupID,
		"closed":   closed,
	})
}
