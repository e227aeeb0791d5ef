package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RendererLogEntry represents a log entry from the renderer process
type RendererLogEntry struct {
	ID        string                 `json:"id"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	TabID     string                 `json:"tab_id"`
	Context   map[string]interface{} `json:"context"`
	Timestamp string                 `json:"timestamp"`
}

// RendererLogStreamRequest represents a batch of logs from the renderer
type RendererLogStreamRequest struct {
	Source    string             `json:"source"`    // "renderer"
	Entries   []RendererLogEntry `json:"entries"`   // Log entries
	Timestamp int64              `json:"timestamp"` // Request timestamp
}

// StreamLogs ingests renderer-side log batches into the engine log
func (h *Handlers) StreamLogs(c *gin.Context) {
	var req RendererLogStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid log request format"})
		return
	}

	// Validate source
	if req.Source != "renderer" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid log source"})
		return
	}

	// Validate entries
	if len(req.Entries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No log entries provided"})
		return
	}

	for _, entry := range req.Entries {
		h.writeRendererEntry(entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"entries_received": len(req.Entries),
		"timestamp":        time.Now().Unix(),
	})
}

// writeRendererEntry forwards a single renderer log entry into zap
func (h *Handlers) writeRendererEntry(entry RendererLogEntry) {
	fields := make([]zap.Field, 0, len(entry.Context)+4)

	fields = append(fields,
		zap.String("renderer_log_id", entry.ID),
		zap.String("source", "renderer"),
		zap.String("tab_id", entry.TabID),
		zap.String("renderer_timestamp", entry.Timestamp),
	)

	for key, value := range entry.Context {
		switch v := value.(type) {
		case string:
			fields = append(fields, zap.String(key, v))
		case int:
			fields = append(fields, zap.Int(key, v))
		case int64:
			fields = append(fields, zap.Int64(key, v))
		case float64:
			fields = append(fields, zap.Float64(key, v))
		case bool:
			fields = append(fields, zap.Bool(key, v))
		default:
			fields = append(fields, zap.Any(key, v))
		}
	}

	switch entry.Level {
	case "error":
		h.log.Error(entry.Message, fields...)
	case "warn":
		h.log.Warn(entry.Message, fields...)
	case "info":
		h.log.Info(entry.Message, fields...)
	case "debug", "verbose":
		h.log.Debug(entry.Message, fields...)
	default:
		h.log.Info(entry.Message, fields...)
	}
}
