package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vantagebrowser/tabengine/internal/domain/engine"
	"github.com/vantagebrowser/tabengine/internal/domain/lifecycle"
	"github.com/vantagebrowser/tabengine/internal/events"
	"github.com/vantagebrowser/tabengine/internal/infrastructure/logging"
	"github.com/vantagebrowser/tabengine/internal/infrastructure/monitoring"
	"github.com/vantagebrowser/tabengine/internal/shared/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// Handler manages WebSocket connections from the renderer
type Handler struct {
	engine  *engine.Engine
	tracker *lifecycle.Tracker
	bus     *events.Bus
	metrics *monitoring.Metrics
	log     *logging.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(eng *engine.Engine, tracker *lifecycle.Tracker, bus *events.Bus, metrics *monitoring.Metrics, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.NewNop()
	}
	return &Handler{
		engine:  eng,
		tracker: tracker,
		bus:     bus,
		metrics: metrics,
		log:     log,
	}
}

// client serializes writes to one connection. The event fanout goroutine
// and the read loop both write, and gorilla conns allow a single writer.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (cl *client) send(data interface{}) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.conn.WriteJSON(data)
}

func (cl *client) sendError(msg string) error {
	return cl.send(map[string]interface{}{
		"type":      "error",
		"message":   msg,
		"timestamp": time.Now().Unix(),
	})
}

// HandleConnection handles WebSocket upgrade, event fanout, and renderer signals
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	cl := &client{conn: conn}
	reqCtx := c.Request.Context()

	// Send welcome message
	cl.send(map[string]interface{}{
		"type":    "system",
		"message": "Connected to Tab Engine (Go)",
	})

	// Forward engine events until the subscription or connection drops
	evts, cancel := h.bus.Subscribe()
	defer cancel()

	go func() {
		for evt := range evts {
			if h.metrics != nil {
				h.metrics.RecordWSMessage("out", string(evt.Kind))
			}
			if err := cl.send(map[string]interface{}{
				"type":  "event",
				"event": evt,
			}); err != nil {
				return
			}
		}
	}()

	// Listen for renderer signals
	for {
		var msg types.SignalMessage
		if err := conn.ReadJSON(&msg); err != nil {
			h.log.Debug("WebSocket closed", zap.Error(err))
			break
		}

		if h.metrics != nil {
			h.metrics.RecordWSMessage("in", msg.Type)
		}

		switch msg.Type {
		case "activity":
			if err := h.engine.Activity(msg.TabID); err != nil {
				cl.sendError(err.Error())
			}
		case "host_blur":
			h.tracker.HostBlur()
		case "host_focus":
			h.tracker.HostFocus()
		case "crash":
			count, err := h.engine.RecordCrash(reqCtx, msg.TabID)
			if err != nil {
				cl.sendError(err.Error())
				continue
			}
			cl.send(map[string]interface{}{
				"type":        "crash_recorded",
				"tab_id":      msg.TabID,
				"crash_count": count,
				"timestamp":   time.Now().Unix(),
			})
		case "ping":
			cl.send(map[string]interface{}{"type": "pong"})
		default:
			cl.sendError("unknown message type")
		}
	}
}
