// Package ws provides WebSocket handling for renderer signaling.
//
// This package implements the live channel between the renderer and the
// tab engine: lifecycle events stream out, user-activity signals stream in.
//
// Features:
//   - Engine event fanout over a single connection
//   - Activity, focus, and crash signaling without HTTP round trips
//   - Automatic connection upgrade from HTTP
//   - Per-connection write serialization
//
// Message Types (Client → Server):
//   - activity: User input in a tab
//   - host_blur: Host window lost focus
//   - host_focus: Host window regained focus
//   - crash: Renderer process for a tab died
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - system: Connection established
//   - event: Engine lifecycle event (tab.created, tab.suspended, ...)
//   - crash_recorded: Crash acknowledged with running count
//   - pong: Keep-alive reply
//   - error: Signal rejected
//
// Example Usage:
//
//	handler := ws.NewHandler(engine, tracker, bus, metrics, logger)
//	router.GET("/ws", handler.HandleConnection)
package ws
