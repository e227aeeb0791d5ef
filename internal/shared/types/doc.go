// Package types provides shared data structures for the tab engine.
//
// This package defines core types used across all engine components,
// ensuring type safety and consistent data structures.
//
// Core Types:
//   - Tab: Open tab registry entry with per-tab history
//   - TabGroup: Named tab grouping
//   - ClosedTab: Recently-closed undo stack entry
//   - TabSnapshot: Restorable page state capture
//   - ResurrectionRecord: Crash-recovery entry
//   - RegistrySnapshot: Full registry persistence across restarts
//
// Request Types:
//   - CreateTabRequest, NavigateRequest, UpdateTabRequest: Tab commands
//   - CreateGroupRequest, AssignGroupRequest: Group commands
//   - SignalMessage: Inbound WebSocket renderer signals
//
// State Management:
//   - LifecycleState: Tab state enum (active, idle, suspended, hibernated)
//   - TabStats: Registry statistics
//
// Example Usage:
//
//	tab := &types.Tab{
//	    ID:      uuid.New().String(),
//	    URL:     "https://example.com",
//	    History: []string{"https://example.com"},
//	}
package types
