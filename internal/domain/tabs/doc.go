// Package tabs implements the tab registry.
//
// The store tracks every live tab, its strip position, its navigation
// history, its group, and the single active tab. Closed tabs land on a
// bounded undo stack and can be reopened with identity, history, and
// strip position intact.
//
// Invariants:
//   - At most one tab is active at any time
//   - Live tabs never exceed the configured cap
//   - Closing the active tab elects its strip predecessor
//   - Pinned tabs cannot be closed until unpinned
//
// All reads return copies. Mutations publish events after the lock is
// released so subscribers never block the registry.
package tabs
