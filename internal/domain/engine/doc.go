// Package engine connects the domain pieces into the reclamation
// pipelines.
//
// The tab store, tracker, policy, snapshot store, and budget are each
// self-contained; the engine owns the flows that cross them. Suspend
// runs capture, surface park, state flip, resurrection record. Resume
// runs crash check, surface probe, renderer restore, scroll replay
// with retries. The eviction sweep evaluates pressure, orders
// candidates with over-budget workspaces first, and escalates to
// hibernation when nothing live is left to take.
//
// Start recovers persisted state and launches the autosave, eviction,
// and GC loops; Close flushes a final autosave so a clean restart
// restores losslessly.
package engine
