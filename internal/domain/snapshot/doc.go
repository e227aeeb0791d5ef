// Package snapshot persists what a tab needs to come back: URL, title,
// scroll position, form data, and a bounded run of page text, gzipped
// at rest once it outgrows a small floor.
//
// Three kinds of state live in storage:
//
//   - Per-tab snapshots under tabs:snapshot:<id>, written on suspend
//     and refreshed lightly by the autosave pass
//   - The resurrection list under tabs:resurrection, bounded and
//     deduplicated by tab, newest first in ULID order
//   - The registry itself under tabs:registry, so a clean restart
//     restores the full set
//
// Recover merges the persisted registry with resurrection records still
// inside the freshness window, hands the union to the tab store in one
// Replace, and rewrites the list with only the stale remainder. GC
// drops snapshots of closed tabs past their TTL, sparing tabs that were
// pinned when last seen.
package snapshot
