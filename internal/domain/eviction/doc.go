// Package eviction decides when tab reclamation runs and which tabs it
// takes.
//
// Pressure is the smoothed mean of a sliding window of memory ratio
// samples, so one GC spike never triggers a sweep. When the host total
// cannot be read the policy falls back to tab count. Candidate
// selection is least recently active first, sparing pinned tabs, the
// active tab, and tabs already reclaimed, capped at the batch size.
//
// The policy only selects. Executing suspends belongs to the caller.
package eviction
