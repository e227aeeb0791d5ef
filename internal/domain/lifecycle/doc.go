// Package lifecycle drives tabs through the activity state machine:
//
//	active -> idle -> suspended -> hibernated
//
// An untouched tab goes idle after the idle threshold and suspends
// after a further suspend leg. When the host window loses focus every
// live tab, the active one included, suspends on a short blur clock
// that regaining focus cancels. Pinned tabs are exempt from timer
// suspends but not from blur suspends.
//
// The tracker owns state and clocks only. Suspend side effects
// (snapshot, surface calls) run through the registered SuspendFunc,
// which reports completion back via MarkSuspended. Illegal transitions
// return ErrBadTransition and are counted, never applied.
package lifecycle
