package tabs

import "errors"

// Errors returned by the tab store.
var (
	// ErrNotFound indicates the tab does not exist
	ErrNotFound = errors.New("tab not found")
	// ErrTabLimit indicates the registry is at capacity
	ErrTabLimit = errors.New("tab limit reached")
	// ErrPinned indicates the operation is refused for pinned tabs
	ErrPinned = errors.New("tab is pinned")
	// ErrNoHistory indicates there is no history entry in that direction
	ErrNoHistory = errors.New("no history in that direction")
	// ErrGroupNotFound indicates the group does not exist
	ErrGroupNotFound = errors.New("group not found")
	// ErrNothingToReopen indicates the recently closed stack is empty
	ErrNothingToReopen = errors.New("nothing to reopen")
	// ErrDuplicate indicates the tab is already open
	ErrDuplicate = errors.New("tab already open")
)
