package repo

import "errors"

// ErrMutexConflict is returned by Create when the target slot's mutex peer
// already holds the resource kind at that path.
var ErrMutexConflict = errors.New("repo: mutex peer already exists at this slot")

// ErrDeleteTargetsStorageRoot is returned when a Delete is attempted
// against a pod's storage root, which the space model forbids.
var ErrDeleteTargetsStorageRoot = errors.New("repo: cannot delete the storage root")

// ErrDeleteTargetsNonEmptyContainer is returned when a Delete targets a
// container that still has contained (non-auxiliary) members.
var ErrDeleteTargetsNonEmptyContainer = errors.New("repo: container has members and cannot be deleted")
