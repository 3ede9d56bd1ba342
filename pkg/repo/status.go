// Package repo implements the repository engine that sits between the
// storage service and the object store, resolving a request URI
// to a status token describing what currently lives at that slot, then
// exposing Reader/Creator/Updater/Deleter operators that act on it.
package repo

import (
	"time"

	"github.com/cuemby/podcore/pkg/slot"
)

// StatusKind names one of the four status-token variants a slot can be in:
// the resource-status model every operator branches on before acting.
type StatusKind int

const (
	// ExistingRepresented: a representation exists at this exact URI.
	ExistingRepresented StatusKind = iota
	// ExistingNonRepresented: the URI names a container that exists by
	// virtue of having members, but itself carries no stored representation
	// distinct from its membership listing.
	ExistingNonRepresented
	// NonExistingMutexExisting: this URI has no resource, but its mutex
	// peer (same path, opposite trailing-slash kind) does — e.g. a PUT to
	// "/a" when "/a/" already exists as a container.
	NonExistingMutexExisting
	// NonExistingMutexNonExisting: neither this URI nor its mutex peer
	// exists; the slot is free.
	NonExistingMutexNonExisting
)

// Status is the resolved state of a slot at the moment an operator
// consults it.
type Status struct {
	Kind         StatusKind
	URI          string
	Process      slot.Process
	ContentType  string
	ETag         string
	LastModified time.Time
	Size         int64
}

// IsExisting reports whether a representation can currently be read at URI.
func (s Status) IsExisting() bool {
	return s.Kind == ExistingRepresented || s.Kind == ExistingNonRepresented
}

// MutexBlocked reports whether a create at this URI must fail because its
// mutex peer already holds the slot.
func (s Status) MutexBlocked() bool {
	return s.Kind == NonExistingMutexExisting
}
