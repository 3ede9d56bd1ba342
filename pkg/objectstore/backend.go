// Package objectstore abstracts the byte-and-metadata storage underneath the
// repository engine. A Backend stores opaque objects addressed by
// ObjectID; everything about slots, containment, and representation formats
// lives above this package in pkg/repo.
package objectstore

import (
	"context"
	"errors"
	"time"
)

// ObjectID is an opaque backend-local object key, distinct from a resource
// URI. The repo layer derives ObjectIDs from slot paths.
type ObjectID string

// Capabilities describes what a Backend can do natively. Nothing outside this
// package reads it.
type Capabilities struct {
	// HasIndependentDirObjects is true if the backend can store a zero-byte
	// marker object for a container path independent of its children
	// (filesystem, embedded); false for flat object stores (S3) where a
	// "directory" has no existence of its own.
	HasIndependentDirObjects bool

	// ProvidesObjectValidators is true if the backend computes strong
	// validators (ETag-equivalent) itself; when it is false, the repo layer
	// does not compute or store one.
	ProvidesObjectValidators bool

	// SupportsNativeContentTypeMetadata is true if the backend has a
	// first-class content-type field (S3); if false, the backend keeps the
	// content type in its own metadata record (embedded, filesystem sidecar).
	SupportsNativeContentTypeMetadata bool
}

// Metadata is the metadata envelope carried alongside an object's bytes.
type Metadata struct {
	ContentType  string
	UserMeta     map[string]string
	LastModified time.Time
	ETag         string
	Size         int64
}

// Object is one stored object: its metadata and its content.
type Object struct {
	ID       ObjectID
	Metadata Metadata
	Data     []byte
}

var (
	// ErrNotFound is returned when an ObjectID has no stored object.
	ErrNotFound = errors.New("objectstore: object not found")
	// ErrAlreadyExists is returned by backends that support a create-only
	// write mode and find an existing object at the target ID.
	ErrAlreadyExists = errors.New("objectstore: object already exists")
)

// Backend is the storage interface every object-store implementation
// satisfies. Every method takes a context so that backends fronted by a
// network call (S3) can honor cancellation and deadlines.
type Backend interface {
	Capabilities() Capabilities

	Get(ctx context.Context, id ObjectID) (*Object, error)
	Exists(ctx context.Context, id ObjectID) (bool, error)
	Put(ctx context.Context, id ObjectID, data []byte, meta Metadata) error
	Delete(ctx context.Context, id ObjectID) error

	// List returns every stored ObjectID that starts with prefix, at any
	// depth, excluding prefix itself. It is recursive: a repo layer that
	// needs only a container's direct children filters the result.
	List(ctx context.Context, prefix ObjectID) ([]ObjectID, error)
}

// BackupCapable is implemented by backends that support the fat-metadata
// self-backup protocol: durably persisting a redundant copy of an object's
// metadata so a crash between a data write and its metadata write can be
// recovered from. MemoryBackend implements it too, keeping its backups in
// process memory.
type BackupCapable interface {
	Backend

	// Backup writes (or refreshes) the sidecar backup object for id.
	Backup(ctx context.Context, id ObjectID) error

	// RestoreFromBackup recovers id's metadata from its sidecar backup,
	// returning ErrNotFound if no backup exists.
	RestoreFromBackup(ctx context.Context, id ObjectID) error
}

// BackupID returns id with a ".bak" suffix. No backend in this package stores
// its backup under this ID (FSBackend writes a ".meta.bak" file,
// EmbeddedBackend a backups bucket, MemoryBackend a separate map), and no
// check rejects an ObjectID that already ends in ".bak".
func BackupID(id ObjectID) ObjectID {
	return id + ".bak"
}
