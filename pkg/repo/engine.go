package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cuemby/podcore/pkg/log"
	"github.com/cuemby/podcore/pkg/metrics"
	"github.com/cuemby/podcore/pkg/objectstore"
	"github.com/cuemby/podcore/pkg/rdf"
	"github.com/cuemby/podcore/pkg/slot"
)

// ldpContains is the membership predicate a container's regenerated
// representation carries one triple of per child.
const ldpContains = "http://www.w3.org/ns/ldp#contains"

// Engine is the repository engine bound to one pod's storage space: it
// resolves slot URIs to object-store keys and status tokens, and exposes
// the Reader/Creator/Updater/Deleter operators the storage service drives.
type Engine struct {
	RootURI string
	Backend objectstore.Backend

	// locks serializes mutators per resource slot (shared for readers,
	// exclusive for writers, keyed mutex-normally so a slot and its mutex
	// peer contend on one lock).
	locks *NameLocker
}

// NewEngine binds an Engine to rootURI over backend.
func NewEngine(rootURI string, backend objectstore.Backend) *Engine {
	return &Engine{RootURI: rootURI, Backend: backend, locks: NewNameLocker()}
}

func (e *Engine) objectID(uri string) objectstore.ObjectID {
	return objectstore.ObjectID(strings.TrimPrefix(uri, e.RootURI))
}

// ResolveStatus computes the Status of uri.
func (e *Engine) ResolveStatus(ctx context.Context, uri string) (*Status, error) {
	release := e.locks.RLock(uri)
	defer release()
	return e.resolveStatusLocked(ctx, uri)
}

// resolveStatusLocked is ResolveStatus for callers that already hold the
// slot's lock (mutators probe status under their own exclusive lock; taking
// the shared lock again from the same goroutine would self-deadlock).
func (e *Engine) resolveStatusLocked(ctx context.Context, uri string) (*Status, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.RepoOperatorDuration, "resolve_status")

	id := e.objectID(uri)
	obj, err := e.Backend.Get(ctx, id)
	if err == nil {
		proc, _ := slot.Decode(e.RootURI, uri)
		return &Status{
			Kind:         ExistingRepresented,
			URI:          uri,
			Process:      proc,
			ContentType:  obj.Metadata.ContentType,
			ETag:         obj.Metadata.ETag,
			LastModified: obj.Metadata.LastModified,
			Size:         obj.Metadata.Size,
		}, nil
	}
	if !errors.Is(err, objectstore.ErrNotFound) {
		return nil, err
	}

	if slot.KindOfURI(uri) == slot.Container {
		if hasChildren, cerr := e.hasChildren(ctx, id); cerr == nil && hasChildren {
			return &Status{Kind: ExistingNonRepresented, URI: uri}, nil
		}
	}

	if peerURI := slot.MutexResURI(uri); peerURI != "" {
		peerID := e.objectID(peerURI)
		if exists, _ := e.Backend.Exists(ctx, peerID); exists {
			return &Status{Kind: NonExistingMutexExisting, URI: uri}, nil
		}
		if slot.KindOfURI(peerURI) == slot.Container {
			if hasChildren, _ := e.hasChildren(ctx, peerID); hasChildren {
				return &Status{Kind: NonExistingMutexExisting, URI: uri}, nil
			}
		}
	}

	return &Status{Kind: NonExistingMutexNonExisting, URI: uri}, nil
}

func (e *Engine) hasChildren(ctx context.Context, containerID objectstore.ObjectID) (bool, error) {
	children, err := e.immediateChildren(ctx, containerID)
	if err != nil {
		return false, err
	}
	return len(children) > 0, nil
}

// immediateChildren lists only the direct children of containerID, filtering
// out the deeper descendants that the recursive Backend.List also returns.
func (e *Engine) immediateChildren(ctx context.Context, containerID objectstore.ObjectID) ([]objectstore.ObjectID, error) {
	all, err := e.Backend.List(ctx, containerID)
	if err != nil {
		return nil, err
	}
	var out []objectstore.ObjectID
	for _, id := range all {
		if isImmediateChild(containerID, id) {
			out = append(out, id)
		}
	}
	return out, nil
}

func isImmediateChild(parent, child objectstore.ObjectID) bool {
	rest := strings.TrimPrefix(string(child), string(parent))
	if rest == "" || rest == string(child) {
		return false
	}
	trimmed := strings.TrimSuffix(rest, "/")
	return trimmed != "" && !strings.Contains(trimmed, "/")
}

// isAuxChild reports whether child is an auxiliary link hop off parent
// (its final segment carries the aux delimiter token), as opposed to a
// Contains hop.
func isAuxChild(parent, child objectstore.ObjectID) bool {
	rest := strings.TrimPrefix(string(child), string(parent))
	return strings.Contains(rest, slot.AuxDelimToken)
}

// isImmediateAuxChild reports whether child is exactly one Auxiliary hop off
// parent (e.g. parent "notes/x", child "notes/x._aux/acl"), as opposed to a
// Contains hop or a deeper, nested aux-of-aux descendant. Unlike
// isImmediateChild, the aux delimiter is fused onto parent's own last
// segment rather than forming its own path component, so the relative path
// to an immediate aux child always contains a "/" (the one separating the
// delimiter from the rel-type token) — isImmediateChild's single-segment
// rule would wrongly reject it.
func isImmediateAuxChild(parent, child objectstore.ObjectID) bool {
	rest := strings.TrimPrefix(string(child), string(parent))
	prefix := slot.AuxDelimToken + "/"
	if !strings.HasPrefix(rest, prefix) {
		return false
	}
	kind := rest[len(prefix):]
	return kind != "" && !strings.Contains(kind, "/")
}

// ContainerRepLevel selects how much of a container's representation a
// read assembles: user triples are included at RepLevelAll only; regenerated
// containment triples at RepLevelContainment and above; RepLevelMinimal
// yields the bare container.
type ContainerRepLevel int

const (
	RepLevelAll ContainerRepLevel = iota
	RepLevelContainment
	RepLevelMinimal
)

// Read returns a slot's stored bytes and metadata. Callers must first have
// confirmed via ResolveStatus that the slot IsExisting. For a container,
// the returned bytes always carry freshly regenerated ldp:contains triples
// for its current members, merged with any stored user triples — the
// membership listing is never itself persisted.
func (e *Engine) Read(ctx context.Context, uri string) (*objectstore.Object, error) {
	return e.ReadWithPreference(ctx, uri, RepLevelAll)
}

// ReadWithPreference is Read honoring a container representation level; the
// level has no effect on non-containers.
func (e *Engine) ReadWithPreference(ctx context.Context, uri string, level ContainerRepLevel) (*objectstore.Object, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.RepoOperatorDuration, "read")

	release := e.locks.RLock(uri)
	defer release()

	id := e.objectID(uri)
	obj, err := e.Backend.Get(ctx, id)
	if err != nil && !errors.Is(err, objectstore.ErrNotFound) {
		metrics.RepoOperatorErrors.WithLabelValues("read", "not-found").Inc()
		return nil, err
	}

	if slot.KindOfURI(uri) != slot.Container {
		if err != nil {
			metrics.RepoOperatorErrors.WithLabelValues("read", "not-found").Inc()
			return nil, err
		}
		return obj, nil
	}

	return e.readContainer(ctx, uri, id, obj, level)
}

func (e *Engine) readContainer(ctx context.Context, uri string, id objectstore.ObjectID, stored *objectstore.Object, level ContainerRepLevel) (*objectstore.Object, error) {
	codec, _ := rdf.Lookup("text/turtle")

	var graph rdf.Graph
	meta := objectstore.Metadata{ContentType: "text/turtle"}
	if stored != nil {
		meta = stored.Metadata
		if level == RepLevelAll && len(stored.Data) > 0 {
			decoded, err := codec.Decode(stored.Data)
			if err == nil {
				graph = decoded
			}
		}
	}

	if level != RepLevelMinimal {
		children, err := e.immediateChildren(ctx, id)
		if err != nil {
			return nil, err
		}
		subject := rdf.NewIRI(uri)
		for _, child := range children {
			if isAuxChild(id, child) {
				continue
			}
			childURI := uri + strings.TrimPrefix(string(child), string(id))
			graph = append(graph, rdf.Triple{
				Subject:   subject,
				Predicate: rdf.NewIRI(ldpContains),
				Object:    rdf.NewIRI(childURI),
			})
		}
	}

	data, err := codec.Encode(graph)
	if err != nil {
		return nil, err
	}
	meta.ContentType = "text/turtle"
	meta.Size = int64(len(data))
	return &objectstore.Object{ID: id, Metadata: meta, Data: data}, nil
}

// Create stores a new representation at uri. It refuses to proceed when the
// slot's mutex peer already exists.
func (e *Engine) Create(ctx context.Context, uri string, data []byte, contentType string) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.RepoOperatorDuration, "create")

	// Parent before target, so two creates under one container always
	// acquire in the same order.
	if parent := slot.ParentURI(e.RootURI, uri); parent != "" {
		releaseParent := e.locks.Lock(parent)
		defer releaseParent()
	}
	release := e.locks.Lock(uri)
	defer release()

	status, err := e.resolveStatusLocked(ctx, uri)
	if err != nil {
		return err
	}
	if status.MutexBlocked() {
		metrics.RepoOperatorErrors.WithLabelValues("create", "mutex-conflict").Inc()
		return ErrMutexConflict
	}

	id := e.objectID(uri)
	if err := e.Backend.Put(ctx, id, data, objectstore.Metadata{
		ContentType:  contentType,
		LastModified: time.Now(),
	}); err != nil {
		return err
	}
	if backer, ok := e.Backend.(objectstore.BackupCapable); ok {
		_ = backer.Backup(ctx, id)
	}
	logger := log.WithResourceURI(uri)
	logger.Debug().Msg("created resource")
	return nil
}

// Update overwrites an existing representation at uri (PUT semantics on an
// already-existing slot).
func (e *Engine) Update(ctx context.Context, uri string, data []byte, contentType string) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.RepoOperatorDuration, "update")

	release := e.locks.Lock(uri)
	defer release()

	id := e.objectID(uri)
	if err := e.Backend.Put(ctx, id, data, objectstore.Metadata{
		ContentType:  contentType,
		LastModified: time.Now(),
	}); err != nil {
		metrics.RepoOperatorErrors.WithLabelValues("update", "store-error").Inc()
		return err
	}
	if backer, ok := e.Backend.(objectstore.BackupCapable); ok {
		_ = backer.Backup(ctx, id)
	}
	return nil
}

// Delete removes the representation at uri and its entire auxiliary
// sub-tree. It refuses to delete the storage root
// (ErrDeleteTargetsStorageRoot) or a container that still has contained
// (non-auxiliary) members (ErrDeleteTargetsNonEmptyContainer).
func (e *Engine) Delete(ctx context.Context, uri string) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.RepoOperatorDuration, "delete")

	if uri == e.RootURI {
		metrics.RepoOperatorErrors.WithLabelValues("delete", "storage-root").Inc()
		return ErrDeleteTargetsStorageRoot
	}

	release := e.locks.Lock(uri)
	defer release()

	id := e.objectID(uri)
	if slot.KindOfURI(uri) == slot.Container {
		children, err := e.immediateChildren(ctx, id)
		if err != nil {
			return err
		}
		for _, child := range children {
			if !isAuxChild(id, child) {
				metrics.RepoOperatorErrors.WithLabelValues("delete", "non-empty-container").Inc()
				return ErrDeleteTargetsNonEmptyContainer
			}
		}
	}

	if err := e.deleteAuxSubtree(ctx, id); err != nil {
		return err
	}

	if err := e.Backend.Delete(ctx, id); err != nil {
		metrics.RepoOperatorErrors.WithLabelValues("delete", "store-error").Inc()
		return err
	}
	logger := log.WithResourceURI(uri)
	logger.Debug().Msg("deleted resource")
	return nil
}

// deleteAuxSubtree recursively removes every auxiliary descendant of id.
// It lists directly against the backend rather than through
// immediateChildren, since the fused aux-delimiter encoding (the delimiter
// is appended straight onto the subject's own last segment, e.g.
// "notes/x._aux/acl") puts every
// aux child's relative path below id's own children level — immediateChildren's
// single-path-segment rule (correct for Contains hops) would exclude them.
func (e *Engine) deleteAuxSubtree(ctx context.Context, id objectstore.ObjectID) error {
	all, err := e.Backend.List(ctx, id)
	if err != nil {
		return err
	}
	for _, child := range all {
		if !isImmediateAuxChild(id, child) {
			continue
		}
		if err := e.deleteAuxSubtree(ctx, child); err != nil {
			return err
		}
		if err := e.Backend.Delete(ctx, child); err != nil {
			return err
		}
	}
	return nil
}
