package objectstore

import (
	"context"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFSRoot is the base directory for the filesystem backend.
const DefaultFSRoot = "/var/lib/podcore/objects"

// FSBackend stores each object as a plain file under a root directory, with
// a ".meta" sidecar JSON file carrying content type and user metadata (the
// filesystem has no native metadata slot of its own).
type FSBackend struct {
	root string
}

// NewFSBackend creates (if needed) root and returns a backend rooted there.
func NewFSBackend(root string) (*FSBackend, error) {
	if root == "" {
		root = DefaultFSRoot
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, err
	}
	return &FSBackend{root: root}, nil
}

func (b *FSBackend) Capabilities() Capabilities {
	return Capabilities{
		HasIndependentDirObjects:          true,
		ProvidesObjectValidators:          false,
		SupportsNativeContentTypeMetadata: false,
	}
}

type fsMeta struct {
	ContentType  string            `json:"content_type"`
	UserMeta     map[string]string `json:"user_meta"`
	LastModified string            `json:"last_modified"`
	ETag         string            `json:"etag"`
}

func (b *FSBackend) dataPath(id ObjectID) string {
	return filepath.Join(b.root, sanitizeObjectID(id)+".dat")
}

func (b *FSBackend) metaPath(id ObjectID) string {
	return filepath.Join(b.root, sanitizeObjectID(id)+".meta")
}

func (b *FSBackend) backupPath(id ObjectID) string {
	return filepath.Join(b.root, sanitizeObjectID(id)+".meta.bak")
}

// sanitizeObjectID maps an ObjectID (which may contain "/") onto a flat,
// filesystem-safe filename stem by percent-escaping separators, while keeping
// nested prefixes distinguishable for List.
func sanitizeObjectID(id ObjectID) string {
	return url.PathEscape(string(id))
}

func (b *FSBackend) Get(_ context.Context, id ObjectID) (*Object, error) {
	data, err := os.ReadFile(b.dataPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	meta, err := b.readMeta(b.metaPath(id))
	if err != nil {
		return nil, err
	}
	meta.Size = int64(len(data))
	return &Object{ID: id, Metadata: meta, Data: data}, nil
}

func (b *FSBackend) Exists(_ context.Context, id ObjectID) (bool, error) {
	_, err := os.Stat(b.dataPath(id))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (b *FSBackend) Put(_ context.Context, id ObjectID, data []byte, meta Metadata) error {
	if err := os.WriteFile(b.dataPath(id), data, 0644); err != nil {
		return err
	}
	return b.writeMeta(b.metaPath(id), meta)
}

func (b *FSBackend) Delete(_ context.Context, id ObjectID) error {
	if err := os.Remove(b.dataPath(id)); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Remove(b.metaPath(id)); err != nil && !os.IsNotExist(err) {
		return err
	}
	_ = os.Remove(b.backupPath(id))
	return nil
}

func (b *FSBackend) List(_ context.Context, prefix ObjectID) ([]ObjectID, error) {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		return nil, err
	}
	stemPrefix := sanitizeObjectID(prefix)
	var out []ObjectID
	seen := make(map[string]bool)
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".dat") {
			continue
		}
		stem := strings.TrimSuffix(name, ".dat")
		if !strings.HasPrefix(stem, stemPrefix) || stem == stemPrefix {
			continue
		}
		if !seen[stem] {
			seen[stem] = true
			id, err := url.PathUnescape(stem)
			if err != nil {
				continue
			}
			out = append(out, ObjectID(id))
		}
	}
	return out, nil
}

func (b *FSBackend) Backup(_ context.Context, id ObjectID) error {
	meta, err := b.readMeta(b.metaPath(id))
	if err != nil {
		return err
	}
	return b.writeMeta(b.backupPath(id), meta)
}

func (b *FSBackend) RestoreFromBackup(_ context.Context, id ObjectID) error {
	meta, err := b.readMeta(b.backupPath(id))
	if err != nil {
		return err
	}
	return b.writeMeta(b.metaPath(id), meta)
}

func (b *FSBackend) readMeta(path string) (Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Metadata{}, ErrNotFound
		}
		return Metadata{}, err
	}
	var fm fsMeta
	if err := json.Unmarshal(raw, &fm); err != nil {
		return Metadata{}, err
	}
	m := Metadata{ContentType: fm.ContentType, UserMeta: fm.UserMeta, ETag: fm.ETag}
	if fm.LastModified != "" {
		_ = m.LastModified.UnmarshalText([]byte(fm.LastModified))
	}
	return m, nil
}

func (b *FSBackend) writeMeta(path string, meta Metadata) error {
	fm := fsMeta{
		ContentType: meta.ContentType,
		UserMeta:    meta.UserMeta,
		ETag:        meta.ETag,
	}
	if !meta.LastModified.IsZero() {
		text, err := meta.LastModified.MarshalText()
		if err != nil {
			return err
		}
		fm.LastModified = string(text)
	}
	raw, err := json.Marshal(fm)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0644)
}
