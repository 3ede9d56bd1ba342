package objectstore

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketData    = []byte("objects")
	bucketMeta    = []byte("metadata")
	bucketBackups = []byte("backups")
)

// EmbeddedBackend stores objects in a single embedded BoltDB file: one
// bucket for content bytes, one for metadata, one for fat-metadata backups.
// Each concern gets its own bucket, one JSON-marshaled record per object.
type EmbeddedBackend struct {
	db *bolt.DB
}

// NewEmbeddedBackend opens (creating if absent) a bbolt file under dataDir.
func NewEmbeddedBackend(dataDir string) (*EmbeddedBackend, error) {
	dbPath := filepath.Join(dataDir, "podcore.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("objectstore: failed to open embedded db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketData, bucketMeta, bucketBackups} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &EmbeddedBackend{db: db}, nil
}

// Close closes the underlying database file.
func (b *EmbeddedBackend) Close() error {
	return b.db.Close()
}

func (b *EmbeddedBackend) Capabilities() Capabilities {
	return Capabilities{
		HasIndependentDirObjects:          true,
		ProvidesObjectValidators:          false,
		SupportsNativeContentTypeMetadata: false,
	}
}

type embeddedMeta struct {
	ContentType  string            `json:"content_type"`
	UserMeta     map[string]string `json:"user_meta"`
	LastModified time.Time         `json:"last_modified"`
	ETag         string            `json:"etag"`
}

func (b *EmbeddedBackend) Get(_ context.Context, id ObjectID) (*Object, error) {
	var obj Object
	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketData).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		metaRaw := tx.Bucket(bucketMeta).Get([]byte(id))
		var em embeddedMeta
		if metaRaw != nil {
			if err := json.Unmarshal(metaRaw, &em); err != nil {
				return err
			}
		}
		obj = Object{
			ID: id,
			Metadata: Metadata{
				ContentType:  em.ContentType,
				UserMeta:     em.UserMeta,
				LastModified: em.LastModified,
				ETag:         em.ETag,
				Size:         int64(len(data)),
			},
			Data: append([]byte(nil), data...),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &obj, nil
}

func (b *EmbeddedBackend) Exists(_ context.Context, id ObjectID) (bool, error) {
	var found bool
	err := b.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(bucketData).Get([]byte(id)) != nil
		return nil
	})
	return found, err
}

func (b *EmbeddedBackend) Put(_ context.Context, id ObjectID, data []byte, meta Metadata) error {
	em := embeddedMeta{
		ContentType:  meta.ContentType,
		UserMeta:     meta.UserMeta,
		LastModified: meta.LastModified,
		ETag:         meta.ETag,
	}
	metaRaw, err := json.Marshal(em)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketData).Put([]byte(id), data); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put([]byte(id), metaRaw)
	})
}

func (b *EmbeddedBackend) Delete(_ context.Context, id ObjectID) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketData).Delete([]byte(id)); err != nil {
			return err
		}
		if err := tx.Bucket(bucketMeta).Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket(bucketBackups).Delete([]byte(id))
	})
}

func (b *EmbeddedBackend) List(_ context.Context, prefix ObjectID) ([]ObjectID, error) {
	var out []ObjectID
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketData).Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && strings.HasPrefix(string(k), string(prefix)); k, _ = c.Next() {
			if string(k) == string(prefix) {
				continue
			}
			out = append(out, ObjectID(k))
		}
		return nil
	})
	return out, err
}

func (b *EmbeddedBackend) Backup(_ context.Context, id ObjectID) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		metaRaw := tx.Bucket(bucketMeta).Get([]byte(id))
		if metaRaw == nil {
			return ErrNotFound
		}
		return tx.Bucket(bucketBackups).Put([]byte(id), append([]byte(nil), metaRaw...))
	})
}

func (b *EmbeddedBackend) RestoreFromBackup(_ context.Context, id ObjectID) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		backupRaw := tx.Bucket(bucketBackups).Get([]byte(id))
		if backupRaw == nil {
			return ErrNotFound
		}
		return tx.Bucket(bucketMeta).Put([]byte(id), append([]byte(nil), backupRaw...))
	})
}
