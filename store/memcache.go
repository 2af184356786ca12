package store

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/colinsongf/featureflow"
)

// MemcacheDatabase stores composed keys as memcache items, grounded on the
// memcachedWholePage benchmark (benchmarks/memcahced_test.go) get-or-generate
// pattern, generalized into a full Database.
type MemcacheDatabase struct {
	Client *memcache.Client
}

// NewMemcacheDatabase wraps an already-configured memcache.Client.
func NewMemcacheDatabase(client *memcache.Client) *MemcacheDatabase {
	return &MemcacheDatabase{Client: client}
}

type memcacheWriteStream struct {
	db  *MemcacheDatabase
	key string
	buf bytes.Buffer
}

func (w *memcacheWriteStream) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *memcacheWriteStream) Close() error {
	return w.db.Client.Set(&memcache.Item{Key: w.key, Value: w.buf.Bytes()})
}

func (db *MemcacheDatabase) WriteStream(key, _ string) (featureflow.WritableStream, error) {
	return &memcacheWriteStream{db: db, key: key}, nil
}

func (db *MemcacheDatabase) ReadStream(key string) (featureflow.ReadableStream, error) {
	item, err := db.Client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, fmt.Errorf("%w: %q", featureflow.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("store: reading %q from memcache: %w", key, err)
	}
	return byteReadCloser{bytes.NewReader(item.Value)}, nil
}

func (db *MemcacheDatabase) Size(key string) (int64, error) {
	item, err := db.Client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return 0, fmt.Errorf("%w: %q", featureflow.ErrNotFound, key)
	}
	if err != nil {
		return 0, err
	}
	return int64(len(item.Value)), nil
}

func (db *MemcacheDatabase) Exists(key string) bool {
	_, err := db.Client.Get(key)
	return err == nil
}

func (db *MemcacheDatabase) Delete(key string) error {
	err := db.Client.Delete(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return fmt.Errorf("%w: %q", featureflow.ErrNotFound, key)
	}
	return err
}

// IterIds is not supported: memcache exposes no key-enumeration protocol.
// Callers that need ModelSpec.Iterate against a memcache-backed store should
// maintain a side index, the same limitation as RedisDatabase.
func (db *MemcacheDatabase) IterIds(featureflow.KeyBuilder) ([]featureflow.DocId, error) {
	return nil, errors.New("store: MemcacheDatabase does not support IterIds; maintain a side index")
}
