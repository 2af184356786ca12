package store

import (
	"sync"
	"time"

	"github.com/colinsongf/featureflow"
)

// lruNode is one entry in the doubly linked list tracking recency order,
// adapted from linked_list.go (there, nodes held *record; here they hold
// the composed key, since eviction here acts on a Database's keys rather
// than in-process HTTP records).
type lruNode struct {
	next, prev *lruNode
	key        string
}

type linkedList struct {
	front, back *lruNode
}

func (ll *linkedList) Prepend(key string) *lruNode {
	n := &lruNode{key: key}
	if ll.front == nil {
		ll.front = n
		ll.back = n
		return n
	}
	ll.front.prev = n
	n.next = ll.front
	ll.front = n
	return n
}

func (ll *linkedList) Last() *lruNode { return ll.back }

func (ll *linkedList) MoveToFront(n *lruNode) {
	if ll.front == n {
		return
	}
	if n.prev != nil {
		n.prev.next = n.next
		if n == ll.back {
			ll.back = n.prev
		}
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	n.prev = nil
	if ll.front != nil {
		ll.front.prev = n
	}
	n.next = ll.front
	ll.front = n
}

func (ll *linkedList) Remove(n *lruNode) {
	if n == ll.front {
		ll.front = n.next
	}
	if n == ll.back {
		ll.back = n.prev
	}
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
}

// LRUOptions bounds an LRUDatabase, mirroring CacheOptions (MemoryLimit,
// LRULimit) with entry count in place of byte memory, since a
// Database's values are opaque streams whose in-memory size the wrapper
// never materializes.
type LRUOptions struct {
	// MaxEntries evicts the least-recently-touched key once exceeded. Zero
	// means unbounded.
	MaxEntries int

	// MaxAge evicts a key once it has gone unused this long. Zero means
	// unbounded. Enforced eventually, not immediately, by a debounced
	// background goroutine — same tradeoff NewCache documents.
	MaxAge time.Duration
}

type entryMeta struct {
	node     *lruNode
	lastUsed time.Time
}

type evictionReq struct {
	key      string
	deadline time.Time
}

// LRUDatabase wraps a Database with capacity- and age-bounded eviction,
// directly adapted from Cache (cache.go) + eviction.go + linked_list.go:
// the same "prepend/move-to-front, evict up to two oldest entries on every
// touch, plus a debounced background sweep for age-based expiry" design,
// repurposed to evict composed-key blobs instead of cached HTTP records.
type LRUDatabase struct {
	featureflow.Database

	opts LRUOptions

	mu      sync.Mutex
	lruList linkedList
	entries map[string]entryMeta

	evictAfter chan evictionReq
	done       chan struct{}
	wg         sync.WaitGroup
}

// NewLRUDatabase wraps db with the given eviction bounds and, if MaxAge is
// set, starts the background expiry sweep. Call Close to stop it.
func NewLRUDatabase(db featureflow.Database, opts LRUOptions) *LRUDatabase {
	l := &LRUDatabase{
		Database:   db,
		opts:       opts,
		entries:    make(map[string]entryMeta),
		evictAfter: make(chan evictionReq, 1<<10),
		done:       make(chan struct{}),
	}
	if opts.MaxAge > 0 {
		l.wg.Add(1)
		go l.runEvictor()
	}
	return l
}

// Close stops the background expiry goroutine. Safe to call even if MaxAge
// was never set.
func (l *LRUDatabase) Close() error {
	select {
	case <-l.done:
	default:
		close(l.done)
	}
	l.wg.Wait()
	return nil
}

func (l *LRUDatabase) runEvictor() {
	defer l.wg.Done()
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case req := <-l.evictAfter:
			existing, ok := pending[req.key]
			if !ok || req.deadline.After(existing) {
				pending[req.key] = req.deadline
			}
		case <-ticker.C:
			now := time.Now()
			for k, deadline := range pending {
				if deadline.Before(now) {
					delete(pending, k)
					l.evict(k)
				}
			}
		case <-l.done:
			return
		}
	}
}

// touch records key as just-used, moving it to the front of the recency
// list, then opportunistically evicts up to two of the least-recently-used
// entries if over MaxEntries — the same "evict up to the last 2 records"
// compromise cache.go's getRecord makes to keep locking simple while still
// converging eventually.
func (l *LRUDatabase) touch(key string) {
	l.mu.Lock()
	now := time.Now()
	meta, ok := l.entries[key]
	if ok {
		l.lruList.MoveToFront(meta.node)
	} else {
		meta = entryMeta{node: l.lruList.Prepend(key)}
	}
	meta.lastUsed = now
	l.entries[key] = meta

	var toEvict []string
	if l.opts.MaxEntries > 0 {
		for i := 0; i < 2 && len(l.entries) > l.opts.MaxEntries; i++ {
			last := l.lruList.Last()
			if last == nil {
				break
			}
			toEvict = append(toEvict, last.key)
			l.lruList.Remove(last)
			delete(l.entries, last.key)
		}
	}
	l.mu.Unlock()

	for _, k := range toEvict {
		_ = l.Database.Delete(k)
	}

	if l.opts.MaxAge > 0 {
		select {
		case l.evictAfter <- evictionReq{key: key, deadline: now.Add(l.opts.MaxAge)}:
		default:
		}
	}
}

func (l *LRUDatabase) forget(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	meta, ok := l.entries[key]
	if !ok {
		return
	}
	l.lruList.Remove(meta.node)
	delete(l.entries, key)
}

func (l *LRUDatabase) evict(key string) {
	l.forget(key)
	_ = l.Database.Delete(key)
}

func (l *LRUDatabase) WriteStream(key, contentType string) (featureflow.WritableStream, error) {
	w, err := l.Database.WriteStream(key, contentType)
	if err != nil {
		return nil, err
	}
	return &lruWriteStream{WritableStream: w, l: l, key: key}, nil
}

type lruWriteStream struct {
	featureflow.WritableStream
	l   *LRUDatabase
	key string
}

func (w *lruWriteStream) Close() error {
	if err := w.WritableStream.Close(); err != nil {
		return err
	}
	w.l.touch(w.key)
	return nil
}

func (l *LRUDatabase) ReadStream(key string) (featureflow.ReadableStream, error) {
	r, err := l.Database.ReadStream(key)
	if err != nil {
		return nil, err
	}
	l.touch(key)
	return r, nil
}

func (l *LRUDatabase) Delete(key string) error {
	l.forget(key)
	return l.Database.Delete(key)
}
