// Package dedupe tracks scoring-job ids so a lead is enqueued at most once
// per scoring request, even when clients retry concurrently.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen job ids to ensure at-most-once enqueueing.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an id from the seen list, allowing it to be retried.
	// Used when a job was marked as seen but failed to enqueue.
	Unrecord(ctx context.Context, id string)

	// Forget drops every id with the given prefix. Called when a batch is
	// evicted so its job ids can be reused by a future upload.
	Forget(ctx context.Context, prefix string)

	Size() int64
}

// node is a single entry in the eviction list.
type node struct {
	id   string
	next *node
}

func (n *node) reset() {
	n.id = ""
	n.next = nil
}

// inMemoryDeduper implements Deduper with a map plus a linked list for
// bounded LIFO eviction. With maxSize <= 0 it degrades to a plain map.
type inMemoryDeduper struct {
	mu       sync.RWMutex
	seen     map[string]*node
	head     *node
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryDeduper creates a deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 100_000,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]*node)
	if d.maxSize > 0 {
		d.nodePool = sync.Pool{
			New: func() interface{} {
				return &node{}
			},
		}
	}
	return d
}

// SeenAndRecord atomically checks if id was seen and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}

	if d.maxSize > 0 {
		if len(d.seen) >= d.maxSize {
			d.evictOldest()
		}
		n := d.nodePool.Get().(*node)
		n.id = id
		n.next = d.head
		d.head = n
		d.seen[id] = n
	} else {
		d.seen[id] = nil
	}
	d.size.Add(1)
	return false
}

// Unrecord removes an id from the seen list.
func (d *inMemoryDeduper) Unrecord(ctx context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.remove(id)
}

// Forget drops every recorded id with the given prefix.
func (d *inMemoryDeduper) Forget(ctx context.Context, prefix string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var stale []string
	for id := range d.seen {
		if len(id) >= len(prefix) && id[:len(prefix)] == prefix {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		d.remove(id)
	}
}

// remove deletes an id from the map and the eviction list.
// Must be called with d.mu held.
func (d *inMemoryDeduper) remove(id string) {
	n, exists := d.seen[id]
	if !exists {
		return
	}
	delete(d.seen, id)

	if d.maxSize > 0 && n != nil {
		if d.head == n {
			d.head = n.next
		} else {
			cur := d.head
			for cur != nil && cur.next != n {
				cur = cur.next
			}
			if cur != nil {
				cur.next = n.next
			}
		}
		n.reset()
		d.nodePool.Put(n)
	}
	d.size.Add(-1)
}

// evictOldest removes the tail of the list from the map.
// Must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	if len(d.seen) == 0 || d.head == nil {
		return
	}

	cur := d.head
	if cur.next == nil {
		delete(d.seen, cur.id)
		cur.reset()
		d.nodePool.Put(cur)
		d.head = nil
		d.size.Add(-1)
		return
	}

	var prev *node
	for cur.next != nil {
		prev = cur
		cur = cur.next
	}
	prev.next = nil
	delete(d.seen, cur.id)
	cur.reset()
	d.nodePool.Put(cur)
	d.size.Add(-1)
}

// Size returns the current number of recorded ids.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
