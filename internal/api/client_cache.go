package api

import (
	"container/list"
	"sync"

	"contentstudio/internal/progress"
)

// snapshotCache remembers terminal task snapshots so repeated status
// reads of finished tasks skip the network. Running tasks never enter
// the cache; their state changes between reads. Bounded LRU, safe for
// concurrent use.
type snapshotCache struct {
	capacity int
	mu       sync.Mutex
	order    *list.List               // front = most recently used
	entries  map[string]*list.Element // taskID -> element in order
}

type snapshotEntry struct {
	taskID string
	snap   progress.TaskSnapshot
}

func newSnapshotCache(capacity int) *snapshotCache {
	if capacity < 1 {
		capacity = 1
	}
	return &snapshotCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

// Get returns the cached snapshot for a task, refreshing its recency.
func (c *snapshotCache) Get(taskID string) (progress.TaskSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[taskID]
	if !ok {
		return progress.TaskSnapshot{}, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*snapshotEntry).snap, true
}

// Put stores a snapshot, evicting the least recently used entry once
// the cache is full.
func (c *snapshotCache) Put(taskID string, snap progress.TaskSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[taskID]; ok {
		elem.Value.(*snapshotEntry).snap = snap
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.capacity {
		c.evictOldest()
	}
	c.entries[taskID] = c.order.PushFront(&snapshotEntry{taskID: taskID, snap: snap})
}

// evictOldest drops the back of the recency list. Callers hold mu.
func (c *snapshotCache) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	c.order.Remove(oldest)
	delete(c.entries, oldest.Value.(*snapshotEntry).taskID)
}

// Len reports the number of cached snapshots.
func (c *snapshotCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear drops every cached snapshot.
func (c *snapshotCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.entries = make(map[string]*list.Element)
}
