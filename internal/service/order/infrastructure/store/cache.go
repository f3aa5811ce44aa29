package store

import (
	"sync"
	"time"

	"orderflow/internal/service/order/domain"
)

type cacheEntry struct {
	order    *domain.Order
	storedAt time.Time
	seq      uint64
}

// orderCache 有界的进程内缓存。条目存在时间 >= ttl 即视为过期，读取前先淘汰。
// 满时先清理过期条目，仍然满则淘汰最早写入的条目，保证容量上限不被突破。
type orderCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	// seq 每次写入递增，用来找出某个时间点之后被修改过的条目
	seq uint64
}

func newOrderCache(ttl time.Duration, maxSize int, now func() time.Time) *orderCache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &orderCache{
		entries: make(map[string]cacheEntry, maxSize),
		ttl:     ttl,
		maxSize: maxSize,
		now:     now,
	}
}

func (c *orderCache) put(order *domain.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(order, c.now())
}

func (c *orderCache) putLocked(order *domain.Order, now time.Time) {
	if _, exists := c.entries[order.ID]; !exists && len(c.entries) >= c.maxSize {
		c.sweepLocked(now)
		if len(c.entries) >= c.maxSize {
			c.evictOldestLocked()
		}
	}
	c.seq++
	c.entries[order.ID] = cacheEntry{order: order.Clone(), storedAt: now, seq: c.seq}
	cacheEntries.Set(float64(len(c.entries)))
}

// refresh 用主存储读到的快照刷新缓存，返回较新的那一份。
// 缓存中未过期且 UpdatedAt 更晚的条目不会被旧快照覆盖。
func (c *orderCache) refresh(order *domain.Order) *domain.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if e, ok := c.entries[order.ID]; ok && !c.expired(e, now) && e.order.UpdatedAt.After(order.UpdatedAt) {
		return e.order.Clone()
	}
	c.putLocked(order, now)
	return order
}

func (c *orderCache) get(id string) (*domain.Order, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	if c.expired(e, c.now()) {
		delete(c.entries, id)
		cacheEntries.Set(float64(len(c.entries)))
		return nil, false
	}
	return e.order.Clone(), true
}

// live 返回所有未过期条目的快照，用于重新同步。
func (c *orderCache) live() []*domain.Order {
	out, _ := c.changedSince(0)
	return out
}

// changedSince 返回 seq 之后写入且未过期的条目，以及当前的 seq。
func (c *orderCache) changedSince(seq uint64) ([]*domain.Order, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	out := make([]*domain.Order, 0, len(c.entries))
	for _, e := range c.entries {
		if e.seq > seq && !c.expired(e, now) {
			out = append(out, e.order.Clone())
		}
	}
	return out, c.seq
}

func (c *orderCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *orderCache) expired(e cacheEntry, now time.Time) bool {
	return now.Sub(e.storedAt) >= c.ttl
}

func (c *orderCache) sweepLocked(now time.Time) {
	for id, e := range c.entries {
		if c.expired(e, now) {
			delete(c.entries, id)
		}
	}
}

func (c *orderCache) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, e := range c.entries {
		if oldestID == "" || e.storedAt.Before(oldest) {
			oldestID, oldest = id, e.storedAt
		}
	}
	if oldestID != "" {
		delete(c.entries, oldestID)
		evictionsTotal.Inc()
	}
}
