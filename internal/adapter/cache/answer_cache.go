package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"docrag/internal/domain"
)

// AnswerCache remembers generated answers keyed by (collection, question,
// top-k). Entries expire by TTL and by LRU pressure, and every hit is
// checked against the current index generation so stale answers never
// survive a reindex.
type AnswerCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
}

type cacheEntry struct {
	answer    domain.Answer
	timestamp time.Time
	indexGen  uint64
}

func NewAnswerCache(maxSize int, ttl time.Duration) *AnswerCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AnswerCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

func cacheKey(collection, question string, topK int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%d", collection, question, topK)))
	return hex.EncodeToString(hash[:16])
}

// Get returns the cached answer when it is fresh and was produced against
// the given index generation. The whole hit path runs under one write lock
// so a concurrent eviction cannot leave the LRU order out of sync with the
// entry map.
func (c *AnswerCache) Get(collection, question string, topK int, currentGen uint64) (domain.Answer, bool) {
	key := cacheKey(collection, question, topK)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return domain.Answer{}, false
	}

	if time.Since(entry.timestamp) > c.ttl || entry.indexGen != currentGen {
		delete(c.entries, key)
		c.removeFromOrder(key)
		return domain.Answer{}, false
	}

	c.moveToEnd(key)
	return entry.answer, true
}

func (c *AnswerCache) Put(collection, question string, topK int, gen uint64, answer domain.Answer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(collection, question, topK)

	if _, exists := c.entries[key]; exists {
		c.entries[key] = &cacheEntry{answer: answer, timestamp: time.Now(), indexGen: gen}
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = &cacheEntry{answer: answer, timestamp: time.Now(), indexGen: gen}
	c.order = append(c.order, key)
}

// Invalidate drops everything, for explicit flushes such as collection drops.
func (c *AnswerCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
}

func (c *AnswerCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *AnswerCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *AnswerCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *AnswerCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
