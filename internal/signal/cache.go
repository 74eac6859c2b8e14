package signal

import (
	"sync"
	"time"
)

// Cache holds the last signal per key (a tier, or tier+symbol) and hands it
// back only while it is still valid.
type Cache struct {
	mu    sync.Mutex
	slots map[string]Signal
	hits  uint64
	miss  uint64
}

func NewCache() *Cache {
	return &Cache{slots: make(map[string]Signal)}
}

// Key 组合层级与 symbol，宏观层通常 symbol 为空。
func Key(level Level, symbol string) string {
	if symbol == "" {
		return level.String()
	}
	return level.String() + ":" + symbol
}

func (c *Cache) Get(key string, now time.Time) (Signal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sig, ok := c.slots[key]
	if !ok || !sig.IsValid(now) {
		c.miss++
		return Signal{}, false
	}
	c.hits++
	return sig, true
}

func (c *Cache) Put(key string, sig Signal) {
	c.mu.Lock()
	c.slots[key] = sig
	c.mu.Unlock()
}

func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.slots, key)
	c.mu.Unlock()
}

// Reset drops every slot, e.g. after an emergency stop is lifted.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.slots = make(map[string]Signal)
	c.mu.Unlock()
}

// GetOrCompute returns the cached signal while valid, otherwise runs fn and
// caches its result. fn runs outside the lock.
func (c *Cache) GetOrCompute(key string, now time.Time, fn func() Signal) (Signal, bool) {
	if sig, ok := c.Get(key, now); ok {
		return sig, true
	}
	sig := fn()
	c.Put(key, sig)
	return sig, false
}

func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.miss
}
