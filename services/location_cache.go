package services

import (
	"sync"
	"time"
)

// Location is a driver's last reported GPS fix.
type Location struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LocationCache holds the latest fix per driver. Entries are ephemeral and
// may disappear at any time.
type LocationCache interface {
	Set(driverID uint, loc Location)
	Get(driverID uint) (Location, bool)
	All() map[uint]Location
}

// TTLLocationCache is an in-memory LocationCache bounded by capacity whose
// entries expire after ttl.
type TTLLocationCache struct {
	mu       sync.RWMutex
	entries  map[uint]Location
	ttl      time.Duration
	capacity int
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewTTLLocationCache(ttl time.Duration, capacity int) *TTLLocationCache {
	if capacity <= 0 {
		capacity = 1000
	}
	return &TTLLocationCache{
		entries:  make(map[uint]Location),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

func (c *TTLLocationCache) Set(driverID uint, loc Location) {
	if loc.UpdatedAt.IsZero() {
		loc.UpdatedAt = c.now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[driverID]; !ok && len(c.entries) >= c.capacity {
		c.pruneLocked()
		if len(c.entries) >= c.capacity {
			c.evictOldestLocked()
		}
	}
	c.entries[driverID] = loc
}

func (c *TTLLocationCache) Get(driverID uint) (Location, bool) {
	c.mu.RLock()
	loc, ok := c.entries[driverID]
	c.mu.RUnlock()
	if !ok || c.expired(loc) {
		return Location{}, false
	}
	return loc, true
}

func (c *TTLLocationCache) All() map[uint]Location {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[uint]Location, len(c.entries))
	for id, loc := range c.entries {
		if !c.expired(loc) {
			out[id] = loc
		}
	}
	return out
}

// Prune drops expired entries and returns how many were removed.
func (c *TTLLocationCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pruneLocked()
}

// StartJanitor prunes the cache every interval until Stop is called.
func (c *TTLLocationCache) StartJanitor(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.Prune()
			case <-c.stopChan:
				return
			}
		}
	}()
}

func (c *TTLLocationCache) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

func (c *TTLLocationCache) expired(loc Location) bool {
	return c.ttl > 0 && c.now().Sub(loc.UpdatedAt) > c.ttl
}

func (c *TTLLocationCache) pruneLocked() int {
	removed := 0
	for id, loc := range c.entries {
		if c.expired(loc) {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

func (c *TTLLocationCache) evictOldestLocked() {
	var (
		oldestID uint
		oldest   time.Time
		found    bool
	)
	for id, loc := range c.entries {
		if !found || loc.UpdatedAt.Before(oldest) {
			oldestID, oldest, found = id, loc.UpdatedAt, true
		}
	}
	if found {
		delete(c.entries, oldestID)
	}
}
