package godix

import (
	"sync"
)

// instanceCache holds the instances of one lifetime boundary: the provider
// for singletons, a scope for scoped services. Entries are keyed by
// descriptor, so two registrations of the same service type never share an
// instance.
type instanceCache struct {
	mu      sync.Mutex
	entries map[*Descriptor]*cacheEntry
}

// cacheEntry serializes creation of one instance.
type cacheEntry struct {
	mu      sync.Mutex
	value   any
	created bool
}

func newInstanceCache() *instanceCache {
	return &instanceCache{
		entries: make(map[*Descriptor]*cacheEntry),
	}
}

// getOrCreate returns the cached instance for d, calling create at most once
// per successful creation. Failed creations are not cached.
func (c *instanceCache) getOrCreate(d *Descriptor, create func() (any, error)) (any, error) {
	c.mu.Lock()
	entry, ok := c.entries[d]
	if !ok {
		entry = &cacheEntry{}
		c.entries[d] = entry
	}
	c.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.created {
		return entry.value, nil
	}

	value, err := create()
	if err != nil {
		return nil, err
	}

	entry.value = value
	entry.created = true
	return value, nil
}

// clear removes all instances from the cache
func (c *instanceCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[*Descriptor]*cacheEntry)
}
