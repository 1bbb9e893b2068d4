package profiles

import (
	"github.com/dgraph-io/ristretto/v2"
	"zentry/engine/library"
)

// ProfileCache holds decoded profiles in front of the backend. A nil *ProfileCache is valid and
// caches nothing.
type ProfileCache struct {
	cache *ristretto.Cache[string, Profile]
}

// NewProfileCache returns a cache holding at most size profiles, or nil when size is not positive.
func NewProfileCache(size int64) (*ProfileCache, error) {
	if size <= 0 {
		return nil, nil
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, Profile]{
		NumCounters: size * 10,
		MaxCost:     size,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &ProfileCache{cache: cache}, nil
}

func (c *ProfileCache) Get(address library.Account) (Profile, bool) {
	if c == nil {
		return Profile{}, false
	}
	p, ok := c.cache.Get(address)
	if !ok {
		return Profile{}, false
	}
	return p.Copy(), true
}

// Put stores p and waits for the write to land so that a following Get observes it.
func (c *ProfileCache) Put(p Profile) {
	if c == nil {
		return
	}
	c.cache.Set(p.Address, p.Copy(), 1)
	c.cache.Wait()
}

func (c *ProfileCache) Invalidate(address library.Account) {
	if c == nil {
		return
	}
	c.cache.Del(address)
}

func (c *ProfileCache) Close() {
	if c == nil {
		return
	}
	c.cache.Close()
}
