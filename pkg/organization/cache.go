package organization

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL bounds how long a lookup may be served from cache when no
// invalidation arrives.
const DefaultCacheTTL = 30 * time.Second

// Cache is a lookup cache keyed by slug, id and domain.
type Cache interface {
	Get(key string) (*Organization, bool)
	Set(key string, org *Organization, ttl time.Duration)
	Delete(key string)
	Close()
}

// RistrettoCache is the default in-process Cache.
type RistrettoCache struct {
	c *ristretto.Cache[string, *Organization]
}

// NewRistrettoCache creates a cache holding roughly maxItems organizations.
func NewRistrettoCache(maxItems int64) (*RistrettoCache, error) {
	if maxItems <= 0 {
		maxItems = 10_000
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, *Organization]{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &RistrettoCache{c: c}, nil
}

func (r *RistrettoCache) Get(key string) (*Organization, bool) {
	return r.c.Get(key)
}

func (r *RistrettoCache) Set(key string, org *Organization, ttl time.Duration) {
	r.c.SetWithTTL(key, org, 1, ttl)
	r.c.Wait()
}

func (r *RistrettoCache) Delete(key string) {
	r.c.Del(key)
}

func (r *RistrettoCache) Close() {
	r.c.Close()
}

// Publisher broadcasts invalidations to other processes sharing the registry.
type Publisher interface {
	PublishInvalidation(ctx context.Context, id uuid.UUID) error
}

// CachedStore wraps a Store with a lookup cache. Concurrent misses for the
// same key are coalesced into one backend query.
type CachedStore struct {
	Store

	cache     Cache
	ttl       time.Duration
	group     singleflight.Group
	publisher Publisher

	// generation is bumped on every invalidation; loads that started before
	// an invalidation don't write their (possibly stale) result back.
	generation atomic.Uint64

	// mu serializes cache writes with invalidation; keys maps an
	// organization id to every key its record was cached under.
	mu   sync.Mutex
	keys map[uuid.UUID]map[string]struct{}
}

// CacheOption configures CachedStore.
type CacheOption func(*CachedStore)

// WithCacheTTL overrides DefaultCacheTTL.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *CachedStore) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithPublisher broadcasts deactivations to peers.
func WithPublisher(p Publisher) CacheOption {
	return func(c *CachedStore) { c.publisher = p }
}

// NewCachedStore wraps next with cache.
func NewCachedStore(next Store, cache Cache, opts ...CacheOption) *CachedStore {
	c := &CachedStore{
		Store: next,
		cache: cache,
		ttl:   DefaultCacheTTL,
		keys:  make(map[uuid.UUID]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func slugKey(slug string) string   { return "slug:" + NormalizeSlug(slug) }
func idKey(id uuid.UUID) string    { return "id:" + id.String() }
func domainKey(host string) string { return "domain:" + strings.ToLower(host) }

func (c *CachedStore) FindBySlug(ctx context.Context, slug string) (*Organization, error) {
	return c.lookup(slugKey(slug), func() (*Organization, error) {
		return c.Store.FindBySlug(ctx, slug)
	})
}

func (c *CachedStore) FindByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return c.lookup(idKey(id), func() (*Organization, error) {
		return c.Store.FindByID(ctx, id)
	})
}

func (c *CachedStore) FindByDomain(ctx context.Context, host string) (*Organization, error) {
	return c.lookup(domainKey(host), func() (*Organization, error) {
		return c.Store.FindByDomain(ctx, host)
	})
}

func (c *CachedStore) lookup(key string, load func() (*Organization, error)) (*Organization, error) {
	if org, ok := c.cache.Get(key); ok {
		return org.Clone(), nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		gen := c.generation.Load()
		org, err := load()
		if err != nil {
			return nil, err
		}
		c.store(gen, key, org)
		return org, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Organization).Clone(), nil
}

// Deactivate suspends the organization and drops it from every cache.
func (c *CachedStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := c.Store.Deactivate(ctx, id); err != nil {
		return err
	}
	c.Forget(ctx, id)

	if c.publisher != nil {
		if err := c.publisher.PublishInvalidation(ctx, id); err != nil {
			return errors.Join(ErrInvalidationFailed, err)
		}
	}
	return nil
}

// Forget drops every local cache entry of id without notifying peers or
// reading the store. It is also the handler for invalidations received from
// other processes.
func (c *CachedStore) Forget(_ context.Context, id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation.Add(1)
	c.cache.Delete(idKey(id))
	for key := range c.keys[id] {
		c.cache.Delete(key)
	}
	delete(c.keys, id)
}

func (c *CachedStore) store(gen uint64, key string, org *Organization) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation.Load() != gen {
		return
	}
	c.cache.Set(key, org.Clone(), c.ttl)
	set, ok := c.keys[org.ID]
	if !ok {
		set = make(map[string]struct{}, 3)
		c.keys[org.ID] = set
	}
	set[key] = struct{}{}
}
