// Copyright (c) clearwater-iot contributors.
// Licensed under the MIT License.

// Package cache provides the command executor's idempotency cache: the same
// correlation data replays the same result for as long as the cache entry's
// TTL holds, and concurrent duplicate requests single-flight onto the same
// in-flight execution rather than invoking the handler twice.
package cache

import (
	"sync"
	"time"

	"github.com/clearwater-iot/mqttrpc/internal/container"
	"github.com/clearwater-iot/mqttrpc/internal/mqtt"
)

type (
	entry struct {
		start    time.Time // Time the entry was first requested.
		reqTTL   time.Time // Time the original request expires.
		cacheTTL time.Time // Time the cache entry itself expires.
		cb       func() (*mqtt.Message, error)
	}

	// key identifies a request for caching purposes: correlation data is the
	// primary key, but topic is included so cache entries never straddle
	// independently-authorized topics.
	key struct {
		correlationData string
		topic           string
	}

	// Cache is a command executor's idempotency cache, keyed on correlation
	// data and replaying the same result to duplicate requests within a
	// configured TTL after the original completes.
	Cache struct {
		mu    sync.Mutex
		ttl   time.Duration
		store container.PriorityMap[key, *entry, int64]
	}
)

// New creates an idempotency cache that replays results for ttl after
// successful completion (in addition to within the original request's
// message-expiry window).
func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:   ttl,
		store: container.NewPriorityMap[key, *entry, int64](),
	}
}

// Exec returns the cached response for req, executing cb to produce it if
// this is the first time req's correlation data has been seen. A nil message
// with a nil error means the request should be dropped silently (e.g. it
// duplicates an already-expired request).
func (c *Cache) Exec(
	req *mqtt.Message,
	cb func() (*mqtt.Message, error),
) (*mqtt.Message, error) {
	e := c.entryFor(req, cb)
	if e == nil {
		return nil, nil
	}
	return e.cb()
}

func (c *Cache) entryFor(
	req *mqtt.Message,
	cb func() (*mqtt.Message, error),
) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := key{string(req.CorrelationData), req.Topic}
	now := time.Now().UTC()

	if e, ok := c.store.Get(id); ok {
		if now.After(e.cacheTTL) {
			return nil
		}
		return e
	}

	e := &entry{
		start:  now,
		reqTTL: now.Add(time.Duration(req.MessageExpiry) * time.Second),
	}
	e.cacheTTL = e.reqTTL
	c.store.Set(id, e, e.cacheTTL.UnixNano())

	e.cb = sync.OnceValues(func() (*mqtt.Message, error) {
		res, err := cb()
		c.onComplete(id, e, res, err)
		return res, err
	})

	return e
}

// onComplete extends the entry's TTL past the request's own expiry, if a
// replay TTL is configured and the result is cacheable (errors aren't
// replayed, since invoking the handler again costs little and a stale error
// may no longer apply).
func (c *Cache) onComplete(id key, e *entry, res *mqtt.Message, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()

	if err != nil {
		// A failed build is not kept, so a later duplicate runs it again.
		if cur, ok := c.store.Get(id); ok && cur == e {
			c.store.Delete(id)
		}
		return
	}

	if c.ttl <= 0 || res == nil {
		if now.After(e.cacheTTL) {
			c.store.Delete(id)
		}
		return
	}

	if extended := now.Add(c.ttl); extended.After(e.cacheTTL) {
		e.cacheTTL = extended
		c.store.Set(id, e, e.cacheTTL.UnixNano())
	}

	c.evictExpired(now)
}

// evictExpired removes entries whose cache TTL has elapsed; called after
// every completion so the store doesn't grow without bound.
func (c *Cache) evictExpired(now time.Time) {
	for {
		id, e, ok := c.store.Next()
		if !ok || now.Before(e.cacheTTL) {
			return
		}
		c.store.Delete(id)
	}
}
