// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"container/list"
	"sync"
	"time"

	"github.com/bureau-foundation/trackersync/lib/clock"
)

// clientCache is a least-recently-used cache of installation clients
// with a per-entry TTL measured from insertion. It is safe for
// concurrent use.
type clientCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	clock    clock.Clock

	// order holds *cacheEntry values, most recently used at the front.
	order   *list.List
	entries map[int64]*list.Element
}

type cacheEntry struct {
	installationID int64
	client         *Client
	expires        time.Time
}

func newClientCache(capacity int, ttl time.Duration, clk clock.Clock) *clientCache {
	return &clientCache{
		capacity: capacity,
		ttl:      ttl,
		clock:    clk,
		order:    list.New(),
		entries:  make(map[int64]*list.Element),
	}
}

func (cache *clientCache) get(installationID int64) (*Client, bool) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	element, ok := cache.entries[installationID]
	if !ok {
		return nil, false
	}
	entry := element.Value.(*cacheEntry)
	if !cache.clock.Now().Before(entry.expires) {
		cache.order.Remove(element)
		delete(cache.entries, installationID)
		return nil, false
	}
	cache.order.MoveToFront(element)
	return entry.client, true
}

func (cache *clientCache) put(installationID int64, client *Client) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	expires := cache.clock.Now().Add(cache.ttl)
	if element, ok := cache.entries[installationID]; ok {
		entry := element.Value.(*cacheEntry)
		entry.client = client
		entry.expires = expires
		cache.order.MoveToFront(element)
		return
	}

	cache.entries[installationID] = cache.order.PushFront(&cacheEntry{
		installationID: installationID,
		client:         client,
		expires:        expires,
	})
	for cache.order.Len() > cache.capacity {
		oldest := cache.order.Back()
		cache.order.Remove(oldest)
		delete(cache.entries, oldest.Value.(*cacheEntry).installationID)
	}
}

func (cache *clientCache) len() int {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return cache.order.Len()
}
