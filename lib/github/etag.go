// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import "sync"

type etagEntry struct {
	etag string
	body []byte
}

// etagCache maps URLs to the last ETag and body seen for them. GET
// requests send If-None-Match; a 304 reply is answered from the cache
// and does not count against the rate limit.
//
// Entries are never evicted. A CLI invocation issues a handful of
// distinct GETs, so the cache stays small.
type etagCache struct {
	mu      sync.Mutex
	entries map[string]etagEntry
}

func newETagCache() *etagCache {
	return &etagCache{entries: make(map[string]etagEntry)}
}

func (cache *etagCache) get(url string) string {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return cache.entries[url].etag
}

func (cache *etagCache) body(url string) []byte {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return cache.entries[url].body
}

func (cache *etagCache) put(url string, etag string, body []byte) {
	if etag == "" {
		return
	}
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.entries[url] = etagEntry{etag: etag, body: body}
}
