// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bureau-foundation/taskflow/lib/clock"
)

// RateLimitError is returned without contacting GitHub when the last
// response reported zero remaining requests and the window has not yet
// reset.
type RateLimitError struct {
	Reset time.Time
}

func (err *RateLimitError) Error() string {
	return fmt.Sprintf("github: rate limit exhausted until %s", err.Reset.UTC().Format(time.RFC3339))
}

// rateLimitTracker records the X-RateLimit-* headers of each response.
type rateLimitTracker struct {
	mu        sync.Mutex
	remaining int
	reset     time.Time
	known     bool // true after the first response with rate limit headers
	clock     clock.Clock
}

func newRateLimitTracker(clock clock.Clock) *rateLimitTracker {
	return &rateLimitTracker{clock: clock}
}

// update records rate limit state from response headers. Responses
// without both headers leave the state unchanged.
func (tracker *rateLimitTracker) update(header http.Header) {
	remainingStr := header.Get("X-RateLimit-Remaining")
	resetStr := header.Get("X-RateLimit-Reset")
	if remainingStr == "" || resetStr == "" {
		return
	}

	remaining, err := strconv.Atoi(remainingStr)
	if err != nil {
		return
	}
	resetUnix, err := strconv.ParseInt(resetStr, 10, 64)
	if err != nil {
		return
	}

	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	tracker.remaining = remaining
	tracker.reset = time.Unix(resetUnix, 0)
	tracker.known = true
}

// check returns a *RateLimitError when the limit is known to be
// exhausted and the reset time is still in the future.
func (tracker *rateLimitTracker) check() error {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	if !tracker.known || tracker.remaining > 0 {
		return nil
	}
	if !tracker.reset.After(tracker.clock.Now()) {
		return nil
	}
	return &RateLimitError{Reset: tracker.reset}
}
