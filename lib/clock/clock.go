// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the current time for testability. Production code
// injects Real(); tests inject Fake() so timestamps written to the task
// store are deterministic.
//
// Every function that records "now" (created_at, focused_at,
// last_synced_at, completion times) should read it from a Clock field
// rather than calling time.Now directly.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}
