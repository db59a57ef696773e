// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source for testability.
//
// Production code accepts a Clock instead of calling time.Now directly.
// In production, Real() provides the standard library behavior. In
// tests, Fake() provides a clock that moves only when told to:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	engine, _ := lifecycle.New(lifecycle.Config{Clock: fake, ...})
//	fake.Advance(time.Minute)
//
// The task store and the sync reconciler compare timestamps (staleness
// checks, most-recently-focused selection), so tests that exercise
// ordering advance the fake clock between operations.
package clock
