// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package github provides a typed Go client for the parts of the GitHub
// REST API that task synchronization uses: issues and the authenticated
// user.
//
// The client authenticates with a personal access token. It tracks rate
// limits from X-RateLimit-* headers (failing fast rather than sleeping
// when the limit is exhausted), follows RFC 5988 Link headers for
// pagination, sends conditional requests with cached ETags, and maps
// error responses to *APIError.
//
// All requests are made over HTTPS. The client refuses non-HTTPS base
// URLs.
package github
