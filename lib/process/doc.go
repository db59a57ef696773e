// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the entrypoint helpers used by main(): turning
// the error returned from run() into a message on stderr and an exit
// status.
package process
