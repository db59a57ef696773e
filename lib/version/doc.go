// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports the build version of the taskflow binary.
//
// Release builds inject [Version], [GitCommit], [GitDirty], and
// [BuildTime] with -ldflags -X, for example:
//
//	go build -ldflags "-X github.com/bureau-foundation/taskflow/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Builds without the flags fall back to the vcs.revision stamp that
// the Go toolchain records in the binary.
package version
