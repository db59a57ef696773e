// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR configuration used for structured
// values stored inside SQLite columns.
//
// The task store keeps scalar fields in typed columns and encodes list
// values (the modified-file list recorded on a task) as CBOR blobs.
// JSON remains the format for CLI output and the issue tracker APIs;
// CBOR is only an on-disk detail.
package codec
