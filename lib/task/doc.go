// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package task defines the task and note model shared by the lifecycle
// engine, the sync reconciler, and the storage layer.
//
// The package holds no behavior beyond validation and ordering helpers.
// [Repository] is the storage contract; [Filter], [Order], and
// [Changes] are its query and partial-update vocabulary.
//
// Errors returned across package boundaries match one of the kind
// sentinels ([ErrValidation], [ErrNotFound], [ErrInvalidState],
// [ErrGateway], [ErrSync], [ErrConfiguration]) with errors.Is.
// [GatewayError] and [SyncError] carry structured detail and can be
// extracted with errors.As.
package task
