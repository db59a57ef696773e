// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework behind the taskflow
// binary.
//
// A [Command] tree dispatches on the first positional word. Leaf
// commands declare a params struct whose tagged fields become pflag
// flags ([BindFlags]); embedding [JSONOutput] adds --json. Errors
// returned from Run are passed through [Classify] so every failure
// leaving the tree carries an [ErrorCategory] derived from the task
// error kinds.
package cli
