// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by the lifecycle engine and the sync
// reconciler matches exactly one of the first six with errors.Is.
var (
	// ErrValidation: empty or malformed input such as a blank title.
	ErrValidation = errors.New("invalid input")

	// ErrNotFound: a referenced task does not exist, or no task
	// resolves for an implicit selection.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState: the operation is illegal for the task's current
	// status.
	ErrInvalidState = errors.New("invalid state")

	// ErrGateway: a VCS or issue tracker call failed.
	ErrGateway = errors.New("gateway failure")

	// ErrSync: reconciliation with the issue tracker failed.
	ErrSync = errors.New("sync failed")

	// ErrConfiguration: no repository or provider could be resolved.
	ErrConfiguration = errors.New("configuration error")

	// ErrTimeout marks a gateway call that exceeded its time bound. It
	// always travels inside a GatewayError.
	ErrTimeout = errors.New("timed out")

	// ErrAlreadySynced is returned (as an ErrInvalidState) when pushing
	// a task that already has a counterpart without forcing.
	ErrAlreadySynced = errors.New("already synced")
)

// GatewayError describes a failed call into the VCS or issue tracker.
// Output carries the external command's error text (stderr) when there
// was one.
type GatewayError struct {
	// Gateway names the collaborator: "git", "gh", "github".
	Gateway string
	// Operation names the call, for example "create-branch".
	Operation string
	// Output is the raw error text reported by the external command.
	Output string
	Err    error
}

func (e *GatewayError) Error() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "%s %s: %v", e.Gateway, e.Operation, e.Err)
	if e.Output != "" && !strings.Contains(e.Err.Error(), e.Output) {
		fmt.Fprintf(&builder, " (%s)", e.Output)
	}
	return builder.String()
}

func (e *GatewayError) Unwrap() []error {
	return []error{ErrGateway, e.Err}
}

// Timeout reports whether the call was cut off by its time bound.
func (e *GatewayError) Timeout() bool {
	return errors.Is(e.Err, ErrTimeout)
}

// NewGatewayError wraps err from a gateway call. If err already is a
// GatewayError it is returned unchanged. Errors that expose their
// command output (a CommandOutput() string method) or report a timeout
// (a Timeout() bool method returning true) have that information lifted
// into the result.
func NewGatewayError(gateway, operation string, err error) error {
	if err == nil {
		return nil
	}
	var existing *GatewayError
	if errors.As(err, &existing) {
		return err
	}
	result := &GatewayError{Gateway: gateway, Operation: operation, Err: err}
	var outputter interface{ CommandOutput() string }
	if errors.As(err, &outputter) {
		result.Output = outputter.CommandOutput()
	}
	var timeouter interface{ Timeout() bool }
	if errors.As(err, &timeouter) && timeouter.Timeout() && !errors.Is(err, ErrTimeout) {
		result.Err = fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return result
}

// SyncError describes a reconciliation failure for one provider and,
// when known, one task.
type SyncError struct {
	Provider string
	// TaskID is zero when the failure is not tied to a single task.
	TaskID int64
	Err    error
}

func (e *SyncError) Error() string {
	if e.TaskID != 0 {
		return fmt.Sprintf("sync with %s: task #%d: %v", e.Provider, e.TaskID, e.Err)
	}
	return fmt.Sprintf("sync with %s: %v", e.Provider, e.Err)
}

func (e *SyncError) Unwrap() []error {
	return []error{ErrSync, e.Err}
}
