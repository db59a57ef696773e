// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/taskflow/lib/task"
)

// ErrorCategory tells a script or editor integration what to do about
// a failure without parsing its text.
type ErrorCategory string

const (
	// CategoryValidation: bad input or configuration. Fix and retry.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound: the named task does not exist.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryConflict: the request is valid but the task or working
	// tree is in the wrong state for it.
	CategoryConflict ErrorCategory = "conflict"

	// CategoryTransient: git, gh, or the GitHub API failed or timed
	// out. Retrying may help.
	CategoryTransient ErrorCategory = "transient"

	// CategoryInternal: anything else.
	CategoryInternal ErrorCategory = "internal"
)

// ToolError is an error with a category. The message is the wrapped
// error's message; the category travels beside it.
type ToolError struct {
	Category ErrorCategory
	Err      error
}

func (e *ToolError) Error() string { return e.Err.Error() }

func (e *ToolError) Unwrap() error { return e.Err }

// Validation creates a validation error.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryConflict, Err: fmt.Errorf(format, args...)}
}

// Classify wraps err in a ToolError whose category follows the task
// error kinds. Nil, errors that are already categorized, and errors
// that carry their own exit code pass through.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var toolError *ToolError
	if errors.As(err, &toolError) {
		return err
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return err
	}
	return &ToolError{Category: categoryOf(err), Err: err}
}

// CategoryOf returns the category of err, classifying it if needed.
func CategoryOf(err error) ErrorCategory {
	var toolError *ToolError
	if errors.As(err, &toolError) {
		return toolError.Category
	}
	return categoryOf(err)
}

func categoryOf(err error) ErrorCategory {
	switch {
	case errors.Is(err, task.ErrValidation), errors.Is(err, task.ErrConfiguration):
		return CategoryValidation
	case errors.Is(err, task.ErrNotFound):
		return CategoryNotFound
	case errors.Is(err, task.ErrInvalidState):
		return CategoryConflict
	case errors.Is(err, task.ErrTimeout), errors.Is(err, task.ErrGateway):
		return CategoryTransient
	}
	return CategoryInternal
}
