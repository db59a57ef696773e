// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"errors"
	"fmt"
	"strings"
)

// APIError is a non-2xx response from the GitHub REST API, decoded from
// GitHub's JSON error body when it has one.
type APIError struct {
	// StatusCode is the HTTP response status code.
	StatusCode int

	// Message is the top-level error description from GitHub.
	Message string

	// DocumentationURL points to the relevant API documentation.
	DocumentationURL string

	// Errors contains field-level validation failures. Present only
	// on 422 Unprocessable Entity responses.
	Errors []ValidationError
}

// ValidationError is one field-level failure from a 422 response.
type ValidationError struct {
	Resource string `json:"resource"`
	Code     string `json:"code"`
	Field    string `json:"field"`
	Message  string `json:"message"`
}

func (err *APIError) Error() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "github: HTTP %d: %s", err.StatusCode, err.Message)
	for _, validationError := range err.Errors {
		if validationError.Message != "" {
			fmt.Fprintf(&builder, "; %s.%s: %s", validationError.Resource, validationError.Field, validationError.Message)
		} else {
			fmt.Fprintf(&builder, "; %s.%s: %s", validationError.Resource, validationError.Field, validationError.Code)
		}
	}
	return builder.String()
}

// StatusCode returns the HTTP status of the *APIError in err's chain,
// or 0 when there is none.
func StatusCode(err error) int {
	var apiError *APIError
	if errors.As(err, &apiError) {
		return apiError.StatusCode
	}
	return 0
}

// IsUnauthorized reports a 401: the token is missing, expired or revoked.
func IsUnauthorized(err error) bool { return StatusCode(err) == 401 }

// IsNotFound reports a 404. GitHub also answers 404 for private
// repositories the token cannot see.
func IsNotFound(err error) bool { return StatusCode(err) == 404 }

// IsConflict reports a 409.
func IsConflict(err error) bool { return StatusCode(err) == 409 }

// IsValidationFailed reports a 422, which carries field-level Errors.
func IsValidationFailed(err error) bool { return StatusCode(err) == 422 }
