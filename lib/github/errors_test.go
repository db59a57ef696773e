// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"fmt"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		expected string
	}{
		{
			name:     "plain message",
			err:      &APIError{StatusCode: 410, Message: "Issues are disabled for this repo"},
			expected: "github: HTTP 410: Issues are disabled for this repo",
		},
		{
			name: "validation message preferred over code",
			err: &APIError{
				StatusCode: 422,
				Message:    "Validation Failed",
				Errors: []ValidationError{
					{Resource: "Label", Field: "name", Code: "invalid", Message: "name is too long"},
				},
			},
			expected: "github: HTTP 422: Validation Failed; Label.name: name is too long",
		},
		{
			name: "code used when message is absent",
			err: &APIError{
				StatusCode: 422,
				Message:    "Validation Failed",
				Errors: []ValidationError{
					{Resource: "Issue", Field: "title", Code: "missing_field"},
					{Resource: "Issue", Field: "body", Code: "too_long"},
				},
			},
			expected: "github: HTTP 422: Validation Failed; Issue.title: missing_field; Issue.body: too_long",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.err.Error(); got != test.expected {
				t.Errorf("got %q, want %q", got, test.expected)
			}
		})
	}
}

func TestClassifiers(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		classify func(error) bool
		expected bool
	}{
		{"401 unauthorized", &APIError{StatusCode: 401, Message: "Bad credentials"}, IsUnauthorized, true},
		{"403 not unauthorized", &APIError{StatusCode: 403, Message: "Forbidden"}, IsUnauthorized, false},
		{"404 not found", &APIError{StatusCode: 404, Message: "Not Found"}, IsNotFound, true},
		{"network error not found", fmt.Errorf("dial tcp: refused"), IsNotFound, false},
		{"422 validation", &APIError{StatusCode: 422, Message: "Validation Failed"}, IsValidationFailed, true},
		{"400 not validation", &APIError{StatusCode: 400, Message: "Bad Request"}, IsValidationFailed, false},
		{"409 conflict", &APIError{StatusCode: 409, Message: "Conflict"}, IsConflict, true},
		{"wrapped 404", fmt.Errorf("getting issue: %w", &APIError{StatusCode: 404}), IsNotFound, true},
		{"409 not validation", &APIError{StatusCode: 409, Message: "Conflict"}, IsValidationFailed, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.classify(test.err); got != test.expected {
				t.Errorf("got %v, want %v", got, test.expected)
			}
		})
	}
}

func TestStatusCode(t *testing.T) {
	if got := StatusCode(fmt.Errorf("wrapped: %w", &APIError{StatusCode: 502})); got != 502 {
		t.Errorf("StatusCode(wrapped 502) = %d, want 502", got)
	}
	if got := StatusCode(fmt.Errorf("dial tcp: refused")); got != 0 {
		t.Errorf("StatusCode(network error) = %d, want 0", got)
	}
}
