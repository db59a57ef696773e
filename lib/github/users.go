// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"fmt"
)

// GetAuthenticatedUser returns the user the token belongs to. A 401
// response means the token is missing, expired, or revoked.
func (client *Client) GetAuthenticatedUser(ctx context.Context) (*User, error) {
	var user User
	if err := client.get(ctx, "/user", &user); err != nil {
		return nil, fmt.Errorf("getting authenticated user: %w", err)
	}
	return &user, nil
}
