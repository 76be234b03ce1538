// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"fmt"
)

// AuthenticatedUser returns the user the client's token belongs to.
func (client *Client) AuthenticatedUser(ctx context.Context) (*User, error) {
	user, _, err := client.api.Users.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("getting authenticated user: %w", convertError(err))
	}
	return user, nil
}

// GetUser returns the public profile of the user with the given
// numeric ID. Name and email are empty when the user keeps them
// private.
func (client *Client) GetUser(ctx context.Context, userID int64) (*User, error) {
	user, _, err := client.api.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting user %d: %w", userID, convertError(err))
	}
	return user, nil
}
