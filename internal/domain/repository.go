// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
)

// ErrTokenNotFound is returned by a TokenRepository when no token is stored
// for the given user.
var ErrTokenNotFound = errors.New("oauth token not found")

// TokenRepository persists per-user OAuth tokens obtained through the
// authorization-code flow.
type TokenRepository interface {
	Get(ctx context.Context, userID int64) (*oauth2.Token, error)
	Put(ctx context.Context, userID int64, token *oauth2.Token) error
	Delete(ctx context.Context, userID int64) error
}
