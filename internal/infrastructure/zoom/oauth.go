// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package zoom

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/domain"
)

// oauthConfig is the per-user authorization-code flow configuration.
func (c *Client) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		RedirectURL:  c.config.RedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.config.AuthorizeURL,
			TokenURL: c.config.AuthURL,
		},
	}
}

// AuthCodeURL returns the consent URL the register endpoint redirects to.
// state round-trips the caller's realm and session identifier.
func (c *Client) AuthCodeURL(state string) (string, error) {
	if !c.config.IsConfigured() {
		return "", domain.NewNotConfiguredError(msgNotConfigured)
	}
	return c.oauthConfig().AuthCodeURL(state), nil
}

// CompleteAuth exchanges the callback code and persists the user's token.
// A token repository is required; without one the exchanged token would be
// lost, so the flow reports unconfigured before any network call.
func (c *Client) CompleteAuth(ctx context.Context, user domain.User, code string) error {
	if !c.config.IsConfigured() || c.tokenRepo == nil {
		return domain.NewNotConfiguredError(msgNotConfigured)
	}

	tok, err := c.oauthConfig().Exchange(c.httpClientContext(ctx), code)
	if err != nil {
		return domain.NewInvalidCredentialsError(msgInvalidCredentials, err)
	}

	return c.tokenRepo.Put(ctx, user.ID, tok)
}

// Deauthorize discards the user's stored token. Called from the Zoom
// deauthorization webhook.
func (c *Client) Deauthorize(ctx context.Context, userID int64) error {
	if c.tokenRepo == nil {
		return nil
	}
	return c.tokenRepo.Delete(ctx, userID)
}
