// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package service orchestrates call creation across the configured
// providers.
package service

import (
	"context"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/infrastructure/bigbluebutton"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/infrastructure/zoom"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/logging"
)

// CallService dispatches call-creation requests to providers and owns the
// provider-specific flows that fall outside plain creation (Zoom user
// OAuth, BigBlueButton join).
type CallService struct {
	registry domain.ProviderRegistry
	zoom     *zoom.Client
	bbb      *bigbluebutton.Client
}

// NewCallService creates the call service over a populated registry.
func NewCallService(registry domain.ProviderRegistry, zoomClient *zoom.Client, bbbClient *bigbluebutton.Client) *CallService {
	return &CallService{
		registry: registry,
		zoom:     zoomClient,
		bbb:      bbbClient,
	}
}

// CreateCall mints a call URL with the named provider.
func (s *CallService) CreateCall(ctx context.Context, provider string, user domain.User, opts domain.CreateCallOptions) (string, error) {
	p, err := s.registry.GetProvider(provider)
	if err != nil {
		return "", err
	}

	url, err := p.CreateCall(ctx, user, opts)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create call",
			"provider", provider,
			"user_id", user.ID,
			logging.ErrKey, err,
		)
		return "", err
	}

	slog.InfoContext(ctx, "created call",
		"provider", provider,
		"user_id", user.ID,
	)
	return url, nil
}

// ZoomAuthorizeURL returns the consent URL the register endpoint redirects
// to, with state round-tripped through the provider.
func (s *CallService) ZoomAuthorizeURL(state string) (string, error) {
	return s.zoom.AuthCodeURL(state)
}

// CompleteZoomAuth finishes the per-user OAuth flow.
func (s *CallService) CompleteZoomAuth(ctx context.Context, user domain.User, code string) error {
	return s.zoom.CompleteAuth(ctx, user, code)
}

// DeauthorizeZoom discards a user's stored Zoom token.
func (s *CallService) DeauthorizeZoom(ctx context.Context, userID int64) error {
	return s.zoom.Deauthorize(ctx, userID)
}

// JoinBigBlueButton resolves a signed join token into the upstream join
// redirect URL.
func (s *CallService) JoinBigBlueButton(ctx context.Context, token string, user domain.User) (string, error) {
	url, err := s.bbb.Join(ctx, token, user)
	if err != nil {
		slog.ErrorContext(ctx, "failed to join BigBlueButton call",
			"user_id", user.ID,
			logging.ErrKey, err,
		)
		return "", err
	}
	return url, nil
}
