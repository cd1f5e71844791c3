// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package zoom integrates with the Zoom API to mint meeting join URLs.
// Two modes exist, selected by configuration: account-level
// server-to-server OAuth (meetings are created under the user's email) and
// per-user OAuth, where tokens from the authorization-code flow are kept in
// the token repository.
package zoom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"

	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/logging"
)

const (
	// BaseURL is the base URL for the Zoom API
	BaseURL = "https://api.zoom.us/v2"
	// AuthURL is the OAuth token endpoint
	AuthURL = "https://zoom.us/oauth/token"
	// AuthorizeURL is the user-facing OAuth consent endpoint
	AuthorizeURL = "https://zoom.us/oauth/authorize"
	// DefaultClientTimeout is the default HTTP client timeout for Zoom API requests
	DefaultClientTimeout = 30 * time.Second

	// Zoom API error code for an email the account does not know.
	errCodeUnknownUserEmail = 1001
)

// Fixed caller-facing messages, one per error kind.
const (
	msgNotConfigured      = "Zoom credentials have not been configured"
	msgInvalidCredentials = "Invalid Zoom credentials"
	msgInvalidToken       = "Invalid Zoom access token"
	msgUnknownUserEmail   = "Unknown Zoom user email"
	msgCreateFailed       = "Failed to create Zoom call"
)

// Config holds the configuration for the Zoom client
type Config struct {
	// AccountID enables server-to-server OAuth when set.
	AccountID    string
	ClientID     string
	ClientSecret string
	// RedirectURL is the callback of the per-user authorization-code flow.
	RedirectURL string
	// Optional: override base URL for testing
	BaseURL string
	// Optional: override token endpoint for testing
	AuthURL string
	// Optional: override consent endpoint for testing
	AuthorizeURL string
	// Optional: override timeout for HTTP requests
	Timeout time.Duration
}

// IsConfigured returns true if the required Zoom credentials are provided.
func (c Config) IsConfigured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// ServerToServer reports whether account-level OAuth is in use.
func (c Config) ServerToServer() bool {
	return c.AccountID != ""
}

// Client is the Zoom API client. The server-to-server credential cache is
// shared by all requests in the process; refreshes are serialized per
// credential key so concurrent requests seeing an expired token trigger a
// single exchange.
type Client struct {
	config     Config
	httpClient *http.Client
	tokens     *gocache.Cache
	refresh    singleflight.Group
	tokenRepo  domain.TokenRepository
}

// Ensure that Client implements CallProvider
var _ domain.CallProvider = (*Client)(nil)

// NewClient creates a new Zoom client. tokenRepo may be nil when only
// server-to-server mode is used.
func NewClient(config Config, tokenRepo domain.TokenRepository) *Client {
	if config.BaseURL == "" {
		config.BaseURL = BaseURL
	}
	if config.AuthURL == "" {
		config.AuthURL = AuthURL
	}
	if config.AuthorizeURL == "" {
		config.AuthorizeURL = AuthorizeURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultClientTimeout
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		tokens:     gocache.New(gocache.NoExpiration, time.Minute),
		tokenRepo:  tokenRepo,
	}
}

// serverTokenKey is the credential cache key for the account token.
func (c *Client) serverTokenKey() string {
	return "account:" + c.config.AccountID
}

// httpClientContext makes the oauth2 exchange use our timeout-bounded client.
func (c *Client) httpClientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// serverToken returns a valid server-to-server access token, exchanging
// account credentials when the cached token is missing or past its expiry.
// At most one exchange per credential key is in flight; concurrent callers
// share its result. The network round trip holds no lock.
func (c *Client) serverToken(ctx context.Context) (string, error) {
	key := c.serverTokenKey()

	if cached, found := c.tokens.Get(key); found {
		if tok := cached.(*oauth2.Token); tok.Valid() {
			return tok.AccessToken, nil
		}
	}

	v, err, _ := c.refresh.Do(key, func() (any, error) {
		// Another caller may have refreshed while we waited on the key.
		if cached, found := c.tokens.Get(key); found {
			if tok := cached.(*oauth2.Token); tok.Valid() {
				return tok, nil
			}
		}

		cc := &clientcredentials.Config{
			ClientID:     c.config.ClientID,
			ClientSecret: c.config.ClientSecret,
			TokenURL:     c.config.AuthURL,
			EndpointParams: url.Values{
				"grant_type": []string{"account_credentials"},
				"account_id": []string{c.config.AccountID},
			},
		}

		tok, err := cc.Token(c.httpClientContext(ctx))
		if err != nil {
			return nil, domain.NewInvalidCredentialsError(msgInvalidCredentials, err)
		}

		switch {
		case tok.Expiry.IsZero():
			c.tokens.Set(key, tok, gocache.NoExpiration)
		case time.Until(tok.Expiry) > 0:
			c.tokens.Set(key, tok, time.Until(tok.Expiry))
		default:
			// Already expired on arrival; leave it uncached so the next
			// call re-fetches.
		}

		return tok, nil
	})
	if err != nil {
		return "", err
	}

	return v.(*oauth2.Token).AccessToken, nil
}

// invalidateServerToken forces the next serverToken call to re-fetch.
func (c *Client) invalidateServerToken() {
	c.tokens.Delete(c.serverTokenKey())
}

type meetingSettings struct {
	HostVideo        bool `json:"host_video"`
	ParticipantVideo bool `json:"participant_video"`
}

type createMeetingRequest struct {
	Settings        meetingSettings `json:"settings"`
	DefaultPassword bool            `json:"default_password"`
}

type createMeetingResponse struct {
	JoinURL string `json:"join_url"`
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// createMeeting issues the meeting-creation call for the given user
// (an email, or "me" in per-user mode) and returns the join URL verbatim.
func (c *Client) createMeeting(ctx context.Context, accessToken, userID string, isVideo bool) (string, error) {
	payload := createMeetingRequest{
		Settings: meetingSettings{
			HostVideo:        isVideo,
			ParticipantVideo: isVideo,
		},
		DefaultPassword: true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal meeting request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/users/%s/meetings", c.config.BaseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.NewUpstreamUnavailableError(msgCreateFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", domain.NewInvalidTokenError(msgInvalidToken)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		var errResp errorResponse
		_ = json.Unmarshal(raw, &errResp)

		if errResp.Code == errCodeUnknownUserEmail {
			return "", domain.NewUnknownRemoteUserError(msgUnknownUserEmail)
		}

		slog.ErrorContext(ctx, "unexpected Zoom error",
			"code", errResp.Code,
			"message", errResp.Message,
			"status", resp.StatusCode,
			logging.ErrKey, fmt.Errorf("status: %d", resp.StatusCode),
		)
		return "", domain.NewUpstreamRejectedError(msgCreateFailed)
	}

	var meetingResp createMeetingResponse
	if err := json.NewDecoder(resp.Body).Decode(&meetingResp); err != nil {
		return "", domain.NewMalformedResponseError(msgCreateFailed, err)
	}
	if meetingResp.JoinURL == "" {
		return "", domain.NewMalformedResponseError(msgCreateFailed)
	}

	return meetingResp.JoinURL, nil
}

// CreateCall mints a Zoom meeting URL for the user. In server-to-server
// mode a 401 invalidates the cached account token and the call is retried
// exactly once with a fresh one; that is the only automatic retry.
func (c *Client) CreateCall(ctx context.Context, user domain.User, opts domain.CreateCallOptions) (string, error) {
	if !c.config.IsConfigured() {
		return "", domain.NewNotConfiguredError(msgNotConfigured)
	}

	if c.config.ServerToServer() {
		return c.createServerCall(ctx, user, opts.IsVideoCall)
	}
	return c.createUserCall(ctx, user, opts.IsVideoCall)
}

func (c *Client) createServerCall(ctx context.Context, user domain.User, isVideo bool) (string, error) {
	token, err := c.serverToken(ctx)
	if err != nil {
		return "", err
	}

	joinURL, err := c.createMeeting(ctx, token, user.Email, isVideo)
	if err == nil {
		return joinURL, nil
	}

	var callErr *domain.CallError
	if !errors.As(err, &callErr) || callErr.Kind != domain.ErrorKindInvalidToken {
		return "", err
	}

	// The cached token was revoked before its expiry; re-fetch and retry once.
	c.invalidateServerToken()
	token, err = c.serverToken(ctx)
	if err != nil {
		return "", err
	}
	return c.createMeeting(ctx, token, user.Email, isVideo)
}

func (c *Client) createUserCall(ctx context.Context, user domain.User, isVideo bool) (string, error) {
	if c.tokenRepo == nil {
		return "", domain.NewInvalidTokenError(msgInvalidToken)
	}

	tok, err := c.tokenRepo.Get(ctx, user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			return "", domain.NewInvalidTokenError(msgInvalidToken)
		}
		return "", err
	}

	// TokenSource refreshes through the stored refresh token when the
	// access token has passed its expiry.
	refreshed, err := c.oauthConfig().TokenSource(c.httpClientContext(ctx), tok).Token()
	if err != nil {
		return "", domain.NewInvalidTokenError(msgInvalidToken, err)
	}
	if refreshed.AccessToken != tok.AccessToken {
		if err := c.tokenRepo.Put(ctx, user.ID, refreshed); err != nil {
			slog.WarnContext(ctx, "failed to persist refreshed Zoom token", logging.ErrKey, err)
		}
	}

	joinURL, err := c.createMeeting(ctx, refreshed.AccessToken, "me", isVideo)
	if err != nil {
		var callErr *domain.CallError
		if errors.As(err, &callErr) && callErr.Kind == domain.ErrorKindInvalidToken {
			// The token was revoked upstream; discard it so the user
			// re-authorizes instead of looping on a dead token.
			_ = c.tokenRepo.Delete(ctx, user.ID)
		}
		return "", err
	}
	return joinURL, nil
}
