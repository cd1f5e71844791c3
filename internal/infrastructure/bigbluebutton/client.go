// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package bigbluebutton integrates with a BigBlueButton server. Creating a
// call mints a signed local join link only; the upstream meeting is created
// lazily when the first participant follows it.
package bigbluebutton

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-video-call-service/pkg/urlutil"
)

// JoinPath is the local path join links point at.
const JoinPath = "/calls/bigbluebutton/join"

// DefaultClientTimeout is the default HTTP client timeout for API requests.
const DefaultClientTimeout = 30 * time.Second

// Meeting roles in the join redirect.
const (
	RoleModerator = "MODERATOR"
	RoleViewer    = "VIEWER"
)

// Fixed caller-facing messages, one per error kind.
const (
	msgNotConfigured    = "BigBlueButton is not configured."
	msgInvalidSignature = "Invalid signature."
	msgConnecting       = "Error connecting to the BigBlueButton server."
	msgAuthenticating   = "Error authenticating to the BigBlueButton server."
	msgUnexpectedError  = "BigBlueButton server returned an unexpected error."
)

// Config holds the configuration for the BigBlueButton client.
type Config struct {
	// URL is the API base, e.g. https://bbb.example.com/bigbluebutton/api/
	URL string
	// Secret is the shared checksum secret.
	Secret string
	// Optional: override timeout for HTTP requests
	Timeout time.Duration
}

// IsConfigured returns true if the server URL and secret are provided.
func (c Config) IsConfigured() bool {
	return c.URL != "" && c.Secret != ""
}

// Client is the BigBlueButton API client.
type Client struct {
	config     Config
	httpClient *http.Client
	signer     *Signer

	// newMeetingID is swappable in tests.
	newMeetingID func() string
}

// Ensure that Client implements CallProvider
var _ domain.CallProvider = (*Client)(nil)

// NewClient creates a new BigBlueButton client signing join links with the
// given signer.
func NewClient(config Config, signer *Signer) *Client {
	if config.Timeout == 0 {
		config.Timeout = DefaultClientTimeout
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		signer:     signer,
		newMeetingID: func() string {
			return fmt.Sprintf("call-%d", rand.Int64N(900000000000)+100000000000)
		},
	}
}

// CreateCall mints a signed local join link for a fresh meeting ID. No
// upstream call happens here; meeting creation is deferred to join time.
func (c *Client) CreateCall(_ context.Context, user domain.User, opts domain.CreateCallOptions) (string, error) {
	if !c.config.IsConfigured() {
		return "", domain.NewNotConfiguredError(msgNotConfigured)
	}

	token, err := c.signer.Sign(MeetingPayload{
		MeetingID:              c.newMeetingID(),
		Name:                   opts.MeetingName,
		LockSettingsDisableCam: opts.VoiceOnly,
		Moderator:              user.ID,
	})
	if err != nil {
		return "", err
	}

	return urlutil.AppendQueryString(JoinPath, "bigbluebutton="+url.QueryEscape(token))
}

// queryParam is one ordered query parameter.
type queryParam struct {
	name  string
	value string
}

// encodeQuery encodes parameters preserving their order. Order is
// significant because the checksum is computed over the encoded string.
func encodeQuery(params []queryParam) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, p.name+"="+url.QueryEscape(p.value))
	}
	return strings.Join(parts, "&")
}

// checksum computes the request-authentication digest the server expects:
// SHA-256 over the API action name, the encoded query and the shared secret.
func (c *Client) checksum(action, query string) string {
	sum := sha256.Sum256([]byte(action + query + c.config.Secret))
	return hex.EncodeToString(sum[:])
}

// boolParam renders a boolean the way the server API spells them.
func boolParam(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

// apiResponse is the small XML document the create call returns.
type apiResponse struct {
	XMLName    xml.Name `xml:"response"`
	ReturnCode string   `xml:"returncode"`
	MessageKey string   `xml:"messageKey"`
	Message    string   `xml:"message"`
	CreateTime string   `xml:"createTime"`
}

// Join verifies a signed meeting token, creates the meeting upstream and
// returns the URL to redirect the joining user to. The requesting user gets
// the moderator role when they created the meeting, viewer otherwise.
func (c *Client) Join(ctx context.Context, token string, user domain.User) (string, error) {
	if !c.config.IsConfigured() {
		return "", domain.NewNotConfiguredError(msgNotConfigured)
	}

	payload, err := c.signer.Verify(token)
	if err != nil {
		return "", domain.NewSignatureInvalidError(msgInvalidSignature, err)
	}

	createQuery := encodeQuery([]queryParam{
		{"meetingID", payload.MeetingID},
		{"name", payload.Name},
		{"lockSettingsDisableCam", boolParam(payload.LockSettingsDisableCam)},
	})
	createQuery += "&checksum=" + c.checksum("create", createQuery)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.URL+"create?"+createQuery, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.NewUpstreamUnavailableError(msgConnecting, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", domain.NewUpstreamUnavailableError(msgConnecting)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.NewUpstreamUnavailableError(msgConnecting, err)
	}

	var apiResp apiResponse
	if err := xml.Unmarshal(raw, &apiResp); err != nil {
		return "", domain.NewMalformedResponseError(msgUnexpectedError, err)
	}

	if apiResp.ReturnCode != "SUCCESS" {
		if apiResp.MessageKey == "checksumError" {
			return "", domain.NewInvalidCredentialsError(msgAuthenticating)
		}
		return "", domain.NewUpstreamRejectedError(msgUnexpectedError)
	}

	role := RoleViewer
	if user.ID == payload.Moderator {
		role = RoleModerator
	}

	joinQuery := encodeQuery([]queryParam{
		{"meetingID", payload.MeetingID},
		{"role", role},
		{"fullName", user.FullName},
		// The createTime echo pins the link to this meeting instance; a
		// stale link cannot join a recreated meeting of the same ID.
		{"createTime", apiResp.CreateTime},
	})
	joinQuery += "&checksum=" + c.checksum("join", joinQuery)

	return c.config.URL + "join?" + joinQuery, nil
}
