// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package nextcloud integrates with Nextcloud Talk's OCS API to create
// conversation rooms.
package nextcloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/domain"
)

// roomAPIPath is the OCS endpoint for creating conversations.
const roomAPIPath = "/ocs/v2.php/apps/spreed/api/v2/room"

// callPath is where a created conversation is reachable.
const callPath = "/index.php/call/"

// roomTypePublic creates a room joinable by link.
const roomTypePublic = 3

// DefaultClientTimeout is the default HTTP client timeout for API requests.
const DefaultClientTimeout = 30 * time.Second

// Fixed caller-facing messages, one per error kind.
const (
	msgNotConfigured = "Nextcloud Talk is not configured."
	msgConnecting    = "Error connecting to the Nextcloud Talk server."
	msgCreateFailed  = "Failed to create Nextcloud Talk conversation"
)

// Config holds the configuration for the Nextcloud Talk client.
type Config struct {
	// Server is the Nextcloud base URL, e.g. https://cloud.example.com
	Server   string
	Username string
	Password string
	// Optional: override timeout for HTTP requests
	Timeout time.Duration
}

// IsConfigured returns true if a server URL is provided.
func (c Config) IsConfigured() bool {
	return c.Server != ""
}

// Client is the Nextcloud Talk API client.
type Client struct {
	config     Config
	httpClient *http.Client
}

// Ensure that Client implements CallProvider
var _ domain.CallProvider = (*Client)(nil)

// NewClient creates a new Nextcloud Talk client.
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = DefaultClientTimeout
	}
	config.Server = strings.TrimRight(config.Server, "/")
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

type createRoomRequest struct {
	RoomType int    `json:"roomType"`
	RoomName string `json:"roomName"`
}

type createRoomResponse struct {
	OCS struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	} `json:"ocs"`
}

// CreateCall creates a public conversation named after the meeting and
// returns its call URL.
func (c *Client) CreateCall(ctx context.Context, _ domain.User, opts domain.CreateCallOptions) (string, error) {
	if !c.config.IsConfigured() {
		return "", domain.NewNotConfiguredError(msgNotConfigured)
	}

	body, err := json.Marshal(createRoomRequest{
		RoomType: roomTypePublic,
		RoomName: opts.MeetingName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal room request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Server+roomAPIPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.config.Username, c.config.Password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("OCS-APIRequest", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.NewUpstreamUnavailableError(msgConnecting, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", domain.NewUpstreamUnavailableError(msgConnecting)
	}

	var roomResp createRoomResponse
	if err := json.NewDecoder(resp.Body).Decode(&roomResp); err != nil {
		return "", domain.NewMalformedResponseError(msgCreateFailed, err)
	}
	if roomResp.OCS.Data.Token == "" {
		return "", domain.NewMalformedResponseError(msgCreateFailed)
	}

	return c.config.Server + callPath + roomResp.OCS.Data.Token, nil
}
