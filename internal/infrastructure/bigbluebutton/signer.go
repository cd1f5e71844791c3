// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package bigbluebutton

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// MeetingPayload is the meeting description embedded in the join link. It
// is signed at creation time and verified at join time with no server-side
// persistence; the signature is the sole integrity guarantee.
type MeetingPayload struct {
	MeetingID              string `json:"meeting_id"`
	Name                   string `json:"name"`
	LockSettingsDisableCam bool   `json:"lock_settings_disable_cam"`
	Moderator              int64  `json:"moderator"`
}

// Signer produces and verifies tamper-evident meeting tokens. The token is
// base64url(JSON payload) + "." + base64url(HMAC-SHA256).
type Signer struct {
	key []byte
}

// NewSigner creates a signer over the given key.
func NewSigner(key []byte) *Signer {
	return &Signer{key: key}
}

func (s *Signer) mac(data []byte) []byte {
	h := hmac.New(sha256.New, s.key)
	h.Write(data)
	return h.Sum(nil)
}

// Sign serializes and signs a meeting payload.
func (s *Signer) Sign(payload MeetingPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal meeting payload: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(data)
	sig := base64.RawURLEncoding.EncodeToString(s.mac([]byte(encoded)))
	return encoded + "." + sig, nil
}

// Verify checks a token's signature and returns the original payload. Any
// altered or appended byte fails verification.
func (s *Signer) Verify(token string) (MeetingPayload, error) {
	var payload MeetingPayload

	encoded, sig, found := strings.Cut(token, ".")
	if !found {
		return payload, fmt.Errorf("malformed meeting token")
	}

	provided, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return payload, fmt.Errorf("malformed meeting token signature")
	}

	if !hmac.Equal(provided, s.mac([]byte(encoded))) {
		return payload, fmt.Errorf("meeting token signature mismatch")
	}

	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return payload, fmt.Errorf("malformed meeting token payload")
	}

	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal meeting payload: %w", err)
	}

	return payload, nil
}
