// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package webhook validates inbound Zoom webhook deliveries.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EventAppDeauthorized is the deauthorization event delivered when a user
// removes the app from their Zoom account.
const EventAppDeauthorized = "app_deauthorized"

// replayTolerance is how old a delivery may be before it is rejected.
const replayTolerance = 5 * time.Minute

// Validator handles validation of Zoom webhook signatures
type Validator struct {
	secretToken string
}

// NewValidator creates a new Zoom webhook validator
func NewValidator(secretToken string) *Validator {
	return &Validator{
		secretToken: secretToken,
	}
}

// ValidateSignature validates the Zoom webhook signature
func (v *Validator) ValidateSignature(body []byte, signature, timestamp string) error {
	if v.secretToken == "" {
		return fmt.Errorf("webhook secret token not configured")
	}

	if signature == "" {
		return fmt.Errorf("missing webhook signature")
	}

	if timestamp == "" {
		return fmt.Errorf("missing webhook timestamp")
	}

	// Parse timestamp for replay protection
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp format: %w", err)
	}

	if time.Now().Unix()-ts > int64(replayTolerance.Seconds()) {
		return fmt.Errorf("request timestamp too old")
	}

	// The signed message is v0:timestamp:body
	message := fmt.Sprintf("v0:%s:%s", timestamp, string(body))

	h := hmac.New(sha256.New, []byte(v.secretToken))
	h.Write([]byte(message))
	expected := hex.EncodeToString(h.Sum(nil))

	provided := strings.TrimPrefix(signature, "v0=")

	if !hmac.Equal([]byte(provided), []byte(expected)) {
		return fmt.Errorf("invalid webhook signature")
	}

	return nil
}

// IsValidEvent checks if the event type is supported
func (v *Validator) IsValidEvent(eventType string) bool {
	return eventType == EventAppDeauthorized
}
