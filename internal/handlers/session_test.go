// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestWithSessionCookie(value string) *http.Request {
	req := httptest.NewRequest("GET", "/calls/zoom/register", nil)
	if value != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: value})
	}
	return req
}

func TestHMACSessionAuthenticator(t *testing.T) {
	auth := NewHMACSessionAuthenticator("session-key")

	req := requestWithSessionCookie("session-abc")
	sid := auth.SessionID(req)
	require.NotEmpty(t, sid)

	// Stable within a session, and validates against itself.
	assert.Equal(t, sid, auth.SessionID(requestWithSessionCookie("session-abc")))
	assert.True(t, auth.ValidateSessionID(req, sid))

	// A different session yields a different identifier.
	other := auth.SessionID(requestWithSessionCookie("session-xyz"))
	assert.NotEqual(t, sid, other)
	assert.False(t, auth.ValidateSessionID(req, other))

	// A different key yields a different identifier for the same session.
	otherKey := NewHMACSessionAuthenticator("other-key")
	assert.NotEqual(t, sid, otherKey.SessionID(requestWithSessionCookie("session-abc")))
}

func TestHMACSessionAuthenticatorNoCookie(t *testing.T) {
	auth := NewHMACSessionAuthenticator("session-key")
	req := requestWithSessionCookie("")

	assert.Equal(t, "", auth.SessionID(req))
	// An empty identifier only validates for a session-less request.
	assert.True(t, auth.ValidateSessionID(req, ""))
	assert.False(t, auth.ValidateSessionID(requestWithSessionCookie("session-abc"), ""))
}
