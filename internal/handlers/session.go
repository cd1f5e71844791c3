// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
)

// SessionCookieName is the session cookie the identifier is derived from.
const SessionCookieName = "sessionid"

// HMACSessionAuthenticator derives the OAuth state session identifier as an
// HMAC of the caller's session cookie, so the value is stable within a
// session but useless to a forger without the key.
type HMACSessionAuthenticator struct {
	key []byte
}

// Ensure that HMACSessionAuthenticator implements SessionAuthenticator
var _ SessionAuthenticator = (*HMACSessionAuthenticator)(nil)

// NewHMACSessionAuthenticator creates an authenticator with the given key.
func NewHMACSessionAuthenticator(key string) *HMACSessionAuthenticator {
	return &HMACSessionAuthenticator{key: []byte(key)}
}

// SessionID returns the identifier for the request's session, or the empty
// string when the request carries no session cookie.
func (a *HMACSessionAuthenticator) SessionID(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	mac := hmac.New(sha256.New, a.key)
	mac.Write([]byte(cookie.Value))
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidateSessionID reports whether sid belongs to the request's session.
func (a *HMACSessionAuthenticator) ValidateSessionID(r *http.Request, sid string) bool {
	return hmac.Equal([]byte(a.SessionID(r)), []byte(sid))
}
