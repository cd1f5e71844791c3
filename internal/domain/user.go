// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

// User is the authenticated identity a call is created on behalf of. It is
// resolved by the host system's authentication layer before handlers run.
type User struct {
	ID       int64
	Email    string
	FullName string
}

// Realm is the tenant boundary a user belongs to. Only the fields needed to
// build redirect URLs are modeled here.
type Realm struct {
	Subdomain string
	URL       string
}
