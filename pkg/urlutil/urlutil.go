// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package urlutil has small URL construction helpers.
package urlutil

import "net/url"

// AppendQueryString appends an already-encoded query string to a URL,
// preserving any query the URL already carries.
func AppendQueryString(originalURL, query string) (string, error) {
	u, err := url.Parse(originalURL)
	if err != nil {
		return "", err
	}
	if u.RawQuery != "" && query != "" {
		u.RawQuery = u.RawQuery + "&" + query
	} else if query != "" {
		u.RawQuery = query
	}
	return u.String(), nil
}
