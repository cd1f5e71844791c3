// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package urlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendQueryString(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		query    string
		expected string
	}{
		{
			name:     "bare path",
			url:      "/calls/bigbluebutton/join",
			query:    "bigbluebutton=abc",
			expected: "/calls/bigbluebutton/join?bigbluebutton=abc",
		},
		{
			name:     "absolute url with existing query",
			url:      "https://example.com/join?a=1",
			query:    "b=2",
			expected: "https://example.com/join?a=1&b=2",
		},
		{
			name:     "empty query leaves url untouched",
			url:      "https://example.com/join?a=1",
			query:    "",
			expected: "https://example.com/join?a=1",
		},
		{
			name:     "pre-encoded query is not re-encoded",
			url:      "/join",
			query:    "name=a+b%26c",
			expected: "/join?name=a+b%26c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AppendQueryString(tt.url, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestAppendQueryStringInvalidURL(t *testing.T) {
	_, err := AppendQueryString("://not a url", "a=1")
	assert.Error(t, err)
}
