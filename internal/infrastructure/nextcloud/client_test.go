// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package nextcloud

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/domain"
)

var testUser = domain.User{ID: 7, Email: "jdoe@example.com", FullName: "Jane Doe"}

func TestCreateCallNotConfigured(t *testing.T) {
	client := NewClient(Config{})

	_, err := client.CreateCall(context.Background(), testUser, domain.CreateCallOptions{MeetingName: "standup"})

	require.Error(t, err)
	assert.Equal(t, domain.ErrorKindNotConfigured, domain.GetErrorKind(err))
	assert.Equal(t, "Nextcloud Talk is not configured.", domain.ErrorMessage(err))
}

func TestCreateCall(t *testing.T) {
	var gotBody map[string]any
	var gotHeaders http.Header
	var gotUser, gotPass string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/ocs/v2.php/apps/spreed/api/v2/room", r.URL.Path)
		gotHeaders = r.Header.Clone()
		gotUser, gotPass, _ = r.BasicAuth()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ocs": map[string]any{
				"data": map[string]any{"token": "room-token-9"},
			},
		})
	}))
	defer ts.Close()

	client := NewClient(Config{
		Server:   ts.URL,
		Username: "svc-user",
		Password: "svc-pass",
	})

	url, err := client.CreateCall(context.Background(), testUser, domain.CreateCallOptions{MeetingName: "sprint planning"})
	require.NoError(t, err)

	assert.Equal(t, ts.URL+"/index.php/call/room-token-9", url)

	assert.Equal(t, "svc-user", gotUser)
	assert.Equal(t, "svc-pass", gotPass)
	assert.Equal(t, "true", gotHeaders.Get("OCS-APIRequest"))
	assert.Equal(t, "application/json", gotHeaders.Get("Accept"))

	assert.Equal(t, float64(3), gotBody["roomType"]) // public room, joinable by link
	assert.Equal(t, "sprint planning", gotBody["roomName"])
}

func TestCreateCallTrimsTrailingSlash(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ocs/v2.php/apps/spreed/api/v2/room", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ocs": map[string]any{"data": map[string]any{"token": "tok"}},
		})
	}))
	defer ts.Close()

	client := NewClient(Config{Server: ts.URL + "/"})

	url, err := client.CreateCall(context.Background(), testUser, domain.CreateCallOptions{MeetingName: "standup"})
	require.NoError(t, err)
	assert.Equal(t, ts.URL+"/index.php/call/tok", url)
}

func TestCreateCallUpstreamErrorStatus(t *testing.T) {
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	client := NewClient(Config{Server: ts.URL})

	_, err := client.CreateCall(context.Background(), testUser, domain.CreateCallOptions{MeetingName: "standup"})

	require.Error(t, err)
	assert.Equal(t, domain.ErrorKindUpstreamUnavailable, domain.GetErrorKind(err))
	assert.Equal(t, "Error connecting to the Nextcloud Talk server.", domain.ErrorMessage(err))
	assert.Equal(t, int64(1), calls.Load())
}

func TestCreateCallUnreachableServer(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	ts.Close() // nothing is listening anymore

	client := NewClient(Config{Server: ts.URL})

	_, err := client.CreateCall(context.Background(), testUser, domain.CreateCallOptions{MeetingName: "standup"})

	require.Error(t, err)
	assert.Equal(t, domain.ErrorKindUpstreamUnavailable, domain.GetErrorKind(err))
}

func TestCreateCallMissingRoomToken(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty token", `{"ocs":{"data":{"token":""}}}`},
		{"missing data", `{"ocs":{}}`},
		{"not json", `<html>error</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			client := NewClient(Config{Server: ts.URL})

			_, err := client.CreateCall(context.Background(), testUser, domain.CreateCallOptions{MeetingName: "standup"})

			require.Error(t, err)
			assert.Equal(t, domain.ErrorKindMalformedResponse, domain.GetErrorKind(err))
			assert.Equal(t, "Failed to create Nextcloud Talk conversation", domain.ErrorMessage(err))
		})
	}
}
