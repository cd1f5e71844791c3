// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package notes

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/rate"
)

func TestRealmResolutionStates(t *testing.T) {
	n := New()

	// Fresh notes: no lookup has happened yet.
	assert.False(t, n.Realm().Resolved())
	realm, ok := n.Realm().Realm()
	assert.False(t, ok)
	assert.Nil(t, realm)

	// A nil realm marks the lookup as done with no result.
	n.SetRealm(nil)
	assert.True(t, n.Realm().Resolved())
	realm, ok = n.Realm().Realm()
	assert.False(t, ok)
	assert.Nil(t, realm)

	// A found realm is returned as-is.
	want := &domain.Realm{Subdomain: "acme", URL: "https://acme.example.com"}
	n.SetRealm(want)
	assert.True(t, n.Realm().Resolved())
	realm, ok = n.Realm().Realm()
	require.True(t, ok)
	assert.Same(t, want, realm)
}

func TestProcessedParameters(t *testing.T) {
	n := New()

	assert.False(t, n.ParameterProcessed("meeting_name"))
	assert.Empty(t, n.ProcessedParameters())

	n.MarkParameterProcessed("meeting_name")
	n.MarkParameterProcessed("voice_only")
	n.MarkParameterProcessed("meeting_name") // marking twice is fine

	assert.True(t, n.ParameterProcessed("meeting_name"))
	assert.True(t, n.ParameterProcessed("voice_only"))
	assert.False(t, n.ParameterProcessed("is_video_call"))
	assert.ElementsMatch(t, []string{"meeting_name", "voice_only"}, n.ProcessedParameters())
}

func TestAppendRateLimitResultKeepsOrder(t *testing.T) {
	n := New()

	n.AppendRateLimitResult(rate.Result{Allowed: true, Remaining: 5})
	n.AppendRateLimitResult(rate.Result{Allowed: false, RetryAfter: 30 * time.Second})

	require.Len(t, n.RateLimitResults, 2)
	assert.True(t, n.RateLimitResults[0].Allowed)
	assert.False(t, n.RateLimitResults[1].Allowed)
	assert.Equal(t, 30*time.Second, n.RateLimitResults[1].RetryAfter)
}

func TestSavedResponse(t *testing.T) {
	n := New()
	assert.Nil(t, n.SavedResponse)

	n.SavedResponse = &SavedResponse{StatusCode: 200, Body: []byte(`{"result":"success","msg":""}`)}
	require.NotNil(t, n.SavedResponse)
	assert.Equal(t, 200, n.SavedResponse.StatusCode)
}

func TestAttachAndFromContext(t *testing.T) {
	n := New()
	ctx := Attach(context.Background(), n)

	// The same instance comes back every time.
	assert.Same(t, n, FromContext(ctx))
	assert.Same(t, n, FromContext(ctx))
}

func TestFromContextWithoutAttachedNotes(t *testing.T) {
	// A bare context yields fresh usable notes rather than nil.
	n := FromContext(context.Background())
	require.NotNil(t, n)
	n.MarkParameterProcessed("x")
	assert.True(t, n.ParameterProcessed("x"))

	// The fallback record is not attached: a second call returns a new
	// instance. Sharing requires Attach.
	assert.NotSame(t, n, FromContext(context.Background()))
	ctx := Attach(context.Background(), n)
	assert.Same(t, n, FromContext(ctx))
}

func TestFromRequest(t *testing.T) {
	n := New()
	req := httptest.NewRequest("GET", "/json/calls/zoom/create", nil)
	req = req.WithContext(Attach(req.Context(), n))

	assert.Same(t, n, FromRequest(req))
}
