// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/domain"
)

// mockKeyValueEntry implements jetstream.KeyValueEntry for testing
type mockKeyValueEntry struct {
	key      string
	value    []byte
	revision uint64
}

func (m *mockKeyValueEntry) Key() string                      { return m.key }
func (m *mockKeyValueEntry) Value() []byte                    { return m.value }
func (m *mockKeyValueEntry) Revision() uint64                 { return m.revision }
func (m *mockKeyValueEntry) Created() time.Time               { return time.Now() }
func (m *mockKeyValueEntry) Delta() uint64                    { return 0 }
func (m *mockKeyValueEntry) Operation() jetstream.KeyValueOp  { return jetstream.KeyValuePut }
func (m *mockKeyValueEntry) Bucket() string                   { return "test-bucket" }

// mockNatsKeyValue implements INatsKeyValue for testing
type mockNatsKeyValue struct {
	data        map[string][]byte
	getError    error
	putError    error
	deleteError error
}

func newMockNatsKeyValue() *mockNatsKeyValue {
	return &mockNatsKeyValue{data: make(map[string][]byte)}
}

func (m *mockNatsKeyValue) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	value, exists := m.data[key]
	if !exists {
		return nil, jetstream.ErrKeyNotFound
	}
	return &mockKeyValueEntry{key: key, value: value, revision: 1}, nil
}

func (m *mockNatsKeyValue) Put(_ context.Context, key string, data []byte) (uint64, error) {
	if m.putError != nil {
		return 0, m.putError
	}
	m.data[key] = data
	return 1, nil
}

func (m *mockNatsKeyValue) Delete(_ context.Context, key string, _ ...jetstream.KVDeleteOpt) error {
	if m.deleteError != nil {
		return m.deleteError
	}
	if _, exists := m.data[key]; !exists {
		return jetstream.ErrKeyNotFound
	}
	delete(m.data, key)
	return nil
}

func TestNatsTokenRepositoryRoundTrip(t *testing.T) {
	kv := newMockNatsKeyValue()
	repo := NewNatsTokenRepository(kv)
	ctx := context.Background()

	token := &oauth2.Token{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		TokenType:    "bearer",
		Expiry:       time.Now().Add(time.Hour).UTC(),
	}

	require.NoError(t, repo.Put(ctx, 42, token))

	// Tokens are keyed per user.
	_, exists := kv.data["user.42"]
	assert.True(t, exists)

	got, err := repo.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, token.AccessToken, got.AccessToken)
	assert.Equal(t, token.RefreshToken, got.RefreshToken)
	assert.WithinDuration(t, token.Expiry, got.Expiry, time.Second)
}

func TestNatsTokenRepositoryGetMissing(t *testing.T) {
	repo := NewNatsTokenRepository(newMockNatsKeyValue())

	_, err := repo.Get(context.Background(), 42)

	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestNatsTokenRepositoryGetBackendError(t *testing.T) {
	kv := newMockNatsKeyValue()
	kv.getError = errors.New("nats: connection closed")
	repo := NewNatsTokenRepository(kv)

	_, err := repo.Get(context.Background(), 42)

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestNatsTokenRepositoryGetCorruptValue(t *testing.T) {
	kv := newMockNatsKeyValue()
	kv.data["user.42"] = []byte("not json")
	repo := NewNatsTokenRepository(kv)

	_, err := repo.Get(context.Background(), 42)

	assert.Error(t, err)
}

func TestNatsTokenRepositoryDelete(t *testing.T) {
	kv := newMockNatsKeyValue()
	raw, err := json.Marshal(&oauth2.Token{AccessToken: "x"})
	require.NoError(t, err)
	kv.data["user.42"] = raw
	repo := NewNatsTokenRepository(kv)
	ctx := context.Background()

	require.NoError(t, repo.Delete(ctx, 42))
	_, exists := kv.data["user.42"]
	assert.False(t, exists)

	// Deleting an absent token is not an error.
	require.NoError(t, repo.Delete(ctx, 42))
}

func TestNatsTokenRepositoryNotReady(t *testing.T) {
	repo := NewNatsTokenRepository(nil)
	ctx := context.Background()

	assert.False(t, repo.IsReady())

	_, err := repo.Get(ctx, 1)
	assert.Error(t, err)
	assert.Error(t, repo.Put(ctx, 1, &oauth2.Token{}))
	assert.Error(t, repo.Delete(ctx, 1))
}
