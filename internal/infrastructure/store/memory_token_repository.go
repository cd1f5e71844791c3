// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"sync"

	"golang.org/x/oauth2"

	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/domain"
)

// MemoryTokenRepository keeps tokens in process memory. Used for tests and
// single-node runs without NATS.
type MemoryTokenRepository struct {
	mu     sync.RWMutex
	tokens map[int64]*oauth2.Token
}

// Ensure that MemoryTokenRepository implements TokenRepository
var _ domain.TokenRepository = (*MemoryTokenRepository)(nil)

// NewMemoryTokenRepository creates an empty in-memory token repository.
func NewMemoryTokenRepository() *MemoryTokenRepository {
	return &MemoryTokenRepository{tokens: make(map[int64]*oauth2.Token)}
}

// Get retrieves the stored token for a user.
func (r *MemoryTokenRepository) Get(_ context.Context, userID int64) (*oauth2.Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, ok := r.tokens[userID]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	return token, nil
}

// Put stores a user's token, replacing any previous one.
func (r *MemoryTokenRepository) Put(_ context.Context, userID int64, token *oauth2.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens[userID] = token
	return nil
}

// Delete discards a user's token. Deleting an absent token is not an error.
func (r *MemoryTokenRepository) Delete(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tokens, userID)
	return nil
}
