// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"
	"fmt"
	"sync"
)

// Provider names used in request paths and the registry.
const (
	ProviderZoom          = "zoom"
	ProviderBigBlueButton = "bigbluebutton"
	ProviderNextcloudTalk = "nextcloud_talk"
)

// CreateCallOptions are the caller-supplied parameters for minting a call
// URL. Providers read only the fields they understand.
type CreateCallOptions struct {
	MeetingName string
	IsVideoCall bool
	VoiceOnly   bool
}

// CallProvider mints a call URL for a user on one external platform.
type CallProvider interface {
	CreateCall(ctx context.Context, user User, opts CreateCallOptions) (string, error)
}

// ProviderRegistry manages call providers by name.
type ProviderRegistry interface {
	GetProvider(name string) (CallProvider, error)
	RegisterProvider(name string, provider CallProvider)
}

// Registry implements the ProviderRegistry interface.
type Registry struct {
	providers map[string]CallProvider
	mu        sync.RWMutex
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]CallProvider),
	}
}

// GetProvider returns the call provider registered under the given name.
func (r *Registry) GetProvider(name string) (CallProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[name]
	if !exists {
		return nil, fmt.Errorf("call provider not registered: %s", name)
	}

	return provider, nil
}

// RegisterProvider registers a call provider under the given name.
func (r *Registry) RegisterProvider(name string, provider CallProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers[name] = provider
}
