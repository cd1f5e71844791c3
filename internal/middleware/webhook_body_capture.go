// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/notes"
)

// WebhookBodyContextKey is the context key for storing raw webhook body
type WebhookBodyContextKey struct{}

// WebhookBodyCaptureMiddleware captures the raw request body for webhook
// endpoints and stores it in the request context for signature validation.
// It also marks the request as webhook-originated on the notes.
func WebhookBodyCaptureMiddleware(webhookPaths ...string) func(http.Handler) http.Handler {
	paths := make(map[string]bool, len(webhookPaths))
	for _, p := range webhookPaths {
		paths[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if paths[r.URL.Path] {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					http.Error(w, "Failed to read request body", http.StatusBadRequest)
					return
				}
				_ = r.Body.Close()

				// Replay the same bytes for the next handler
				r.Body = io.NopCloser(bytes.NewReader(body))

				notes.FromRequest(r).IsWebhookView = true

				ctx := context.WithValue(r.Context(), WebhookBodyContextKey{}, body)
				r = r.WithContext(ctx)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetRawBodyFromContext extracts the raw body from the context
func GetRawBodyFromContext(ctx context.Context) ([]byte, bool) {
	body, ok := ctx.Value(WebhookBodyContextKey{}).([]byte)
	return body, ok
}
