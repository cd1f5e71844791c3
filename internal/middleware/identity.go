// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/notes"
)

type userCtxKey struct{}

// Identity headers set by the authenticating gateway in front of this
// service. Authentication itself is not this service's concern.
const (
	UserIDHeader    = "X-User-Id"
	UserEmailHeader = "X-User-Email"
	UserNameHeader  = "X-User-Name"
)

// IdentityMiddleware resolves the authenticated user from the gateway
// headers and records the requester on the notes for audit logs. Requests
// without an identity proceed; handlers that need a user reject them.
func IdentityMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawID := r.Header.Get(UserIDHeader)
			if rawID == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := strconv.ParseInt(rawID, 10, 64)
			if err != nil {
				http.Error(w, "Invalid user identity", http.StatusUnauthorized)
				return
			}

			user := &domain.User{
				ID:       id,
				Email:    r.Header.Get(UserEmailHeader),
				FullName: r.Header.Get(UserNameHeader),
			}

			n := notes.FromRequest(r)
			n.RequesterForLogs = "user:" + rawID

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

// ContextWithUser returns a context carrying the authenticated user.
func ContextWithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, user)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userCtxKey{}).(*domain.User)
	return user, ok
}
