// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/logging"
)

// RequestIDHeader is the header carrying the request ID, echoed on responses.
const RequestIDHeader = "X-Request-Id"

// RequestIDMiddleware assigns each request an ID, reusing the inbound
// header value when the caller supplied one.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := logging.AppendCtx(r.Context(), slog.String("request_id", requestID))
			w.Header().Set(RequestIDHeader, requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
