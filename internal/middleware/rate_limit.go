// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/notes"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/rate"
)

// clientIP returns the requester address without the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitMiddleware checks the limiter for each request and appends the
// result to the request notes. A denied check short-circuits with 429; a
// limiter backend failure lets the request through rather than failing
// closed.
func RateLimitMiddleware(limiter rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := clientIP(r) + "|" + r.URL.Path
			result, err := limiter.Allow(r.Context(), key)
			if err != nil {
				slog.WarnContext(r.Context(), "rate limiter check failed", logging.ErrKey, err)
				next.ServeHTTP(w, r)
				return
			}

			n := notes.FromRequest(r)
			n.AppendRateLimitResult(result)

			if !result.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"result": "error",
					"msg": fmt.Sprintf(
						"API usage exceeded rate limit, try again in %d secs",
						int(result.RetryAfter.Seconds()),
					),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
