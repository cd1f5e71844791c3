// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/notes"
)

// userAgentParser splits a "Name/Version" user agent into its parts.
func parseUserAgent(userAgent string) (name, version string) {
	for i := 0; i < len(userAgent); i++ {
		if userAgent[i] == '/' {
			return userAgent[:i], userAgent[i+1:]
		}
	}
	return userAgent, ""
}

// RequestNotesMiddleware attaches a fresh RequestNotes record to each
// request and logs the request and response around the handler chain.
// Health check endpoints (/livez and /readyz) are excluded from logging to
// reduce noise.
func RequestNotesMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now().UTC()

			isHealthCheck := r.URL.Path == "/livez" || r.URL.Path == "/readyz"

			n := notes.New()
			n.ClientName, n.ClientVersion = parseUserAgent(r.UserAgent())

			ctx := notes.Attach(r.Context(), n)
			ctx = logging.AppendCtx(ctx, slog.String("method", r.Method))
			ctx = logging.AppendCtx(ctx, slog.String("path", r.URL.Path))
			ctx = logging.AppendCtx(ctx, slog.String("query", r.URL.RawQuery))
			ctx = logging.AppendCtx(ctx, slog.String("host", r.Host))
			ctx = logging.AppendCtx(ctx, slog.String("user_agent", r.UserAgent()))
			ctx = logging.AppendCtx(ctx, slog.String("remote_addr", r.RemoteAddr))

			r = r.WithContext(ctx)

			// Response writer wrapper to capture the status code
			ww := &responseWriter{ResponseWriter: w}

			if !isHealthCheck {
				slog.InfoContext(ctx, "HTTP request")
			}

			next.ServeHTTP(ww, r)

			duration := time.Since(start)

			if !isHealthCheck {
				attrs := []any{
					"status", ww.statusCode,
					"duration", duration.String(),
				}
				if n.RequesterForLogs != "" {
					attrs = append(attrs, "requester", n.RequesterForLogs)
				}
				for k, v := range n.LogData {
					attrs = append(attrs, k, v)
				}
				if ignored := ignoredParameters(r, n); len(ignored) > 0 {
					attrs = append(attrs, "ignored_parameters", ignored)
				}
				slog.InfoContext(ctx, "HTTP response", attrs...)
			}
		})
	}
}

// ignoredParameters returns the request parameters no handler consumed,
// sorted. Webhook bodies are opaque to the parameter machinery and are
// skipped.
func ignoredParameters(r *http.Request, n *notes.RequestNotes) []string {
	if n.IsWebhookView {
		return nil
	}

	seen := make(map[string]struct{})
	var names []string
	add := func(name string) {
		if _, dup := seen[name]; dup || n.ParameterProcessed(name) {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	for name := range r.URL.Query() {
		add(name)
	}
	if n.Form != nil {
		for _, name := range n.Form.FieldNames() {
			add(name)
		}
	}

	sort.Strings(names)
	return names
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.statusCode == 0 {
		rw.statusCode = http.StatusOK
	}
	return rw.ResponseWriter.Write(b)
}
