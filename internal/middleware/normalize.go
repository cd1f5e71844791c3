// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/notes"
)

// maxMultipartMemory bounds the in-memory portion of multipart parsing;
// larger file parts spill to temporary files.
const maxMultipartMemory = 32 << 20

// BodyNormalizerMiddleware parses form-encoded request bodies into the
// uniform ParsedForm on the request notes. Multipart bodies yield a field
// map plus file map, URL-encoded bodies a field map; any other content type
// is left untouched for the handler to read raw. The form is frozen before
// the handler runs.
func BodyNormalizerMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			contentType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			n := notes.FromRequest(r)

			switch contentType {
			case "multipart/form-data":
				if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
					slog.WarnContext(r.Context(), "failed to parse multipart body", logging.ErrKey, err)
					http.Error(w, "Malformed multipart body", http.StatusBadRequest)
					return
				}
				form := notes.NewParsedForm(url.Values(r.MultipartForm.Value))
				for name, headers := range r.MultipartForm.File {
					for _, header := range headers {
						_ = form.AddFile(name, header)
					}
				}
				form.Freeze()
				n.Form = form

			case "application/x-www-form-urlencoded":
				// Percent-decoding yields UTF-8 bytes; a body declared in
				// another encoding cannot be decoded as-is.
				if cs, ok := params["charset"]; ok && !isUTF8Charset(cs) {
					http.Error(w, "Unsupported charset in Content-Type", http.StatusUnsupportedMediaType)
					return
				}
				body, err := io.ReadAll(r.Body)
				if err != nil {
					http.Error(w, "Failed to read request body", http.StatusBadRequest)
					return
				}
				_ = r.Body.Close()
				r.Body = io.NopCloser(bytes.NewReader(body))

				fields, err := url.ParseQuery(string(body))
				if err != nil {
					slog.WarnContext(r.Context(), "failed to parse url-encoded body", logging.ErrKey, err)
					http.Error(w, "Malformed form body", http.StatusBadRequest)
					return
				}
				form := notes.NewParsedForm(fields)
				form.Freeze()
				n.Form = form
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isUTF8Charset reports whether the declared charset decodes as UTF-8.
func isUTF8Charset(charset string) bool {
	switch strings.ToLower(charset) {
	case "utf-8", "utf8", "us-ascii", "ascii":
		return true
	}
	return false
}
