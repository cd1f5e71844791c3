// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/handlers"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/rate"
)

// setupHTTPServer configures and starts the HTTP server
func setupHTTPServer(
	flags flags,
	callHandler *handlers.CallHandler,
	realmResolver middleware.RealmResolver,
	limiter rate.Limiter,
	gracefulCloseWG *sync.WaitGroup,
) *http.Server {
	router := chi.NewRouter()

	// Note: Order matters - RequestIDMiddleware runs first so every later
	// stage logs with the request ID, and the notes must exist before any
	// middleware that writes to them.
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RequestNotesMiddleware())
	router.Use(middleware.RealmMiddleware(realmResolver))
	router.Use(middleware.IdentityMiddleware())
	router.Use(middleware.RateLimitMiddleware(limiter))
	router.Use(middleware.BodyNormalizerMiddleware())
	router.Use(middleware.WebhookBodyCaptureMiddleware("/calls/zoom/deauthorize"))

	callHandler.Routes(router)

	router.Get("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK\n"))
	})
	router.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK\n"))
	})

	// Set up http listener in a goroutine using provided command line parameters.
	var addr string
	if flags.Bind == "*" {
		addr = ":" + flags.Port
	} else {
		addr = flags.Bind + ":" + flags.Port
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	gracefulCloseWG.Add(1)
	go func() {
		slog.With("addr", addr).Debug("starting http server, listening on port " + flags.Port)
		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			slog.With(logging.ErrKey, err).Error("http listener error")
			os.Exit(1)
		}
		// Because ErrServerClosed is *immediately* returned when Shutdown is
		// called, not when Shutdown completes, this must not yet decrement
		// the wait group.
	}()

	return httpServer
}
