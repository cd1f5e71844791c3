// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package main is the video call service API that mints call URLs with the
// configured providers and handles the Zoom OAuth and webhook flows.
package main

import (
	"context"
	_ "expvar"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/handlers"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/infrastructure/bigbluebutton"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/infrastructure/nextcloud"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/infrastructure/zoom"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/infrastructure/zoom/webhook"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/service"
)

func main() {
	env := parseEnv()
	flags := parseFlags(env.Port)

	logging.InitStructureLogConfig()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	gracefulCloseWG := sync.WaitGroup{}

	// Setup NATS connection for token storage
	natsConn, err := setupNATS(env, &gracefulCloseWG, done)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up NATS", logging.PriorityCritical())
		return
	}

	tokenRepo, err := setupTokenRepository(ctx, natsConn)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up token repository", logging.PriorityCritical())
		return
	}

	// Initialize call providers
	zoomClient := zoom.NewClient(zoom.Config{
		AccountID:    env.Zoom.AccountID,
		ClientID:     env.Zoom.ClientID,
		ClientSecret: env.Zoom.ClientSecret,
		RedirectURL:  env.Zoom.RedirectURL,
	}, tokenRepo)
	bbbClient := bigbluebutton.NewClient(bigbluebutton.Config{
		URL:    env.BigBlueButton.URL,
		Secret: env.BigBlueButton.Secret,
	}, bigbluebutton.NewSigner([]byte(env.BigBlueButton.Secret)))
	nextcloudClient := nextcloud.NewClient(nextcloud.Config{
		Server:   env.Nextcloud.Server,
		Username: env.Nextcloud.Username,
		Password: env.Nextcloud.Password,
	})

	registry := domain.NewRegistry()
	registry.RegisterProvider(domain.ProviderZoom, zoomClient)
	registry.RegisterProvider(domain.ProviderBigBlueButton, bbbClient)
	registry.RegisterProvider(domain.ProviderNextcloudTalk, nextcloudClient)

	// Initialize services and handlers
	callService := service.NewCallService(registry, zoomClient, bbbClient)

	var webhookValidator *webhook.Validator
	if env.Zoom.WebhookSecretToken != "" {
		webhookValidator = webhook.NewValidator(env.Zoom.WebhookSecretToken)
	}
	realmResolver := &middleware.StaticRealmResolver{Realms: env.Realms}
	callHandler := handlers.NewCallHandler(
		callService,
		realmResolver,
		handlers.NewHMACSessionAuthenticator(env.SessionHMACKey),
		webhookValidator,
	)

	httpServer := setupHTTPServer(flags, callHandler, realmResolver, setupLimiter(env), &gracefulCloseWG)

	// This next line blocks until SIGINT or SIGTERM is received.
	<-done

	gracefulShutdown(httpServer, natsConn, &gracefulCloseWG, cancel)
}

// gracefulShutdown drains the HTTP server and NATS connection, waiting up to
// a deadline for in-flight work to finish.
func gracefulShutdown(httpServer *http.Server, natsConn *nats.Conn, gracefulCloseWG *sync.WaitGroup, cancel context.CancelFunc) {
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.With(logging.ErrKey, err).Error("http server shutdown error")
	}
	gracefulCloseWG.Done()

	if natsConn != nil && !natsConn.IsClosed() {
		// Drain flushes pending messages and triggers the ClosedHandler,
		// which releases the connection's wait group slot.
		if err := natsConn.Drain(); err != nil {
			slog.With(logging.ErrKey, err).Error("NATS drain error")
		}
	}

	cancel()

	waited := make(chan struct{})
	go func() {
		gracefulCloseWG.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		slog.Info("shutdown complete")
	case <-shutdownCtx.Done():
		slog.Warn("shutdown deadline exceeded, exiting")
	}
}
