// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/logging"
)

// flags are the command line flags for the video call service.
type flags struct {
	Debug bool
	Port  string
	Bind  string
}

// environment are the environment variables for the video call service.
type environment struct {
	Port           string
	NatsURL        string
	RedisAddr      string
	SessionHMACKey string
	Realms         map[string]*domain.Realm
	Zoom           zoomConfig
	BigBlueButton  bbbConfig
	Nextcloud      nextcloudConfig
	RateLimit      rateLimitConfig
}

// zoomConfig holds Zoom API credentials.
type zoomConfig struct {
	AccountID          string
	ClientID           string
	ClientSecret       string
	RedirectURL        string
	WebhookSecretToken string
}

// bbbConfig holds BigBlueButton server settings.
type bbbConfig struct {
	URL    string
	Secret string
}

// nextcloudConfig holds Nextcloud Talk server settings.
type nextcloudConfig struct {
	Server   string
	Username string
	Password string
}

// rateLimitConfig holds the per-client request budget.
type rateLimitConfig struct {
	Requests int64
	Window   time.Duration
}

// parseFlags parses command line flags for the video call service
func parseFlags(defaultPort string) flags {
	var debug = flag.Bool("d", false, "enable debug logging")
	var port = flag.String("p", defaultPort, "listen port")
	var bind = flag.String("bind", "*", "interface to bind on")

	flag.Usage = func() {
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()

	// Based on the debug flag, set the log level environment variable used by [logging.InitStructureLogConfig]
	if *debug {
		err := os.Setenv("LOG_LEVEL", "debug")
		if err != nil {
			slog.With(logging.ErrKey, err).Error("error setting log level")
			os.Exit(1)
		}
	}

	return flags{
		Debug: *debug,
		Port:  *port,
		Bind:  *bind,
	}
}

// parseEnv parses environment variables for the video call service
func parseEnv() environment {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return environment{
		Port:           port,
		NatsURL:        os.Getenv("NATS_URL"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		SessionHMACKey: os.Getenv("SESSION_HMAC_KEY"),
		Realms:         parseRealms(),
		Zoom: zoomConfig{
			AccountID:          os.Getenv("ZOOM_ACCOUNT_ID"),
			ClientID:           os.Getenv("ZOOM_CLIENT_ID"),
			ClientSecret:       os.Getenv("ZOOM_CLIENT_SECRET"),
			RedirectURL:        os.Getenv("ZOOM_REDIRECT_URL"),
			WebhookSecretToken: os.Getenv("ZOOM_WEBHOOK_SECRET_TOKEN"),
		},
		BigBlueButton: bbbConfig{
			URL:    os.Getenv("BIG_BLUE_BUTTON_URL"),
			Secret: os.Getenv("BIG_BLUE_BUTTON_SECRET"),
		},
		Nextcloud: nextcloudConfig{
			Server:   os.Getenv("NEXTCLOUD_SERVER"),
			Username: os.Getenv("NEXTCLOUD_USERNAME"),
			Password: os.Getenv("NEXTCLOUD_PASSWORD"),
		},
		RateLimit: parseRateLimit(),
	}
}

// parseRealms parses the REALM_MAP environment variable, a JSON object
// mapping subdomains to realm base URLs.
func parseRealms() map[string]*domain.Realm {
	raw := os.Getenv("REALM_MAP")
	if raw == "" {
		return nil
	}

	var byURL map[string]string
	if err := json.Unmarshal([]byte(raw), &byURL); err != nil {
		slog.With(logging.ErrKey, err).Error("invalid REALM_MAP provided, ignoring")
		return nil
	}

	realms := make(map[string]*domain.Realm, len(byURL))
	for subdomain, url := range byURL {
		realms[subdomain] = &domain.Realm{Subdomain: subdomain, URL: url}
	}
	return realms
}

// parseRateLimit parses rate limit settings, defaulting to 200 requests per
// minute per client.
func parseRateLimit() rateLimitConfig {
	cfg := rateLimitConfig{
		Requests: 200,
		Window:   time.Minute,
	}

	if raw := os.Getenv("RATE_LIMIT_REQUESTS"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			slog.With("value", raw).Error("invalid RATE_LIMIT_REQUESTS provided, using default")
		} else {
			cfg.Requests = n
		}
	}

	if raw := os.Getenv("RATE_LIMIT_WINDOW"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			slog.With("value", raw).Error("invalid RATE_LIMIT_WINDOW provided, using default")
		} else {
			cfg.Window = d
		}
	}

	return cfg
}
