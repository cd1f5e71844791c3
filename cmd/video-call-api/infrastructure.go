// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	rdb "github.com/redis/go-redis/v9"

	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/rate"
)

// setupNATS connects to NATS, or returns nil when no URL is configured and
// the service should fall back to in-memory storage.
func setupNATS(env environment, gracefulCloseWG *sync.WaitGroup, done chan os.Signal) (*nats.Conn, error) {
	if env.NatsURL == "" {
		slog.Warn("NATS_URL not set, using in-memory token storage")
		return nil, nil
	}

	gracefulCloseWG.Add(1)
	natsConn, err := nats.Connect(
		env.NatsURL,
		nats.DrainTimeout(10*time.Second),
		nats.ConnectHandler(func(_ *nats.Conn) {
			slog.With("nats_url", env.NatsURL).Info("NATS connection established")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			slog.With(logging.ErrKey, err).Error("NATS error")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			slog.Info("NATS connection closed")
			gracefulCloseWG.Done()
			// If the connection drops outside of shutdown, exit via the
			// signal channel so the process restarts cleanly.
			select {
			case done <- os.Interrupt:
			default:
			}
		}),
	)
	if err != nil {
		gracefulCloseWG.Done()
		return nil, err
	}

	return natsConn, nil
}

// setupTokenRepository builds the OAuth token repository over the NATS KV
// bucket, creating the bucket on first run. A nil connection selects the
// in-memory repository.
func setupTokenRepository(ctx context.Context, natsConn *nats.Conn) (domain.TokenRepository, error) {
	if natsConn == nil {
		return store.NewMemoryTokenRepository(), nil
	}

	js, err := jetstream.New(natsConn)
	if err != nil {
		return nil, err
	}

	kv, err := js.KeyValue(ctx, store.KVStoreNameOAuthTokens)
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketNotFound) {
			return nil, err
		}
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket: store.KVStoreNameOAuthTokens,
		})
		if err != nil {
			return nil, err
		}
	}

	return store.NewNatsTokenRepository(kv), nil
}

// setupLimiter selects the Redis-backed limiter when an address is
// configured, otherwise the in-process one.
func setupLimiter(env environment) rate.Limiter {
	if env.RedisAddr == "" {
		slog.Warn("REDIS_ADDR not set, rate limiting is per-process only")
		return rate.NewMemoryLimiter("", int(env.RateLimit.Requests), env.RateLimit.Window)
	}

	client := rdb.NewClient(&rdb.Options{Addr: env.RedisAddr})
	return rate.NewRedisLimiter(client, "", int(env.RateLimit.Requests), env.RateLimit.Window)
}
