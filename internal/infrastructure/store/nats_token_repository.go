// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package store persists per-user OAuth tokens in a NATS JetStream
// key-value bucket, with an in-memory implementation for tests and
// single-node runs.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/logging"
)

// KVStoreNameOAuthTokens is the NATS KV bucket holding user OAuth tokens.
const KVStoreNameOAuthTokens = "oauth-tokens"

// tracerName is the instrumentation name for the store package.
const tracerName = "github.com/linuxfoundation/lfx-v2-video-call-service/internal/infrastructure/store"

// INatsKeyValue is the NATS KV interface needed by the token repository.
// It matches jetstream.KeyValue and allows for mocking in tests.
type INatsKeyValue interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	Delete(ctx context.Context, key string, opts ...jetstream.KVDeleteOpt) error
}

// NatsTokenRepository stores per-user OAuth tokens in a NATS KV bucket.
type NatsTokenRepository struct {
	kvStore INatsKeyValue
}

// Ensure that NatsTokenRepository implements TokenRepository
var _ domain.TokenRepository = (*NatsTokenRepository)(nil)

// NewNatsTokenRepository creates a token repository over the given bucket.
func NewNatsTokenRepository(kvStore INatsKeyValue) *NatsTokenRepository {
	return &NatsTokenRepository{kvStore: kvStore}
}

// IsReady checks if the repository is ready for use
func (r *NatsTokenRepository) IsReady() bool {
	return r.kvStore != nil
}

func tokenKey(userID int64) string {
	return "user." + strconv.FormatInt(userID, 10)
}

// Get retrieves the stored token for a user.
func (r *NatsTokenRepository) Get(ctx context.Context, userID int64) (*oauth2.Token, error) {
	key := tokenKey(userID)
	ctx, span := otel.Tracer(tracerName).Start(ctx, "nats.kv.get",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "nats"),
			attribute.String("db.operation", "get"),
			attribute.String("db.nats.key", key),
			attribute.String("db.nats.entity", "oauth-token"),
		),
	)
	defer span.End()

	if !r.IsReady() {
		err := errors.New("token repository is not available")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	entry, err := r.kvStore.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrTokenNotFound
		}
		slog.ErrorContext(ctx, "error getting OAuth token from NATS KV",
			logging.ErrKey, err, "key", key)
		err = fmt.Errorf("failed to retrieve token from store: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var token oauth2.Token
	if err := json.Unmarshal(entry.Value(), &token); err != nil {
		slog.ErrorContext(ctx, "error unmarshaling OAuth token", logging.ErrKey, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to unmarshal token data: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return &token, nil
}

// Put stores a user's token, replacing any previous one.
func (r *NatsTokenRepository) Put(ctx context.Context, userID int64, token *oauth2.Token) error {
	key := tokenKey(userID)
	ctx, span := otel.Tracer(tracerName).Start(ctx, "nats.kv.put",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "nats"),
			attribute.String("db.operation", "put"),
			attribute.String("db.nats.key", key),
			attribute.String("db.nats.entity", "oauth-token"),
		),
	)
	defer span.End()

	if !r.IsReady() {
		err := errors.New("token repository is not available")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	data, err := json.Marshal(token)
	if err != nil {
		slog.ErrorContext(ctx, "error marshaling OAuth token", logging.ErrKey, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to marshal token data: %w", err)
	}

	if _, err := r.kvStore.Put(ctx, key, data); err != nil {
		slog.ErrorContext(ctx, "error putting OAuth token into NATS KV",
			logging.ErrKey, err, "key", key)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to store token: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Delete discards a user's token. Deleting an absent token is not an error.
func (r *NatsTokenRepository) Delete(ctx context.Context, userID int64) error {
	key := tokenKey(userID)
	ctx, span := otel.Tracer(tracerName).Start(ctx, "nats.kv.delete",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "nats"),
			attribute.String("db.operation", "delete"),
			attribute.String("db.nats.key", key),
			attribute.String("db.nats.entity", "oauth-token"),
		),
	)
	defer span.End()

	if !r.IsReady() {
		err := errors.New("token repository is not available")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := r.kvStore.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		slog.ErrorContext(ctx, "error deleting OAuth token from NATS KV",
			logging.ErrKey, err, "key", key)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to delete token: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}
