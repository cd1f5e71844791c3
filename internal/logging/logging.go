// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package logging contains the logging functionality for the video call service.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

type ctxKey string

// ErrKey is the conventional attribute key for error values.
const ErrKey = "error"

const (
	slogFields ctxKey = "slog_fields"

	// Log field for errors that should page someone.
	priorityCritical = "critical"
)

// contextHandler injects attributes accumulated on the context into every
// record, so request-scoped fields (request ID, requester) appear on all
// log lines without threading a logger through call sites.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(slogFields).([]slog.Attr); ok {
		r.AddAttrs(attrs...)
	}
	return h.Handler.Handle(ctx, r)
}

// AppendCtx adds an slog attribute to the provided context so that it will
// be included in any record created with such context.
func AppendCtx(parent context.Context, attr slog.Attr) context.Context {
	if parent == nil {
		parent = context.Background()
	}

	if v, ok := parent.Value(slogFields).([]slog.Attr); ok {
		attrs := make([]slog.Attr, len(v), len(v)+1)
		copy(attrs, v)
		return context.WithValue(parent, slogFields, append(attrs, attr))
	}

	return context.WithValue(parent, slogFields, []slog.Attr{attr})
}

// InitStructureLogConfig installs the JSON handler as the slog default.
// LOG_LEVEL selects the level (debug, info, warn, error) and
// LOG_ADD_SOURCE enables source locations.
func InitStructureLogConfig() slog.Handler {
	opts := &slog.HandlerOptions{
		Level: parseLevel(os.Getenv("LOG_LEVEL")),
	}

	switch os.Getenv("LOG_ADD_SOURCE") {
	case "true", "t", "1":
		opts.AddSource = true
	}

	h := slog.NewJSONHandler(os.Stdout, opts)
	slog.SetDefault(slog.New(contextHandler{h}))

	slog.Info("log config",
		"logLevel", opts.Level,
		"addSource", opts.AddSource,
	)

	return h
}

func parseLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(raw))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Priority creates a slog.Attr for error priority classification.
func Priority(level string) slog.Attr {
	return slog.String("priority", level)
}

// PriorityCritical marks errors that warrant escalation.
func PriorityCritical() slog.Attr {
	return Priority(priorityCritical)
}
