// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tc := range tests {
		t.Run("level "+tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.want, parseLevel(tc.raw))
		})
	}
}

func TestContextHandlerAddsContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(contextHandler{slog.NewJSONHandler(&buf, nil)})

	ctx := AppendCtx(context.Background(), slog.String("request_id", "req-1"))
	ctx = AppendCtx(ctx, slog.String("requester", "user:7"))

	logger.InfoContext(ctx, "hello")

	line := buf.String()
	assert.Contains(t, line, `"request_id":"req-1"`)
	assert.Contains(t, line, `"requester":"user:7"`)
}

func TestAppendCtxDoesNotMutateParent(t *testing.T) {
	base := AppendCtx(context.Background(), slog.String("a", "1"))
	child1 := AppendCtx(base, slog.String("b", "2"))
	child2 := AppendCtx(base, slog.String("c", "3"))

	var buf bytes.Buffer
	logger := slog.New(contextHandler{slog.NewJSONHandler(&buf, nil)})
	logger.InfoContext(child1, "one")
	logger.InfoContext(child2, "two")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Contains(t, lines[0], `"b":"2"`)
	assert.NotContains(t, lines[0], `"c":"3"`)
	assert.Contains(t, lines[1], `"c":"3"`)
	assert.NotContains(t, lines[1], `"b":"2"`)
}
