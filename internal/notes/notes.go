// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package notes holds the request-scoped metadata record that middleware
// populates progressively and handlers consume. Exactly one RequestNotes
// instance exists per in-flight request; the instance is owned by that
// request's goroutine and needs no synchronization.
package notes

import (
	"context"
	"net/http"

	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/rate"
)

type ctxKey struct{}

// RealmState describes how far realm resolution has progressed for a
// request. The zero value is RealmNotFetched, so a fresh RequestNotes can
// never be misread as "confirmed no realm".
type RealmState int

const (
	RealmNotFetched RealmState = iota
	RealmAbsent
	RealmPresent
)

// RealmResolution is the tri-state result of realm lookup. A nil realm is
// only meaningful in the RealmAbsent state.
type RealmResolution struct {
	state RealmState
	realm *domain.Realm
}

// Resolved reports whether a realm lookup has been attempted at all.
func (rr RealmResolution) Resolved() bool {
	return rr.state != RealmNotFetched
}

// Realm returns the resolved realm. ok is false unless the lookup found one.
func (rr RealmResolution) Realm() (*domain.Realm, bool) {
	if rr.state != RealmPresent {
		return nil, false
	}
	return rr.realm, true
}

// SavedResponse caches a rendered response for idempotent replay of
// duplicate deliveries.
type SavedResponse struct {
	StatusCode int
	Body       []byte
}

// RequestNotes contains extra metadata associated with an in-flight HTTP
// request. Most fields are populated by middleware and may be zero before
// the middleware chain has run.
type RequestNotes struct {
	ClientName       string
	ClientVersion    string
	RequesterForLogs string
	LogData          map[string]any

	realm RealmResolution

	// RateLimitResults is append-only and chronological.
	RateLimitResults []rate.Result

	SavedResponse *SavedResponse

	processedParameters map[string]struct{}

	Form *ParsedForm

	IsWebhookView bool
}

// New returns a RequestNotes with empty containers and everything else unset.
func New() *RequestNotes {
	return &RequestNotes{
		LogData:             make(map[string]any),
		processedParameters: make(map[string]struct{}),
	}
}

// Realm returns the request's realm resolution state.
func (n *RequestNotes) Realm() RealmResolution {
	return n.realm
}

// SetRealm records the outcome of a realm lookup. A nil realm marks the
// realm as confirmed absent, which is distinct from never having looked.
func (n *RequestNotes) SetRealm(realm *domain.Realm) {
	if realm == nil {
		n.realm = RealmResolution{state: RealmAbsent}
		return
	}
	n.realm = RealmResolution{state: RealmPresent, realm: realm}
}

// MarkParameterProcessed records that a request parameter has been consumed,
// so unused or duplicated parameters can be detected after the handler runs.
func (n *RequestNotes) MarkParameterProcessed(name string) {
	n.processedParameters[name] = struct{}{}
}

// ParameterProcessed reports whether a parameter has been consumed.
func (n *RequestNotes) ParameterProcessed(name string) bool {
	_, ok := n.processedParameters[name]
	return ok
}

// ProcessedParameters returns the names of all consumed parameters.
func (n *RequestNotes) ProcessedParameters() []string {
	names := make([]string, 0, len(n.processedParameters))
	for name := range n.processedParameters {
		names = append(names, name)
	}
	return names
}

// AppendRateLimitResult appends one rate limit check outcome.
func (n *RequestNotes) AppendRateLimitResult(result rate.Result) {
	n.RateLimitResults = append(n.RateLimitResults, result)
}

// Attach associates notes with the given context. The notes middleware
// calls this once per request; everything downstream observes the same
// instance through FromContext.
func Attach(ctx context.Context, n *RequestNotes) context.Context {
	return context.WithValue(ctx, ctxKey{}, n)
}

// FromContext returns the notes attached to ctx, creating a fresh record
// when none is attached (requests outside the middleware chain, tests).
// The fallback record is not attached to ctx, so repeated calls on a bare
// context each return a distinct instance. Callers outside the middleware
// chain that need sharing must call Attach with the record themselves.
func FromContext(ctx context.Context) *RequestNotes {
	if n, ok := ctx.Value(ctxKey{}).(*RequestNotes); ok {
		return n
	}
	return New()
}

// FromRequest is shorthand for FromContext on the request's context.
func FromRequest(r *http.Request) *RequestNotes {
	return FromContext(r.Context())
}
