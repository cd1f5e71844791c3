// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package handlers implements the HTTP surface of the video call service.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/infrastructure/zoom/webhook"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/notes"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/service"
)

// Fixed messages for request-level failures.
const (
	msgNotLoggedIn       = "Not logged in"
	msgInvalidZoomSID    = "Invalid Zoom session identifier"
	msgUnknownProvider   = "Unknown video call provider"
	msgMalformedPayload  = "Malformed payload"
	msgInvalidSignature  = "Webhook signature verification failed"
	msgMissingArgFormat  = "Missing '%s' argument"
	msgBadValueArgFormat = "Bad value for '%s': %s"
)

// RealmDirectory resolves realms by subdomain for cross-realm OAuth
// redirects. Realm data is owned by the host system.
type RealmDirectory interface {
	RealmBySubdomain(subdomain string) (*domain.Realm, bool)
}

// SessionAuthenticator derives and checks the anti-forgery session
// identifier round-tripped through the Zoom OAuth state parameter.
type SessionAuthenticator interface {
	SessionID(r *http.Request) string
	ValidateSessionID(r *http.Request, sid string) bool
}

// CallHandler serves the call-creation and OAuth endpoints.
type CallHandler struct {
	service          *service.CallService
	realms           RealmDirectory
	sessions         SessionAuthenticator
	webhookValidator *webhook.Validator
}

// NewCallHandler creates the handler. realms, sessions and the webhook
// validator may be nil when the corresponding surface is unused.
func NewCallHandler(
	svc *service.CallService,
	realms RealmDirectory,
	sessions SessionAuthenticator,
	webhookValidator *webhook.Validator,
) *CallHandler {
	return &CallHandler{
		service:          svc,
		realms:           realms,
		sessions:         sessions,
		webhookValidator: webhookValidator,
	}
}

// Routes mounts all endpoints on the router.
func (h *CallHandler) Routes(r chi.Router) {
	r.Get("/calls/zoom/register", h.RegisterZoom)
	r.Get("/calls/zoom/complete", h.CompleteZoom)
	r.Post("/calls/zoom/deauthorize", h.DeauthorizeZoom)
	r.Get("/json/calls/{provider}/create", h.CreateCall)
	r.Post("/json/calls/{provider}/create", h.CreateCall)
	r.Get("/calls/bigbluebutton/join", h.JoinBigBlueButton)
}

// param reads a request parameter from the normalized form body, falling
// back to the query string, and marks it consumed on the notes.
func param(r *http.Request, name string) (string, bool) {
	n := notes.FromRequest(r)
	n.MarkParameterProcessed(name)

	if n.Form != nil && n.Form.Has(name) {
		return n.Form.Get(name), true
	}
	if r.URL.Query().Has(name) {
		return r.URL.Query().Get(name), true
	}
	return "", false
}

// boolParam parses a stringified boolean parameter with a default.
func boolParam(r *http.Request, name string, def bool) (bool, error) {
	raw, ok := param(r, name)
	if !ok {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf(msgBadValueArgFormat, name, raw)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeSuccess renders the success envelope with extra payload fields.
func writeSuccess(w http.ResponseWriter, extra map[string]any) {
	body := map[string]any{"result": "success", "msg": ""}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

// writeError renders the error envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"result": "error", "msg": msg})
}

// writeCallError renders a provider error as its fixed message and status.
func writeCallError(w http.ResponseWriter, err error) {
	writeError(w, domain.GetErrorKind(err).HTTPStatus(), domain.ErrorMessage(err))
}

// requireUser returns the authenticated user or renders the error itself.
func requireUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, msgNotLoggedIn)
		return nil, false
	}
	return user, true
}

// zoomState is the JSON payload round-tripped through the OAuth state
// query parameter.
type zoomState struct {
	Realm string `json:"realm"`
	SID   string `json:"sid"`
}

// currentRealmSubdomain returns the subdomain of the request's realm, if
// resolution found one.
func currentRealmSubdomain(r *http.Request) string {
	if realm, ok := notes.FromRequest(r).Realm().Realm(); ok {
		return realm.Subdomain
	}
	return ""
}

// RegisterZoom redirects the user to the Zoom consent page. The state
// carries the realm and a session identifier so the callback can land on
// the right realm and reject forged callbacks.
func (h *CallHandler) RegisterZoom(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	var sid string
	if h.sessions != nil {
		sid = h.sessions.SessionID(r)
	}
	state, err := json.Marshal(zoomState{
		Realm: currentRealmSubdomain(r),
		SID:   sid,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	authURL, err := h.service.ZoomAuthorizeURL(string(state))
	if err != nil {
		writeCallError(w, err)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// CompleteZoom handles the OAuth callback: it forwards callbacks that
// belong to another realm, validates the session identifier and exchanges
// the authorization code.
func (h *CallHandler) CompleteZoom(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	code, ok := param(r, "code")
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf(msgMissingArgFormat, "code"))
		return
	}
	rawState, ok := param(r, "state")
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf(msgMissingArgFormat, "state"))
		return
	}

	var state zoomState
	if err := json.Unmarshal([]byte(rawState), &state); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf(msgBadValueArgFormat, "state", rawState))
		return
	}

	// The consent flow always lands on the root host; bounce the browser
	// to the realm the flow started on.
	if state.Realm != currentRealmSubdomain(r) && h.realms != nil {
		realm, found := h.realms.RealmBySubdomain(state.Realm)
		if found {
			http.Redirect(w, r, realm.URL+r.URL.RequestURI(), http.StatusFound)
			return
		}
	}

	if h.sessions != nil && !h.sessions.ValidateSessionID(r, state.SID) {
		writeError(w, http.StatusBadRequest, msgInvalidZoomSID)
		return
	}

	if err := h.service.CompleteZoomAuth(r.Context(), *user, code); err != nil {
		writeCallError(w, err)
		return
	}

	writeSuccess(w, nil)
}

// CreateCall mints a call URL with the provider named in the path.
func (h *CallHandler) CreateCall(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	provider := chi.URLParam(r, "provider")
	switch provider {
	case domain.ProviderZoom, domain.ProviderBigBlueButton, domain.ProviderNextcloudTalk:
	default:
		writeError(w, http.StatusNotFound, msgUnknownProvider)
		return
	}

	meetingName, _ := param(r, "meeting_name")
	if meetingName == "" && provider != domain.ProviderZoom {
		writeError(w, http.StatusBadRequest, fmt.Sprintf(msgMissingArgFormat, "meeting_name"))
		return
	}

	isVideoCall, err := boolParam(r, "is_video_call", true)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	voiceOnly, err := boolParam(r, "voice_only", false)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	url, err := h.service.CreateCall(r.Context(), provider, *user, domain.CreateCallOptions{
		MeetingName: meetingName,
		IsVideoCall: isVideoCall,
		VoiceOnly:   voiceOnly,
	})
	if err != nil {
		writeCallError(w, err)
		return
	}

	writeSuccess(w, map[string]any{"url": url})
}

// JoinBigBlueButton verifies the signed token and redirects the user into
// the meeting.
func (h *CallHandler) JoinBigBlueButton(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	token, ok := param(r, "bigbluebutton")
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf(msgMissingArgFormat, "bigbluebutton"))
		return
	}

	redirectURL, err := h.service.JoinBigBlueButton(r.Context(), token, *user)
	if err != nil {
		writeCallError(w, err)
		return
	}

	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// deauthorizePayload is the body of Zoom's app_deauthorized event.
type deauthorizePayload struct {
	Event   string `json:"event"`
	Payload struct {
		AccountID string `json:"account_id"`
		UserID    string `json:"user_id"`
		ClientID  string `json:"client_id"`
	} `json:"payload"`
}

// DeauthorizeZoom acknowledges Zoom's deauthorization webhook. The request
// is webhook-originated, so it carries no user identity; the event is
// validated, logged and acknowledged. Duplicate deliveries that arrive with
// a saved response on the notes get that response replayed verbatim.
func (h *CallHandler) DeauthorizeZoom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n := notes.FromRequest(r)
	n.IsWebhookView = true

	if saved := n.SavedResponse; saved != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(saved.StatusCode)
		_, _ = w.Write(saved.Body)
		return
	}

	body, ok := middleware.GetRawBodyFromContext(ctx)
	if !ok {
		writeError(w, http.StatusBadRequest, msgMalformedPayload)
		return
	}

	if h.webhookValidator != nil {
		err := h.webhookValidator.ValidateSignature(
			body,
			r.Header.Get("X-Zm-Signature"),
			r.Header.Get("X-Zm-Request-Timestamp"),
		)
		if err != nil {
			slog.WarnContext(ctx, "rejected Zoom webhook", logging.ErrKey, err)
			writeError(w, http.StatusUnauthorized, msgInvalidSignature)
			return
		}
	}

	var payload deauthorizePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, msgMalformedPayload)
		return
	}

	slog.InfoContext(ctx, "Zoom app deauthorized",
		"event", payload.Event,
		"zoom_account_id", payload.Payload.AccountID,
		"zoom_user_id", payload.Payload.UserID,
	)

	// Record the acknowledgement so a retried delivery can be answered
	// without re-validating.
	ack, err := json.Marshal(map[string]any{"result": "success", "msg": ""})
	if err == nil {
		n.SavedResponse = &notes.SavedResponse{StatusCode: http.StatusOK, Body: ack}
	}

	writeSuccess(w, nil)
}
