// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"errors"
	"net/http"
)

// ErrorKind represents the semantic category of a provider error.
type ErrorKind int

const (
	ErrorKindNotConfigured      ErrorKind = iota // Provider secrets/URL missing (400 Bad Request)
	ErrorKindInvalidCredentials                  // Token exchange or upstream auth rejected (400 Bad Request)
	ErrorKindInvalidToken                        // Access token expired or revoked (400 Bad Request)
	ErrorKindUnknownRemoteUser                   // Provider does not know the requesting user (400 Bad Request)
	ErrorKindSignatureInvalid                    // Signed payload failed verification (400 Bad Request)
	ErrorKindUpstreamUnavailable                 // Network/transport failure reaching the provider (502 Bad Gateway)
	ErrorKindUpstreamRejected                    // Provider returned a non-2xx with an unrecognized cause (502 Bad Gateway)
	ErrorKindMalformedResponse                   // Provider response missing required fields (502 Bad Gateway)
)

// CallError is an error from a video call provider with semantic kind
// information. Message is the fixed, caller-facing text for the kind; raw
// upstream payloads belong in server-side logs, never in Message.
type CallError struct {
	Kind    ErrorKind
	Message string
	Err     error // underlying error for wrapping
}

func (e *CallError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// GetErrorKind returns the semantic kind of an error. Errors that are not
// CallErrors classify as upstream rejections.
func GetErrorKind(err error) ErrorKind {
	var callErr *CallError
	if errors.As(err, &callErr) {
		return callErr.Kind
	}
	return ErrorKindUpstreamRejected
}

// ErrorMessage returns the caller-facing message for an error.
func ErrorMessage(err error) string {
	var callErr *CallError
	if errors.As(err, &callErr) {
		return callErr.Message
	}
	return "Internal server error"
}

// HTTPStatus maps an error kind to the status code of the JSON error
// envelope.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case ErrorKindNotConfigured,
		ErrorKindInvalidCredentials,
		ErrorKindInvalidToken,
		ErrorKindUnknownRemoteUser,
		ErrorKindSignatureInvalid:
		return http.StatusBadRequest
	case ErrorKindUpstreamUnavailable,
		ErrorKindUpstreamRejected,
		ErrorKindMalformedResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error constructors for the different kinds
func NewNotConfiguredError(message string, err ...error) *CallError {
	return &CallError{Kind: ErrorKindNotConfigured, Message: message, Err: errors.Join(err...)}
}

func NewInvalidCredentialsError(message string, err ...error) *CallError {
	return &CallError{Kind: ErrorKindInvalidCredentials, Message: message, Err: errors.Join(err...)}
}

func NewInvalidTokenError(message string, err ...error) *CallError {
	return &CallError{Kind: ErrorKindInvalidToken, Message: message, Err: errors.Join(err...)}
}

func NewUnknownRemoteUserError(message string, err ...error) *CallError {
	return &CallError{Kind: ErrorKindUnknownRemoteUser, Message: message, Err: errors.Join(err...)}
}

func NewSignatureInvalidError(message string, err ...error) *CallError {
	return &CallError{Kind: ErrorKindSignatureInvalid, Message: message, Err: errors.Join(err...)}
}

func NewUpstreamUnavailableError(message string, err ...error) *CallError {
	return &CallError{Kind: ErrorKindUpstreamUnavailable, Message: message, Err: errors.Join(err...)}
}

func NewUpstreamRejectedError(message string, err ...error) *CallError {
	return &CallError{Kind: ErrorKindUpstreamRejected, Message: message, Err: errors.Join(err...)}
}

func NewMalformedResponseError(message string, err ...error) *CallError {
	return &CallError{Kind: ErrorKindMalformedResponse, Message: message, Err: errors.Join(err...)}
}
