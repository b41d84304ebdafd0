// Package apperr defines the error kinds surfaced by the graph, group and
// chat services. Every failure path returns an *Error so callers can decide
// between retrying from scratch and resuming.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation       Kind = "validation_error"
	KindAlreadyExists    Kind = "already_exists"
	KindNotFollowing     Kind = "not_following"
	KindInvalidOperation Kind = "invalid_operation"
	KindNotFound         Kind = "not_found"
	KindForbidden        Kind = "forbidden"
	KindUnauthorized     Kind = "unauthorized"

	// KindUpstreamUnavailable: the provider failed or timed out before any
	// local effect. Safe to retry from scratch.
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	// KindPartialFailure: the provider call succeeded but the local write did
	// not. Retry through the idempotent persistence path only.
	KindPartialFailure Kind = "partial_failure"
	// KindStoreUnavailable: local store failure after internal retries.
	KindStoreUnavailable Kind = "store_unavailable"
)

type Error struct {
	Kind      Kind
	Message   string
	ChannelID string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Validation(msg string) *Error { return New(KindValidation, msg) }

func NotFound(msg string) *Error { return New(KindNotFound, msg) }

func Upstream(msg string, err error) *Error {
	return Wrap(KindUpstreamUnavailable, msg, err)
}

func Store(msg string, err error) *Error {
	return Wrap(KindStoreUnavailable, msg, err)
}

// Partial reports a remote success followed by a failed local write on
// channelID.
func Partial(channelID, msg string, err error) *Error {
	return &Error{Kind: KindPartialFailure, Message: msg, ChannelID: channelID, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindStoreUnavailable for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStoreUnavailable
}

func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// HTTPStatus maps a kind to the status code handlers respond with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindInvalidOperation:
		return http.StatusBadRequest
	case KindAlreadyExists, KindNotFollowing:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
