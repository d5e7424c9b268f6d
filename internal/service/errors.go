package service

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable, client-visible classification of a failure.
type ErrorKind string

const (
	KindNotFound         ErrorKind = "not_found"
	KindForbidden        ErrorKind = "forbidden"
	KindUnauthorized     ErrorKind = "unauthorized"
	KindConflict         ErrorKind = "conflict"
	KindAlreadyOwned     ErrorKind = "already_owned"
	KindInvalidReference ErrorKind = "invalid_reference"
	KindInvalidInput     ErrorKind = "invalid_input"
	KindUpstream         ErrorKind = "upstream"
	KindSignatureInvalid ErrorKind = "signature_invalid"
	KindMalformedEvent   ErrorKind = "malformed_event"
	KindStoreUnavailable ErrorKind = "store_unavailable"
	KindInternal         ErrorKind = "internal"
)

// Error is returned by every service for expected failures. Repository and
// driver errors are wrapped in Err and never exposed in Message.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or KindInternal for anything unclassified.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// --- Error Definitions ---
var (
	ErrPlanNotFound      = &Error{Kind: KindNotFound, Message: "plan not found"}
	ErrUserNotFound      = &Error{Kind: KindNotFound, Message: "user not found"}
	ErrReviewNotFound    = &Error{Kind: KindNotFound, Message: "review not found"}
	ErrPurchaseNotFound  = &Error{Kind: KindNotFound, Message: "purchase not found"}
	ErrAlreadyOwned      = &Error{Kind: KindAlreadyOwned, Message: "plan already owned"}
	ErrNotEntitled       = &Error{Kind: KindForbidden, Message: "plan not owned"}
	ErrNotPlanOwner      = &Error{Kind: KindForbidden, Message: "only the plan's creator may do this"}
	ErrNotCreator        = &Error{Kind: KindForbidden, Message: "only creators may publish plans"}
	ErrReviewNotEntitled = &Error{Kind: KindUnauthorized, Message: "only owners of a plan may review it"}
	ErrReviewExists      = &Error{Kind: KindConflict, Message: "review already exists"}
	ErrSlugTaken         = &Error{Kind: KindConflict, Message: "slug already used by another of your plans"}
	ErrPlanModified      = &Error{Kind: KindConflict, Message: "plan was changed by another save, reload and retry"}
	ErrVersionNotFound   = &Error{Kind: KindNotFound, Message: "content version not archived"}
	ErrInvalidReference  = &Error{Kind: KindInvalidReference, Message: "week/day is not a workout day of this plan"}
	ErrSignatureInvalid  = &Error{Kind: KindSignatureInvalid, Message: "invalid webhook signature"}
)

func invalidInput(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func malformedEvent(msg string, err error) *Error {
	return &Error{Kind: KindMalformedEvent, Message: msg, Err: err}
}

func upstream(err error) *Error {
	return &Error{Kind: KindUpstream, Message: "payment processor unavailable, please retry", Err: err}
}

func storeUnavailable(err error) *Error {
	return &Error{Kind: KindStoreUnavailable, Message: "store unavailable", Err: err}
}
