package model

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a service either unwraps to one of these
// or is treated as an internal failure.
var (
	ErrValidation       = errors.New("validation error")
	ErrInvalidReference = errors.New("invalid reference")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrConflict         = errors.New("conflict")
	ErrNotFound         = errors.New("not found")
)

// Error is a domain error with a client-safe message that unwraps to its kind.
type Error struct {
	Kind    error
	Code    string // Optional stable code, overrides the kind's default
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// NewError builds a domain error of the given kind.
func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Validationf builds a validation error with a formatted message.
func Validationf(format string, args ...interface{}) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// Token error codes (used in HTTP responses)
const (
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeTokenInvalid = "TOKEN_INVALID"
	CodeTokenReused  = "TOKEN_REUSED"
)

// Account and credential errors
var (
	ErrAccountNotFound     = NewError(ErrNotFound, "account not found")
	ErrAccountExists       = NewError(ErrConflict, "username or email already exists")
	ErrInvalidCredentials  = NewError(ErrUnauthorized, "invalid credentials")
	ErrSessionNotFound     = NewError(ErrUnauthorized, "session not found")
	ErrTokenExpired        = &Error{Kind: ErrUnauthorized, Code: CodeTokenExpired, Message: "token expired"}
	ErrTokenInvalid        = &Error{Kind: ErrUnauthorized, Code: CodeTokenInvalid, Message: "token invalid"}
	ErrRefreshTokenReused  = &Error{Kind: ErrUnauthorized, Code: CodeTokenReused, Message: "refresh token reuse detected"}
	ErrPasswordTooShort    = NewError(ErrValidation, "password must be at least 8 characters")
	ErrMalformedIdentifier = NewError(ErrInvalidReference, "malformed identifier")
)

// Content errors
var (
	ErrVideoNotFound    = NewError(ErrNotFound, "video not found")
	ErrTweetNotFound    = NewError(ErrNotFound, "tweet not found")
	ErrCommentNotFound  = NewError(ErrNotFound, "comment not found")
	ErrPlaylistNotFound = NewError(ErrNotFound, "playlist not found")
	ErrNotCommentOwner  = NewError(ErrForbidden, "not the owner of this comment")
	ErrNotPlaylistOwner = NewError(ErrForbidden, "not the owner of this playlist")
	ErrContentRequired  = NewError(ErrValidation, "comment content is required")
	ErrContentTooLong   = NewError(ErrValidation, "comment content too long")
	ErrParentMismatch   = NewError(ErrInvalidReference, "parent comment belongs to another video")
)

// Relation errors
var (
	ErrUnknownTargetKind = NewError(ErrValidation, "unknown target kind")
	ErrSelfSubscription  = NewError(ErrInvalidOperation, "cannot subscribe to your own channel")
)
