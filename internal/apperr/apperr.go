// Package apperr defines the error kinds surfaced to API callers.
//
// Services return *Error values (possibly wrapped); handlers translate the
// kind into an HTTP status and an envelope code, and the client package
// translates the code back into a kind.
package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindAuthentication      Kind = "AuthenticationError"
	KindAuthorization       Kind = "AuthorizationError"
	KindValidation          Kind = "ValidationError"
	KindInsufficientBalance Kind = "InsufficientBalanceError"
	KindInvalidState        Kind = "InvalidStateError"
	KindNotFound            Kind = "NotFoundError"
	KindConflict            Kind = "ConflictError"
	KindRateLimited         Kind = "RateLimitedError"
	KindInternal            Kind = "InternalError"
)

// Error is a kinded error. Two *Error values match under errors.Is when
// their kinds are equal, so callers compare against the Err* sentinels.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrAuthentication      = New(KindAuthentication, "invalid credentials")
	ErrAuthorization       = New(KindAuthorization, "permission denied")
	ErrValidation          = New(KindValidation, "invalid request")
	ErrInsufficientBalance = New(KindInsufficientBalance, "not enough points")
	ErrInvalidState        = New(KindInvalidState, "invalid state")
	ErrNotFound            = New(KindNotFound, "not found")
	ErrConflict            = New(KindConflict, "conflict")
	ErrRateLimited         = New(KindRateLimited, "too many requests")
	ErrInternal            = New(KindInternal, "internal server error")
)

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Authentication(message string) *Error      { return New(KindAuthentication, message) }
func Authorization(message string) *Error       { return New(KindAuthorization, message) }
func Validation(message string) *Error          { return New(KindValidation, message) }
func InsufficientBalance(message string) *Error { return New(KindInsufficientBalance, message) }
func InvalidState(message string) *Error        { return New(KindInvalidState, message) }
func NotFound(message string) *Error            { return New(KindNotFound, message) }
func Conflict(message string) *Error            { return New(KindConflict, message) }

func Internal(message string, err error) *Error {
	return Wrap(KindInternal, message, err)
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message. Internal causes are not
// exposed.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ErrInternal.Message
}

var httpStatus = map[Kind]int{
	KindAuthentication:      http.StatusUnauthorized,
	KindAuthorization:       http.StatusForbidden,
	KindValidation:          http.StatusBadRequest,
	KindInsufficientBalance: http.StatusBadRequest,
	KindInvalidState:        http.StatusConflict,
	KindNotFound:            http.StatusNotFound,
	KindConflict:            http.StatusConflict,
	KindRateLimited:         http.StatusTooManyRequests,
	KindInternal:            http.StatusInternalServerError,
}

func HTTPStatus(kind Kind) int {
	if s, ok := httpStatus[kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Envelope codes. 4xx/5xx mirror the HTTP status, 1xxx are business codes.
const (
	CodeSuccess          = 0
	CodeParamError       = 400
	CodeUnauthorized     = 401
	CodeForbidden        = 403
	CodeNotFound         = 404
	CodeRateLimited      = 429
	CodeServerError      = 500
	CodeInvalidState     = 1002
	CodeBalanceNotEnough = 1003
	CodeConflict         = 1004
)

var kindCodes = map[Kind]int{
	KindAuthentication:      CodeUnauthorized,
	KindAuthorization:       CodeForbidden,
	KindValidation:          CodeParamError,
	KindInsufficientBalance: CodeBalanceNotEnough,
	KindInvalidState:        CodeInvalidState,
	KindNotFound:            CodeNotFound,
	KindConflict:            CodeConflict,
	KindRateLimited:         CodeRateLimited,
	KindInternal:            CodeServerError,
}

func Code(kind Kind) int {
	if c, ok := kindCodes[kind]; ok {
		return c
	}
	return CodeServerError
}

func KindForCode(code int) Kind {
	for k, c := range kindCodes {
		if c == code {
			return k
		}
	}
	return KindInternal
}
