package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies auth failures. Each kind maps to exactly one HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindDuplicateAccount
	KindInvalidCredentials
	KindInvalidToken
	KindNotFound
	KindExpiredOrInvalidToken
	KindForbidden
	KindEmailFailed
)

var kindNames = map[Kind]string{
	KindInternal:              "internal",
	KindValidation:            "validation",
	KindDuplicateAccount:      "duplicate_account",
	KindInvalidCredentials:    "invalid_credentials",
	KindInvalidToken:          "invalid_token",
	KindNotFound:              "not_found",
	KindExpiredOrInvalidToken: "expired_or_invalid_token",
	KindForbidden:             "forbidden",
	KindEmailFailed:           "email_failed",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// HTTPStatus returns the response status for the kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindExpiredOrInvalidToken:
		return http.StatusBadRequest
	case KindDuplicateAccount:
		return http.StatusConflict
	case KindInvalidCredentials, KindInvalidToken:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Default client-facing messages.
const (
	MsgInvalidCredentials = "Invalid email or password"
	MsgInvalidToken       = "Invalid token, please log in again"
	MsgPasswordChanged    = "User recently changed password, please log in again"
	MsgDuplicateAccount   = "Account with this email already exists"
	MsgExpiredToken       = "Token is invalid or has expired"
	MsgForbidden          = "You do not have permission to perform this action"
	MsgWrongPassword      = "Your current password is wrong"
	MsgEmailFailed        = "There was an error sending the email, try again later"
	MsgNotFound           = "No user found with that ID"
	MsgInternal           = "Something went wrong"
)

// Error is a classified auth failure. Message is safe to show to clients,
// Err carries the cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, auth.ErrInvalidToken) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInternal              = &Error{Kind: KindInternal, Message: MsgInternal}
	ErrValidation            = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrDuplicateAccount      = &Error{Kind: KindDuplicateAccount, Message: MsgDuplicateAccount}
	ErrInvalidCredentials    = &Error{Kind: KindInvalidCredentials, Message: MsgInvalidCredentials}
	ErrInvalidToken          = &Error{Kind: KindInvalidToken, Message: MsgInvalidToken}
	ErrNotFound              = &Error{Kind: KindNotFound, Message: MsgNotFound}
	ErrExpiredOrInvalidToken = &Error{Kind: KindExpiredOrInvalidToken, Message: MsgExpiredToken}
	ErrForbidden             = &Error{Kind: KindForbidden, Message: MsgForbidden}
	ErrEmailFailed           = &Error{Kind: KindEmailFailed, Message: MsgEmailFailed}
)

func newError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

func validationError(err error) *Error {
	return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
}

func internalError(op string, err error) *Error {
	return &Error{Kind: KindInternal, Message: MsgInternal, Err: fmt.Errorf("%s: %w", op, err)}
}

// KindOf returns the kind of err, KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the client-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return MsgInternal
}
