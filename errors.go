package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to structured errors so API clients can branch on a
// stable identifier instead of the message.
const (
	TextCodeRecordNotFound  = "RECORD_NOT_FOUND"
	TextCodeNoChanges       = "NO_CHANGES"
	TextCodeInvalidCreds    = "INVALID_CREDENTIALS"
	TextCodeUsernameTaken   = "USERNAME_TAKEN"
	TextCodeEmptyPassword   = "EMPTY_PASSWORD"
	TextCodeTokenExpired    = "TOKEN_EXPIRED"
	TextCodeTokenMalformed  = "TOKEN_MALFORMED"
	TextCodeAPIKeyNotFound  = "API_KEY_NOT_FOUND"
	TextCodeAPIKeyDisabled  = "API_KEY_DISABLED"
	TextCodeNotImplemented  = "NOT_IMPLEMENTED"
	TextCodeSessionNotFound = "SESSION_NOT_FOUND"
)

// ErrRecordNotFound is returned when a lookup matched no rows.
var ErrRecordNotFound = goerrors.New("record not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeRecordNotFound)

// ErrNoChanges is returned when an update payload produced zero field changes.
var ErrNoChanges = goerrors.New("no updates found for entity", goerrors.CategoryBadInput).
	WithTextCode(TextCodeNoChanges)

// ErrInvalidCredentials covers both unknown accounts and password mismatches,
// so callers cannot enumerate usernames.
var ErrInvalidCredentials = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds)

// ErrMismatchedHashAndPassword is the bcrypt mismatch translated into the
// same invalid-credentials shape.
var ErrMismatchedHashAndPassword = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds)

// ErrUsernameTaken is returned on registration with a duplicate username.
var ErrUsernameTaken = goerrors.New("username already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeUsernameTaken)

// ErrNoEmptyString rejects empty passwords before hashing.
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword)

// ErrTokenExpired is returned for tokens past their lifetime.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed is returned for tokens that fail structural or signature checks.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed)

// ErrAPIKeyNotFound is returned when a presented key is not in the store.
var ErrAPIKeyNotFound = goerrors.New("api key not found", goerrors.CategoryAuth).
	WithTextCode(TextCodeAPIKeyNotFound)

// ErrAPIKeyDisabled marks a known but revoked key. The authorization gate
// treats it as "no identity", not as a request failure.
var ErrAPIKeyDisabled = goerrors.New("api key is disabled", goerrors.CategoryAuth).
	WithTextCode(TextCodeAPIKeyDisabled)

// ErrNotImplemented is returned by optional store capabilities.
var ErrNotImplemented = goerrors.New("operation not implemented", goerrors.CategoryOperation).
	WithTextCode(TextCodeNotImplemented)

// ErrSessionNotFound is returned when a session row went missing mid-login.
var ErrSessionNotFound = goerrors.New("session not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeSessionNotFound)

// ServiceCode is the outcome kind every service operation resolves to.
// Success is the zero value; everything else is derived from the error's
// category via CodeOf.
type ServiceCode int

const (
	CodeSuccess ServiceCode = iota
	CodeNotFound
	CodeBadRequest
	CodeNotImplemented
	CodeException
)

func (c ServiceCode) String() string {
	switch c {
	case CodeSuccess:
		return "success"
	case CodeNotFound:
		return "not_found"
	case CodeBadRequest:
		return "bad_request"
	case CodeNotImplemented:
		return "not_implemented"
	default:
		return "exception"
	}
}

// CodeOf maps an error to its outcome kind. Conflict and validation errors
// fold into BadRequest; auth errors report as NotFound at the service level,
// the transport layer distinguishes 401 via HTTPStatus.
func CodeOf(err error) ServiceCode {
	if err == nil {
		return CodeSuccess
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return CodeException
	}

	if rich.TextCode == TextCodeNotImplemented {
		return CodeNotImplemented
	}

	switch rich.Category {
	case goerrors.CategoryNotFound, goerrors.CategoryAuth:
		return CodeNotFound
	case goerrors.CategoryBadInput, goerrors.CategoryValidation, goerrors.CategoryConflict:
		return CodeBadRequest
	default:
		return CodeException
	}
}

// HTTPStatus translates an error into a transport status code.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return http.StatusInternalServerError
	}

	if rich.TextCode == TextCodeNotImplemented {
		return http.StatusNotImplemented
	}

	switch rich.Category {
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
