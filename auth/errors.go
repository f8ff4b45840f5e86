package auth

import (
	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredential  = "auth_invalid_credential"
	TextCodeAccountNotFound    = "auth_account_not_found"
	TextCodeDuplicateAccount   = "auth_duplicate_account"
	TextCodeTokenExpired       = "auth_token_expired"
	TextCodeTokenMalformed     = "auth_token_malformed"
	TextCodeTokenBadSignature  = "auth_token_bad_signature"
	TextCodeUnverifiedIdentity = "auth_unverified_identity"
	TextCodeUnsupportedOrigin  = "auth_unsupported_origin"
	TextCodeUnknownChannel     = "auth_unknown_channel"
)

// ErrInvalidCredential is the uniform rejection for a bad password,
// token, or one-time code. It never reveals which factor failed beyond
// the origin hint attached by the orchestrator.
var ErrInvalidCredential = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredential).
	WithCode(errors.CodeUnauthorized)

// ErrAccountNotFound is returned when no account matches the identifier.
var ErrAccountNotFound = errors.New("this account does not exist", errors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(errors.CodeNotFound)

// ErrDuplicateAccount is returned when the account identifier is taken.
var ErrDuplicateAccount = errors.New("email or phone number already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateAccount).
	WithCode(errors.CodeConflict)

// ErrTokenExpired is returned when a token is past its expiry.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned when a token cannot be decoded at all.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenBadSignature is returned when a token's signature does not
// verify, including a token of one kind presented against another
// kind's secret.
var ErrTokenBadSignature = errors.New("token signature is invalid", errors.CategoryAuth).
	WithTextCode(TextCodeTokenBadSignature).
	WithCode(errors.CodeUnauthorized)

// ErrUnverifiedIdentity is returned when the federated provider has not
// verified the identity's email.
var ErrUnverifiedIdentity = errors.New("provider email is not verified", errors.CategoryAuth).
	WithTextCode(TextCodeUnverifiedIdentity).
	WithCode(errors.CodeForbidden)

// ErrUnsupportedOrigin is returned when a password reset is attempted
// against an account that authenticates through google or sms.
var ErrUnsupportedOrigin = errors.New("quick-login accounts cannot use this feature", errors.CategoryAuth).
	WithTextCode(TextCodeUnsupportedOrigin).
	WithCode(errors.CodeForbidden)

// ErrUnknownChannel is returned when an identifier is neither
// email-shaped nor phone-shaped.
var ErrUnknownChannel = errors.New("identifier must be an email address or a phone number", errors.CategoryBadInput).
	WithTextCode(TextCodeUnknownChannel).
	WithCode(errors.CodeBadRequest)

// ErrNoEmptyString rejects empty passwords before hashing.
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest)

// HasTextCode reports whether err carries the given text code anywhere
// in its chain.
func HasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var rich *errors.Error
	if !errors.As(err, &rich) {
		return false
	}
	return rich.TextCode == code
}

// IsInvalidCredential reports whether err is the uniform credential
// rejection.
func IsInvalidCredential(err error) bool {
	return HasTextCode(err, TextCodeInvalidCredential)
}

// IsDuplicateAccount reports whether err is an identifier-uniqueness
// violation.
func IsDuplicateAccount(err error) bool {
	return HasTextCode(err, TextCodeDuplicateAccount)
}

// IsTokenExpiredError reports whether err is a token expiry rejection.
func IsTokenExpiredError(err error) bool {
	return HasTextCode(err, TextCodeTokenExpired)
}

// invalidCredential collapses a lower-level rejection (expired token,
// bad signature, wrong password) into the uniform credential error,
// keeping the source for logs but never for responses.
func invalidCredential(err error) *errors.Error {
	clone := ErrInvalidCredential.Clone()
	clone.Source = err
	return clone
}

// internalError wraps an unexpected collaborator fault so nothing
// propagates to the transport layer unclassified.
func internalError(err error, msg string) *errors.Error {
	return errors.Wrap(err, errors.CategoryInternal, msg)
}
