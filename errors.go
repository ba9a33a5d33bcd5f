package portal

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	// TextCodeInvalidCreds is the stable code for credential mismatches
	TextCodeInvalidCreds = "invalid_credentials"
	// TextCodeAccountDisabled is the stable code for deactivated accounts
	TextCodeAccountDisabled = "account_disabled"
	// TextCodeDuplicateUsername is the stable code for username conflicts
	TextCodeDuplicateUsername = "duplicate_username"
	// TextCodeDuplicateEmail is the stable code for provider email conflicts
	TextCodeDuplicateEmail = "duplicate_email"
	// TextCodeTokenExpired is the stable code for expired session tokens
	TextCodeTokenExpired = "token_expired"
	// TextCodeTokenMalformed is the stable code for malformed or forged tokens
	TextCodeTokenMalformed = "token_malformed"
	// TextCodeSessionNotFound is the stable code for requests with no credential
	TextCodeSessionNotFound = "session_not_found"
	// TextCodeTooManyAttempts is the stable code for throttled logins
	TextCodeTooManyAttempts = "too_many_login_attempts"
	// TextCodeForbidden is the stable code for role guard rejections
	TextCodeForbidden = "insufficient_role"
	// TextCodeStoreUnavailable is the stable code for downstream store failures
	TextCodeStoreUnavailable = "store_unavailable"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound)

// ErrMismatchedHashAndPassword is the generic invalid-credentials error.
// Unknown users and wrong passwords produce the same response.
var ErrMismatchedHashAndPassword = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrAccountDisabled is returned when the account active flag is off,
// independent of password correctness.
var ErrAccountDisabled = errors.New("account is deactivated", errors.CategoryAuth).
	WithTextCode(TextCodeAccountDisabled).
	WithCode(errors.CodeForbidden)

// ErrDuplicateUsername is returned on registration when the username is taken.
var ErrDuplicateUsername = errors.New("username already taken", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateUsername).
	WithCode(errors.CodeConflict)

// ErrDuplicateEmail is returned on provider sign up when the email is taken.
var ErrDuplicateEmail = errors.New("provider with this email already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(errors.CodeConflict)

// ErrTokenExpired is returned when an otherwise valid token is past its expiry.
var ErrTokenExpired = errors.New("invalid authentication token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed covers bad signatures, bad structure, and wrong algorithms.
// The client-facing message matches ErrTokenExpired so callers cannot probe
// which check failed.
var ErrTokenMalformed = errors.New("invalid authentication token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToFindSession is the error when our request has no cookie or header
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToDecodeSession unable to decode JWT from session transport
var ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = errors.New("unable to map claims", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrTooManyLoginAttempts is returned when a user exceeds MaxLoginAttempts
// inside the cooldown window.
var ErrTooManyLoginAttempts = errors.New("too many login attempts", errors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts)

// ErrForbidden is the role guard rejection: a valid identity whose role is not
// in the allowed set.
var ErrForbidden = errors.New("insufficient permissions", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrUnauthenticated is returned by guards when no identity was resolved at
// all. It should not be reachable behind the access middleware.
var ErrUnauthenticated = errors.New("authentication required", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrStoreUnavailable wraps downstream store failures. Clients get the generic
// message; the full cause is logged server side only.
var ErrStoreUnavailable = errors.New("service temporarily unavailable", errors.CategoryInternal).
	WithTextCode(TextCodeStoreUnavailable).
	WithCode(errors.CodeInternal)

// ErrNoEmptyString rejects empty input where a value is mandatory
var ErrNoEmptyString = errors.New("value cannot be empty", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var rich *errors.Error
	if errors.As(err, &rich) && rich.TextCode == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var rich *errors.Error
	if errors.As(err, &rich) && rich.TextCode == TextCodeTokenMalformed {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// StoreError normalizes a repository failure: not-found passes through so
// callers can branch on it, anything else becomes ErrStoreUnavailable.
func StoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.IsNotFound(err) {
		return err
	}
	return errors.Wrap(err, ErrStoreUnavailable.Category, ErrStoreUnavailable.Message).
		WithTextCode(ErrStoreUnavailable.TextCode).
		WithCode(errors.CodeInternal)
}
