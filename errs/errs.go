// Package errs defines the error taxonomy shared by the banking core.
// Operations wrap these sentinels with fmt.Errorf("%w: ...") so callers can
// discriminate with errors.Is without parsing messages.
package errs

import "errors"

var (
	// ErrValidation reports malformed or out-of-range input.
	ErrValidation = errors.New("validation error")

	// ErrTypeMismatch reports an argument whose value cannot stand in for
	// the required type, e.g. a zero time used as a date bound.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrInvalidState reports an operation that is illegal for the current
	// state of the entity, e.g. closing an account with a non-zero balance.
	ErrInvalidState = errors.New("invalid state")

	// ErrAuthentication reports a missing session or bad credentials.
	ErrAuthentication = errors.New("authentication error")

	// ErrAuthorization reports a wrong PIN, a lockout, or a missing role.
	ErrAuthorization = errors.New("authorization error")

	// ErrNotFound reports an unknown user or account identifier.
	ErrNotFound = errors.New("not found")

	// ErrExternalService reports a failed exchange-rate feed call.
	ErrExternalService = errors.New("external service error")
)
