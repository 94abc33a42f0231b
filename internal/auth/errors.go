package auth

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoRefreshToken means there is no stored refresh token to exchange.
	ErrNoRefreshToken = errors.New("no refresh token available")
	// ErrUnauthenticated means no usable access token is stored.
	ErrUnauthenticated = errors.New("not authenticated")
)

// ErrorKind classifies authentication failures for the caller.
type ErrorKind string

const (
	// KindValidation covers field-level errors from login/register.
	KindValidation ErrorKind = "validation"
	// KindVerificationRequired means credentials were accepted but the
	// account is still pending admin verification.
	KindVerificationRequired ErrorKind = "verification_required"
	// KindAccountInactive means the account has been deactivated.
	KindAccountInactive ErrorKind = "account_inactive"
	// KindDelay means the login was rate-limited with a progressive delay.
	KindDelay ErrorKind = "delay"
	// KindLockout means the account is temporarily locked out.
	KindLockout ErrorKind = "lockout"
	// KindUnauthorized means the backend rejected the bearer token.
	KindUnauthorized ErrorKind = "unauthorized"
	// KindRefreshFailure means the refresh token exchange itself was
	// rejected. Always terminal for the session.
	KindRefreshFailure ErrorKind = "refresh_failure"
)

// Error is a classified authentication failure. Flow errors (validation,
// verification, delay, lockout) are meant for direct user-facing display;
// unauthorized and refresh_failure drive the retry/logout paths.
type Error struct {
	Kind    ErrorKind
	Message string

	// FieldErrors holds per-field messages for KindValidation.
	FieldErrors map[string]string
	// RetryAfter and AttemptsRemaining are set for KindDelay.
	RetryAfter        time.Duration
	AttemptsRemaining int
	// UnlockAt is set for KindLockout.
	UnlockAt time.Time

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("auth: %s: %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("auth: %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind of err, or "" if err is not an auth error.
func KindOf(err error) ErrorKind {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return ""
}

// IsTerminal reports whether err must end the session (clear tokens and
// send the user back to login).
func IsTerminal(err error) bool {
	return KindOf(err) == KindRefreshFailure
}
