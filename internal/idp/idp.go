// Package idp abstracts the identity provider that owns account records and
// issues bearer tokens. The gateway only ever talks to a Provider.
package idp

import (
	"context"
	"errors"
)

// Account is the result of a successful account creation
type Account struct {
	UID string `json:"uid"`
}

// Claims is the decoded claim set of a verified token (e.g. sub, iss, exp)
type Claims map[string]any

// Provider is the identity provider collaborator.
// Implementations must be safe for concurrent use.
type Provider interface {
	// CreateAccount registers a new email/password account and returns its UID
	CreateAccount(ctx context.Context, email, password string) (*Account, error)

	// VerifyToken validates a bearer token and returns its decoded claims
	VerifyToken(ctx context.Context, token string) (Claims, error)
}

// Operation names used in Error.Op
const (
	OpCreateAccount = "create account"
	OpVerifyToken   = "verify token"
)

// Error codes used in Error.Code
const (
	CodeEmailExists     = "email-exists"
	CodeInvalidArgument = "invalid-argument"
	CodeTokenExpired    = "token-expired"
	CodeTokenRevoked    = "token-revoked"
	CodeTokenInvalid    = "token-invalid"
	CodeUserDisabled    = "user-disabled"
	CodeUserNotFound    = "user-not-found"
	CodeTimeout         = "timeout"
	CodeCanceled        = "canceled"
	CodeUnavailable     = "unavailable"
	CodeUnknown         = "unknown"
)

// Error carries the provider failure with enough context for logs.
// Clients only ever see Message(err).
type Error struct {
	Op   string
	Code string
	Err  error
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Code + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the provider's own human-readable message for err,
// without the operation and code added by Error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Err != nil {
		return Message(e.Err)
	}
	return err.Error()
}

// Code returns the classified code of err, CodeUnknown if it was never classified
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	return contextCode(err)
}

func contextCode(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	default:
		return CodeUnknown
	}
}
