package idp

import (
	"context"
	"errors"
	"time"
)

type timeoutProvider struct {
	next    Provider
	timeout time.Duration
}

// WithTimeout bounds every call to p by d. A non-positive d returns p unchanged.
func WithTimeout(p Provider, d time.Duration) Provider {
	if d <= 0 {
		return p
	}
	return &timeoutProvider{next: p, timeout: d}
}

func (t *timeoutProvider) CreateAccount(ctx context.Context, email, password string) (*Account, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	account, err := t.next.CreateAccount(ctx, email, password)
	if err != nil {
		return nil, markTimeout(ctx, OpCreateAccount, err)
	}
	return account, nil
}

func (t *timeoutProvider) VerifyToken(ctx context.Context, token string) (Claims, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	claims, err := t.next.VerifyToken(ctx, token)
	if err != nil {
		return nil, markTimeout(ctx, OpVerifyToken, err)
	}
	return claims, nil
}

// markTimeout reclassifies err as a timeout when our deadline fired.
// The provider's *Error is copied, never modified.
func markTimeout(ctx context.Context, op string, err error) error {
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return err
	}
	var e *Error
	if errors.As(err, &e) {
		cp := *e
		cp.Code = CodeTimeout
		return &cp
	}
	return &Error{Op: op, Code: CodeTimeout, Err: err}
}
