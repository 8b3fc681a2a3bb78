package idp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Local provider errors. Messages mirror what the hosted provider reports.
var (
	ErrEmailExists        = errors.New("email exists")
	ErrInvalidEmail       = errors.New("malformed email address string")
	ErrWeakPassword       = errors.New("password must be a string at least 6 characters long")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrUserNotFound       = errors.New("no user record found for the given identifier")
)

const (
	minPasswordLength = 6
	defaultLocalTTL   = time.Hour
	defaultIssuer     = "ovai-auth-local"
	defaultAudience   = "ovai-auth"
)

// LocalProvider is an in-process identity provider for development and tests.
// Accounts live in memory; tokens are HS256 JWTs shaped like Firebase ID tokens.
type LocalProvider struct {
	mu       sync.RWMutex
	accounts map[string]*localAccount // keyed by email
	byUID    map[string]*localAccount

	key      []byte
	issuer   string
	audience string
	ttl      time.Duration
	cost     int
	now      func() time.Time
	validate *validator.Validate
}

type localAccount struct {
	uid          string
	email        string
	passwordHash []byte
	createdAt    time.Time
}

// Ensure LocalProvider implements Provider
var _ Provider = (*LocalProvider)(nil)

// LocalOption configures a LocalProvider
type LocalOption func(*LocalProvider)

// WithTokenTTL sets the lifetime of issued tokens
func WithTokenTTL(d time.Duration) LocalOption {
	return func(p *LocalProvider) {
		p.ttl = d
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) LocalOption {
	return func(p *LocalProvider) {
		p.now = now
	}
}

// WithBcryptCost sets the password hashing cost
func WithBcryptCost(cost int) LocalOption {
	return func(p *LocalProvider) {
		p.cost = cost
	}
}

// NewLocalProvider creates a local provider signing tokens with key.
// An empty key is replaced by 32 random bytes, so tokens do not survive a restart.
func NewLocalProvider(key []byte, opts ...LocalOption) *LocalProvider {
	if len(key) == 0 {
		key = make([]byte, 32)
		_, _ = rand.Read(key)
	}

	p := &LocalProvider{
		accounts: make(map[string]*localAccount),
		byUID:    make(map[string]*localAccount),
		key:      key,
		issuer:   defaultIssuer,
		audience: defaultAudience,
		ttl:      defaultLocalTTL,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
		validate: validator.New(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// CreateAccount registers email with a bcrypt hash of password
func (p *LocalProvider) CreateAccount(ctx context.Context, email, password string) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Op: OpCreateAccount, Code: contextCode(err), Err: err}
	}
	if err := p.validate.Var(email, "required,email"); err != nil {
		return nil, &Error{Op: OpCreateAccount, Code: CodeInvalidArgument, Err: ErrInvalidEmail}
	}
	if len(password) < minPasswordLength {
		return nil, &Error{Op: OpCreateAccount, Code: CodeInvalidArgument, Err: ErrWeakPassword}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, &Error{Op: OpCreateAccount, Code: CodeInvalidArgument, Err: err}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.accounts[email]; exists {
		return nil, &Error{Op: OpCreateAccount, Code: CodeEmailExists, Err: ErrEmailExists}
	}

	acct := &localAccount{
		uid:          uuid.NewString(),
		email:        email,
		passwordHash: hash,
		createdAt:    p.now().UTC(),
	}
	p.accounts[email] = acct
	p.byUID[acct.uid] = acct

	return &Account{UID: acct.uid}, nil
}

// SignIn checks the password and issues an ID token for the account
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.RLock()
	acct, ok := p.accounts[email]
	p.mu.RUnlock()

	if !ok || bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	return p.issue(acct)
}

func (p *LocalProvider) issue(acct *localAccount) (string, error) {
	now := p.now()
	claims := jwt.MapClaims{
		"iss":            p.issuer,
		"aud":            p.audience,
		"sub":            acct.uid,
		"uid":            acct.uid,
		"iat":            now.Unix(),
		"exp":            now.Add(p.ttl).Unix(),
		"auth_time":      now.Unix(),
		"email":          acct.email,
		"email_verified": false,
		"firebase": map[string]any{
			"sign_in_provider": "password",
			"identities": map[string]any{
				"email": []string{acct.email},
			},
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates signature, issuer, audience and expiry, and that the
// account still exists.
func (p *LocalProvider) VerifyToken(ctx context.Context, token string) (Claims, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Op: OpVerifyToken, Code: contextCode(err), Err: err}
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return p.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &Error{Op: OpVerifyToken, Code: CodeTokenExpired, Err: ErrTokenExpired}
		}
		return nil, &Error{Op: OpVerifyToken, Code: CodeTokenInvalid, Err: fmt.Errorf("%w: %v", ErrTokenInvalid, err)}
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, &Error{Op: OpVerifyToken, Code: CodeTokenInvalid, Err: ErrTokenInvalid}
	}

	uid, _ := mapClaims["sub"].(string)
	p.mu.RLock()
	_, exists := p.byUID[uid]
	p.mu.RUnlock()
	if !exists {
		return nil, &Error{Op: OpVerifyToken, Code: CodeUserNotFound, Err: ErrUserNotFound}
	}

	claims := make(Claims, len(mapClaims))
	for k, v := range mapClaims {
		claims[k] = v
	}
	return claims, nil
}
