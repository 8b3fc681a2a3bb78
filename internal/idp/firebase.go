package idp

import (
	"context"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	firebaseAuth "firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/errorutils"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// authClient is the subset of the Admin SDK used here.
// Both firebaseAuth.Client and firebaseAuth.TenantClient implement it.
type authClient interface {
	CreateUser(ctx context.Context, user *firebaseAuth.UserToCreate) (*firebaseAuth.UserRecord, error)
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseAuth.Token, error)
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*firebaseAuth.Token, error)
}

// FirebaseProvider implements Provider using the Firebase Admin SDK
type FirebaseProvider struct {
	client       authClient
	tenantID     string
	checkRevoked bool
}

// Ensure FirebaseProvider implements Provider
var _ Provider = (*FirebaseProvider)(nil)

// FirebaseConfig holds configuration for FirebaseProvider
type FirebaseConfig struct {
	CredentialsPath string // service account JSON (required)
	ProjectID       string // optional, read from the credentials when empty
	TenantID        string // optional: for multi-tenant Identity Platform
	CheckRevoked    bool   // also reject revoked tokens and disabled users
}

// NewFirebaseProvider creates a Firebase-backed provider.
// If FIREBASE_AUTH_EMULATOR_HOST is set, the SDK talks to the emulator.
func NewFirebaseProvider(ctx context.Context, cfg FirebaseConfig, log logrus.FieldLogger) (*FirebaseProvider, error) {
	if cfg.CredentialsPath == "" {
		return nil, fmt.Errorf("credentials path is required")
	}

	if host := os.Getenv("FIREBASE_AUTH_EMULATOR_HOST"); host != "" {
		log.WithField("host", host).Info("Using Firebase Auth Emulator")
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID: cfg.ProjectID,
	}, option.WithCredentialsFile(cfg.CredentialsPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create firebase app: %w", err)
	}

	authCl, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get auth client: %w", err)
	}

	var client authClient = authCl
	if cfg.TenantID != "" {
		tenantClient, err := authCl.TenantManager.AuthForTenant(cfg.TenantID)
		if err != nil {
			return nil, fmt.Errorf("failed to get tenant auth client for %s: %w", cfg.TenantID, err)
		}
		client = tenantClient
	}

	return newFirebaseProvider(client, cfg), nil
}

func newFirebaseProvider(client authClient, cfg FirebaseConfig) *FirebaseProvider {
	return &FirebaseProvider{
		client:       client,
		tenantID:     cfg.TenantID,
		checkRevoked: cfg.CheckRevoked,
	}
}

// CreateAccount creates an email/password user
func (p *FirebaseProvider) CreateAccount(ctx context.Context, email, password string) (*Account, error) {
	params := (&firebaseAuth.UserToCreate{}).Email(email).Password(password)

	record, err := p.client.CreateUser(ctx, params)
	if err != nil {
		return nil, &Error{Op: OpCreateAccount, Code: classifyFirebase(err), Err: err}
	}

	return &Account{UID: record.UID}, nil
}

// VerifyToken verifies a Firebase ID token and returns the full decoded payload
func (p *FirebaseProvider) VerifyToken(ctx context.Context, idToken string) (Claims, error) {
	var (
		token *firebaseAuth.Token
		err   error
	)
	if p.checkRevoked {
		token, err = p.client.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	} else {
		token, err = p.client.VerifyIDToken(ctx, idToken)
	}
	if err != nil {
		return nil, &Error{Op: OpVerifyToken, Code: classifyFirebase(err), Err: err}
	}

	return tokenClaims(token), nil
}

// tokenClaims rebuilds the decoded payload the SDK splits across Token fields
func tokenClaims(token *firebaseAuth.Token) Claims {
	claims := make(Claims, len(token.Claims)+8)
	for k, v := range token.Claims {
		claims[k] = v
	}

	claims["iss"] = token.Issuer
	claims["aud"] = token.Audience
	claims["exp"] = token.Expires
	claims["iat"] = token.IssuedAt
	claims["sub"] = token.Subject
	claims["uid"] = token.UID

	if _, ok := claims["auth_time"]; !ok && token.AuthTime != 0 {
		claims["auth_time"] = token.AuthTime
	}
	if _, ok := claims["firebase"]; !ok {
		fb := map[string]any{
			"sign_in_provider": token.Firebase.SignInProvider,
		}
		if token.Firebase.Tenant != "" {
			fb["tenant"] = token.Firebase.Tenant
		}
		if token.Firebase.Identities != nil {
			fb["identities"] = token.Firebase.Identities
		}
		claims["firebase"] = fb
	}

	return claims
}

// classifyFirebase maps Admin SDK errors onto our codes
func classifyFirebase(err error) string {
	switch {
	case firebaseAuth.IsEmailAlreadyExists(err):
		return CodeEmailExists
	case firebaseAuth.IsIDTokenExpired(err):
		return CodeTokenExpired
	case firebaseAuth.IsIDTokenRevoked(err):
		return CodeTokenRevoked
	case firebaseAuth.IsIDTokenInvalid(err), firebaseAuth.IsTenantIDMismatch(err):
		return CodeTokenInvalid
	case firebaseAuth.IsUserDisabled(err):
		return CodeUserDisabled
	case firebaseAuth.IsUserNotFound(err):
		return CodeUserNotFound
	case errorutils.IsInvalidArgument(err):
		return CodeInvalidArgument
	case errorutils.IsDeadlineExceeded(err):
		return CodeTimeout
	case errorutils.IsUnavailable(err):
		return CodeUnavailable
	default:
		return contextCode(err)
	}
}
