package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/myovai/ovai-auth/internal/api"
	"github.com/myovai/ovai-auth/internal/config"
	"github.com/myovai/ovai-auth/internal/idp"
)

const shutdownTimeout = 10 * time.Second

// App wires the identity provider into the HTTP gateway and runs it.
type App struct {
	config   *config.Config
	log      logrus.FieldLogger
	provider idp.Provider
	server   *api.Server
	listener net.Listener // optional, replaces listening on config.API.Addr
}

// Option is a functional option for configuring the App.
type Option func(*App)

// WithLogger sets the logger. Defaults to the logrus standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(a *App) {
		a.log = log
	}
}

// WithProvider replaces the identity provider built from configuration.
// The configured timeout still applies.
func WithProvider(p idp.Provider) Option {
	return func(a *App) {
		a.provider = p
	}
}

// WithListener serves on ln instead of listening on the configured address.
func WithListener(ln net.Listener) Option {
	return func(a *App) {
		a.listener = ln
	}
}

// NewApp builds the provider handle once and the HTTP server around it.
// Any provider initialization error is returned before anything listens.
func NewApp(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{config: cfg}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logrus.StandardLogger()
	}

	if a.provider == nil {
		p, err := NewProvider(ctx, cfg.IdP, a.log)
		if err != nil {
			return nil, err
		}
		a.provider = p
	}
	a.provider = idp.WithTimeout(a.provider, cfg.IdP.Timeout)

	router := api.NewRouter(api.RouterConfig{
		Provider:           a.provider,
		Logger:             a.log,
		CORSAllowedOrigins: cfg.API.CORSAllowedOrigins,
	})
	a.server = api.NewServer(cfg.API.Addr, router)

	return a, nil
}

// NewProvider creates the identity provider selected by cfg.Provider.
func NewProvider(ctx context.Context, cfg config.IdPConfig, log logrus.FieldLogger) (idp.Provider, error) {
	switch cfg.Provider {
	case config.ProviderFirebase, "":
		fields := logrus.Fields{"project": cfg.ProjectID}
		if cfg.TenantID != "" {
			fields["tenant"] = cfg.TenantID
		}
		log.WithFields(fields).Info("Initializing Firebase Auth")

		p, err := idp.NewFirebaseProvider(ctx, idp.FirebaseConfig{
			CredentialsPath: cfg.Credentials,
			ProjectID:       cfg.ProjectID,
			TenantID:        cfg.TenantID,
			CheckRevoked:    cfg.CheckRevoked,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create Firebase Auth provider: %w", err)
		}
		return p, nil

	case config.ProviderLocal:
		if cfg.LocalSigningKey == "" {
			log.Warn("Local identity provider: no signing key set, tokens will not survive a restart")
		}
		log.Warn("Local identity provider in use: accounts are kept in memory. Do not use in production!")
		return idp.NewLocalProvider([]byte(cfg.LocalSigningKey)), nil

	default:
		return nil, fmt.Errorf("unsupported identity provider: %q", cfg.Provider)
	}
}

// Provider returns the provider handle shared by all requests.
func (a *App) Provider() idp.Provider {
	return a.provider
}

// Run serves HTTP until ctx is cancelled, then shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	ln := a.listener
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", a.config.API.Addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", a.config.API.Addr, err)
		}
	}

	a.log.WithField("addr", ln.Addr().String()).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		errChan <- a.server.Serve(ln)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	a.log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server shutdown: %w", err)
	}

	a.log.Info("HTTP server stopped")
	return <-errChan
}
