package api

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/myovai/ovai-auth/internal/idp"
	"github.com/myovai/ovai-auth/internal/version"
)

// RouterConfig holds dependencies for the router
type RouterConfig struct {
	Provider           idp.Provider
	Logger             logrus.FieldLogger
	CORSAllowedOrigins []string // empty allows any origin
}

// NewRouter creates a new HTTP router with all routes and middleware configured
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	mux := http.NewServeMux()
	h := NewHandler(cfg.Provider, log)

	registerPublicRoutes(mux)
	registerAuthRoutes(mux, h)

	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return Chain(
		RequestIDMiddleware,
		NewRecoveryMiddleware(log),
		NewLoggingMiddleware(log),
		NewConfigurableCORSMiddleware(CORSConfig{AllowedOrigins: origins}),
		JSONContentTypeMiddleware,
	)(mux)
}

// registerPublicRoutes registers operational routes
func registerPublicRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", allowMethod(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(fmt.Sprintf(`{"status":"ok","hash":"%s"}`, version.CommitHash)))
	}))
}

// registerAuthRoutes registers the signup and token verification routes
func registerAuthRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("/signup", allowMethod(http.MethodPost, h.Signup))
	mux.HandleFunc("/verify-token", allowMethod(http.MethodPost, h.VerifyToken))
}

// allowMethod answers anything but method with 405. OPTIONS never gets here,
// the CORS middleware answers preflights first.
func allowMethod(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method+", "+http.MethodOptions)
			writeError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}
