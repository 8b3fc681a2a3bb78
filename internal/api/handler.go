package api

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/myovai/ovai-auth/internal/idp"
)

// Response messages and error keys. Clients depend on these exact strings.
const (
	MessageUserCreated   = "User created successfully"
	MessageTokenVerified = "Token verified"

	signupErrorKey = "Authentication error"
	verifyErrorKey = "error"
)

// SignupRequest represents the request body for POST /signup
type SignupRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SignupResponse represents a successful signup
type SignupResponse struct {
	Message string `json:"message"`
	UID     string `json:"uid"`
}

// VerifyRequest represents the request body for POST /verify-token
type VerifyRequest struct {
	Token string `json:"token" validate:"required"`
}

// VerifyResponse represents a successful verification
type VerifyResponse struct {
	Message string     `json:"message"`
	User    idp.Claims `json:"user"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler contains the HTTP handlers for the API
type Handler struct {
	provider idp.Provider
	log      logrus.FieldLogger
}

// NewHandler creates a new Handler around the identity provider
func NewHandler(provider idp.Provider, log logrus.FieldLogger) *Handler {
	return &Handler{
		provider: provider,
		log:      log,
	}
}

// Signup handles POST /signup
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeRequest(r, &req); err != nil {
		h.fail(w, r, signupErrorKey, idp.OpCreateAccount, err)
		return
	}

	account, err := h.provider.CreateAccount(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, signupErrorKey, idp.OpCreateAccount, err)
		return
	}

	h.writeJSON(w, r, SignupResponse{Message: MessageUserCreated, UID: account.UID}, http.StatusOK)
}

// VerifyToken handles POST /verify-token
func (h *Handler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := decodeRequest(r, &req); err != nil {
		h.fail(w, r, verifyErrorKey, idp.OpVerifyToken, err)
		return
	}

	claims, err := h.provider.VerifyToken(r.Context(), req.Token)
	if err != nil {
		h.fail(w, r, verifyErrorKey, idp.OpVerifyToken, err)
		return
	}

	h.writeJSON(w, r, VerifyResponse{Message: MessageTokenVerified, User: claims}, http.StatusOK)
}

// fail logs the full error and answers 400 with only the human-readable message
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, key, op string, err error) {
	h.log.WithFields(logrus.Fields{
		"op":         op,
		"code":       idp.Code(err),
		"request_id": RequestIDFromContext(r.Context()),
	}).WithError(err).Warn("request failed")

	h.writeJSON(w, r, map[string]string{key: idp.Message(err)}, http.StatusBadRequest)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, data interface{}, status int) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Already wrote headers, can only log
		h.log.WithField("request_id", RequestIDFromContext(r.Context())).
			WithError(err).Error("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
