package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

const (
	maxCredentialsBody = 64 << 10
	minPasswordLength  = 8
)

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse represents the login response
type TokenResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// badRequest is a client mistake whose message is safe to echo
type badRequest string

func (e badRequest) Error() string { return string(e) }

// Handlers serves the register, login and me endpoints
type Handlers struct {
	service Service
}

// NewHandlers creates a new Handlers instance
func NewHandlers(service Service) *Handlers {
	return &Handlers{service: service}
}

// Register handles POST /auth/register
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	creds, err := decodeCredentials(w, r)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	req := RegisterRequest(creds)
	if len(req.Password) < minPasswordLength {
		respondAuthError(w, badRequest("password must be at least 8 characters"))
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		respondAuthError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

// Login handles POST /auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(w, r)
	if err != nil {
		respondAuthError(w, err)
		return
	}

	token, user, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondAuthError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, TokenResponse{Token: token, User: user})
}

// Me handles GET /auth/me with the caller's identity and scopes
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"id":     claims.UserID,
		"email":  claims.Email,
		"scopes": claims.Scopes,
	})
}

// decodeCredentials reads a size-limited email/password body
func decodeCredentials(w http.ResponseWriter, r *http.Request) (LoginRequest, error) {
	var creds LoginRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxCredentialsBody)
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		return creds, badRequest("invalid request body")
	}
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		return creds, badRequest("email and password are required")
	}
	return creds, nil
}

// respondAuthError maps service and request errors to status codes. Unknown
// errors never leak their text.
func respondAuthError(w http.ResponseWriter, err error) {
	var bad badRequest
	switch {
	case errors.As(err, &bad):
		respondError(w, http.StatusBadRequest, bad.Error())
	case errors.Is(err, ErrUserExists):
		respondError(w, http.StatusConflict, "user already exists")
	case errors.Is(err, ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "invalid credentials")
	default:
		respondError(w, http.StatusInternalServerError, "authentication failed")
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}
