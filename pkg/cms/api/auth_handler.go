package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/simple-cms/pkg/cms"
)

// LoginRequest is the request body for POST /api/login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthHandler handles login and account creation
type AuthHandler struct {
	service cms.Service
	tokens  *TokenIssuer
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth handler. A nil issuer disables tokens.
func NewAuthHandler(service cms.Service, tokens *TokenIssuer, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{service: service, tokens: tokens, logger: logger}
}

// Login checks the credentials and returns the user projection
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r)
		return
	}

	user, err := h.service.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, cms.ErrInvalidCredentials) {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, loginFailure{Success: false, Message: "Invalid credentials"})
		return
	}
	if err != nil {
		h.serverError(w, r, "Login failed", err)
		return
	}

	resp := userResponse{Success: true, User: user}
	if h.tokens != nil {
		token, err := h.tokens.Issue(user)
		if err != nil {
			h.serverError(w, r, "Failed to issue token", err)
			return
		}
		resp.Token = token
	}

	render.JSON(w, r, resp)
}

// CreateUser registers an account with a hashed password
func (h *AuthHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req cms.CreateUserRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r)
		return
	}

	user, err := h.service.CreateUser(r.Context(), req)
	if errors.Is(err, cms.ErrInvalidInput) {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, loginFailure{Success: false, Error: "Username and password are required"})
		return
	}
	if err != nil {
		h.serverError(w, r, "Failed to create user", err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, userResponse{Success: true, User: user})
}

func (h *AuthHandler) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg, "request_id", RequestIDFromContext(r.Context()), "err", err)
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, loginFailure{Success: false, Error: "Server error"})
}
