package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/simple-cms/pkg/cms"
)

type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// loginFailure keeps the login and token error bodies: message for
// rejected credentials, error for server failures.
type loginFailure struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type userResponse struct {
	Success bool                `json:"success"`
	User    *cms.UserProjection `json:"user"`
	Token   string              `json:"token,omitempty"`
}

type avatarResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

// writeError maps service errors onto the public status codes. message is
// the short text reported for server side failures.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, message string) {
	status, body := errorStatus(err, message)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), message,
			"request_id", RequestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"err", err,
		)
	} else {
		logger.DebugContext(r.Context(), "request rejected", "path", r.URL.Path, "status", status, "err", err)
	}

	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: body})
}

func errorStatus(err error, message string) (int, string) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, cms.ErrUnknownType), errors.Is(err, cms.ErrUnsupportedType):
		return http.StatusNotFound, "Invalid type"
	case errors.Is(err, cms.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, message
	case errors.Is(err, cms.ErrInvalidInput):
		return http.StatusBadRequest, "Invalid request"
	case errors.Is(err, cms.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	default:
		return http.StatusInternalServerError, message
	}
}

// badRequest reports an undecodable body
func badRequest(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, errorResponse{Error: "Invalid request"})
}
