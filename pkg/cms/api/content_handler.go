package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-cms/pkg/cms"
)

// UpdateNameRequest is the request body for PATCH /api/users/{id}
type UpdateNameRequest struct {
	Name string `json:"name"`
}

// ContentHandler handles listing, editing and deleting records of every type
type ContentHandler struct {
	service cms.Service
	logger  *slog.Logger
}

// NewContentHandler creates a new content handler
func NewContentHandler(service cms.Service, logger *slog.Logger) *ContentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentHandler{service: service, logger: logger}
}

// List returns every record of the type named in the path
func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	t := cms.RecordType(chi.URLParam(r, "type"))

	docs, err := h.service.List(r.Context(), t)
	if err != nil {
		status, _ := errorStatus(err, "")
		if status == http.StatusNotFound {
			writeError(w, r, h.logger, err, "")
			return
		}
		h.logger.ErrorContext(r.Context(), "Failed to list records", "type", t, "err", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, []cms.Document{})
		return
	}

	render.JSON(w, r, docs)
}

// CreatePage stores a new page
func (h *ContentHandler) CreatePage(w http.ResponseWriter, r *http.Request) {
	h.createContent(w, r, h.service.CreatePage)
}

// CreatePost stores a new post
func (h *ContentHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	h.createContent(w, r, h.service.CreatePost)
}

func (h *ContentHandler) createContent(w http.ResponseWriter, r *http.Request, create func(context.Context, cms.Content) (*cms.Content, error)) {
	var fields cms.Content
	if err := render.DecodeJSON(r.Body, &fields); err != nil {
		badRequest(w, r)
		return
	}

	content, err := create(r.Context(), fields)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to create content", "path", r.URL.Path, "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, content)
}

// UpdateContent merges the body into a page or post and returns the result
func (h *ContentHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	t := cms.RecordType(chi.URLParam(r, "type"))
	id := chi.URLParam(r, "id")

	var patch cms.ContentPatch
	if err := render.DecodeJSON(r.Body, &patch); err != nil {
		badRequest(w, r)
		return
	}

	content, err := h.service.UpdateContent(r.Context(), t, id, patch)
	if err != nil {
		writeError(w, r, h.logger, err, "Update failed")
		return
	}

	render.JSON(w, r, content)
}

// UpdateUserName changes a user's display name
func (h *ContentHandler) UpdateUserName(w http.ResponseWriter, r *http.Request) {
	var req UpdateNameRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r)
		return
	}

	if err := h.service.UpdateUserName(r.Context(), chi.URLParam(r, "id"), req.Name); err != nil {
		writeError(w, r, h.logger, err, "Update failed")
		return
	}

	render.JSON(w, r, successResponse{Success: true})
}

// UpdateUserSecurity changes a user's username and/or password
func (h *ContentHandler) UpdateUserSecurity(w http.ResponseWriter, r *http.Request) {
	var req cms.SecurityUpdate
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r)
		return
	}

	if err := h.service.UpdateUserSecurity(r.Context(), chi.URLParam(r, "id"), req); err != nil {
		writeError(w, r, h.logger, err, "Security update failed")
		return
	}

	render.JSON(w, r, successResponse{Success: true})
}

// UpdateMedia changes a media record's name and/or type
func (h *ContentHandler) UpdateMedia(w http.ResponseWriter, r *http.Request) {
	var patch cms.MediaPatch
	if err := render.DecodeJSON(r.Body, &patch); err != nil {
		badRequest(w, r)
		return
	}

	if err := h.service.UpdateMedia(r.Context(), chi.URLParam(r, "id"), patch); err != nil {
		writeError(w, r, h.logger, err, "Media update failed")
		return
	}

	render.JSON(w, r, successResponse{Success: true})
}

// Delete removes a record by id
func (h *ContentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	t := cms.RecordType(chi.URLParam(r, "type"))

	if err := h.service.Delete(r.Context(), t, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err, "Delete failed")
		return
	}

	render.JSON(w, r, successResponse{Success: true})
}
