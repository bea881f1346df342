package api

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-cms/pkg/cms"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const multipartMemory = 10 << 20

// UploadHandler handles multipart media and avatar uploads
type UploadHandler struct {
	service cms.Service
	metrics *Metrics
	logger  *slog.Logger
}

// NewUploadHandler creates a new upload handler. metrics may be nil.
func NewUploadHandler(service cms.Service, metrics *Metrics, logger *slog.Logger) *UploadHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadHandler{service: service, metrics: metrics, logger: logger}
}

// UploadMedia stores the "file" part and creates a media record
func (h *UploadHandler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	file, header, err := formFile(r)
	if err != nil {
		writeError(w, r, h.logger, err, "Upload failed")
		return
	}

	req := cms.UploadMediaRequest{
		Name: r.FormValue("name"),
		Type: r.FormValue("type"),
	}
	if file != nil {
		defer file.Close()
		req.Reader = file
		req.FileName = header.Filename
		req.Size = header.Size
		req.MimeType = header.Header.Get("Content-Type")
	}

	media, err := h.service.UploadMedia(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err, "Upload failed")
		return
	}
	h.metrics.ObserveUpload(req.Size)

	render.JSON(w, r, media)
}

// UploadAvatar stores the "file" part and sets it as the user's profile picture
func (h *UploadHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	file, header, err := formFile(r)
	if err != nil {
		writeError(w, r, h.logger, err, "Avatar upload failed")
		return
	}

	var req cms.UploadAvatarRequest
	if file != nil {
		defer file.Close()
		req.Reader = file
		req.FileName = header.Filename
		req.MimeType = header.Header.Get("Content-Type")
	}

	url, err := h.service.UploadAvatar(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, h.logger, err, "Avatar upload failed")
		return
	}
	if header != nil {
		h.metrics.ObserveUpload(header.Size)
	}

	render.JSON(w, r, avatarResponse{Success: true, URL: url})
}

// formFile parses the multipart body and returns the "file" part. A missing
// part is not an error here; the service reports it as a failed upload.
func formFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return file, header, nil
}
