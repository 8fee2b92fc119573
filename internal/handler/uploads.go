package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/classroom/internal/middleware"
	"github.com/capitalize-ai/classroom/internal/service"
	"github.com/capitalize-ai/classroom/pkg/logger"
)

// multipartMemory is the part of a form kept in memory; the rest spills to
// temporary files.
const multipartMemory = 8 << 20

// UploadHandler handles file upload endpoints.
type UploadHandler struct {
	service *service.UploadService
	logger  *logger.Logger
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(svc *service.UploadService, log *logger.Logger) *UploadHandler {
	return &UploadHandler{service: svc, logger: log}
}

// parseForm bounds the body to maxFiles files plus form overhead.
func (h *UploadHandler) parseForm(w http.ResponseWriter, r *http.Request, maxFiles int) bool {
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxFiles)*h.service.MaxBytes()+1<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, "file too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "no file selected")
		return false
	}
	return true
}

// Upload handles POST /api/uploads
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r, 1) {
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no file selected")
		return
	}

	ctx := r.Context()
	info, err := h.service.SaveOne(ctx, middleware.GetUserID(ctx), files[0])
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// UploadMultiple handles POST /api/uploads/multiple
func (h *UploadHandler) UploadMultiple(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r, service.MaxFilesPerUpload) {
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	ctx := r.Context()
	infos, err := h.service.SaveMany(ctx, middleware.GetUserID(ctx), r.MultipartForm.File["files"])
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, infos)
}

// Serve handles GET /api/uploads/{filename}
func (h *UploadHandler) Serve(w http.ResponseWriter, r *http.Request) {
	path, err := h.service.Path(chi.URLParam(r, "filename"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	http.ServeFile(w, r, path)
}

// Delete handles DELETE /api/uploads/{filename}
func (h *UploadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.Delete(ctx, middleware.GetUserID(ctx), chi.URLParam(r, "filename")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
