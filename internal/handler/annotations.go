package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/classroom/internal/middleware"
	"github.com/capitalize-ai/classroom/internal/model"
	"github.com/capitalize-ai/classroom/internal/service"
	"github.com/capitalize-ai/classroom/pkg/logger"
)

// AnnotationHandler handles annotation endpoints.
type AnnotationHandler struct {
	service *service.AnnotationService
	logger  *logger.Logger
}

// NewAnnotationHandler creates a new annotation handler.
func NewAnnotationHandler(svc *service.AnnotationService, log *logger.Logger) *AnnotationHandler {
	return &AnnotationHandler{service: svc, logger: log}
}

// ListByMessage handles GET /api/annotations/message/{messageId}
func (h *AnnotationHandler) ListByMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.service.ListByMessage(ctx, middleware.GetUserID(ctx), chi.URLParam(r, "messageId"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Create handles POST /api/annotations
func (h *AnnotationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.CreateAnnotationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	a, err := h.service.Create(ctx, middleware.GetUserID(ctx), &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// Update handles PATCH /api/annotations/{id}
func (h *AnnotationHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.UpdateAnnotationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	a, err := h.service.Update(ctx, middleware.GetUserID(ctx), chi.URLParam(r, "id"), &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Delete handles DELETE /api/annotations/{id}
func (h *AnnotationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.Delete(ctx, middleware.GetUserID(ctx), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
