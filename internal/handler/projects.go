package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/classroom/internal/middleware"
	"github.com/capitalize-ai/classroom/internal/model"
	"github.com/capitalize-ai/classroom/internal/service"
	"github.com/capitalize-ai/classroom/pkg/logger"
)

// ProjectHandler handles student project endpoints.
type ProjectHandler struct {
	service *service.ProjectService
	logger  *logger.Logger
}

// NewProjectHandler creates a new project handler.
func NewProjectHandler(svc *service.ProjectService, log *logger.Logger) *ProjectHandler {
	return &ProjectHandler{service: svc, logger: log}
}

// List handles GET /api/projects
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projects, err := h.service.List(ctx, middleware.GetUserID(ctx))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// Create handles POST /api/projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.CreateProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.service.Create(ctx, middleware.GetUserID(ctx), &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Get handles GET /api/projects/{id}
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := h.service.Get(ctx, middleware.GetUser(ctx), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateProgress handles PUT /api/projects/{id}/progress/{taskIndex}
func (h *ProjectHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	taskIndex, err := strconv.Atoi(chi.URLParam(r, "taskIndex"))
	if err != nil || taskIndex < 0 {
		writeError(w, http.StatusBadRequest, "invalid task index")
		return
	}

	var req model.UpdateProgressRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tp, err := h.service.UpdateProgress(ctx, middleware.GetUserID(ctx), chi.URLParam(r, "id"), taskIndex, &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tp)
}

// Compare handles POST /api/projects/{id}/compare
func (h *ProjectHandler) Compare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.CompareRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.Compare(ctx, middleware.GetUserID(ctx), chi.URLParam(r, "id"), &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// UnreadReminders handles GET /api/projects/reminders/unread
func (h *ProjectHandler) UnreadReminders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reminders, err := h.service.UnreadReminders(ctx, middleware.GetUserID(ctx))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reminders)
}

// MarkReminderRead handles PUT /api/projects/reminders/{id}/read
func (h *ProjectHandler) MarkReminderRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reminder, err := h.service.MarkReminderRead(ctx, middleware.GetUserID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reminder)
}

// AvailableTemplates handles GET /api/projects/templates/available
func (h *ProjectHandler) AvailableTemplates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templates, err := h.service.AvailableTemplates(ctx, middleware.GetUserID(ctx))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}
