package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/classroom/internal/middleware"
	"github.com/capitalize-ai/classroom/internal/model"
	"github.com/capitalize-ai/classroom/internal/service"
	"github.com/capitalize-ai/classroom/pkg/logger"
)

// TeacherHandler handles teacher-only endpoints.
type TeacherHandler struct {
	service *service.TeacherService
	logger  *logger.Logger
}

// NewTeacherHandler creates a new teacher handler.
func NewTeacherHandler(svc *service.TeacherService, log *logger.Logger) *TeacherHandler {
	return &TeacherHandler{service: svc, logger: log}
}

// Dashboard handles GET /api/teacher/dashboard
func (h *TeacherHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Dashboard(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Students handles GET /api/teacher/students
func (h *TeacherHandler) Students(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.Students(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// StudentDetail handles GET /api/teacher/student/{userId}
func (h *TeacherHandler) StudentDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.StudentDetail(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// SendReminder handles POST /api/teacher/reminder
func (h *TeacherHandler) SendReminder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.SendReminderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reminder, err := h.service.SendReminder(ctx, middleware.GetUserID(ctx), &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, reminder)
}

// Analytics handles GET /api/teacher/analytics
func (h *TeacherHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Analytics(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Templates handles GET /api/teacher/templates
func (h *TeacherHandler) Templates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templates, err := h.service.Templates(ctx, middleware.GetUserID(ctx))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

// InitTemplate handles POST /api/teacher/templates/init
func (h *TeacherHandler) InitTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tmpl, err := h.service.InitTemplate(ctx, middleware.GetUserID(ctx))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}
