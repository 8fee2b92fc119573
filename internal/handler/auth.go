package handler

import (
	"net/http"

	"github.com/capitalize-ai/classroom/internal/middleware"
	"github.com/capitalize-ai/classroom/internal/model"
	"github.com/capitalize-ai/classroom/internal/service"
	"github.com/capitalize-ai/classroom/pkg/logger"
)

// AuthHandler handles account and session endpoints.
type AuthHandler struct {
	service *service.AuthService
	logger  *logger.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(svc *service.AuthService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{service: svc, logger: log}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Register(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Login(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, err := middleware.BearerToken(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if err := h.service.Logout(r.Context(), token); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"user": middleware.GetUser(r.Context())})
}

// BatchCreateStudents handles POST /api/auth/batch-create-students
func (h *AuthHandler) BatchCreateStudents(w http.ResponseWriter, r *http.Request) {
	var req model.BatchCreateStudentsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	results := h.service.BatchCreateStudents(r.Context(), req.Students)
	created := 0
	for _, res := range results {
		if res.Success {
			created++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"created": created,
		"failed":  len(results) - created,
		"results": results,
	})
}
