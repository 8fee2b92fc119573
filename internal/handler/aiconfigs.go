package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/classroom/internal/model"
	"github.com/capitalize-ai/classroom/internal/service"
	"github.com/capitalize-ai/classroom/pkg/logger"
)

// AIConfigHandler handles AI config endpoints.
type AIConfigHandler struct {
	service *service.AIConfigService
	logger  *logger.Logger
}

// NewAIConfigHandler creates a new AI config handler.
func NewAIConfigHandler(svc *service.AIConfigService, log *logger.Logger) *AIConfigHandler {
	return &AIConfigHandler{service: svc, logger: log}
}

// List handles GET /api/ai/configs
func (h *AIConfigHandler) List(w http.ResponseWriter, r *http.Request) {
	configs, err := h.service.ListActive(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, configs)
}

// Providers handles GET /api/ai/providers
func (h *AIConfigHandler) Providers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Providers())
}

// Create handles POST /api/ai/configs
func (h *AIConfigHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateAIConfigRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cfg, err := h.service.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, cfg)
}

// Update handles PUT /api/ai/configs/{id}
func (h *AIConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateAIConfigRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cfg, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// Delete handles DELETE /api/ai/configs/{id}
func (h *AIConfigHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
