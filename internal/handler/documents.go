package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/classroom/internal/middleware"
	"github.com/capitalize-ai/classroom/internal/model"
	"github.com/capitalize-ai/classroom/internal/service"
	"github.com/capitalize-ai/classroom/pkg/logger"
)

// DocumentHandler handles note and draft endpoints. Both are keyed by
// conversation.
type DocumentHandler struct {
	service *service.DocumentService
	logger  *logger.Logger
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(svc *service.DocumentService, log *logger.Logger) *DocumentHandler {
	return &DocumentHandler{service: svc, logger: log}
}

func scope(r *http.Request) (userID, conversationID string) {
	return middleware.GetUserID(r.Context()), chi.URLParam(r, "conversationId")
}

// GetNote handles GET /api/notes/{conversationId}
func (h *DocumentHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	userID, convID := scope(r)
	note, err := h.service.GetNote(r.Context(), userID, convID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// PutNote handles PUT /api/notes/{conversationId}
func (h *DocumentHandler) PutNote(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	userID, convID := scope(r)
	note, err := h.service.PutNote(r.Context(), userID, convID, req.Content)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// AddKnowledge handles POST /api/notes/{conversationId}/add-knowledge
func (h *DocumentHandler) AddKnowledge(w http.ResponseWriter, r *http.Request) {
	var req model.AddKnowledgeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	userID, convID := scope(r)
	note, err := h.service.AddKnowledge(r.Context(), userID, convID, &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// GetDraft handles GET /api/drafts/{conversationId}
func (h *DocumentHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	userID, convID := scope(r)
	draft, err := h.service.GetDraft(r.Context(), userID, convID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// PutDraft handles PUT /api/drafts/{conversationId}
func (h *DocumentHandler) PutDraft(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	userID, convID := scope(r)
	draft, err := h.service.PutDraft(r.Context(), userID, convID, req.Content)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// Organize handles POST /api/drafts/{conversationId}/organize
func (h *DocumentHandler) Organize(w http.ResponseWriter, r *http.Request) {
	var req model.OrganizeDraftRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	userID, convID := scope(r)
	draft, err := h.service.Organize(r.Context(), userID, convID, &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// Snapshot handles POST /api/drafts/{conversationId}/snapshot
func (h *DocumentHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	userID, convID := scope(r)
	snap, err := h.service.Snapshot(r.Context(), userID, convID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// History handles GET /api/drafts/{conversationId}/history
func (h *DocumentHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, convID := scope(r)
	snaps, err := h.service.History(r.Context(), userID, convID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}
