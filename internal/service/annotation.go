package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/capitalize-ai/classroom/internal/model"
	"github.com/capitalize-ai/classroom/internal/store"
)

// AnnotationService manages highlights on AI replies.
type AnnotationService struct {
	store    *store.Store
	activity *ActivityRecorder
	now      func() time.Time
}

// NewAnnotationService creates a new annotation service.
func NewAnnotationService(s *store.Store, activity *ActivityRecorder) *AnnotationService {
	return &AnnotationService{store: s, activity: activity, now: time.Now}
}

// ListByMessage returns a message's annotations ordered by start offset.
// Only the owner of the conversation may read them.
func (s *AnnotationService) ListByMessage(ctx context.Context, userID, messageID string) ([]model.Annotation, error) {
	if err := s.checkMessage(ctx, userID, messageID); err != nil {
		return nil, err
	}
	return s.store.ListAnnotations(ctx, messageID)
}

// Create annotates a message. A DELETE annotation marks the span as deleted.
func (s *AnnotationService) Create(ctx context.Context, userID string, req *model.CreateAnnotationRequest) (*model.Annotation, error) {
	if req.MessageID == "" || req.SelectedText == "" || req.Type == "" {
		return nil, invalid("messageId, selectedText and type are required")
	}
	switch req.Type {
	case model.AnnotationKnowledge, model.AnnotationDelete, model.AnnotationComment:
	default:
		return nil, invalid("invalid annotation type %q", req.Type)
	}
	if req.StartOffset != nil && req.EndOffset != nil && *req.EndOffset < *req.StartOffset {
		return nil, invalid("endOffset must not precede startOffset")
	}
	if err := s.checkMessage(ctx, userID, req.MessageID); err != nil {
		return nil, err
	}

	now := s.now()
	a := &model.Annotation{
		ID:           uuid.Must(uuid.NewV7()).String(),
		MessageID:    req.MessageID,
		UserID:       userID,
		SelectedText: req.SelectedText,
		Type:         req.Type,
		Label:        req.Label,
		Note:         req.Note,
		StartOffset:  req.StartOffset,
		EndOffset:    req.EndOffset,
		IsDeleted:    req.Type == model.AnnotationDelete,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateAnnotation(ctx, a); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, userID, model.AnnotationAction(a.Type), map[string]any{
		"annotationId": a.ID,
		"messageId":    a.MessageID,
		"selectedText": truncate(a.SelectedText, 100),
		"label":        a.Label,
	})
	return a, nil
}

// Update changes label, note or the deleted flag of the caller's annotation.
func (s *AnnotationService) Update(ctx context.Context, userID, id string, req *model.UpdateAnnotationRequest) (*model.Annotation, error) {
	a, err := s.ownAnnotation(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Label != nil {
		a.Label = req.Label
	}
	if req.Note != nil {
		a.Note = req.Note
	}
	if req.IsDeleted != nil {
		a.IsDeleted = *req.IsDeleted
	}
	a.UpdatedAt = s.now()

	if err := s.store.UpdateAnnotation(ctx, a); err != nil {
		return nil, lookup(err, "annotation")
	}

	details := map[string]any{"annotationId": id, "label": req.Label}
	if req.Note != nil {
		details["note"] = truncate(*req.Note, 100)
	}
	s.activity.Record(ctx, userID, model.ActionAnnotationUpdate, details)
	return a, nil
}

// Delete removes the caller's annotation.
func (s *AnnotationService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.ownAnnotation(ctx, userID, id); err != nil {
		return err
	}
	if err := s.store.DeleteAnnotation(ctx, id); err != nil {
		return lookup(err, "annotation")
	}
	s.activity.Record(ctx, userID, model.ActionAnnotationDelete, map[string]any{"annotationId": id})
	return nil
}

// ownAnnotation hides annotations of other users behind not found.
func (s *AnnotationService) ownAnnotation(ctx context.Context, userID, id string) (*model.Annotation, error) {
	a, err := s.store.GetAnnotation(ctx, id)
	if err != nil {
		return nil, lookup(err, "annotation")
	}
	if a.UserID != userID {
		return nil, notFound("annotation")
	}
	return a, nil
}

func (s *AnnotationService) checkMessage(ctx context.Context, userID, messageID string) error {
	conv, err := s.store.ConversationOfMessage(ctx, messageID)
	if err != nil {
		return lookup(err, "message")
	}
	if conv.UserID != userID {
		return notFound("message")
	}
	return nil
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
