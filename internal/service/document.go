package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/capitalize-ai/classroom/internal/model"
	"github.com/capitalize-ai/classroom/internal/store"
)

// labelEmoji marks organized annotation excerpts by their label.
var labelEmoji = map[string]string{
	"DOUBT":       "❓",
	"INSPIRATION": "💡",
	"QUESTION":    "🤔",
	"NOTE":        "📝",
}

const defaultLabelEmoji = "📌"

// DocumentService manages the per-conversation note and draft of a user.
type DocumentService struct {
	store    *store.Store
	activity *ActivityRecorder
	now      func() time.Time
}

// NewDocumentService creates a new document service.
func NewDocumentService(s *store.Store, activity *ActivityRecorder) *DocumentService {
	return &DocumentService{store: s, activity: activity, now: time.Now}
}

// GetNote returns the user's note, creating an empty one on first access.
func (s *DocumentService) GetNote(ctx context.Context, userID, conversationID string) (*model.Note, error) {
	if err := s.checkConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.store.GetOrCreateNote(ctx, userID, conversationID)
}

// PutNote replaces the note content.
func (s *DocumentService) PutNote(ctx context.Context, userID, conversationID, content string) (*model.Note, error) {
	if err := s.checkConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	note, err := s.store.PutNote(ctx, userID, conversationID, content, s.now())
	if err != nil {
		return nil, err
	}
	s.activity.Record(ctx, userID, model.ActionNoteUpdate, map[string]any{
		"conversationId": conversationID,
		"contentLength":  len([]rune(content)),
	})
	return note, nil
}

// AddKnowledge appends a knowledge point with its source to the note.
func (s *DocumentService) AddKnowledge(ctx context.Context, userID, conversationID string, req *model.AddKnowledgeRequest) (*model.Note, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, invalid("text is required")
	}
	note, err := s.GetNote(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	note, err = s.store.PutNote(ctx, userID, conversationID, AppendKnowledge(note.Content, req.Text, req.Source), s.now())
	if err != nil {
		return nil, err
	}
	s.activity.Record(ctx, userID, model.ActionNoteAddKnowledge, map[string]any{
		"conversationId": conversationID,
		"text":           truncate(req.Text, 100),
		"source":         req.Source,
	})
	return note, nil
}

// GetDraft returns the user's draft, creating an empty one on first access.
func (s *DocumentService) GetDraft(ctx context.Context, userID, conversationID string) (*model.Draft, error) {
	if err := s.checkConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.store.GetOrCreateDraft(ctx, userID, conversationID)
}

// PutDraft replaces the draft content.
func (s *DocumentService) PutDraft(ctx context.Context, userID, conversationID, content string) (*model.Draft, error) {
	if err := s.checkConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	draft, err := s.store.PutDraft(ctx, userID, conversationID, content, s.now())
	if err != nil {
		return nil, err
	}
	s.activity.Record(ctx, userID, model.ActionDraftUpdate, map[string]any{
		"conversationId": conversationID,
		"contentLength":  len([]rune(content)),
	})
	return draft, nil
}

// Organize appends a section built from an AI reply, or from its
// annotations when any are given, to the draft.
func (s *DocumentService) Organize(ctx context.Context, userID, conversationID string, req *model.OrganizeDraftRequest) (*model.Draft, error) {
	if strings.TrimSpace(req.AIName) == "" {
		return nil, invalid("aiName is required")
	}
	draft, err := s.GetDraft(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	draft, err = s.store.PutDraft(ctx, userID, conversationID, draft.Content+OrganizedSection(req), s.now())
	if err != nil {
		return nil, err
	}
	s.activity.Record(ctx, userID, model.ActionDraftOrganize, map[string]any{
		"conversationId":  conversationID,
		"messageId":       req.MessageID,
		"aiName":          req.AIName,
		"annotationCount": len(req.Annotations),
	})
	return draft, nil
}

// Snapshot freezes the current draft as the next round.
func (s *DocumentService) Snapshot(ctx context.Context, userID, conversationID string) (*model.DraftSnapshot, error) {
	draft, err := s.GetDraft(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if draft.Content == "" {
		return nil, invalid("draft is empty")
	}

	snap, err := s.store.CreateSnapshot(ctx, userID, conversationID, draft.Content, s.now())
	if err != nil {
		return nil, err
	}
	s.activity.Record(ctx, userID, model.ActionDraftSnapshot, map[string]any{
		"conversationId": conversationID,
		"roundNumber":    snap.RoundNumber,
	})
	return snap, nil
}

// History returns the draft snapshots, oldest round first.
func (s *DocumentService) History(ctx context.Context, userID, conversationID string) ([]model.DraftSnapshot, error) {
	if err := s.checkConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.store.ListSnapshots(ctx, userID, conversationID)
}

func (s *DocumentService) checkConversation(ctx context.Context, userID, conversationID string) error {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return lookup(err, "conversation")
	}
	if conv.UserID != userID {
		return notFound("conversation")
	}
	return nil
}

// AppendKnowledge adds a pinned knowledge point to note content.
func AppendKnowledge(content, text, source string) string {
	entry := fmt.Sprintf("📌 %s\n— Source: %s", text, source)
	if content == "" {
		return entry
	}
	return content + "\n\n" + entry
}

// OrganizedSection renders the markdown block Organize appends.
func OrganizedSection(req *model.OrganizeDraftRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n\n---\n### From %s\n", req.AIName)

	if len(req.Annotations) == 0 {
		b.WriteString("\n")
		b.WriteString(req.Content)
		return b.String()
	}

	for _, a := range req.Annotations {
		emoji, ok := labelEmoji[a.Label]
		if !ok {
			emoji = defaultLabelEmoji
		}
		fmt.Fprintf(&b, "\n%s \"%s\"", emoji, a.SelectedText)
		if a.Note != "" {
			fmt.Fprintf(&b, "\n   → %s", a.Note)
		}
	}
	return b.String()
}
