package model

import "time"

// Note is a user's free-form notes for one conversation.
type Note struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	ConversationID string    `json:"conversationId"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// UpdateContentRequest replaces the content of a note or draft.
type UpdateContentRequest struct {
	Content string `json:"content"`
}

// AddKnowledgeRequest appends a knowledge point to a note.
type AddKnowledgeRequest struct {
	Text   string `json:"text" validate:"required"`
	Source string `json:"source"`
}
