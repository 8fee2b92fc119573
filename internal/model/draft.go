package model

import "time"

// Draft is the working document a student assembles from AI replies.
type Draft struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	ConversationID string    `json:"conversationId"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// DraftSnapshot freezes a draft at the end of a round.
type DraftSnapshot struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	ConversationID string    `json:"conversationId"`
	RoundNumber    int       `json:"roundNumber"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

// OrganizedAnnotation is an annotation excerpt carried into a draft.
type OrganizedAnnotation struct {
	SelectedText string `json:"selectedText"`
	Label        string `json:"label"`
	Note         string `json:"note"`
}

// OrganizeDraftRequest appends an AI reply, or its annotations, to a draft.
type OrganizeDraftRequest struct {
	MessageID   string                `json:"messageId"`
	AIName      string                `json:"aiName" validate:"required"`
	Content     string                `json:"content"`
	Annotations []OrganizedAnnotation `json:"annotations"`
}
