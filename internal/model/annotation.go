package model

import "time"

// AnnotationType classifies a highlighted span of an AI reply.
type AnnotationType string

const (
	AnnotationKnowledge AnnotationType = "KNOWLEDGE"
	AnnotationDelete    AnnotationType = "DELETE"
	AnnotationComment   AnnotationType = "COMMENT"
)

// Annotation marks a span of a message.
type Annotation struct {
	ID           string         `json:"id"`
	MessageID    string         `json:"messageId"`
	UserID       string         `json:"userId"`
	SelectedText string         `json:"selectedText"`
	Type         AnnotationType `json:"type"`
	Label        *string        `json:"label,omitempty"`
	Note         *string        `json:"note,omitempty"`
	StartOffset  *int           `json:"startOffset,omitempty"`
	EndOffset    *int           `json:"endOffset,omitempty"`
	IsDeleted    bool           `json:"isDeleted"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// CreateAnnotationRequest is the request to annotate a message.
type CreateAnnotationRequest struct {
	MessageID    string         `json:"messageId" validate:"required"`
	SelectedText string         `json:"selectedText" validate:"required"`
	Type         AnnotationType `json:"type" validate:"required,oneof=KNOWLEDGE DELETE COMMENT"`
	Label        *string        `json:"label"`
	Note         *string        `json:"note"`
	StartOffset  *int           `json:"startOffset" validate:"omitempty,min=0"`
	EndOffset    *int           `json:"endOffset" validate:"omitempty,min=0"`
}

// UpdateAnnotationRequest updates the provided fields of an annotation.
type UpdateAnnotationRequest struct {
	Label     *string `json:"label"`
	Note      *string `json:"note"`
	IsDeleted *bool   `json:"isDeleted"`
}
