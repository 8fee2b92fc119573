package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ErrorMarker prefixes the content of an assistant message that records a
// failed provider call.
const ErrorMarker = "[Error] "

// Message represents a conversation message. Messages are never updated.
type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`

	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Assistant metadata
	AIConfigID *string   `json:"aiConfigId,omitempty"`
	AIConfig   *AIConfig `json:"aiConfig,omitempty"`
	Model      *string   `json:"model,omitempty"`
	LatencyMs  *int64    `json:"latencyMs,omitempty"`
	IsError    bool      `json:"isError,omitempty"`

	Annotations []Annotation `json:"annotations,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// SendMessageRequest is the request to send a user turn to several AIs.
type SendMessageRequest struct {
	Content     string   `json:"content" validate:"required,max=100000"`
	AIConfigIDs []string `json:"aiConfigIds" validate:"required,min=1,max=8,dive,required"`
}

// SendMessageResponse is the response after a user turn was dispatched.
type SendMessageResponse struct {
	UserMessage       *Message  `json:"userMessage"`
	AssistantMessages []Message `json:"assistantMessages"`
}
