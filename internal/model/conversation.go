// Package model defines data structures for the classroom platform.
package model

import (
	"time"
)

// Conversation represents a chat thread owned by one user.
type Conversation struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	LastMessage *Message  `json:"lastMessage,omitempty"`
	Messages    []Message `json:"messages,omitempty"`
}

// CreateConversationRequest is the request to create a new conversation.
type CreateConversationRequest struct {
	Title string `json:"title" validate:"max=256"`
}
