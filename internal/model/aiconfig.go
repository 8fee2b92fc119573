package model

import "time"

// AIConfig is a named provider and model pairing users can select.
type AIConfig struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	SystemPrompt string    `json:"systemPrompt,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	Description  string    `json:"description,omitempty"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CreateAIConfigRequest is the request to create an AI config.
type CreateAIConfigRequest struct {
	Name         string `json:"name" validate:"required,max=128"`
	Provider     string `json:"provider" validate:"required,max=64"`
	Model        string `json:"model" validate:"required,max=128"`
	SystemPrompt string `json:"systemPrompt"`
	Avatar       string `json:"avatar"`
	Description  string `json:"description"`
}

// UpdateAIConfigRequest updates the provided fields of an AI config.
type UpdateAIConfigRequest struct {
	Name         *string `json:"name" validate:"omitempty,max=128"`
	Provider     *string `json:"provider" validate:"omitempty,max=64"`
	Model        *string `json:"model" validate:"omitempty,max=128"`
	SystemPrompt *string `json:"systemPrompt"`
	Avatar       *string `json:"avatar"`
	Description  *string `json:"description"`
	IsActive     *bool   `json:"isActive"`
}
