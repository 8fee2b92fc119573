package model

import "time"

// TaskStatus is the state of one task of a project.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
)

// ProjectStatus is the state of a whole project.
type ProjectStatus string

const (
	ProjectInProgress ProjectStatus = "IN_PROGRESS"
	ProjectCompleted  ProjectStatus = "COMPLETED"
)

// TaskDefinition is one stage of a task template.
type TaskDefinition struct {
	Phase            int      `json:"phase"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	SoftPrompts      []string `json:"softPrompts"`
	SuggestedAICount int      `json:"suggestedAICount"`
}

// TaskTemplate is an ordered list of project stages.
type TaskTemplate struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Tasks       []TaskDefinition `json:"tasks"`
	CreatedBy   string           `json:"createdBy"`
	IsActive    bool             `json:"isActive"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// Project is a student's run through a template.
type Project struct {
	ID             string        `json:"id"`
	UserID         string        `json:"userId"`
	TemplateID     string        `json:"templateId"`
	Title          string        `json:"title"`
	ConversationID *string       `json:"conversationId,omitempty"`
	CurrentPhase   int           `json:"currentPhase"`
	CurrentTask    int           `json:"currentTask"`
	Status         ProjectStatus `json:"status"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`

	Template     *TaskTemplate  `json:"template,omitempty"`
	Progress     []TaskProgress `json:"progress,omitempty"`
	Conversation *Conversation  `json:"conversation,omitempty"`
	User         *UserSummary   `json:"user,omitempty"`
}

// TaskProgress is the state of one (project, taskIndex) pair.
type TaskProgress struct {
	ID             string     `json:"id"`
	ProjectID      string     `json:"projectId"`
	TaskIndex      int        `json:"taskIndex"`
	Status         TaskStatus `json:"status"`
	StudentContent string     `json:"studentContent"`
	AIContent      string     `json:"aiContent"`
	AIRatio        float64    `json:"aiRatio"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	LastActiveAt   time.Time  `json:"lastActiveAt"`
}

// CreateProjectRequest starts a project from a template.
type CreateProjectRequest struct {
	TemplateID     string  `json:"templateId" validate:"required"`
	Title          string  `json:"title" validate:"required,max=256"`
	ConversationID *string `json:"conversationId"`
}

// UpdateProgressRequest records a student's work on a task.
type UpdateProgressRequest struct {
	StudentContent string     `json:"studentContent"`
	AIContent      string     `json:"aiContent"`
	Status         TaskStatus `json:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED"`
}

// CompareRequest logs that a student compared or picked AI outputs.
type CompareRequest struct {
	AIConfigs    []string `json:"aiConfigs"`
	TaskIndex    *int     `json:"taskIndex"`
	SelectedAIID string   `json:"selectedAiId"`
}
