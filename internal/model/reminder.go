package model

import "time"

// Reminder is a private nudge from a teacher to a student.
type Reminder struct {
	ID        string     `json:"id"`
	TeacherID string     `json:"teacherId"`
	StudentID string     `json:"studentId"`
	ProjectID *string    `json:"projectId,omitempty"`
	Message   string     `json:"message"`
	Type      string     `json:"type"`
	SentAt    time.Time  `json:"sentAt"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
}

// SendReminderRequest is the teacher request to remind a student.
type SendReminderRequest struct {
	StudentID string  `json:"studentId" validate:"required"`
	ProjectID *string `json:"projectId"`
	Message   string  `json:"message" validate:"required,max=2000"`
	Type      string  `json:"type" validate:"max=32"`
}
