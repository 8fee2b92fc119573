package model

import (
	"encoding/json"
	"time"
)

// Activity log actions.
const (
	ActionAnnotationUpdate = "ANNOTATION_UPDATE"
	ActionAnnotationDelete = "ANNOTATION_DELETE"
	ActionNoteUpdate       = "NOTE_UPDATE"
	ActionNoteAddKnowledge = "NOTE_ADD_KNOWLEDGE"
	ActionDraftUpdate      = "DRAFT_UPDATE"
	ActionDraftOrganize    = "DRAFT_ORGANIZE"
	ActionDraftSnapshot    = "DRAFT_SNAPSHOT"
	ActionFileUpload       = "FILE_UPLOAD"
	ActionFileUploadMulti  = "FILE_UPLOAD_MULTIPLE"
	ActionFileDelete       = "FILE_DELETE"
	ActionTaskStart        = "TASK_START"
	ActionTaskComplete     = "TASK_COMPLETE"
	ActionCompareOutputs   = "COMPARE_AI_OUTPUTS"
	ActionSelectOutput     = "SELECT_AI_OUTPUT"
	ActionTeacherReminder  = "TEACHER_REMINDER"
	ActionSendMessage      = "SEND_MESSAGE"
)

// AnnotationAction is the action logged when an annotation of type t is created.
func AnnotationAction(t AnnotationType) string {
	return "ANNOTATION_" + string(t)
}

// ActivityLog is one entry of a user's activity trail.
type ActivityLog struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Action    string          `json:"action"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ActionCount is the number of log entries for one action.
type ActionCount struct {
	Action string `json:"action"`
	Count  int    `json:"count"`
}
