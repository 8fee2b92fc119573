package model

import "time"

// UserRole is the classroom role of an account.
type UserRole string

const (
	UserRoleStudent UserRole = "STUDENT"
	UserRoleTeacher UserRole = "TEACHER"
)

// User is an account. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Role         UserRole  `json:"role"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserSummary is the public projection of a user embedded in other payloads.
type UserSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Session backs a bearer token.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// RegisterRequest is the request to create an account.
type RegisterRequest struct {
	Username string   `json:"username" validate:"required,max=64"`
	Password string   `json:"password" validate:"required,min=6,max=128"`
	Name     string   `json:"name" validate:"required,max=128"`
	Role     UserRole `json:"role" validate:"omitempty,oneof=STUDENT TEACHER"`
}

// LoginRequest is the request to open a session.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// NewStudent is one row of a batch student creation.
type NewStudent struct {
	Username string `json:"username" validate:"required,max=64"`
	Name     string `json:"name" validate:"required,max=128"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// BatchCreateStudentsRequest is the teacher request to create many students.
type BatchCreateStudentsRequest struct {
	Students []NewStudent `json:"students" validate:"required,min=1,max=500"`
}

// BatchCreateResult reports the outcome of one batch row.
type BatchCreateResult struct {
	Success  bool   `json:"success"`
	Username string `json:"username"`
	ID       string `json:"id,omitempty"`
	Error    string `json:"error,omitempty"`
}
