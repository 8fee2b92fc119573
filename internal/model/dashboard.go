package model

// ActivityStatus is the engagement state derived from idle time.
type ActivityStatus string

const (
	ActivityActive ActivityStatus = "active"
	ActivityIdle   ActivityStatus = "idle"
	ActivityStuck  ActivityStatus = "stuck"
)

// StudentStatus is one row of the teacher dashboard.
type StudentStatus struct {
	ProjectID      string         `json:"projectId"`
	Student        *UserSummary   `json:"student"`
	ProjectTitle   string         `json:"projectTitle"`
	CurrentPhase   int            `json:"currentPhase"`
	CurrentTask    int            `json:"currentTask"`
	TotalTasks     int            `json:"totalTasks"`
	CompletedTasks int            `json:"completedTasks"`
	AIRatio        int            `json:"aiRatio"`
	ActivityStatus ActivityStatus `json:"activityStatus"`
	IdleMinutes    int            `json:"idleMinutes"`
	Status         ProjectStatus  `json:"status"`
}

// Dashboard is the class-wide overview for teachers.
type Dashboard struct {
	TotalStudents int             `json:"totalStudents"`
	ActiveCount   int             `json:"activeCount"`
	IdleCount     int             `json:"idleCount"`
	StuckCount    int             `json:"stuckCount"`
	Students      []StudentStatus `json:"students"`
}

// TaskAnalytics aggregates completed rows of one task index.
type TaskAnalytics struct {
	TaskIndex          int `json:"taskIndex"`
	AvgDurationMinutes int `json:"avgDurationMinutes"`
	AvgAIRatio         int `json:"avgAiRatio"`
	CompletedCount     int `json:"completedCount"`
}

// Analytics is the teacher analytics report.
type Analytics struct {
	TotalProjects     int             `json:"totalProjects"`
	CompletedProjects int             `json:"completedProjects"`
	TaskAnalytics     []TaskAnalytics `json:"taskAnalytics"`
	ActivityStats     []ActionCount   `json:"activityStats"`
}

// StudentDetail is a teacher's view of one student.
type StudentDetail struct {
	Projects     []Project     `json:"projects"`
	ActivityLogs []ActivityLog `json:"activityLogs"`
}
