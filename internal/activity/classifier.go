// Package activity derives student engagement from stored timestamps and
// content lengths. Every function is pure; callers pass the clock in.
package activity

import (
	"math"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/capitalize-ai/classroom/internal/model"
)

const (
	// ActiveMaxMinutes is the last idle minute still counted as active.
	ActiveMaxMinutes = 5
	// IdleMaxMinutes is the last idle minute still counted as idle.
	IdleMaxMinutes = 10
)

// IdleMinutes returns whole minutes elapsed since lastActive, never negative.
func IdleMinutes(now, lastActive time.Time) int {
	d := now.Sub(lastActive)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}

// Classify maps idle minutes onto active (<=5), idle (6..10) or stuck (>10).
func Classify(idleMinutes int) model.ActivityStatus {
	switch {
	case idleMinutes <= ActiveMaxMinutes:
		return model.ActivityActive
	case idleMinutes <= IdleMaxMinutes:
		return model.ActivityIdle
	default:
		return model.ActivityStuck
	}
}

// TaskAIRatio is aiLen / (studentLen + aiLen), or 0 when both are empty.
// Lengths are counted in characters.
func TaskAIRatio(studentContent, aiContent string) float64 {
	studentLen := utf8.RuneCountInString(studentContent)
	aiLen := utf8.RuneCountInString(aiContent)
	total := studentLen + aiLen
	if total == 0 {
		return 0
	}
	return float64(aiLen) / float64(total)
}

// ProjectAIRatio is the unweighted mean ratio of completed tasks.
func ProjectAIRatio(progress []model.TaskProgress) float64 {
	var sum float64
	var n int
	for _, p := range progress {
		if p.Status != model.TaskCompleted {
			continue
		}
		sum += p.AIRatio
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// LastActive is the last activity of the in-progress task, falling back to
// the project's update time.
func LastActive(project *model.Project) time.Time {
	for _, p := range project.Progress {
		if p.Status == model.TaskInProgress && !p.LastActiveAt.IsZero() {
			return p.LastActiveAt
		}
	}
	return project.UpdatedAt
}

// Summarize builds the dashboard row of a project. Template and Progress must
// be loaded.
func Summarize(now time.Time, project *model.Project) model.StudentStatus {
	totalTasks := 0
	if project.Template != nil {
		totalTasks = len(project.Template.Tasks)
	}

	completed := 0
	for _, p := range project.Progress {
		if p.Status == model.TaskCompleted {
			completed++
		}
	}

	idle := IdleMinutes(now, LastActive(project))

	return model.StudentStatus{
		ProjectID:      project.ID,
		Student:        project.User,
		ProjectTitle:   project.Title,
		CurrentPhase:   project.CurrentPhase,
		CurrentTask:    project.CurrentTask,
		TotalTasks:     totalTasks,
		CompletedTasks: completed,
		AIRatio:        Percent(ProjectAIRatio(project.Progress)),
		ActivityStatus: Classify(idle),
		IdleMinutes:    idle,
		Status:         project.Status,
	}
}

// BuildDashboard summarizes every project and counts statuses.
func BuildDashboard(now time.Time, projects []model.Project) *model.Dashboard {
	d := &model.Dashboard{Students: make([]model.StudentStatus, 0, len(projects))}
	for i := range projects {
		s := Summarize(now, &projects[i])
		switch s.ActivityStatus {
		case model.ActivityActive:
			d.ActiveCount++
		case model.ActivityIdle:
			d.IdleCount++
		case model.ActivityStuck:
			d.StuckCount++
		}
		d.Students = append(d.Students, s)
	}
	d.TotalStudents = len(d.Students)
	return d
}

// BuildTaskAnalytics aggregates completed progress rows per task index,
// ordered by index.
func BuildTaskAnalytics(projects []model.Project) []model.TaskAnalytics {
	type acc struct {
		count    int
		duration time.Duration
		ratio    float64
	}
	stats := make(map[int]*acc)

	for _, project := range projects {
		for _, p := range project.Progress {
			if p.StartedAt == nil || p.CompletedAt == nil {
				continue
			}
			a, ok := stats[p.TaskIndex]
			if !ok {
				a = &acc{}
				stats[p.TaskIndex] = a
			}
			a.count++
			a.duration += p.CompletedAt.Sub(*p.StartedAt)
			a.ratio += p.AIRatio
		}
	}

	out := make([]model.TaskAnalytics, 0, len(stats))
	for index, a := range stats {
		out = append(out, model.TaskAnalytics{
			TaskIndex:          index,
			AvgDurationMinutes: int(math.Round(a.duration.Minutes() / float64(a.count))),
			AvgAIRatio:         Percent(a.ratio / float64(a.count)),
			CompletedCount:     a.count,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskIndex < out[j].TaskIndex })
	return out
}

// Percent converts a ratio in [0,1] to a rounded percentage.
func Percent(ratio float64) int {
	return int(math.Round(ratio * 100))
}
