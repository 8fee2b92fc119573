package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capitalize-ai/classroom/internal/middleware"
	"github.com/capitalize-ai/classroom/internal/model"
	"github.com/capitalize-ai/classroom/pkg/logger"
)

// Deps carries everything the router needs.
type Deps struct {
	Logger        *logger.Logger
	Authenticator middleware.Authenticator

	AllowedOrigins    []string
	RateLimitRequests int
	RateLimitWindow   time.Duration

	Health        *HealthHandler
	Auth          *AuthHandler
	Conversations *ConversationHandler
	AIConfigs     *AIConfigHandler
	Annotations   *AnnotationHandler
	Documents     *DocumentHandler
	Projects      *ProjectHandler
	Teacher       *TeacherHandler
	Uploads       *UploadHandler
}

// NewRouter builds the HTTP API.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(d.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recoverer(d.Logger))
	r.Use(middleware.CORS(d.AllowedOrigins))
	if d.RateLimitRequests > 0 {
		r.Use(middleware.RateLimit(d.RateLimitRequests, d.RateLimitWindow))
	}

	r.Get("/ready", d.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	teacherOnly := middleware.RequireRole(model.UserRoleTeacher)

	// requireUser authenticates and rate-limits a route group per user.
	requireUser := func(r chi.Router) {
		r.Use(middleware.Auth(d.Authenticator, d.Logger))
		if d.RateLimitRequests > 0 {
			r.Use(middleware.UserRateLimit(d.RateLimitRequests, d.RateLimitWindow))
		}
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", d.Health.Health)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", d.Auth.Register)
			r.Post("/login", d.Auth.Login)

			r.Group(func(r chi.Router) {
				requireUser(r)
				r.Post("/logout", d.Auth.Logout)
				r.Get("/me", d.Auth.Me)
				r.With(teacherOnly).Post("/batch-create-students", d.Auth.BatchCreateStudents)
			})
		})

		r.Route("/uploads", func(r chi.Router) {
			r.Get("/{filename}", d.Uploads.Serve)

			r.Group(func(r chi.Router) {
				requireUser(r)
				r.Post("/", d.Uploads.Upload)
				r.Post("/multiple", d.Uploads.UploadMultiple)
				r.Delete("/{filename}", d.Uploads.Delete)
			})
		})

		r.Group(func(r chi.Router) {
			requireUser(r)

			r.Route("/conversations", func(r chi.Router) {
				r.Post("/", d.Conversations.Create)
				r.Get("/", d.Conversations.List)

				r.Route("/{id}", func(r chi.Router) {
					r.Use(middleware.ValidateIDParams("id"))
					r.Get("/", d.Conversations.Get)
					r.Delete("/", d.Conversations.Delete)
					r.Post("/messages", d.Conversations.SendMessage)
				})
			})

			r.Route("/ai", func(r chi.Router) {
				r.Get("/configs", d.AIConfigs.List)
				r.Get("/providers", d.AIConfigs.Providers)

				r.Group(func(r chi.Router) {
					r.Use(teacherOnly)
					r.Post("/configs", d.AIConfigs.Create)
					r.With(middleware.ValidateIDParams("id")).Put("/configs/{id}", d.AIConfigs.Update)
					r.With(middleware.ValidateIDParams("id")).Delete("/configs/{id}", d.AIConfigs.Delete)
				})
			})

			r.Route("/annotations", func(r chi.Router) {
				r.With(middleware.ValidateIDParams("messageId")).Get("/message/{messageId}", d.Annotations.ListByMessage)
				r.Post("/", d.Annotations.Create)
				r.With(middleware.ValidateIDParams("id")).Patch("/{id}", d.Annotations.Update)
				r.With(middleware.ValidateIDParams("id")).Delete("/{id}", d.Annotations.Delete)
			})

			r.Route("/notes/{conversationId}", func(r chi.Router) {
				r.Use(middleware.ValidateIDParams("conversationId"))
				r.Get("/", d.Documents.GetNote)
				r.Put("/", d.Documents.PutNote)
				r.Post("/add-knowledge", d.Documents.AddKnowledge)
			})

			r.Route("/drafts/{conversationId}", func(r chi.Router) {
				r.Use(middleware.ValidateIDParams("conversationId"))
				r.Get("/", d.Documents.GetDraft)
				r.Put("/", d.Documents.PutDraft)
				r.Post("/organize", d.Documents.Organize)
				r.Post("/snapshot", d.Documents.Snapshot)
				r.Get("/history", d.Documents.History)
			})

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", d.Projects.List)
				r.Post("/", d.Projects.Create)
				r.Get("/reminders/unread", d.Projects.UnreadReminders)
				r.With(middleware.ValidateIDParams("id")).Put("/reminders/{id}/read", d.Projects.MarkReminderRead)
				r.Get("/templates/available", d.Projects.AvailableTemplates)

				r.Route("/{id}", func(r chi.Router) {
					r.Use(middleware.ValidateIDParams("id"))
					r.Get("/", d.Projects.Get)
					r.Put("/progress/{taskIndex}", d.Projects.UpdateProgress)
					r.Post("/compare", d.Projects.Compare)
				})
			})

			r.Route("/teacher", func(r chi.Router) {
				r.Use(teacherOnly)
				r.Get("/dashboard", d.Teacher.Dashboard)
				r.Get("/students", d.Teacher.Students)
				r.With(middleware.ValidateIDParams("userId")).Get("/student/{userId}", d.Teacher.StudentDetail)
				r.Post("/reminder", d.Teacher.SendReminder)
				r.Get("/analytics", d.Teacher.Analytics)
				r.Get("/templates", d.Teacher.Templates)
				r.Post("/templates/init", d.Teacher.InitTemplate)
			})
		})
	})

	return r
}
