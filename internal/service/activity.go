package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/classroom/internal/model"
	"github.com/capitalize-ai/classroom/internal/store"
	"github.com/capitalize-ai/classroom/pkg/logger"
	"github.com/capitalize-ai/classroom/pkg/metrics"
)

// EventPublisher forwards domain events to an external bus.
type EventPublisher interface {
	PublishActivity(ctx context.Context, entry *model.ActivityLog) error
	PublishReminder(ctx context.Context, reminder *model.Reminder) error
}

// ActivityRecorder writes the activity trail. Every failure is logged and
// swallowed so the calling request still succeeds.
type ActivityRecorder struct {
	store     *store.Store
	publisher EventPublisher
	logger    *logger.Logger
	now       func() time.Time
}

// NewActivityRecorder creates a recorder. publisher may be nil.
func NewActivityRecorder(s *store.Store, publisher EventPublisher, log *logger.Logger) *ActivityRecorder {
	return &ActivityRecorder{store: s, publisher: publisher, logger: log, now: time.Now}
}

// Record stores one entry for userID. details is marshaled to JSON.
func (r *ActivityRecorder) Record(ctx context.Context, userID, action string, details any) {
	ctx = context.WithoutCancel(ctx)

	raw, err := json.Marshal(details)
	if err != nil || details == nil {
		raw = []byte("{}")
	}

	entry := &model.ActivityLog{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		Action:    action,
		Details:   raw,
		CreatedAt: r.now(),
	}

	if err := r.store.CreateActivityLog(ctx, entry); err != nil {
		metrics.ActivityLogFailures.WithLabelValues("store").Inc()
		r.logger.Warn("failed to record activity",
			zap.String("user_id", userID),
			zap.String("action", action),
			zap.Error(err),
		)
		return
	}
	metrics.ActivityEventsTotal.WithLabelValues(action).Inc()

	if r.publisher == nil {
		return
	}
	if err := r.publisher.PublishActivity(ctx, entry); err != nil {
		metrics.ActivityLogFailures.WithLabelValues("nats").Inc()
		r.logger.Warn("failed to publish activity",
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

// PublishReminder forwards a reminder to the bus, best-effort.
func (r *ActivityRecorder) PublishReminder(ctx context.Context, reminder *model.Reminder) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.PublishReminder(context.WithoutCancel(ctx), reminder); err != nil {
		metrics.ActivityLogFailures.WithLabelValues("nats").Inc()
		r.logger.Warn("failed to publish reminder",
			zap.String("reminder_id", reminder.ID),
			zap.Error(err),
		)
	}
}
