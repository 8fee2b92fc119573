package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/capitalize-ai/classroom/internal/model"
)

const (
	// StreamName is the name of the classroom event stream.
	StreamName = "CLASSROOM"

	// SubjectPrefix is the prefix for all classroom subjects.
	SubjectPrefix = "classroom"
)

// Publisher is a JetStream backed event sink for activity logs and
// teacher reminders.
type Publisher struct {
	client *Client
}

// NewPublisher creates a new publisher.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// EnsureStream ensures the classroom stream exists with proper configuration.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	js := p.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      180 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Student activity and teacher reminders",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// token makes s safe to use as a single subject token.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(s)
}

// ActivitySubject returns the subject for an activity entry.
func ActivitySubject(userID, action string) string {
	return fmt.Sprintf("%s.activity.%s.%s", SubjectPrefix, token(userID), token(action))
}

// ReminderSubject returns the subject for a reminder sent to studentID.
func ReminderSubject(studentID string) string {
	return fmt.Sprintf("%s.reminder.%s", SubjectPrefix, token(studentID))
}

// ActivityFilter returns the filter subject for all activity of userID.
func ActivityFilter(userID string) string {
	return fmt.Sprintf("%s.activity.%s.>", SubjectPrefix, token(userID))
}

// PublishActivity publishes an activity entry to JetStream.
func (p *Publisher) PublishActivity(ctx context.Context, entry *model.ActivityLog) error {
	return p.publish(ctx, ActivitySubject(entry.UserID, entry.Action), entry)
}

// PublishReminder publishes a reminder to JetStream.
func (p *Publisher) PublishReminder(ctx context.Context, reminder *model.Reminder) error {
	return p.publish(ctx, ReminderSubject(reminder.StudentID), reminder)
}

func (p *Publisher) publish(ctx context.Context, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := p.client.JetStream().Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	return nil
}

// ErrInvalidLimit is returned when a replay is asked for fewer than one entry.
var ErrInvalidLimit = errors.New("limit must be positive")

const replayBatch = 256

// RecentActivity replays the stream for userID and returns its last limit
// activity entries, oldest first.
func (p *Publisher) RecentActivity(ctx context.Context, userID string, limit int) ([]model.ActivityLog, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	consumer, err := p.client.JetStream().OrderedConsumer(ctx, StreamName, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{ActivityFilter(userID)},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	entries := make([]model.ActivityLog, 0, limit)
	for {
		batch, err := consumer.Fetch(replayBatch, jetstream.FetchMaxWait(2*time.Second))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch activity: %w", err)
		}

		received := 0
		caughtUp := false
		for msg := range batch.Messages() {
			received++
			if meta, err := msg.Metadata(); err == nil && meta.NumPending == 0 {
				caughtUp = true
			}
			var entry model.ActivityLog
			if err := json.Unmarshal(msg.Data(), &entry); err != nil {
				continue
			}
			entries = keepLast(entries, entry, limit)
		}

		if err := batch.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, jetstream.ErrNoMessages) {
			return nil, fmt.Errorf("batch error: %w", err)
		}
		if received == 0 || caughtUp {
			return entries, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// keepLast appends v and drops the oldest elements beyond limit.
func keepLast[T any](buf []T, v T, limit int) []T {
	buf = append(buf, v)
	if over := len(buf) - limit; over > 0 {
		n := copy(buf, buf[over:])
		buf = buf[:n]
	}
	return buf
}
