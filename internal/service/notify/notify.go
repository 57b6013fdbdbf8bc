package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/nkiryanov/escrowledger/internal/logger"
	"github.com/nkiryanov/escrowledger/internal/models"
)

const (
	// Notifications are enqueued to this queue for the marketplace notification workers
	Queue = "notifications"

	TaskPrefix = "notification:"
)

// Delivers user-facing notification to the notification sink
type Sender interface {
	Send(ctx context.Context, n models.Notification) error
}

type Payload struct {
	NotificationID uuid.UUID `json:"notification_id"`
	ProfileID      uuid.UUID `json:"profile_id"`
	Kind           string    `json:"kind"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}

// Build asynq task for notification
// Task type is "notification:<kind>", so consumers may route by kind
func NewTask(n models.Notification) (*asynq.Task, error) {
	b, err := json.Marshal(Payload{
		NotificationID: n.ID,
		ProfileID:      n.ProfileID,
		Kind:           n.Kind,
		Message:        n.Message,
		CreatedAt:      n.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("can't encode notification payload. Err: %w", err)
	}

	return asynq.NewTask(TaskPrefix+n.Kind, b), nil
}

// Enqueue notifications to redis backed asynq queue
type AsynqSender struct {
	client *asynq.Client
}

func NewAsynqSender(redisAddr string) *AsynqSender {
	return &AsynqSender{
		client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr}),
	}
}

// Notification id is the task id, so redelivery of the same notification is deduplicated
func (s *AsynqSender) Send(ctx context.Context, n models.Notification) error {
	task, err := NewTask(n)
	if err != nil {
		return err
	}

	_, err = s.client.EnqueueContext(ctx, task, asynq.Queue(Queue), asynq.TaskID(n.ID.String()))
	switch {
	case err == nil, errors.Is(err, asynq.ErrTaskIDConflict):
		return nil
	default:
		return fmt.Errorf("can't enqueue notification. Err: %w", err)
	}
}

func (s *AsynqSender) Close() error {
	return s.client.Close()
}

// Write notifications to log
// Used when no redis configured
type LogSender struct {
	logger logger.Logger
}

func NewLogSender(l logger.Logger) *LogSender {
	return &LogSender{logger: l}
}

func (s *LogSender) Send(_ context.Context, n models.Notification) error {
	s.logger.Info("Notification", "notification_id", n.ID, "profile_id", n.ProfileID, "kind", n.Kind, "message", n.Message)
	return nil
}
