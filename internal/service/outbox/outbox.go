package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/escrowledger/internal/logger"
	"github.com/nkiryanov/escrowledger/internal/models"
	"github.com/nkiryanov/escrowledger/internal/service/notify"
)

const (
	defaultCountWorkers = 4                // Number of workers to deliver notifications
	defaultInterval     = 5 * time.Second  // Interval for claiming pending notifications
	defaultBatchSize    = 50               // Notifications claimed per tick
	defaultReclaimAfter = 5 * time.Minute  // Claimed but not delivered notification is claimed again after
	defaultRetryDelay   = 10 * time.Second // Workers pause after sink failure
)

type notificationRepo interface {
	ClaimPending(ctx context.Context, limit int, reclaimAfter time.Duration) ([]models.Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
}

// Zero values are replaced with defaults
type Config struct {
	Interval     time.Duration
	Workers      int
	BatchSize    int
	ReclaimAfter time.Duration
	RetryDelay   time.Duration
}

// Delivers notifications written in ledger transactions to the notification sink
// Delivery is at-least-once: notification is marked sent only after the sink accepted it
type Processor struct {
	consumer *Consumer
	producer *Producer
	logger   logger.Logger
}

func New(cfg Config, repo notificationRepo, sender notify.Sender, l logger.Logger) *Processor {
	setDefault := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefault(&cfg.Interval, defaultInterval)
	setDefault(&cfg.ReclaimAfter, defaultReclaimAfter)
	setDefault(&cfg.RetryDelay, defaultRetryDelay)
	if cfg.Workers <= 0 {
		cfg.Workers = defaultCountWorkers
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}

	return &Processor{
		consumer: &Consumer{
			countWorkers: cfg.Workers,
			retryDelay:   cfg.RetryDelay,
			repo:         repo,
			sender:       sender,
			logger:       l,
		},
		producer: &Producer{
			interval:     cfg.Interval,
			batchSize:    cfg.BatchSize,
			reclaimAfter: cfg.ReclaimAfter,
			repo:         repo,
			logger:       l,
		},
		logger: l,
	}
}

func (p *Processor) Process(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})

	notifications := make(chan models.Notification)

	// Start producer to claim pending notifications
	producerStopped := p.producer.Produce(ctx, notifications)

	// Start consumer to deliver them
	consumerStopped := p.consumer.Consume(ctx, notifications)

	go func() {
		defer close(idleStopped)
		defer close(notifications)
		<-producerStopped
		<-consumerStopped
		p.logger.Debug("Outbox processor stopped")
	}()

	return idleStopped
}
