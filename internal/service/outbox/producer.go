package outbox

import (
	"context"
	"time"

	"github.com/nkiryanov/escrowledger/internal/logger"
	"github.com/nkiryanov/escrowledger/internal/models"
)

type Producer struct {
	interval     time.Duration
	batchSize    int
	reclaimAfter time.Duration
	repo         notificationRepo
	logger       logger.Logger
}

func (p *Producer) Produce(ctx context.Context, out chan<- models.Notification) <-chan struct{} {
	idleStopped := make(chan struct{})
	p.logger.Debug("Starting producer", "interval", p.interval, "batch_size", p.batchSize)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Debug("Producer stopped by context")
				return

			case <-ticker.C:
				notifications, err := p.repo.ClaimPending(ctx, p.batchSize, p.reclaimAfter)
				if err != nil {
					p.logger.Error("Failed to claim notifications", "error", err)
					continue
				}

				for _, n := range notifications {
					select {
					case <-ctx.Done():
						p.logger.Debug("Producer stopped by context while sending notifications")
						return
					case out <- n:
						p.logger.Debug("Notification sent to channel", "notification_id", n.ID)
					}
				}
			}
		}
	}()

	return idleStopped
}
